// Package ai provides best-effort alert message enrichment through an
// external text-generation service. Enrichment never blocks alerting:
// callers fall back to deterministic text on any failure and never retry.
package ai

import (
	"context"

	"github.com/portsense/portsense/internal/models"
)

// TextGenerator produces a short human-readable alert message from
// container context. Implementations may fail; callers must treat the
// result as optional.
type TextGenerator interface {
	// GenerateAlertMessage returns a one-sentence alert message for the
	// container and alert category.
	GenerateAlertMessage(ctx context.Context, c *models.Container, alertType models.AlertType) (string, error)
}

// Disabled is the generator substituted when no provider is configured.
// It always reports ErrDisabled so callers take their fallback path.
type Disabled struct{}

// GenerateAlertMessage always returns ErrDisabled.
func (Disabled) GenerateAlertMessage(context.Context, *models.Container, models.AlertType) (string, error) {
	return "", ErrDisabled
}
