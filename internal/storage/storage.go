// Package storage provides database storage interfaces and implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/portsense/portsense/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Storage is the main interface for database operations.
type Storage interface {
	// Open initializes the database connection.
	Open() error
	// Close closes the database connection.
	Close() error
	// Migrate runs database migrations.
	Migrate() error

	// Repository accessors
	Containers() ContainerRepository
	History() HistoryRepository
	Alerts() AlertRepository
	Preferences() PreferenceRepository
}

// ContainerRepository defines operations for tracked containers.
type ContainerRepository interface {
	Create(ctx context.Context, c *models.Container) error
	GetByID(ctx context.Context, id string) (*models.Container, error)
	ListActive(ctx context.Context) ([]*models.Container, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Container, error)
	// Update applies the non-nil fields of upd and sets last_updated
	// to now as a side effect. Returns the updated container.
	Update(ctx context.Context, id string, upd *models.ContainerUpdate, now time.Time) (*models.Container, error)
	SetActive(ctx context.Context, id string, active bool) error
}

// HistoryRepository defines operations for the append-only history log.
type HistoryRepository interface {
	Append(ctx context.Context, h *models.ContainerHistory) error
	ListByContainer(ctx context.Context, containerID string, limit int) ([]*models.ContainerHistory, error)
	// DeleteBefore purges records older than the cutoff and returns
	// the number removed.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// AlertRepository defines operations for durable alerts.
type AlertRepository interface {
	Create(ctx context.Context, a *models.Alert) error
	GetByID(ctx context.Context, id string) (*models.Alert, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.Alert, error)
	// ListSince returns a container's alerts created at or after the
	// given time, newest first. Used by the cooldown filter.
	ListSince(ctx context.Context, containerID string, since time.Time) ([]*models.Alert, error)
	// ListPending returns alerts whose email flag is unset, oldest
	// first, for the notification retry sweep.
	ListPending(ctx context.Context, limit int) ([]*models.Alert, error)
	SetChannelFlags(ctx context.Context, id string, email, sms, webhook bool) error
	// Acknowledge sets acknowledged_at if not already set
	// (first-write-wins).
	Acknowledge(ctx context.Context, id string, at time.Time) error
	Stats(ctx context.Context, userID string, since time.Time) (*models.AlertStats, error)
}

// PreferenceRepository defines operations for notification preferences.
type PreferenceRepository interface {
	Get(ctx context.Context, userID string) (*models.NotificationPreferences, error)
	Upsert(ctx context.Context, p *models.NotificationPreferences) error
}
