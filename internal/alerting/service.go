package alerting

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/portsense/portsense/internal/ai"
	"github.com/portsense/portsense/internal/metrics"
	"github.com/portsense/portsense/internal/models"
	"github.com/portsense/portsense/internal/storage"
)

// enrichTimeout bounds a single text-generation call so a hung provider
// cannot stall alert creation.
const enrichTimeout = 10 * time.Second

// Service runs the evaluate -> cooldown -> persist pipeline for one
// container. It holds no per-container state and is safe to call
// concurrently for different containers.
type Service struct {
	engine    *Engine
	store     storage.Storage
	generator ai.TextGenerator
	log       zerolog.Logger
}

// NewService creates an alert service. generator may be ai.Disabled{}.
func NewService(engine *Engine, store storage.Storage, generator ai.TextGenerator, log zerolog.Logger) *Service {
	if generator == nil {
		generator = ai.Disabled{}
	}
	return &Service{
		engine:    engine,
		store:     store,
		generator: generator,
		log:       log.With().Str("component", "alerts").Logger(),
	}
}

// Engine returns the underlying rule engine, for rule administration.
func (s *Service) Engine() *Engine {
	return s.engine
}

// CheckContainer evaluates the rule set against the container, filters
// triggers on cooldown against the trailing alert history, and persists
// every survivor. Returns the created alerts.
func (s *Service) CheckContainer(ctx context.Context, c *models.Container) ([]*models.Alert, error) {
	return s.CheckContainerAt(ctx, c, time.Now())
}

// CheckContainerAt is CheckContainer with an explicit clock.
func (s *Service) CheckContainerAt(ctx context.Context, c *models.Container, now time.Time) ([]*models.Alert, error) {
	triggers := s.engine.EvaluateAt(c, now)
	if len(triggers) == 0 {
		return nil, nil
	}

	recent, err := s.store.Alerts().ListSince(ctx, c.ID, now.Add(-CooldownWindow))
	if err != nil {
		return nil, fmt.Errorf("list recent alerts: %w", err)
	}

	survivors := FilterTriggers(triggers, recent, now)
	if suppressed := len(triggers) - len(survivors); suppressed > 0 {
		metrics.AlertsSuppressed.Add(float64(suppressed))
	}
	if len(survivors) == 0 {
		return nil, nil
	}

	alerts := make([]*models.Alert, 0, len(survivors))
	for _, trig := range survivors {
		alert, err := s.createFromTrigger(ctx, trig, c, now)
		if err != nil {
			// One failed insert must not drop the remaining triggers.
			s.log.Error().Err(err).
				Str("rule", trig.RuleID).
				Str("container", c.ID).
				Msg("failed to persist alert")
			continue
		}
		alerts = append(alerts, alert)
	}
	return alerts, nil
}

// createFromTrigger persists one alert, enriching the message when the
// text generator is available. Enrichment is best-effort: any error
// falls back to the trigger's deterministic message without retry.
func (s *Service) createFromTrigger(ctx context.Context, trig Trigger, c *models.Container, now time.Time) (*models.Alert, error) {
	message := trig.Message
	aiGenerated := false

	enrichCtx, cancel := context.WithTimeout(ctx, enrichTimeout)
	enriched, err := s.generator.GenerateAlertMessage(enrichCtx, c, trig.AlertType)
	cancel()
	if err == nil && enriched != "" {
		message = enriched
		aiGenerated = true
	} else if err != nil && err != ai.ErrDisabled {
		s.log.Warn().Err(err).
			Str("container", c.ID).
			Msg("message enrichment failed; using fallback text")
	}

	alert := &models.Alert{
		ID:          uuid.New().String(),
		ContainerID: c.ID,
		UserID:      c.UserID,
		RuleID:      trig.RuleID,
		AlertType:   trig.AlertType,
		Severity:    trig.Severity,
		Title:       trig.Title,
		Message:     message,
		AIGenerated: aiGenerated,
		CreatedAt:   now,
	}

	if err := s.store.Alerts().Create(ctx, alert); err != nil {
		return nil, fmt.Errorf("create alert: %w", err)
	}
	metrics.AlertsCreated.WithLabelValues(string(alert.Severity)).Inc()

	s.log.Info().
		Str("alert", alert.ID).
		Str("rule", trig.RuleID).
		Str("container", c.ContainerID).
		Str("severity", string(trig.Severity)).
		Msg("alert created")
	return alert, nil
}
