package notifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/portsense/portsense/internal/models"
	"github.com/portsense/portsense/internal/storage"
)

// sweepBatchSize caps how many undelivered alerts one sweep attempts.
const sweepBatchSize = 20

// Processor retries delivery for alerts that have no successful email
// yet. It runs periodically so alerts created during an outage or a
// rate-limited burst still reach the user.
type Processor struct {
	store      storage.Storage
	dispatcher *Dispatcher
	log        zerolog.Logger
}

// NewProcessor creates a retry processor.
func NewProcessor(store storage.Storage, dispatcher *Dispatcher, log zerolog.Logger) *Processor {
	return &Processor{
		store:      store,
		dispatcher: dispatcher,
		log:        log.With().Str("component", "notify_sweep").Logger(),
	}
}

// ProcessPending dispatches the oldest undelivered alerts and records
// per-channel outcomes. Returns how many alerts had at least one
// successful delivery. Stops early when the anti-storm limiter trips;
// the remainder is retried on the next sweep.
func (p *Processor) ProcessPending(ctx context.Context) (int, error) {
	alerts, err := p.store.Alerts().ListPending(ctx, sweepBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list pending alerts: %w", err)
	}
	if len(alerts) == 0 {
		return 0, nil
	}

	delivered := 0
	for _, alert := range alerts {
		if err := ctx.Err(); err != nil {
			return delivered, err
		}

		container, err := p.store.Containers().GetByID(ctx, alert.ContainerID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				// Container removed since the alert was created. Mark the
				// alert delivered so the sweep stops picking it up.
				p.log.Warn().Str("alert", alert.ID).Str("container", alert.ContainerID).
					Msg("skipping alert for missing container")
				flags := Result{Email: true, SMS: alert.SMSSent, Webhook: alert.WebhookSent}
				if err := p.setFlags(ctx, alert.ID, flags); err != nil {
					p.log.Error().Err(err).Str("alert", alert.ID).Msg("failed to update alert flags")
				}
				continue
			}
			p.log.Error().Err(err).Str("alert", alert.ID).Msg("failed to load container")
			continue
		}

		prefs, err := p.store.Preferences().Get(ctx, alert.UserID)
		if err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				p.log.Error().Err(err).Str("user", alert.UserID).Msg("failed to load preferences")
				continue
			}
			prefs = models.DefaultPreferences(alert.UserID, "")
		}

		result, err := p.dispatcher.Dispatch(ctx, alert, container, prefs)
		if err != nil {
			if errors.Is(err, ErrRateLimited) {
				p.log.Warn().Int("remaining", len(alerts)-delivered).
					Msg("sweep rate limited, deferring remainder")
				return delivered, nil
			}
			p.log.Error().Err(err).Str("alert", alert.ID).Msg("dispatch failed")
			continue
		}

		// Preserve flags already set by earlier attempts.
		merged := Result{
			Email:   result.Email || alert.EmailSent,
			SMS:     result.SMS || alert.SMSSent,
			Webhook: result.Webhook || alert.WebhookSent,
		}
		if err := p.setFlags(ctx, alert.ID, merged); err != nil {
			p.log.Error().Err(err).Str("alert", alert.ID).Msg("failed to update alert flags")
			continue
		}
		if result.Any() {
			delivered++
		}
	}

	p.log.Info().Int("pending", len(alerts)).Int("delivered", delivered).Msg("retry sweep complete")
	return delivered, nil
}

func (p *Processor) setFlags(ctx context.Context, alertID string, r Result) error {
	return p.store.Alerts().SetChannelFlags(ctx, alertID, r.Email, r.SMS, r.Webhook)
}
