// Package notifier delivers persisted alerts to users over independent
// channels (email, SMS, chat webhook). Channel attempts are isolated:
// one channel failing is recorded and never short-circuits the others.
package notifier

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/portsense/portsense/internal/metrics"
	"github.com/portsense/portsense/internal/models"
)

// sendTimeout bounds a single channel attempt.
const sendTimeout = 30 * time.Second

// ErrRateLimited is returned when a dispatch is dropped by the
// anti-storm limiter. The alert keeps its unset flags and is picked up
// by a later retry sweep.
var ErrRateLimited = errors.New("notification rate limited")

// Channel is one notification delivery mechanism.
type Channel interface {
	// Name returns the channel name: "email", "sms", or "webhook".
	Name() string
	// Enabled reports whether the user's preferences allow this channel.
	Enabled(prefs *models.NotificationPreferences) bool
	// Send delivers the alert. Implementations must honor ctx.
	Send(ctx context.Context, alert *models.Alert, c *models.Container, prefs *models.NotificationPreferences) error
}

// Result records per-channel delivery outcomes for one alert.
type Result struct {
	Email   bool `json:"email"`
	SMS     bool `json:"sms"`
	Webhook bool `json:"webhook"`
}

// Any reports whether at least one channel succeeded.
func (r Result) Any() bool {
	return r.Email || r.SMS || r.Webhook
}

// Dispatcher fans an alert out to all enabled channels concurrently.
type Dispatcher struct {
	channels []Channel
	limiter  *RateLimiter
	log      zerolog.Logger
}

// NewDispatcher creates a dispatcher with default anti-storm limiting.
func NewDispatcher(log zerolog.Logger, channels ...Channel) *Dispatcher {
	return NewDispatcherWithRateLimit(DefaultRateLimitConfig(), log, channels...)
}

// NewDispatcherWithRateLimit creates a dispatcher with a custom
// anti-storm configuration.
func NewDispatcherWithRateLimit(config RateLimitConfig, log zerolog.Logger, channels ...Channel) *Dispatcher {
	return &Dispatcher{
		channels: channels,
		limiter:  NewRateLimiter(config),
		log:      log.With().Str("component", "notifier").Logger(),
	}
}

// Dispatch attempts delivery on every channel the user has enabled,
// concurrently, and joins the per-channel outcomes. A channel error is
// logged and recorded as false; no error from a channel ever escapes.
// Only a limiter drop returns a non-nil error.
func (d *Dispatcher) Dispatch(ctx context.Context, alert *models.Alert, c *models.Container, prefs *models.NotificationPreferences) (Result, error) {
	if prefs == nil {
		prefs = models.DefaultPreferences(alert.UserID, "")
	}

	if !d.limiter.Allow() {
		metrics.NotificationsRateLimited.Inc()
		d.log.Warn().Str("alert", alert.ID).Msg("dispatch dropped by anti-storm limiter")
		return Result{}, ErrRateLimited
	}

	var (
		mu       sync.Mutex
		result   Result
		attempts int
		failures int
		wg       sync.WaitGroup
	)

	for _, ch := range d.channels {
		if !ch.Enabled(prefs) {
			continue
		}
		attempts++

		wg.Add(1)
		go func(ch Channel) {
			defer wg.Done()

			sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
			defer cancel()

			err := ch.Send(sendCtx, alert, c, prefs)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
				metrics.NotificationsSent.WithLabelValues(ch.Name(), "error").Inc()
				d.log.Error().Err(err).
					Str("alert", alert.ID).
					Str("channel", ch.Name()).
					Msg("notification delivery failed")
				return
			}
			metrics.NotificationsSent.WithLabelValues(ch.Name(), "ok").Inc()
			switch ch.Name() {
			case "email":
				result.Email = true
			case "sms":
				result.SMS = true
			case "webhook":
				result.Webhook = true
			}
		}(ch)
	}

	wg.Wait()

	// Refund the limiter token when nothing was delivered, so a run of
	// outages does not starve later alerts of their budget.
	if attempts > 0 && failures == attempts {
		d.limiter.Release()
	}

	d.log.Info().
		Str("alert", alert.ID).
		Bool("email", result.Email).
		Bool("sms", result.SMS).
		Bool("webhook", result.Webhook).
		Msg("dispatch complete")
	return result, nil
}

// RateLimitStats returns the anti-storm limiter statistics.
func (d *Dispatcher) RateLimitStats() RateLimitStats {
	return d.limiter.Stats()
}
