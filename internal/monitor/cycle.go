// Package monitor implements the periodic tracking refresh cycle: fetch
// provider snapshots for every active container, detect significant
// changes, persist them, and feed the alerting and broadcast paths.
package monitor

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/portsense/portsense/internal/alerting"
	"github.com/portsense/portsense/internal/hub"
	"github.com/portsense/portsense/internal/metrics"
	"github.com/portsense/portsense/internal/models"
	"github.com/portsense/portsense/internal/notifier"
	"github.com/portsense/portsense/internal/storage"
	"github.com/portsense/portsense/internal/tracking"
)

// ErrCycleRunning is returned when RunCycle is invoked while a cycle is
// already in flight. Callers skip the round rather than queueing.
var ErrCycleRunning = errors.New("monitoring cycle already running")

const (
	// defaultWorkers bounds concurrent container processing.
	defaultWorkers = 5

	// significantDelayDelta is the minimum delay change, in hours,
	// that counts as significant on its own.
	significantDelayDelta = 6

	// delayIssueHours is the delay beyond which a "Significant delay"
	// issue is attached to the container.
	delayIssueHours = 24

	// Risk thresholds in delay hours.
	riskHighHours   = 48
	riskMediumHours = 12
)

// CycleResult summarizes one completed monitoring cycle.
type CycleResult struct {
	Processed     int           `json:"processed"`
	Updated       int           `json:"updated"`
	Unchanged     int           `json:"unchanged"`
	Skipped       int           `json:"skipped"`
	Errors        int           `json:"errors"`
	AlertsCreated int           `json:"alerts_created"`
	Duration      time.Duration `json:"duration"`
}

// Runner executes monitoring cycles. A Runner is single-flight: only
// one cycle runs at a time, and overlapping invocations are rejected.
type Runner struct {
	store      storage.Storage
	provider   tracking.Provider
	alerts     *alerting.Service
	dispatcher *notifier.Dispatcher
	hub        *hub.Hub
	log        zerolog.Logger

	workers int
	running atomic.Bool

	lastRun atomic.Pointer[CycleResult]
}

// NewRunner wires the cycle against its collaborators. dispatcher and
// hub may be nil; the corresponding steps are then skipped.
func NewRunner(store storage.Storage, provider tracking.Provider, alerts *alerting.Service, dispatcher *notifier.Dispatcher, h *hub.Hub, log zerolog.Logger) *Runner {
	return &Runner{
		store:      store,
		provider:   provider,
		alerts:     alerts,
		dispatcher: dispatcher,
		hub:        h,
		log:        log.With().Str("component", "monitor").Logger(),
		workers:    defaultWorkers,
	}
}

// Running reports whether a cycle is currently in flight.
func (r *Runner) Running() bool {
	return r.running.Load()
}

// LastResult returns the most recent completed cycle summary, or nil.
func (r *Runner) LastResult() *CycleResult {
	return r.lastRun.Load()
}

// RunCycle processes every active container once. Returns
// ErrCycleRunning when a cycle is already in flight.
func (r *Runner) RunCycle(ctx context.Context) (*CycleResult, error) {
	return r.RunCycleAt(ctx, time.Now())
}

// RunCycleAt is RunCycle with an explicit clock.
func (r *Runner) RunCycleAt(ctx context.Context, now time.Time) (*CycleResult, error) {
	if !r.running.CompareAndSwap(false, true) {
		metrics.CyclesRejected.Inc()
		return nil, ErrCycleRunning
	}
	defer r.running.Store(false)

	start := time.Now()

	containers, err := r.store.Containers().ListActive(ctx)
	if err != nil {
		return nil, err
	}

	r.log.Info().Int("containers", len(containers)).Msg("monitoring cycle started")

	var updated, unchanged, skipped, errCount, alertCount atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for _, c := range containers {
		c := c
		g.Go(func() error {
			outcome := r.processContainer(gctx, c, now)
			switch outcome.kind {
			case outcomeUpdated:
				updated.Add(1)
				alertCount.Add(int64(outcome.alerts))
			case outcomeUnchanged:
				unchanged.Add(1)
			case outcomeSkipped:
				skipped.Add(1)
			case outcomeError:
				errCount.Add(1)
			}
			metrics.ContainersProcessed.WithLabelValues(outcome.kind).Inc()
			// Per-container failures never abort the batch; only a
			// canceled context stops the group.
			return gctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &CycleResult{
		Processed:     len(containers),
		Updated:       int(updated.Load()),
		Unchanged:     int(unchanged.Load()),
		Skipped:       int(skipped.Load()),
		Errors:        int(errCount.Load()),
		AlertsCreated: int(alertCount.Load()),
		Duration:      time.Since(start),
	}
	r.lastRun.Store(result)

	metrics.CyclesTotal.Inc()
	metrics.CycleDuration.Observe(result.Duration.Seconds())

	r.log.Info().
		Int("processed", result.Processed).
		Int("updated", result.Updated).
		Int("skipped", result.Skipped).
		Int("errors", result.Errors).
		Int("alerts", result.AlertsCreated).
		Dur("duration", result.Duration).
		Msg("monitoring cycle complete")
	return result, nil
}

const (
	outcomeUpdated   = "updated"
	outcomeUnchanged = "unchanged"
	outcomeSkipped   = "skipped"
	outcomeError     = "error"
)

type containerOutcome struct {
	kind   string
	alerts int
}

// processContainer refreshes one container from the provider and, on a
// significant change, runs the full persist/alert/broadcast path.
func (r *Runner) processContainer(ctx context.Context, c *models.Container, now time.Time) containerOutcome {
	snap, err := r.provider.Track(ctx, c.ContainerID)
	if err != nil {
		if errors.Is(err, tracking.ErrNotFound) {
			metrics.ProviderRequests.WithLabelValues("not_found").Inc()
			r.log.Debug().Str("container", c.ContainerID).Msg("provider has no data, skipping")
			return containerOutcome{kind: outcomeSkipped}
		}
		metrics.ProviderRequests.WithLabelValues("error").Inc()
		r.log.Error().Err(err).Str("container", c.ContainerID).Msg("provider lookup failed")
		return containerOutcome{kind: outcomeError}
	}
	metrics.ProviderRequests.WithLabelValues("ok").Inc()

	delay := computeDelay(c.OriginalETA, snap.ETA)

	statusChanged := snap.Status != "" && snap.Status != c.Status
	locationChanged := snap.Location.Name != "" && snap.Location.Name != c.CurrentLocation
	delayChanged := abs(delay-c.DelayHours) >= significantDelayDelta

	if !statusChanged && !locationChanged && !delayChanged {
		return containerOutcome{kind: outcomeUnchanged}
	}

	risk := riskFor(delay)
	issues := issuesFor(delay, snap.Location.Name)

	upd := &models.ContainerUpdate{
		DelayHours: &delay,
		RiskLevel:  &risk,
		Issues:     issues,
	}
	if snap.Status != "" {
		upd.Status = &snap.Status
	}
	if snap.Location.Name != "" {
		upd.CurrentLocation = &snap.Location.Name
		upd.Latitude = &snap.Location.Latitude
		upd.Longitude = &snap.Location.Longitude
	}
	if !snap.ETA.IsZero() {
		eta := snap.ETA
		upd.ETA = &eta
	}
	if snap.VesselName != "" {
		upd.VesselName = &snap.VesselName
	}
	if snap.Voyage != "" {
		upd.VoyageNumber = &snap.Voyage
	}

	fresh, err := r.store.Containers().Update(ctx, c.ID, upd, now)
	if err != nil {
		r.log.Error().Err(err).Str("container", c.ContainerID).Msg("failed to persist update")
		return containerOutcome{kind: outcomeError}
	}

	if err := r.appendHistory(ctx, fresh, now); err != nil {
		// History is advisory; the update itself already succeeded.
		r.log.Error().Err(err).Str("container", c.ContainerID).Msg("failed to append history")
	}

	alertsCreated := r.raiseAlerts(ctx, fresh, now)

	if r.hub != nil {
		r.hub.Publish(&models.ChangeEvent{
			Container:      fresh,
			PreviousStatus: c.Status,
			NewStatus:      fresh.Status,
			ChangeType:     changeTypeFor(statusChanged, locationChanged, delayChanged, c.RiskLevel != risk),
			Timestamp:      now,
		})
	}

	r.log.Info().
		Str("container", c.ContainerID).
		Str("status", fresh.Status).
		Int("delay_hours", fresh.DelayHours).
		Str("risk", string(fresh.RiskLevel)).
		Int("alerts", alertsCreated).
		Msg("container updated")
	return containerOutcome{kind: outcomeUpdated, alerts: alertsCreated}
}

// raiseAlerts evaluates rules for the refreshed container, then
// dispatches notifications for whatever was persisted.
func (r *Runner) raiseAlerts(ctx context.Context, c *models.Container, now time.Time) int {
	alerts, err := r.alerts.CheckContainerAt(ctx, c, now)
	if err != nil {
		r.log.Error().Err(err).Str("container", c.ContainerID).Msg("alert evaluation failed")
		return 0
	}
	if len(alerts) == 0 || r.dispatcher == nil {
		return len(alerts)
	}

	prefs, err := r.store.Preferences().Get(ctx, c.UserID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			r.log.Error().Err(err).Str("user", c.UserID).Msg("failed to load preferences")
		}
		prefs = models.DefaultPreferences(c.UserID, "")
	}

	for _, alert := range alerts {
		result, err := r.dispatcher.Dispatch(ctx, alert, c, prefs)
		if err != nil {
			// Rate-limited alerts keep their unset flags and are
			// retried by the sweep.
			r.log.Warn().Err(err).Str("alert", alert.ID).Msg("dispatch deferred")
			continue
		}
		if err := r.store.Alerts().SetChannelFlags(ctx, alert.ID, result.Email, result.SMS, result.Webhook); err != nil {
			r.log.Error().Err(err).Str("alert", alert.ID).Msg("failed to record delivery flags")
		}
	}
	return len(alerts)
}

func (r *Runner) appendHistory(ctx context.Context, c *models.Container, now time.Time) error {
	return r.store.History().Append(ctx, &models.ContainerHistory{
		ID:          uuid.New().String(),
		ContainerID: c.ID,
		Status:      c.Status,
		Location:    c.CurrentLocation,
		Latitude:    c.Latitude,
		Longitude:   c.Longitude,
		ETA:         c.ETA,
		DelayHours:  c.DelayHours,
		RecordedAt:  now,
	})
}

// computeDelay returns the delay in whole hours between the original
// ETA and the provider's current one. Never negative; early arrivals
// report zero. Zero when either ETA is unknown.
func computeDelay(originalETA *time.Time, newETA time.Time) int {
	if originalETA == nil || originalETA.IsZero() || newETA.IsZero() {
		return 0
	}
	hours := int(math.Floor(newETA.Sub(*originalETA).Hours()))
	if hours < 0 {
		return 0
	}
	return hours
}

// riskFor maps delay hours to a risk level.
func riskFor(delayHours int) models.RiskLevel {
	switch {
	case delayHours > riskHighHours:
		return models.RiskHigh
	case delayHours > riskMediumHours:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

// issuesFor derives the current issue list from delay and location.
func issuesFor(delayHours int, location string) []string {
	var issues []string
	if delayHours > delayIssueHours {
		issues = append(issues, "Significant delay")
	}
	if strings.Contains(strings.ToLower(location), "congestion") {
		issues = append(issues, "Port congestion")
	}
	return issues
}

// changeTypeFor picks the dominant change for the broadcast event.
func changeTypeFor(status, location, delay, risk bool) models.ChangeType {
	switch {
	case location:
		return models.ChangeLocation
	case delay:
		return models.ChangeDelay
	case risk:
		return models.ChangeRisk
	case status:
		return models.ChangeStatus
	default:
		return models.ChangeStatus
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
