package alerting

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/portsense/portsense/internal/metrics"
	"github.com/portsense/portsense/internal/models"
)

// Engine evaluates the rule table against containers. The table itself
// is immutable after construction; only the enabled overlay changes,
// guarded by a mutex so toggles and evaluation can run concurrently.
type Engine struct {
	mu      sync.RWMutex
	rules   []Rule
	enabled map[string]bool

	log   zerolog.Logger
	stats EngineStats
}

// EngineStats tracks engine counters using atomics for lock-free reads.
type EngineStats struct {
	Evaluated  atomic.Int64
	Matched    atomic.Int64
	RuleErrors atomic.Int64
}

// NewEngine creates an engine with the given rule table. Pass
// DefaultRules() for the built-in set.
func NewEngine(rules []Rule, log zerolog.Logger) *Engine {
	enabled := make(map[string]bool, len(rules))
	for _, r := range rules {
		enabled[r.ID] = r.Enabled
	}
	return &Engine{
		rules:   rules,
		enabled: enabled,
		log:     log.With().Str("component", "rules").Logger(),
	}
}

// Evaluate runs every enabled rule against the container at the current
// time and returns all trigger candidates.
func (e *Engine) Evaluate(c *models.Container) []Trigger {
	return e.EvaluateAt(c, time.Now())
}

// EvaluateAt evaluates at a specific time (useful for testing).
// Rules run in table order; a panicking predicate is treated as a
// non-match and must not prevent later rules from matching.
func (e *Engine) EvaluateAt(c *models.Container, now time.Time) []Trigger {
	e.stats.Evaluated.Add(1)

	var triggers []Trigger
	for i := range e.rules {
		rule := &e.rules[i]
		if !e.IsEnabled(rule.ID) {
			continue
		}

		if !e.safeMatch(rule, c, now) {
			continue
		}

		e.stats.Matched.Add(1)
		triggers = append(triggers, Trigger{
			ContainerID: c.ID,
			RuleID:      rule.ID,
			Severity:    rule.Severity,
			AlertType:   rule.AlertType,
			Title:       titleFor(rule, c),
			Message:     messageFor(rule, c),
			Cooldown:    rule.Cooldown,
			EvaluatedAt: now,
		})
	}
	return triggers
}

// safeMatch runs a predicate, converting a panic into a non-match.
func (e *Engine) safeMatch(rule *Rule, c *models.Container, now time.Time) (matched bool) {
	defer func() {
		if r := recover(); r != nil {
			e.stats.RuleErrors.Add(1)
			metrics.RuleErrors.Inc()
			e.log.Error().
				Str("rule", rule.ID).
				Str("container", c.ID).
				Interface("panic", r).
				Msg("rule predicate panicked; treating as non-match")
			matched = false
		}
	}()
	return rule.predicate(c, now)
}

// Rules returns a copy of the rule table with effective enabled flags.
func (e *Engine) Rules() []Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	for i := range out {
		out[i].Enabled = e.enabled[out[i].ID]
		out[i].predicate = nil
	}
	return out
}

// IsEnabled reports whether the rule with the given id is enabled.
func (e *Engine) IsEnabled(id string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.enabled[id]
}

// SetEnabled toggles a rule at runtime. Returns false for unknown ids.
func (e *Engine) SetEnabled(id string, enabled bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.enabled[id]; !ok {
		return false
	}
	e.enabled[id] = enabled
	return true
}

// CooldownFor returns the cooldown duration of the rule with the given
// id, or zero if unknown.
func (e *Engine) CooldownFor(id string) time.Duration {
	for i := range e.rules {
		if e.rules[i].ID == id {
			return e.rules[i].Cooldown
		}
	}
	return 0
}

// StatsSnapshot is a point-in-time copy of the engine counters.
type StatsSnapshot struct {
	Evaluated  int64 `json:"evaluated"`
	Matched    int64 `json:"matched"`
	RuleErrors int64 `json:"rule_errors"`
}

// Stats returns a snapshot of engine statistics.
func (e *Engine) Stats() StatsSnapshot {
	return StatsSnapshot{
		Evaluated:  e.stats.Evaluated.Load(),
		Matched:    e.stats.Matched.Load(),
		RuleErrors: e.stats.RuleErrors.Load(),
	}
}
