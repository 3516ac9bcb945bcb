// Package alerting provides the container alert rule engine: a fixed,
// inspectable rule table evaluated against container state, cooldown
// suppression against recent alerts, and persistence of surviving
// triggers with best-effort message enrichment.
package alerting

import (
	"fmt"
	"strings"
	"time"

	"github.com/portsense/portsense/internal/models"
)

// Predicate decides whether a rule matches a container at a given time.
// Predicates are pure and must not mutate the container.
type Predicate func(c *models.Container, now time.Time) bool

// Rule is a single declarative alert rule. The rule table is fixed at
// deployment; only the enabled flag changes at runtime.
type Rule struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Severity    models.Severity  `json:"severity"`
	AlertType   models.AlertType `json:"alert_type"`
	Cooldown    time.Duration    `json:"cooldown"`
	Enabled     bool             `json:"enabled"`

	predicate Predicate
}

// Trigger is a candidate alert produced by a matching rule, before
// cooldown filtering. Triggers are never persisted directly.
type Trigger struct {
	ContainerID string
	RuleID      string
	Severity    models.Severity
	AlertType   models.AlertType
	Title       string
	Message     string
	Cooldown    time.Duration
	EvaluatedAt time.Time
}

// concerningStatuses is the denylist for the unexpected-status rule.
var concerningStatuses = []string{"lost", "damaged", "seized", "missing"}

// stuckThreshold is how long a non-delivered container may sit without
// an update before the stuck-at-location rule fires.
const stuckThreshold = 3 * 24 * time.Hour

// DefaultRules returns the built-in rule table in evaluation order.
// Delay ranges are exclusive and non-overlapping so a single delay
// value matches exactly one delay rule.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:          "critical-delay-72h",
			Name:        "Critical Delay (72+ hours)",
			Description: "Container is delayed by more than 72 hours",
			Severity:    models.SeverityHigh,
			AlertType:   models.AlertTypeDelay,
			Cooldown:    24 * time.Hour,
			Enabled:     true,
			predicate: func(c *models.Container, _ time.Time) bool {
				return c.DelayHours >= 72
			},
		},
		{
			ID:          "major-delay-48h",
			Name:        "Major Delay (48+ hours)",
			Description: "Container is delayed by more than 48 hours",
			Severity:    models.SeverityHigh,
			AlertType:   models.AlertTypeDelay,
			Cooldown:    12 * time.Hour,
			Enabled:     true,
			predicate: func(c *models.Container, _ time.Time) bool {
				return c.DelayHours >= 48 && c.DelayHours < 72
			},
		},
		{
			ID:          "moderate-delay-24h",
			Name:        "Moderate Delay (24+ hours)",
			Description: "Container is delayed by more than 24 hours",
			Severity:    models.SeverityMedium,
			AlertType:   models.AlertTypeDelay,
			Cooldown:    8 * time.Hour,
			Enabled:     true,
			predicate: func(c *models.Container, _ time.Time) bool {
				return c.DelayHours >= 24 && c.DelayHours < 48
			},
		},
		{
			ID:          "minor-delay-12h",
			Name:        "Minor Delay (12+ hours)",
			Description: "Container is delayed by more than 12 hours",
			Severity:    models.SeverityLow,
			AlertType:   models.AlertTypeDelay,
			Cooldown:    6 * time.Hour,
			Enabled:     true,
			predicate: func(c *models.Container, _ time.Time) bool {
				return c.DelayHours >= 12 && c.DelayHours < 24
			},
		},
		{
			ID:          "container-issues",
			Name:        "Container Issues Detected",
			Description: "Container has reported issues or problems",
			Severity:    models.SeverityMedium,
			AlertType:   models.AlertTypeIssue,
			Cooldown:    4 * time.Hour,
			Enabled:     true,
			predicate: func(c *models.Container, _ time.Time) bool {
				return len(c.Issues) > 0
			},
		},
		{
			ID:          "high-risk",
			Name:        "High Risk Container",
			Description: "Container has been marked as high risk",
			Severity:    models.SeverityHigh,
			AlertType:   models.AlertTypeIssue,
			Cooldown:    6 * time.Hour,
			Enabled:     true,
			predicate: func(c *models.Container, _ time.Time) bool {
				return c.RiskLevel == models.RiskHigh
			},
		},
		{
			ID:          "stuck-at-location",
			Name:        "Container Stuck at Location",
			Description: "Container has not moved for an extended period",
			Severity:    models.SeverityMedium,
			AlertType:   models.AlertTypeLocation,
			Cooldown:    12 * time.Hour,
			Enabled:     true,
			predicate: func(c *models.Container, now time.Time) bool {
				if c.LastUpdated.IsZero() {
					return false
				}
				return now.Sub(c.LastUpdated) > stuckThreshold &&
					!strings.EqualFold(c.Status, "delivered")
			},
		},
		{
			ID:          "unexpected-status",
			Name:        "Unexpected Status Change",
			Description: "Container status indicates a serious problem",
			Severity:    models.SeverityHigh,
			AlertType:   models.AlertTypeIssue,
			Cooldown:    1 * time.Hour,
			Enabled:     true,
			predicate: func(c *models.Container, _ time.Time) bool {
				status := strings.ToLower(c.Status)
				for _, s := range concerningStatuses {
					if strings.Contains(status, s) {
						return true
					}
				}
				return false
			},
		},
	}
}

// titleFor builds the deterministic alert title for a rule match.
func titleFor(rule *Rule, c *models.Container) string {
	ref := containerRef(c)
	switch rule.AlertType {
	case models.AlertTypeDelay:
		return fmt.Sprintf("Container %s Delayed (%dh)", ref, c.DelayHours)
	case models.AlertTypeIssue:
		return fmt.Sprintf("Container %s Issue Detected", ref)
	case models.AlertTypeLocation:
		return fmt.Sprintf("Container %s Location Concern", ref)
	default:
		return fmt.Sprintf("Container %s Alert: %s", ref, rule.Name)
	}
}

// messageFor builds the deterministic alert message for a rule match.
// This text doubles as the fallback when AI enrichment fails.
func messageFor(rule *Rule, c *models.Container) string {
	ref := containerRef(c)
	location := c.CurrentLocation
	if location == "" {
		location = "Unknown location"
	}

	switch rule.ID {
	case "critical-delay-72h", "major-delay-48h", "moderate-delay-24h", "minor-delay-12h":
		return fmt.Sprintf("Container %s is currently delayed by %d hours. Current location: %s. Status: %s.",
			ref, c.DelayHours, location, c.Status)
	case "container-issues":
		issues := "Unknown issues"
		if len(c.Issues) > 0 {
			issues = strings.Join(c.Issues, ", ")
		}
		return fmt.Sprintf("Container %s has reported issues: %s. Current location: %s.",
			ref, issues, location)
	case "high-risk":
		return fmt.Sprintf("Container %s has been classified as high risk. Immediate attention may be required. Current location: %s.",
			ref, location)
	case "stuck-at-location":
		return fmt.Sprintf("Container %s appears to be stuck at %s. Last update: %s.",
			ref, location, c.LastUpdated.Format("2006-01-02"))
	case "unexpected-status":
		return fmt.Sprintf("Container %s status has changed to %q which may require attention. Current location: %s.",
			ref, c.Status, location)
	default:
		return fmt.Sprintf("Container %s triggered alert rule: %s. Current location: %s.",
			ref, rule.Name, location)
	}
}

func containerRef(c *models.Container) string {
	if c.ContainerID != "" {
		return c.ContainerID
	}
	return c.ID
}
