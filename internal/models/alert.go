package models

import "time"

// Severity represents alert severity level.
type Severity string

const (
	SeverityLow    Severity = "Low"
	SeverityMedium Severity = "Medium"
	SeverityHigh   Severity = "High"
)

// ParseSeverity converts a string to Severity.
func ParseSeverity(s string) Severity {
	switch s {
	case "Low", "low":
		return SeverityLow
	case "Medium", "medium":
		return SeverityMedium
	case "High", "high":
		return SeverityHigh
	default:
		return SeverityMedium
	}
}

// AlertType categorizes what condition raised an alert.
type AlertType string

const (
	AlertTypeDelay    AlertType = "delay"
	AlertTypeIssue    AlertType = "issue"
	AlertTypeLocation AlertType = "location"
	AlertTypeCustom   AlertType = "custom"
)

// Alert is a durable record of a triggered rule for a container.
// Channel sent flags are set by the notification dispatcher;
// acknowledged_at is set once by the owning user and never cleared.
type Alert struct {
	ID             string     `json:"id"`
	ContainerID    string     `json:"container_id"`
	UserID         string     `json:"user_id"`
	RuleID         string     `json:"rule_id"`
	AlertType      AlertType  `json:"alert_type"`
	Severity       Severity   `json:"severity"`
	Title          string     `json:"title"`
	Message        string     `json:"message"`
	AIGenerated    bool       `json:"ai_generated"`
	EmailSent      bool       `json:"email_sent"`
	SMSSent        bool       `json:"sms_sent"`
	WebhookSent    bool       `json:"webhook_sent"`
	CreatedAt      time.Time  `json:"created_at"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
}

// AlertStats aggregates a user's alerts over a trailing window.
type AlertStats struct {
	Total      int64            `json:"total"`
	Unread     int64            `json:"unread"`
	ByType     map[string]int64 `json:"by_type"`
	BySeverity map[string]int64 `json:"by_severity"`
}
