package models

import "time"

// NotificationPreferences holds a user's per-channel delivery settings.
// Email defaults to enabled; SMS requires both the flag and a phone
// number; the chat webhook is enabled by configuring a URL.
type NotificationPreferences struct {
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	EmailAlerts bool      `json:"email_alerts"`
	SMSAlerts   bool      `json:"sms_alerts"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	WebhookURL  string    `json:"webhook_url,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DefaultPreferences returns the preferences applied when a user has
// never saved any: email on, everything else off.
func DefaultPreferences(userID, email string) *NotificationPreferences {
	return &NotificationPreferences{
		UserID:      userID,
		Email:       email,
		EmailAlerts: true,
	}
}
