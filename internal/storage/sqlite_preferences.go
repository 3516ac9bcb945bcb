package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/portsense/portsense/internal/models"
)

type sqlitePreferenceRepo struct {
	db *sql.DB
}

func (r *sqlitePreferenceRepo) Get(ctx context.Context, userID string) (*models.NotificationPreferences, error) {
	query := `
		SELECT user_id, email, email_alerts, sms_alerts, phone_number, webhook_url, updated_at
		FROM user_preferences WHERE user_id = ?
	`
	var p models.NotificationPreferences
	var emailAlerts, smsAlerts int
	var phone, webhook sql.NullString

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID, &p.Email, &emailAlerts, &smsAlerts, &phone, &webhook, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get preferences: %w", err)
	}

	p.EmailAlerts = emailAlerts == 1
	p.SMSAlerts = smsAlerts == 1
	p.PhoneNumber = phone.String
	p.WebhookURL = webhook.String
	return &p, nil
}

func (r *sqlitePreferenceRepo) Upsert(ctx context.Context, p *models.NotificationPreferences) error {
	query := `
		INSERT INTO user_preferences (user_id, email, email_alerts, sms_alerts,
			phone_number, webhook_url, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			email = excluded.email,
			email_alerts = excluded.email_alerts,
			sms_alerts = excluded.sms_alerts,
			phone_number = excluded.phone_number,
			webhook_url = excluded.webhook_url,
			updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		p.UserID, p.Email, boolToInt(p.EmailAlerts), boolToInt(p.SMSAlerts),
		nullString(p.PhoneNumber), nullString(p.WebhookURL), p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert preferences: %w", err)
	}
	return nil
}
