package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/portsense/portsense/internal/models"
)

type sqliteAlertRepo struct {
	db *sql.DB
}

const alertColumns = `id, container_id, user_id, rule_id, alert_type, severity,
	title, message, ai_generated, email_sent, sms_sent, webhook_sent,
	created_at, acknowledged_at`

func (r *sqliteAlertRepo) Create(ctx context.Context, a *models.Alert) error {
	query := `
		INSERT INTO alerts (` + alertColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.ContainerID, a.UserID, a.RuleID, string(a.AlertType), string(a.Severity),
		a.Title, a.Message, boolToInt(a.AIGenerated),
		boolToInt(a.EmailSent), boolToInt(a.SMSSent), boolToInt(a.WebhookSent),
		a.CreatedAt, nullTime(a.AcknowledgedAt),
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (r *sqliteAlertRepo) GetByID(ctx context.Context, id string) (*models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = ?`
	a, err := scanAlertRow(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return a, err
}

func (r *sqliteAlertRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts
		WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`
	return r.queryAlerts(ctx, query, userID, limit)
}

func (r *sqliteAlertRepo) ListSince(ctx context.Context, containerID string, since time.Time) ([]*models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts
		WHERE container_id = ? AND created_at >= ? ORDER BY created_at DESC`
	return r.queryAlerts(ctx, query, containerID, since)
}

func (r *sqliteAlertRepo) ListPending(ctx context.Context, limit int) ([]*models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts
		WHERE email_sent = 0 ORDER BY created_at LIMIT ?`
	return r.queryAlerts(ctx, query, limit)
}

func (r *sqliteAlertRepo) SetChannelFlags(ctx context.Context, id string, email, sms, webhook bool) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE alerts SET email_sent = ?, sms_sent = ?, webhook_sent = ? WHERE id = ?",
		boolToInt(email), boolToInt(sms), boolToInt(webhook), id,
	)
	if err != nil {
		return fmt.Errorf("set channel flags: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Acknowledge is first-write-wins: an already-acknowledged alert keeps
// its original timestamp.
func (r *sqliteAlertRepo) Acknowledge(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE alerts SET acknowledged_at = ? WHERE id = ? AND acknowledged_at IS NULL",
		at, id,
	)
	if err != nil {
		return fmt.Errorf("acknowledge alert: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		// Distinguish "already acknowledged" (a no-op) from "missing".
		var exists int
		err := r.db.QueryRowContext(ctx, "SELECT 1 FROM alerts WHERE id = ?", id).Scan(&exists)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("check alert exists: %w", err)
		}
	}
	return nil
}

func (r *sqliteAlertRepo) Stats(ctx context.Context, userID string, since time.Time) (*models.AlertStats, error) {
	query := `
		SELECT alert_type, severity, acknowledged_at IS NULL
		FROM alerts WHERE user_id = ? AND created_at >= ?
	`
	rows, err := r.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("query alert stats: %w", err)
	}
	defer rows.Close()

	stats := &models.AlertStats{
		ByType:     make(map[string]int64),
		BySeverity: make(map[string]int64),
	}
	for rows.Next() {
		var alertType, severity string
		var unread bool
		if err := rows.Scan(&alertType, &severity, &unread); err != nil {
			return nil, fmt.Errorf("scan alert stats: %w", err)
		}
		stats.Total++
		if unread {
			stats.Unread++
		}
		stats.ByType[alertType]++
		stats.BySeverity[severity]++
	}
	return stats, rows.Err()
}

func (r *sqliteAlertRepo) queryAlerts(ctx context.Context, query string, args ...any) ([]*models.Alert, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*models.Alert
	for rows.Next() {
		a, err := scanAlertRow(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func scanAlertRow(row rowScanner) (*models.Alert, error) {
	var a models.Alert
	var alertType, severity string
	var aiGenerated, emailSent, smsSent, webhookSent int
	var acked sql.NullTime

	err := row.Scan(
		&a.ID, &a.ContainerID, &a.UserID, &a.RuleID, &alertType, &severity,
		&a.Title, &a.Message, &aiGenerated, &emailSent, &smsSent, &webhookSent,
		&a.CreatedAt, &acked,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan alert: %w", err)
	}

	a.AlertType = models.AlertType(alertType)
	a.Severity = models.ParseSeverity(severity)
	a.AIGenerated = aiGenerated == 1
	a.EmailSent = emailSent == 1
	a.SMSSent = smsSent == 1
	a.WebhookSent = webhookSent == 1
	if acked.Valid {
		t := acked.Time
		a.AcknowledgedAt = &t
	}
	return &a, nil
}
