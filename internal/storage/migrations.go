package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// Migration represents a database migration.
type Migration struct {
	Version int
	Name    string
	Up      string
}

// migrations holds all database migrations in order.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up: `
			-- Tracked containers
			CREATE TABLE IF NOT EXISTS containers (
				id TEXT PRIMARY KEY,
				container_id TEXT NOT NULL,
				user_id TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT '',
				current_location TEXT,
				latitude REAL,
				longitude REAL,
				eta DATETIME,
				original_eta DATETIME,
				delay_hours INTEGER NOT NULL DEFAULT 0 CHECK (delay_hours >= 0),
				risk_level TEXT NOT NULL DEFAULT 'Low',
				issues_json TEXT,
				carrier TEXT,
				vessel_name TEXT,
				voyage_number TEXT,
				is_active INTEGER NOT NULL DEFAULT 1,
				last_updated DATETIME NOT NULL,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			);

			-- Append-only state history
			CREATE TABLE IF NOT EXISTS container_history (
				id TEXT PRIMARY KEY,
				container_id TEXT NOT NULL,
				status TEXT NOT NULL,
				location TEXT,
				latitude REAL,
				longitude REAL,
				eta DATETIME,
				delay_hours INTEGER NOT NULL DEFAULT 0,
				recorded_at DATETIME NOT NULL,
				FOREIGN KEY (container_id) REFERENCES containers(id) ON DELETE CASCADE
			);

			-- Durable alerts
			CREATE TABLE IF NOT EXISTS alerts (
				id TEXT PRIMARY KEY,
				container_id TEXT NOT NULL,
				user_id TEXT NOT NULL,
				rule_id TEXT NOT NULL,
				alert_type TEXT NOT NULL,
				severity TEXT NOT NULL,
				title TEXT NOT NULL,
				message TEXT NOT NULL,
				ai_generated INTEGER NOT NULL DEFAULT 0,
				email_sent INTEGER NOT NULL DEFAULT 0,
				sms_sent INTEGER NOT NULL DEFAULT 0,
				webhook_sent INTEGER NOT NULL DEFAULT 0,
				created_at DATETIME NOT NULL,
				acknowledged_at DATETIME,
				FOREIGN KEY (container_id) REFERENCES containers(id) ON DELETE CASCADE
			);

			-- Per-user notification preferences
			CREATE TABLE IF NOT EXISTS user_preferences (
				user_id TEXT PRIMARY KEY,
				email TEXT NOT NULL,
				email_alerts INTEGER NOT NULL DEFAULT 1,
				sms_alerts INTEGER NOT NULL DEFAULT 0,
				phone_number TEXT,
				webhook_url TEXT,
				updated_at DATETIME NOT NULL
			);

			-- Indexes
			CREATE INDEX IF NOT EXISTS idx_containers_user ON containers(user_id);
			CREATE INDEX IF NOT EXISTS idx_containers_active ON containers(is_active);
			CREATE INDEX IF NOT EXISTS idx_history_container ON container_history(container_id, recorded_at);
			CREATE INDEX IF NOT EXISTS idx_history_recorded ON container_history(recorded_at);
			CREATE INDEX IF NOT EXISTS idx_alerts_container ON alerts(container_id, created_at);
			CREATE INDEX IF NOT EXISTS idx_alerts_user ON alerts(user_id, created_at);
			CREATE INDEX IF NOT EXISTS idx_alerts_pending ON alerts(email_sent, created_at);
		`,
	},
}

// runMigrations applies all pending migrations.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var currentVersion int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.Up); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Name, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Name, time.Now(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}
