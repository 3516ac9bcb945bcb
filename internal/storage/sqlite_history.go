package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/portsense/portsense/internal/models"
)

type sqliteHistoryRepo struct {
	db *sql.DB
}

func (r *sqliteHistoryRepo) Append(ctx context.Context, h *models.ContainerHistory) error {
	query := `
		INSERT INTO container_history (id, container_id, status, location,
			latitude, longitude, eta, delay_hours, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		h.ID, h.ContainerID, h.Status, nullString(h.Location),
		nullFloat(h.Latitude), nullFloat(h.Longitude), nullTime(h.ETA),
		h.DelayHours, h.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func (r *sqliteHistoryRepo) ListByContainer(ctx context.Context, containerID string, limit int) ([]*models.ContainerHistory, error) {
	query := `
		SELECT id, container_id, status, location, latitude, longitude,
			eta, delay_hours, recorded_at
		FROM container_history WHERE container_id = ?
		ORDER BY recorded_at DESC LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, containerID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var records []*models.ContainerHistory
	for rows.Next() {
		var h models.ContainerHistory
		var location sql.NullString
		var lat, lon sql.NullFloat64
		var eta sql.NullTime

		err := rows.Scan(&h.ID, &h.ContainerID, &h.Status, &location,
			&lat, &lon, &eta, &h.DelayHours, &h.RecordedAt)
		if err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}

		h.Location = location.String
		if lat.Valid {
			h.Latitude = &lat.Float64
		}
		if lon.Valid {
			h.Longitude = &lon.Float64
		}
		if eta.Valid {
			t := eta.Time
			h.ETA = &t
		}
		records = append(records, &h)
	}
	return records, rows.Err()
}

func (r *sqliteHistoryRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM container_history WHERE recorded_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete history before: %w", err)
	}
	return result.RowsAffected()
}
