package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/portsense/portsense/internal/models"
)

type sqliteContainerRepo struct {
	db *sql.DB
}

const containerColumns = `id, container_id, user_id, status, current_location,
	latitude, longitude, eta, original_eta, delay_hours, risk_level, issues_json,
	carrier, vessel_name, voyage_number, is_active, last_updated, created_at, updated_at`

func (r *sqliteContainerRepo) Create(ctx context.Context, c *models.Container) error {
	issuesJSON, err := marshalIssues(c.Issues)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO containers (` + containerColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		c.ID, c.ContainerID, c.UserID, c.Status, nullString(c.CurrentLocation),
		nullFloat(c.Latitude), nullFloat(c.Longitude), nullTime(c.ETA), nullTime(c.OriginalETA),
		c.DelayHours, string(c.RiskLevel), issuesJSON,
		nullString(c.Carrier), nullString(c.VesselName), nullString(c.VoyageNumber),
		boolToInt(c.IsActive), c.LastUpdated, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert container: %w", err)
	}
	return nil
}

func (r *sqliteContainerRepo) GetByID(ctx context.Context, id string) (*models.Container, error) {
	query := `SELECT ` + containerColumns + ` FROM containers WHERE id = ?`
	return scanContainer(r.db.QueryRowContext(ctx, query, id))
}

func (r *sqliteContainerRepo) ListActive(ctx context.Context) ([]*models.Container, error) {
	query := `SELECT ` + containerColumns + ` FROM containers WHERE is_active = 1 ORDER BY created_at`
	return r.queryContainers(ctx, query)
}

func (r *sqliteContainerRepo) ListByUser(ctx context.Context, userID string) ([]*models.Container, error) {
	query := `SELECT ` + containerColumns + ` FROM containers
		WHERE user_id = ? AND is_active = 1 ORDER BY created_at DESC`
	return r.queryContainers(ctx, query, userID)
}

// Update applies the non-nil fields of upd and advances last_updated.
// last_updated never moves backwards: the stored value wins if it is
// already past now.
func (r *sqliteContainerRepo) Update(ctx context.Context, id string, upd *models.ContainerUpdate, now time.Time) (*models.Container, error) {
	sets := []string{"last_updated = MAX(last_updated, ?)", "updated_at = ?"}
	args := []any{now, now}

	add := func(col string, val any) {
		sets = append(sets, col+" = ?")
		args = append(args, val)
	}

	if upd.Status != nil {
		add("status", *upd.Status)
	}
	if upd.CurrentLocation != nil {
		add("current_location", *upd.CurrentLocation)
	}
	if upd.Latitude != nil {
		add("latitude", *upd.Latitude)
	}
	if upd.Longitude != nil {
		add("longitude", *upd.Longitude)
	}
	if upd.ETA != nil {
		add("eta", *upd.ETA)
	}
	if upd.DelayHours != nil {
		add("delay_hours", *upd.DelayHours)
	}
	if upd.RiskLevel != nil {
		add("risk_level", string(*upd.RiskLevel))
	}
	if upd.Issues != nil {
		issuesJSON, err := marshalIssues(upd.Issues)
		if err != nil {
			return nil, err
		}
		add("issues_json", issuesJSON)
	}
	if upd.VesselName != nil {
		add("vessel_name", *upd.VesselName)
	}
	if upd.VoyageNumber != nil {
		add("voyage_number", *upd.VoyageNumber)
	}

	query := "UPDATE containers SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	args = append(args, id)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update container: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, ErrNotFound
	}

	return r.GetByID(ctx, id)
}

func (r *sqliteContainerRepo) SetActive(ctx context.Context, id string, active bool) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE containers SET is_active = ?, updated_at = ? WHERE id = ?",
		boolToInt(active), time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("set container active: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *sqliteContainerRepo) queryContainers(ctx context.Context, query string, args ...any) ([]*models.Container, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query containers: %w", err)
	}
	defer rows.Close()

	var containers []*models.Container
	for rows.Next() {
		c, err := scanContainerRow(rows)
		if err != nil {
			return nil, err
		}
		containers = append(containers, c)
	}
	return containers, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContainer(row *sql.Row) (*models.Container, error) {
	c, err := scanContainerRow(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return c, err
}

func scanContainerRow(row rowScanner) (*models.Container, error) {
	var c models.Container
	var location, issuesJSON, carrier, vessel, voyage sql.NullString
	var lat, lon sql.NullFloat64
	var eta, originalETA sql.NullTime
	var riskLevel string
	var active int

	err := row.Scan(
		&c.ID, &c.ContainerID, &c.UserID, &c.Status, &location,
		&lat, &lon, &eta, &originalETA, &c.DelayHours, &riskLevel, &issuesJSON,
		&carrier, &vessel, &voyage, &active, &c.LastUpdated, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan container: %w", err)
	}

	c.CurrentLocation = location.String
	c.Carrier = carrier.String
	c.VesselName = vessel.String
	c.VoyageNumber = voyage.String
	c.RiskLevel = models.ParseRiskLevel(riskLevel)
	c.IsActive = active == 1
	if lat.Valid {
		c.Latitude = &lat.Float64
	}
	if lon.Valid {
		c.Longitude = &lon.Float64
	}
	if eta.Valid {
		t := eta.Time
		c.ETA = &t
	}
	if originalETA.Valid {
		t := originalETA.Time
		c.OriginalETA = &t
	}
	if issuesJSON.Valid && issuesJSON.String != "" {
		if err := json.Unmarshal([]byte(issuesJSON.String), &c.Issues); err != nil {
			return nil, fmt.Errorf("unmarshal issues: %w", err)
		}
	}

	return &c, nil
}

func marshalIssues(issues []string) (sql.NullString, error) {
	if len(issues) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(issues)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal issues: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
