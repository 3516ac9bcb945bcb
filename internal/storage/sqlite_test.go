package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/portsense/portsense/internal/models"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	t.Helper()

	store := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Open(); err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}
	if err := store.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func newContainer(id, userID string, createdAt time.Time) *models.Container {
	return &models.Container{
		ID:          id,
		ContainerID: "MSKU1234567",
		UserID:      userID,
		Status:      "in transit",
		RiskLevel:   models.RiskLow,
		IsActive:    true,
		LastUpdated: createdAt,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

func newAlert(id, containerID, userID string, createdAt time.Time) *models.Alert {
	return &models.Alert{
		ID:          id,
		ContainerID: containerID,
		UserID:      userID,
		RuleID:      "moderate-delay-24h",
		AlertType:   models.AlertTypeDelay,
		Severity:    models.SeverityMedium,
		Title:       "Container MSKU1234567 Delayed (30h)",
		Message:     "Container MSKU1234567 is delayed by 30 hours.",
		CreatedAt:   createdAt,
	}
}

func TestContainerCRUD(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	c := newContainer("c-1", "alice", now)
	lat, lon := 1.26, 103.84
	eta := now.Add(10 * 24 * time.Hour)
	c.CurrentLocation = "Port of Singapore"
	c.Latitude = &lat
	c.Longitude = &lon
	c.ETA = &eta
	c.OriginalETA = &eta
	c.Issues = []string{"Port congestion"}
	c.Carrier = "Maersk"

	if err := store.Containers().Create(ctx, c); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := store.Containers().GetByID(ctx, "c-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.ContainerID != "MSKU1234567" || got.UserID != "alice" {
		t.Errorf("got %+v", got)
	}
	if got.Latitude == nil || *got.Latitude != lat {
		t.Errorf("latitude = %v, want %v", got.Latitude, lat)
	}
	if got.OriginalETA == nil || !got.OriginalETA.Equal(eta) {
		t.Errorf("original eta = %v, want %v", got.OriginalETA, eta)
	}
	if len(got.Issues) != 1 || got.Issues[0] != "Port congestion" {
		t.Errorf("issues = %v", got.Issues)
	}

	if _, err := store.Containers().GetByID(ctx, "nope"); err != ErrNotFound {
		t.Errorf("GetByID unknown = %v, want ErrNotFound", err)
	}
}

func TestContainerUpdatePartial(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	c := newContainer("c-1", "alice", now)
	c.CurrentLocation = "Port of Shanghai"
	if err := store.Containers().Create(ctx, c); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	delay := 30
	risk := models.RiskMedium
	fresh, err := store.Containers().Update(ctx, "c-1", &models.ContainerUpdate{
		DelayHours: &delay,
		RiskLevel:  &risk,
	}, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if fresh.DelayHours != 30 || fresh.RiskLevel != models.RiskMedium {
		t.Errorf("update not applied: %+v", fresh)
	}
	// Untouched fields keep their values.
	if fresh.CurrentLocation != "Port of Shanghai" {
		t.Errorf("location = %q, want unchanged", fresh.CurrentLocation)
	}
	if !fresh.LastUpdated.Equal(now.Add(time.Hour)) {
		t.Errorf("last_updated = %v, want %v", fresh.LastUpdated, now.Add(time.Hour))
	}

	if _, err := store.Containers().Update(ctx, "nope", &models.ContainerUpdate{DelayHours: &delay}, now); err != ErrNotFound {
		t.Errorf("Update unknown = %v, want ErrNotFound", err)
	}
}

func TestContainerLastUpdatedNeverMovesBackwards(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	if err := store.Containers().Create(ctx, newContainer("c-1", "alice", now)); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	delay := 5
	fresh, err := store.Containers().Update(ctx, "c-1",
		&models.ContainerUpdate{DelayHours: &delay}, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if !fresh.LastUpdated.Equal(now) {
		t.Errorf("last_updated = %v, want unchanged %v", fresh.LastUpdated, now)
	}
}

func TestContainerListing(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	for i, user := range []string{"alice", "alice", "bob"} {
		c := newContainer(fmt.Sprintf("c-%d", i), user, now.Add(time.Duration(i)*time.Minute))
		if err := store.Containers().Create(ctx, c); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	if err := store.Containers().SetActive(ctx, "c-1", false); err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}

	active, err := store.Containers().ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if len(active) != 2 {
		t.Errorf("active = %d, want 2", len(active))
	}

	mine, err := store.Containers().ListByUser(ctx, "alice")
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != "c-0" {
		t.Errorf("alice's containers = %+v, want [c-0]", mine)
	}

	if err := store.Containers().SetActive(ctx, "nope", true); err != ErrNotFound {
		t.Errorf("SetActive unknown = %v, want ErrNotFound", err)
	}
}

func TestHistoryAppendAndPurge(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	if err := store.Containers().Create(ctx, newContainer("c-1", "alice", now)); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		err := store.History().Append(ctx, &models.ContainerHistory{
			ID:          fmt.Sprintf("h-%d", i),
			ContainerID: "c-1",
			Status:      "in transit",
			DelayHours:  i,
			RecordedAt:  now.Add(time.Duration(i) * 24 * time.Hour),
		})
		if err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	// Newest first, limit respected.
	records, err := store.History().ListByContainer(ctx, "c-1", 3)
	if err != nil {
		t.Fatalf("ListByContainer failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}
	if records[0].ID != "h-4" || records[2].ID != "h-2" {
		t.Errorf("order = [%s .. %s], want newest first", records[0].ID, records[2].ID)
	}

	purged, err := store.History().DeleteBefore(ctx, now.Add(2*24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteBefore failed: %v", err)
	}
	if purged != 2 {
		t.Errorf("purged = %d, want 2", purged)
	}

	remaining, err := store.History().ListByContainer(ctx, "c-1", 10)
	if err != nil {
		t.Fatalf("ListByContainer failed: %v", err)
	}
	if len(remaining) != 3 {
		t.Errorf("remaining = %d, want 3", len(remaining))
	}
}

func TestAlertAcknowledgeFirstWriteWins(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	if err := store.Containers().Create(ctx, newContainer("c-1", "alice", now)); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := store.Alerts().Create(ctx, newAlert("a-1", "c-1", "alice", now)); err != nil {
		t.Fatalf("Create alert failed: %v", err)
	}

	first := now.Add(time.Hour)
	if err := store.Alerts().Acknowledge(ctx, "a-1", first); err != nil {
		t.Fatalf("Acknowledge failed: %v", err)
	}

	// A second acknowledgement is a no-op, not an error.
	if err := store.Alerts().Acknowledge(ctx, "a-1", now.Add(2*time.Hour)); err != nil {
		t.Fatalf("repeat Acknowledge failed: %v", err)
	}

	got, err := store.Alerts().GetByID(ctx, "a-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.AcknowledgedAt == nil || !got.AcknowledgedAt.Equal(first) {
		t.Errorf("acknowledged_at = %v, want %v", got.AcknowledgedAt, first)
	}

	if err := store.Alerts().Acknowledge(ctx, "nope", now); err != ErrNotFound {
		t.Errorf("Acknowledge unknown = %v, want ErrNotFound", err)
	}
}

func TestAlertListPendingOrder(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	if err := store.Containers().Create(ctx, newContainer("c-1", "alice", now)); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		a := newAlert(fmt.Sprintf("a-%d", i), "c-1", "alice", now.Add(time.Duration(i)*time.Hour))
		if err := store.Alerts().Create(ctx, a); err != nil {
			t.Fatalf("Create alert failed: %v", err)
		}
	}
	// Delivered alerts leave the pending set.
	if err := store.Alerts().SetChannelFlags(ctx, "a-0", true, false, false); err != nil {
		t.Fatalf("SetChannelFlags failed: %v", err)
	}

	pending, err := store.Alerts().ListPending(ctx, 10)
	if err != nil {
		t.Fatalf("ListPending failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(pending))
	}
	// Oldest first.
	if pending[0].ID != "a-1" || pending[1].ID != "a-2" {
		t.Errorf("order = [%s, %s], want oldest first", pending[0].ID, pending[1].ID)
	}

	if err := store.Alerts().SetChannelFlags(ctx, "nope", true, true, true); err != ErrNotFound {
		t.Errorf("SetChannelFlags unknown = %v, want ErrNotFound", err)
	}
}

func TestAlertListSince(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	if err := store.Containers().Create(ctx, newContainer("c-1", "alice", now)); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	old := newAlert("a-old", "c-1", "alice", now.Add(-48*time.Hour))
	recent := newAlert("a-recent", "c-1", "alice", now.Add(-time.Hour))
	for _, a := range []*models.Alert{old, recent} {
		if err := store.Alerts().Create(ctx, a); err != nil {
			t.Fatalf("Create alert failed: %v", err)
		}
	}

	got, err := store.Alerts().ListSince(ctx, "c-1", now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("ListSince failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a-recent" {
		t.Errorf("ListSince = %+v, want only the recent alert", got)
	}
}

func TestAlertStats(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	if err := store.Containers().Create(ctx, newContainer("c-1", "alice", now)); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	a1 := newAlert("a-1", "c-1", "alice", now)
	a2 := newAlert("a-2", "c-1", "alice", now)
	a2.AlertType = models.AlertTypeIssue
	a2.Severity = models.SeverityHigh
	a3 := newAlert("a-3", "c-1", "bob", now)
	for _, a := range []*models.Alert{a1, a2, a3} {
		if err := store.Alerts().Create(ctx, a); err != nil {
			t.Fatalf("Create alert failed: %v", err)
		}
	}
	if err := store.Alerts().Acknowledge(ctx, "a-1", now.Add(time.Minute)); err != nil {
		t.Fatalf("Acknowledge failed: %v", err)
	}

	stats, err := store.Alerts().Stats(ctx, "alice", now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 2 {
		t.Errorf("total = %d, want 2", stats.Total)
	}
	if stats.Unread != 1 {
		t.Errorf("unread = %d, want 1", stats.Unread)
	}
	if stats.ByType["delay"] != 1 || stats.ByType["issue"] != 1 {
		t.Errorf("by type = %v", stats.ByType)
	}
	if stats.BySeverity["Medium"] != 1 || stats.BySeverity["High"] != 1 {
		t.Errorf("by severity = %v", stats.BySeverity)
	}
}

func TestPreferencesUpsert(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	if _, err := store.Preferences().Get(ctx, "alice"); err != ErrNotFound {
		t.Errorf("Get unknown = %v, want ErrNotFound", err)
	}

	prefs := &models.NotificationPreferences{
		UserID:      "alice",
		Email:       "alice@example.com",
		EmailAlerts: true,
		UpdatedAt:   now,
	}
	if err := store.Preferences().Upsert(ctx, prefs); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	prefs.SMSAlerts = true
	prefs.PhoneNumber = "+15550100"
	prefs.UpdatedAt = now.Add(time.Hour)
	if err := store.Preferences().Upsert(ctx, prefs); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}

	got, err := store.Preferences().Get(ctx, "alice")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !got.EmailAlerts || !got.SMSAlerts || got.PhoneNumber != "+15550100" {
		t.Errorf("got %+v", got)
	}
	if !got.UpdatedAt.Equal(now.Add(time.Hour)) {
		t.Errorf("updated_at = %v, want %v", got.UpdatedAt, now.Add(time.Hour))
	}
}
