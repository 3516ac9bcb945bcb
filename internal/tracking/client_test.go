package tracking

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientConfig{
		BaseURL:   server.URL,
		APIKey:    "test-key",
		RateLimit: rate.Inf,
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

func TestClientTrack(t *testing.T) {
	var gotPath, gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"container_id": "MSKU1234567",
			"status": "in transit",
			"location": {"latitude": 1.26, "longitude": 103.84, "port": "Port of Singapore", "country": "SG"},
			"eta": "2026-03-20T12:00:00Z",
			"last_port": "Shanghai",
			"next_port": "Rotterdam",
			"voyage": "AE7-081W",
			"vessel": {"name": "Emma Maersk", "imo": "9321483"}
		}`))
	})

	snap, err := client.Track(context.Background(), "MSKU1234567")
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}

	if gotPath != "/containers/MSKU1234567" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("authorization = %q", gotAuth)
	}
	if snap.Status != "in transit" {
		t.Errorf("status = %q", snap.Status)
	}
	if snap.Location.Name != "Port of Singapore" || snap.Location.Latitude != 1.26 {
		t.Errorf("location = %+v", snap.Location)
	}
	if want := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC); !snap.ETA.Equal(want) {
		t.Errorf("eta = %v, want %v", snap.ETA, want)
	}
	if snap.VesselName != "Emma Maersk" || snap.Voyage != "AE7-081W" {
		t.Errorf("vessel = %q, voyage = %q", snap.VesselName, snap.Voyage)
	}
}

func TestClientTrackNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such container", http.StatusNotFound)
	})

	if _, err := client.Track(context.Background(), "NONE0000000"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestClientTrackServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broke", http.StatusBadGateway)
	})

	_, err := client.Track(context.Background(), "MSKU1234567")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want provider error", err)
	}
}

func TestClientTrackMissingETA(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"container_id": "MSKU1234567", "status": "delivered"}`))
	})

	snap, err := client.Track(context.Background(), "MSKU1234567")
	if err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	if !snap.ETA.IsZero() {
		t.Errorf("eta = %v, want zero", snap.ETA)
	}
}

func TestClientTrackBadETA(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"container_id": "MSKU1234567", "eta": "next tuesday"}`))
	})

	if _, err := client.Track(context.Background(), "MSKU1234567"); err == nil {
		t.Error("expected parse error for malformed eta")
	}
}

func TestClientRateLimiterBlocks(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"container_id": "MSKU1234567"}`))
	}))
	defer server.Close()

	// Burst of one and a very slow refill: the second call must wait and
	// get cut off by its context instead.
	client, err := NewClient(ClientConfig{
		BaseURL:   server.URL,
		RateLimit: rate.Limit(0.001),
		Burst:     1,
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	ctx := context.Background()
	if _, err := client.Track(ctx, "MSKU1234567"); err != nil {
		t.Fatalf("first call failed: %v", err)
	}

	shortCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if _, err := client.Track(shortCtx, "MSKU1234567"); err == nil {
		t.Fatal("second call should have been held by the limiter")
	}
	if calls.Load() != 1 {
		t.Errorf("server saw %d calls, want 1", calls.Load())
	}
}

func TestClientConfigValidate(t *testing.T) {
	if _, err := NewClient(ClientConfig{}); err == nil {
		t.Error("expected error for missing base URL")
	}
}
