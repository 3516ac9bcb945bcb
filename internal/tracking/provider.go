// Package tracking provides the client for the external marine
// tracking provider that reports container position, status, and ETA.
package tracking

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when the provider has no data for a
// container. Callers skip the container without treating it as an
// error.
var ErrNotFound = errors.New("container not found by tracking provider")

// Snapshot is the provider's view of one container at query time.
type Snapshot struct {
	ContainerID string    `json:"container_id"`
	Status      string    `json:"status"`
	Location    Location  `json:"location"`
	ETA         time.Time `json:"eta"`
	LastPort    string    `json:"last_port"`
	NextPort    string    `json:"next_port"`
	VesselName  string    `json:"vessel_name"`
	Voyage      string    `json:"voyage"`
}

// Location is a named position.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name"`
}

// Provider fetches current tracking data for a container.
// Implementations must be safe for concurrent use; the monitoring
// cycle issues parallel calls within a batch.
type Provider interface {
	// Track returns the current snapshot for the container, or
	// ErrNotFound when the provider does not know it.
	Track(ctx context.Context, containerID string) (*Snapshot, error)
}
