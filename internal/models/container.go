// Package models defines domain models for PortSense.
package models

import "time"

// RiskLevel classifies how likely a container is to miss its arrival window.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// ParseRiskLevel converts a string to RiskLevel.
func ParseRiskLevel(s string) RiskLevel {
	switch s {
	case "Low", "low":
		return RiskLow
	case "Medium", "medium":
		return RiskMedium
	case "High", "high":
		return RiskHigh
	default:
		return RiskLow
	}
}

// Container represents a tracked shipping container.
// Container state is mutated only through the storage layer; the rule
// engine treats it as read-only input.
type Container struct {
	ID              string     `json:"id"`
	ContainerID     string     `json:"container_id"` // carrier reference, e.g. MSKU1234567
	UserID          string     `json:"user_id"`
	Status          string     `json:"status"`
	CurrentLocation string     `json:"current_location,omitempty"`
	Latitude        *float64   `json:"latitude,omitempty"`
	Longitude       *float64   `json:"longitude,omitempty"`
	ETA             *time.Time `json:"eta,omitempty"`
	OriginalETA     *time.Time `json:"original_eta,omitempty"`
	DelayHours      int        `json:"delay_hours"`
	RiskLevel       RiskLevel  `json:"risk_level"`
	Issues          []string   `json:"issues,omitempty"`
	Carrier         string     `json:"carrier,omitempty"`
	VesselName      string     `json:"vessel_name,omitempty"`
	VoyageNumber    string     `json:"voyage_number,omitempty"`
	IsActive        bool       `json:"is_active"`
	LastUpdated     time.Time  `json:"last_updated"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ContainerUpdate carries the mutable fields of a container update.
// Nil pointers leave the stored value untouched.
type ContainerUpdate struct {
	Status          *string
	CurrentLocation *string
	Latitude        *float64
	Longitude       *float64
	ETA             *time.Time
	DelayHours      *int
	RiskLevel       *RiskLevel
	Issues          []string
	VesselName      *string
	VoyageNumber    *string
}

// ContainerHistory is an immutable snapshot of container state at a
// point in time, appended on every significant change.
type ContainerHistory struct {
	ID          string     `json:"id"`
	ContainerID string     `json:"container_id"`
	Status      string     `json:"status"`
	Location    string     `json:"location,omitempty"`
	Latitude    *float64   `json:"latitude,omitempty"`
	Longitude   *float64   `json:"longitude,omitempty"`
	ETA         *time.Time `json:"eta,omitempty"`
	DelayHours  int        `json:"delay_hours"`
	RecordedAt  time.Time  `json:"recorded_at"`
}
