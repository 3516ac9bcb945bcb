package models

import "time"

// ChangeType categorizes what part of a container's state changed.
type ChangeType string

const (
	ChangeLocation ChangeType = "location"
	ChangeStatus   ChangeType = "status"
	ChangeDelay    ChangeType = "delay"
	ChangeRisk     ChangeType = "risk"
)

// ChangeEvent is emitted by the monitoring cycle on every significant
// container update. It is ephemeral: consumed by the alerting path and
// the broadcast hub, never persisted.
type ChangeEvent struct {
	Container      *Container `json:"container"`
	PreviousStatus string     `json:"previous_status"`
	NewStatus      string     `json:"new_status"`
	ChangeType     ChangeType `json:"change_type"`
	Timestamp      time.Time  `json:"timestamp"`
}
