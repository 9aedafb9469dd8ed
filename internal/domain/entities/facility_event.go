package entities

import (
	"time"
)

// ReloadEventType represents the type of reload event
type ReloadEventType string

const (
	ReloadEventPublished ReloadEventType = "reload_published"
	ReloadEventFailed    ReloadEventType = "reload_failed"
)

// ReloadEvent is broadcast after every reload attempt
type ReloadEvent struct {
	ID              string          `json:"id"`
	ReloadID        string          `json:"reload_id"`
	EventType       ReloadEventType `json:"event_type"`
	Timestamp       time.Time       `json:"timestamp"`
	FacilityCount   int             `json:"facility_count"`
	PendingOverlays []string        `json:"pending_overlays,omitempty"`
	Error           string          `json:"error,omitempty"`
}
