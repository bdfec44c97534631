package events

import "time"

// EventType defines the type of event
type EventType string

const (
	EventTypeDuplicatesResolved EventType = "duplicates.resolved"
	EventTypeBuilderRemoved     EventType = "builder.removed"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType     EventType `json:"event_type"`
	SchemaVersion string    `json:"schema_version"`
	TenantID      string    `json:"tenant_id"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// DuplicatesResolvedEvent is emitted once per resolved duplicate group
type DuplicatesResolvedEvent struct {
	BaseEvent
	ResolutionID string   `json:"resolution_id"`
	GroupID      string   `json:"group_id"`
	Reason       string   `json:"reason"`
	Confidence   string   `json:"confidence"`
	Strategy     string   `json:"strategy"`
	SurvivorID   string   `json:"survivor_id"`
	RemovedIDs   []string `json:"removed_ids"`
	PerformedBy  *string  `json:"performed_by,omitempty"`
}

// BuilderRemovedEvent is emitted for every builder removed as a duplicate
type BuilderRemovedEvent struct {
	BaseEvent
	BuilderID     string `json:"builder_id"`
	DuplicateOfID string `json:"duplicate_of_id"`
}
