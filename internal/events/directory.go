// Package events defines the payloads published for directory changes.
package events

import "time"

// Topic names for the directory event streams.
const (
	TopicOrganizations = "directory.organization.events"
	TopicActivities    = "directory.activity.events"
)

// Event type identifiers recorded in the outbox.
const (
	TypeOrganizationCreated = "organization.created"
	TypeActivityCreated     = "activity.created"
)

// OrganizationCreated is emitted once an organization and all of its
// phone and membership rows are committed.
type OrganizationCreated struct {
	OrganizationID int64     `json:"organization_id"`
	Name           string    `json:"name"`
	BuildingID     int64     `json:"building_id"`
	ActivityIDs    []int64   `json:"activity_ids,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// ActivityCreated is emitted when a taxonomy node is inserted.
type ActivityCreated struct {
	ActivityID int64     `json:"activity_id"`
	Name       string    `json:"name"`
	ParentID   *int64    `json:"parent_id,omitempty"`
	Level      int       `json:"level"`
	OccurredAt time.Time `json:"occurred_at"`
}
