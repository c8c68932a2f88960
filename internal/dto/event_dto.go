package dto

import "time"

// Board event types published to external consumers.
const (
	EventAssignmentCreated   = "assignment.created"
	EventAssignmentCompleted = "assignment.completed"
	EventAssignmentDeleted   = "assignment.deleted"
	EventScheduleUpdated     = "schedule.updated"
	EventScheduleRemoved     = "schedule.removed"
)

// BoardEvent describes a write the service performed against the store.
type BoardEvent struct {
	Type          string    `json:"type"`
	AssignmentIDs []string  `json:"assignmentIds,omitempty"`
	Completed     *bool     `json:"completed,omitempty"`
	CorrelationID string    `json:"correlationId,omitempty"`
	SessionID     string    `json:"sessionId,omitempty"`
	Source        string    `json:"source"`
	SentAt        time.Time `json:"sentAt"`
}
