package domain

import "time"

type EventType string

const (
	EventAssignmentsClaimed   EventType = "assignments.claimed"
	EventAssignmentsCompleted EventType = "assignments.completed"
	EventAssignmentsReopened  EventType = "assignments.reopened"
	EventAssignmentsDeleted   EventType = "assignments.deleted"
	EventLinesRecorded        EventType = "lines.recorded"
)

type Event struct {
	ID            string
	Type          EventType
	PickerID      int64
	AssignmentIDs []int64
	ShipmentIDs   []int64
	OccurredAt    time.Time
}
