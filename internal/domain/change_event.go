package domain

import "time"

// ChangeOperation describes a persisted activity operation on the todo list.
type ChangeOperation string

// ChangeOperation values used by the local activity ledger.
const (
	ChangeOperationCreate  ChangeOperation = "create"
	ChangeOperationReplace ChangeOperation = "replace"
)

// ChangeEvent represents a single activity-log entry.
type ChangeEvent struct {
	ID         int64
	TodoID     string
	Operation  ChangeOperation
	ActorID    string
	Metadata   map[string]string
	OccurredAt time.Time
}
