package domain

import (
	"strings"
	"time"
)

// Status names the board column a todo belongs to.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "inProgress"
	StatusDone       Status = "done"
)

// Statuses lists every known status in column order.
var Statuses = []Status{StatusPending, StatusInProgress, StatusDone}

// Valid reports whether s is one of the three known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusDone:
		return true
	default:
		return false
	}
}

// Label returns the human column title for s.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusInProgress:
		return "In Progress"
	case StatusDone:
		return "Done"
	default:
		return string(s)
	}
}

// ParseStatus maps wire values and common aliases onto a Status.
func ParseStatus(raw string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending", "todo", "to-do":
		return StatusPending, nil
	case "inprogress", "in_progress", "in-progress", "progress", "doing":
		return StatusInProgress, nil
	case "done", "complete", "completed":
		return StatusDone, nil
	default:
		return "", ErrInvalidStatus
	}
}

// Todo is one to-do item. ID is owned by the store; What doubles as the
// identity key for deletes.
type Todo struct {
	ID       string    `json:"id,omitempty"`
	What     string    `json:"what"`
	Status   Status    `json:"status"`
	FinishBy time.Time `json:"finishBy"`
}

// TodoInput holds input values for NewTodo.
type TodoInput struct {
	ID       string
	What     string
	Status   Status
	FinishBy time.Time
}

// NewTodo constructs a todo, defaulting an empty status to pending.
func NewTodo(in TodoInput) (Todo, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.What = strings.TrimSpace(in.What)
	if in.What == "" {
		return Todo{}, ErrInvalidWhat
	}
	if in.Status == "" {
		in.Status = StatusPending
	}
	if !in.Status.Valid() {
		return Todo{}, ErrInvalidStatus
	}
	return Todo{
		ID:       in.ID,
		What:     in.What,
		Status:   in.Status,
		FinishBy: normalizeFinishBy(in.FinishBy),
	}, nil
}

// Overdue reports whether now is strictly after the todo's due time.
func (t Todo) Overdue(now time.Time) bool {
	return now.After(t.FinishBy)
}

func normalizeFinishBy(ts time.Time) time.Time {
	if ts.IsZero() {
		return ts
	}
	return ts.UTC().Truncate(time.Second)
}
