// Package board holds the three-column to-do board: an explicit state
// container, the pure reducers that transition it, and the Board component
// that wires those reducers to its collaborators.
package board

import (
	"slices"
	"strings"
	"time"

	"github.com/evanschultz/todoboard/internal/domain"
)

// Column identifies one of the three status containers.
type Column int

// ColumnPending and related constants enumerate the board containers in display order.
const (
	ColumnPending Column = iota
	ColumnInProgress
	ColumnDone
)

// Columns lists the containers in display order.
var Columns = []Column{ColumnPending, ColumnInProgress, ColumnDone}

// Status returns the todo status rendered by c.
func (c Column) Status() domain.Status {
	switch c {
	case ColumnInProgress:
		return domain.StatusInProgress
	case ColumnDone:
		return domain.StatusDone
	default:
		return domain.StatusPending
	}
}

// String returns the column title.
func (c Column) String() string {
	return c.Status().Label()
}

// ColumnForStatus maps a status back onto its container.
func ColumnForStatus(status domain.Status) (Column, bool) {
	switch status {
	case domain.StatusPending:
		return ColumnPending, true
	case domain.StatusInProgress:
		return ColumnInProgress, true
	case domain.StatusDone:
		return ColumnDone, true
	default:
		return 0, false
	}
}

// Draft is the pre-populated "new item" payload handed to the add dialog.
type Draft struct {
	Status   domain.Status `json:"status"`
	What     string        `json:"what"`
	FinishBy time.Time     `json:"finishBy"`
}

// State is the board's complete in-memory state. Reducers take and return
// it by value; slices are never mutated in place.
type State struct {
	Pending    []domain.Todo
	InProgress []domain.Todo
	Done       []domain.Todo
	// All is the full unsorted snapshot last received from the data collaborator.
	All []domain.Todo

	User     *domain.User
	LoggedIn bool

	Draft      Draft
	DefaultDue time.Time
}

// NewState returns an empty board whose default due date is now + dueIn.
func NewState(now time.Time, dueIn time.Duration, status domain.Status) State {
	if status == "" {
		status = domain.StatusPending
	}
	due := now.Add(dueIn)
	return State{
		Draft: Draft{
			Status:   status,
			FinishBy: due,
		},
		DefaultDue: due,
	}
}

// Column returns the items currently shown in c.
func (s State) Column(c Column) []domain.Todo {
	switch c {
	case ColumnInProgress:
		return s.InProgress
	case ColumnDone:
		return s.Done
	default:
		return s.Pending
	}
}

// Len returns the total number of items across the three containers.
func (s State) Len() int {
	return len(s.Pending) + len(s.InProgress) + len(s.Done)
}

func (s State) withColumn(c Column, items []domain.Todo) State {
	switch c {
	case ColumnInProgress:
		s.InProgress = items
	case ColumnDone:
		s.Done = items
	default:
		s.Pending = items
	}
	return s
}

// Classify stores all as the latest snapshot and partitions it by status,
// preserving order inside each partition.
// Items with an unknown status are kept in All but shown nowhere.
func Classify(s State, all []domain.Todo) State {
	s.All = all
	for _, c := range Columns {
		s = s.withColumn(c, make([]domain.Todo, 0, len(all)))
	}
	for _, todo := range all {
		if c, ok := ColumnForStatus(todo.Status); ok {
			s = s.withColumn(c, append(s.Column(c), todo))
		}
	}
	return s
}

// HandleSearch applies one search term. An empty term re-classifies the last
// snapshot; any other term narrows the already-narrowed partitions, so a
// wider term cannot bring items back without an empty-term reset first.
func HandleSearch(s State, term string) State {
	if term == "" {
		return Classify(s, s.All)
	}
	needle := strings.ToLower(term)
	s.Done = filterByWhat(s.Done, needle)
	s.Pending = filterByWhat(s.Pending, needle)
	s.InProgress = filterByWhat(s.InProgress, needle)
	return s
}

// SetUser records the latest auth event; nil means signed out.
func SetUser(s State, user *domain.User) State {
	s.User = user
	s.LoggedIn = user != nil
	return s
}

// DeleteMatching returns all without every item whose description equals
// target's. Duplicates are all removed.
func DeleteMatching(all []domain.Todo, target domain.Todo) []domain.Todo {
	out := make([]domain.Todo, 0, len(all))
	for _, todo := range all {
		if todo.What != target.What {
			out = append(out, todo)
		}
	}
	return out
}

// IsOverdue reports whether now is strictly after due.
func IsOverdue(now, due time.Time) bool {
	return now.After(due)
}

// filterByWhat keeps items whose lowercased description contains needle.
func filterByWhat(items []domain.Todo, needle string) []domain.Todo {
	out := make([]domain.Todo, 0, len(items))
	for _, todo := range items {
		if strings.Contains(strings.ToLower(todo.What), needle) {
			out = append(out, todo)
		}
	}
	return out
}

// cloneTodos copies items so reducers never alias the caller's backing array.
func cloneTodos(items []domain.Todo) []domain.Todo {
	return slices.Clone(items)
}
