// Package common provides transport-agnostic server contracts used by HTTP and MCP adapters.
package common

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidRequest reports malformed transport input.
var ErrInvalidRequest = errors.New("invalid request")

// ErrNotFound reports a missing target.
var ErrNotFound = errors.New("not found")

// ErrUnavailable reports a missing backing service.
var ErrUnavailable = errors.New("service unavailable")

// TodoItem is the wire shape of one item.
type TodoItem struct {
	ID       string     `json:"id"`
	What     string     `json:"what"`
	Status   string     `json:"status"`
	FinishBy *time.Time `json:"finish_by,omitempty"`
	Overdue  bool       `json:"overdue"`
}

// BoardView is the classified board after applying search terms in order.
type BoardView struct {
	Search     []string   `json:"search,omitempty"`
	Pending    []TodoItem `json:"pending"`
	InProgress []TodoItem `json:"in_progress"`
	Done       []TodoItem `json:"done"`
}

// TodoInput is the wire shape of one item to store.
type TodoInput struct {
	ID       string `json:"id,omitempty"`
	What     string `json:"what"`
	Status   string `json:"status,omitempty"`
	FinishBy string `json:"finish_by,omitempty"`
}

// AddTodoRequest appends one item.
type AddTodoRequest struct {
	TodoInput
	Actor string `json:"actor,omitempty"`
}

// ReplaceTodosRequest replaces the full list.
type ReplaceTodosRequest struct {
	Todos []TodoInput `json:"todos"`
	Actor string      `json:"actor,omitempty"`
}

// DeleteTodosRequest removes every item with a matching description.
type DeleteTodosRequest struct {
	What  string `json:"what"`
	Actor string `json:"actor,omitempty"`
}

// DeleteTodosResult reports how many items were removed.
type DeleteTodosResult struct {
	What    string `json:"what"`
	Deleted int    `json:"deleted"`
}

// ActivityEvent is the wire shape of one change-ledger row.
type ActivityEvent struct {
	ID         int64             `json:"id"`
	TodoID     string            `json:"todo_id,omitempty"`
	Operation  string            `json:"operation"`
	ActorID    string            `json:"actor_id"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// TodoService is the board surface shared by the HTTP and MCP adapters.
type TodoService interface {
	ListTodos(context.Context) ([]TodoItem, error)
	AddTodo(context.Context, AddTodoRequest) (TodoItem, error)
	ReplaceTodos(context.Context, ReplaceTodosRequest) ([]TodoItem, error)
	DeleteTodos(context.Context, DeleteTodosRequest) (DeleteTodosResult, error)
	Board(context.Context, []string) (BoardView, error)
	Search(context.Context, string) error
	ListActivity(context.Context, int) ([]ActivityEvent, error)
}

// TodoStreamer streams the full list after every mutation.
type TodoStreamer interface {
	SubscribeTodos(context.Context) (<-chan []TodoItem, error)
}
