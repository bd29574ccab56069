package app

import (
	"context"

	"github.com/evanschultz/todoboard/internal/domain"
)

// Repository persists the ordered todo list and its change ledger.
type Repository interface {
	ListTodos(context.Context) ([]domain.Todo, error)
	ReplaceTodos(context.Context, []domain.Todo, string) error
	AppendTodo(context.Context, domain.Todo, string) error
	ListChangeEvents(context.Context, int) ([]domain.ChangeEvent, error)
}
