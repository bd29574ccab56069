package common

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/evanschultz/todoboard/internal/app"
	"github.com/evanschultz/todoboard/internal/board"
	"github.com/evanschultz/todoboard/internal/domain"
)

// defaultActivityLimit bounds activity reads when callers pass no limit.
const defaultActivityLimit = 50

// AppServiceAdapter maps transport contracts onto app.Service.
type AppServiceAdapter struct {
	service *app.Service
	clock   func() time.Time
}

// NewAppServiceAdapter builds one common adapter over an app.Service instance.
func NewAppServiceAdapter(service *app.Service, clock func() time.Time) *AppServiceAdapter {
	if clock == nil {
		clock = time.Now
	}
	return &AppServiceAdapter{service: service, clock: clock}
}

// ListTodos returns every stored item in board order.
func (a *AppServiceAdapter) ListTodos(ctx context.Context) ([]TodoItem, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	items, err := a.service.ListTodos(ctx)
	if err != nil {
		return nil, mapAppError("list todos", err)
	}
	return a.mapTodos(items), nil
}

// AddTodo appends one item through the data collaborator.
func (a *AppServiceAdapter) AddTodo(ctx context.Context, in AddTodoRequest) (TodoItem, error) {
	if err := a.ready(); err != nil {
		return TodoItem{}, err
	}
	todo, err := parseTodoInput(in.TodoInput, true)
	if err != nil {
		return TodoItem{}, err
	}
	stored, err := a.service.AddTodo(withActor(ctx, in.Actor), todo)
	if err != nil {
		return TodoItem{}, mapAppError("add todo", err)
	}
	return a.mapTodo(stored), nil
}

// ReplaceTodos replaces the full stored list, in order.
func (a *AppServiceAdapter) ReplaceTodos(ctx context.Context, in ReplaceTodosRequest) ([]TodoItem, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	items := make([]domain.Todo, 0, len(in.Todos))
	for idx, raw := range in.Todos {
		todo, err := parseTodoInput(raw, false)
		if err != nil {
			return nil, fmt.Errorf("todos[%d]: %w", idx, err)
		}
		items = append(items, todo)
	}
	ctx = withActor(ctx, in.Actor)
	if err := a.service.SubmitFullList(ctx, items); err != nil {
		return nil, mapAppError("replace todos", err)
	}
	return a.ListTodos(ctx)
}

// DeleteTodos removes every item whose description equals in.What.
func (a *AppServiceAdapter) DeleteTodos(ctx context.Context, in DeleteTodosRequest) (DeleteTodosResult, error) {
	if err := a.ready(); err != nil {
		return DeleteTodosResult{}, err
	}
	if strings.TrimSpace(in.What) == "" {
		return DeleteTodosResult{}, fmt.Errorf("what is required: %w", ErrInvalidRequest)
	}
	deleted, err := a.service.DeleteByDescription(withActor(ctx, in.Actor), in.What)
	if err != nil {
		return DeleteTodosResult{}, mapAppError("delete todos", err)
	}
	return DeleteTodosResult{What: in.What, Deleted: deleted}, nil
}

// Board classifies the stored list and narrows it by each term in order.
func (a *AppServiceAdapter) Board(ctx context.Context, terms []string) (BoardView, error) {
	if err := a.ready(); err != nil {
		return BoardView{}, err
	}
	state, err := a.service.BoardView(ctx, terms...)
	if err != nil {
		return BoardView{}, mapAppError("board view", err)
	}
	return a.View(state, terms), nil
}

// View renders one board state as its wire shape, flagging overdue items
// against the adapter clock. terms is echoed as the view's search chain.
func (a *AppServiceAdapter) View(state board.State, terms []string) BoardView {
	return BoardView{
		Search:     terms,
		Pending:    a.mapTodos(state.Pending),
		InProgress: a.mapTodos(state.InProgress),
		Done:       a.mapTodos(state.Done),
	}
}

// Search broadcasts one term to every attached board.
func (a *AppServiceAdapter) Search(ctx context.Context, term string) error {
	if err := a.ready(); err != nil {
		return err
	}
	return mapAppError("publish search", a.service.PublishSearch(ctx, term))
}

// ListActivity returns the newest change-ledger rows first.
func (a *AppServiceAdapter) ListActivity(ctx context.Context, limit int) ([]ActivityEvent, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	events, err := a.service.ListChangeEvents(ctx, limit)
	if err != nil {
		return nil, mapAppError("list activity", err)
	}
	out := make([]ActivityEvent, 0, len(events))
	for _, ev := range events {
		out = append(out, ActivityEvent{
			ID:         ev.ID,
			TodoID:     ev.TodoID,
			Operation:  string(ev.Operation),
			ActorID:    ev.ActorID,
			Metadata:   ev.Metadata,
			OccurredAt: ev.OccurredAt,
		})
	}
	return out, nil
}

// SubscribeTodos streams the mapped list after every mutation until ctx ends.
func (a *AppServiceAdapter) SubscribeTodos(ctx context.Context) (<-chan []TodoItem, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	src, err := a.service.SubscribeTodos(ctx)
	if err != nil {
		return nil, mapAppError("subscribe todos", err)
	}
	out := make(chan []TodoItem, 1)
	go func() {
		defer close(out)
		for items := range src {
			select {
			case out <- a.mapTodos(items):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// ready reports whether the adapter has a backing service.
func (a *AppServiceAdapter) ready() error {
	if a == nil || a.service == nil {
		return fmt.Errorf("app service adapter is not configured: %w", ErrUnavailable)
	}
	return nil
}

// mapTodos converts domain items to wire items.
func (a *AppServiceAdapter) mapTodos(items []domain.Todo) []TodoItem {
	out := make([]TodoItem, 0, len(items))
	for _, item := range items {
		out = append(out, a.mapTodo(item))
	}
	return out
}

// mapTodo converts one domain item, flagging it overdue against the adapter clock.
func (a *AppServiceAdapter) mapTodo(item domain.Todo) TodoItem {
	out := TodoItem{
		ID:     item.ID,
		What:   item.What,
		Status: string(item.Status),
	}
	if !item.FinishBy.IsZero() {
		due := item.FinishBy.UTC()
		out.FinishBy = &due
		out.Overdue = board.IsOverdue(a.clock(), due)
	}
	return out
}

// parseTodoInput validates one wire item. allowEmptyStatus leaves status
// selection to the service default.
func parseTodoInput(in TodoInput, allowEmptyStatus bool) (domain.Todo, error) {
	what := strings.TrimSpace(in.What)
	if what == "" {
		return domain.Todo{}, fmt.Errorf("what is required: %w", ErrInvalidRequest)
	}
	out := domain.Todo{ID: strings.TrimSpace(in.ID), What: what}
	switch {
	case strings.TrimSpace(in.Status) != "":
		status, err := domain.ParseStatus(in.Status)
		if err != nil {
			return domain.Todo{}, errors.Join(ErrInvalidRequest, err)
		}
		out.Status = status
	case !allowEmptyStatus:
		out.Status = domain.StatusPending
	}
	if raw := strings.TrimSpace(in.FinishBy); raw != "" {
		due, err := parseFinishBy(raw)
		if err != nil {
			return domain.Todo{}, err
		}
		out.FinishBy = due
	}
	return out, nil
}

// parseFinishBy accepts RFC3339 timestamps or plain dates.
func parseFinishBy(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02"} {
		if due, err := time.Parse(layout, raw); err == nil {
			return due.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("finish_by %q must be RFC3339 or YYYY-MM-DD: %w", raw, ErrInvalidRequest)
}

// withActor attributes mutations to actor when one is given.
func withActor(ctx context.Context, actor string) context.Context {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ctx
	}
	return app.WithActor(ctx, app.Actor{ID: actor})
}

// mapAppError maps app and domain sentinels into transport sentinels.
func mapAppError(operation string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, app.ErrNotFound):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrNotFound, err))
	case errors.Is(err, domain.ErrInvalidWhat),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidID):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrInvalidRequest, err))
	default:
		return fmt.Errorf("%s: %w", operation, err)
	}
}
