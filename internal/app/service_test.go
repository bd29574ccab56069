package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/evanschultz/todoboard/internal/domain"
)

type fakeRepo struct {
	mu      sync.Mutex
	todos   []domain.Todo
	events  []domain.ChangeEvent
	actors  []string
	failErr error
}

func newFakeRepo(items ...domain.Todo) *fakeRepo {
	return &fakeRepo{todos: slices.Clone(items)}
}

func (f *fakeRepo) ListTodos(context.Context) ([]domain.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.todos), nil
}

func (f *fakeRepo) ReplaceTodos(_ context.Context, items []domain.Todo, actorID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	f.todos = slices.Clone(items)
	f.actors = append(f.actors, actorID)
	f.events = append(f.events, domain.ChangeEvent{ID: int64(len(f.events) + 1), Operation: domain.ChangeOperationReplace, ActorID: actorID})
	return nil
}

func (f *fakeRepo) AppendTodo(_ context.Context, item domain.Todo, actorID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	f.todos = append(f.todos, item)
	f.actors = append(f.actors, actorID)
	f.events = append(f.events, domain.ChangeEvent{ID: int64(len(f.events) + 1), TodoID: item.ID, Operation: domain.ChangeOperationCreate, ActorID: actorID})
	return nil
}

func (f *fakeRepo) ListChangeEvents(_ context.Context, limit int) ([]domain.ChangeEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := slices.Clone(f.events)
	slices.Reverse(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sequentialIDs() IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func receiveTodos(t *testing.T, ch <-chan []domain.Todo) []domain.Todo {
	t.Helper()
	select {
	case items, ok := <-ch:
		if !ok {
			t.Fatal("todo stream closed unexpectedly")
		}
		return items
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for todo snapshot")
	}
	return nil
}

func TestSubmitNewItemAssignsIDAndDefaults(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, sequentialIDs(), nil, ServiceConfig{DefaultStatus: domain.StatusInProgress})
	ctx := WithActor(context.Background(), Actor{ID: " ada "})

	if err := svc.SubmitNewItem(ctx, domain.Todo{What: "  write tests "}); err != nil {
		t.Fatalf("SubmitNewItem() error = %v", err)
	}
	items, _ := svc.ListTodos(context.Background())
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].ID != "id-1" || items[0].What != "write tests" || items[0].Status != domain.StatusInProgress {
		t.Fatalf("unexpected stored item %#v", items[0])
	}
	if repo.actors[0] != "ada" {
		t.Fatalf("actor = %q, want ada", repo.actors[0])
	}
}

func TestSubmitNewItemRejectsEmptyDescription(t *testing.T) {
	svc := NewService(newFakeRepo(), sequentialIDs(), nil, ServiceConfig{})
	err := svc.SubmitNewItem(context.Background(), domain.Todo{What: "  "})
	if !errors.Is(err, domain.ErrInvalidWhat) {
		t.Fatalf("expected ErrInvalidWhat, got %v", err)
	}
}

func TestAddTodoReturnsStoredItem(t *testing.T) {
	svc := NewService(newFakeRepo(), sequentialIDs(), nil, ServiceConfig{})
	due := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	got, err := svc.AddTodo(context.Background(), domain.Todo{What: "file taxes", Status: domain.StatusDone, FinishBy: due})
	if err != nil {
		t.Fatalf("AddTodo() error = %v", err)
	}
	if got.ID != "id-1" || got.Status != domain.StatusDone || !got.FinishBy.Equal(due) {
		t.Fatalf("unexpected item %#v", got)
	}
}

func TestSubmitFullListKeepsOrderAndFillsIDs(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, sequentialIDs(), nil, ServiceConfig{})

	err := svc.SubmitFullList(context.Background(), []domain.Todo{
		{ID: "keep", What: "b", Status: domain.StatusDone},
		{What: "a", Status: domain.StatusPending},
	})
	if err != nil {
		t.Fatalf("SubmitFullList() error = %v", err)
	}
	if repo.todos[0].ID != "keep" || repo.todos[1].ID != "id-1" {
		t.Fatalf("unexpected ids %#v", repo.todos)
	}
	if repo.actors[0] != anonymousActor {
		t.Fatalf("actor = %q, want %q", repo.actors[0], anonymousActor)
	}
}

func TestSubmitFullListWrapsRepositoryError(t *testing.T) {
	repo := newFakeRepo()
	repo.failErr = errors.New("disk full")
	svc := NewService(repo, nil, nil, ServiceConfig{})

	if err := svc.SubmitFullList(context.Background(), nil); !errors.Is(err, repo.failErr) {
		t.Fatalf("expected wrapped repo error, got %v", err)
	}
}

func TestDeleteByDescriptionRemovesAllMatches(t *testing.T) {
	repo := newFakeRepo(
		domain.Todo{ID: "1", What: "dup", Status: domain.StatusPending},
		domain.Todo{ID: "2", What: "keep", Status: domain.StatusDone},
		domain.Todo{ID: "3", What: "dup", Status: domain.StatusDone},
	)
	svc := NewService(repo, nil, nil, ServiceConfig{})

	removed, err := svc.DeleteByDescription(context.Background(), "dup")
	if err != nil {
		t.Fatalf("DeleteByDescription() error = %v", err)
	}
	if removed != 2 || len(repo.todos) != 1 || repo.todos[0].ID != "2" {
		t.Fatalf("unexpected result removed=%d todos=%#v", removed, repo.todos)
	}
	if _, err := svc.DeleteByDescription(context.Background(), "dup"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBoardViewClassifiesAndNarrows(t *testing.T) {
	repo := newFakeRepo(
		domain.Todo{What: "buy milk", Status: domain.StatusPending},
		domain.Todo{What: "Buy bread", Status: domain.StatusPending},
		domain.Todo{What: "ship", Status: domain.StatusDone},
	)
	svc := NewService(repo, nil, nil, ServiceConfig{})

	state, err := svc.BoardView(context.Background())
	if err != nil {
		t.Fatalf("BoardView() error = %v", err)
	}
	if len(state.Pending) != 2 || len(state.Done) != 1 {
		t.Fatalf("unexpected classification %#v", state)
	}
	state, _ = svc.BoardView(context.Background(), "milk", "bu")
	if len(state.Pending) != 1 || state.Pending[0].What != "buy milk" {
		t.Fatalf("expected cumulative narrowing, got %#v", state.Pending)
	}
}

func TestSubscribeTodosEmitsCurrentThenUpdates(t *testing.T) {
	repo := newFakeRepo(domain.Todo{ID: "1", What: "first", Status: domain.StatusPending})
	svc := NewService(repo, sequentialIDs(), nil, ServiceConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := svc.SubscribeTodos(ctx)
	if err != nil {
		t.Fatalf("SubscribeTodos() error = %v", err)
	}
	if got := receiveTodos(t, ch); len(got) != 1 {
		t.Fatalf("initial snapshot = %#v", got)
	}
	if err := svc.SubmitNewItem(context.Background(), domain.Todo{What: "second"}); err != nil {
		t.Fatalf("SubmitNewItem() error = %v", err)
	}
	if got := receiveTodos(t, ch); len(got) != 2 || got[1].What != "second" {
		t.Fatalf("update snapshot = %#v", got)
	}
}

func TestSubscribeTodosSlowSubscriberGetsLatest(t *testing.T) {
	svc := NewService(newFakeRepo(), sequentialIDs(), nil, ServiceConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, _ := svc.SubscribeTodos(ctx)
	for _, what := range []string{"a", "b", "c"} {
		if err := svc.SubmitNewItem(context.Background(), domain.Todo{What: what}); err != nil {
			t.Fatalf("SubmitNewItem(%q) error = %v", what, err)
		}
	}
	if got := receiveTodos(t, ch); len(got) != 3 {
		t.Fatalf("expected newest snapshot of 3 items, got %d", len(got))
	}
	select {
	case extra := <-ch:
		t.Fatalf("expected no queued snapshots, got %#v", extra)
	default:
	}
}

func TestSubscribeTodosClosesOnCancel(t *testing.T) {
	svc := NewService(newFakeRepo(), nil, nil, ServiceConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := svc.SubscribeTodos(ctx)
	<-ch
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("subscription did not close after cancel")
	}
}

func TestSearchBroadcastPreservesOrder(t *testing.T) {
	svc := NewService(newFakeRepo(), nil, nil, ServiceConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, _ := svc.SubscribeSearch(ctx)
	second, _ := svc.SubscribeSearch(ctx)
	for _, term := range []string{"mi", "milk", ""} {
		_ = svc.PublishSearch(context.Background(), term)
	}
	for _, ch := range []<-chan string{first, second} {
		for _, want := range []string{"mi", "milk", ""} {
			if got := <-ch; got != want {
				t.Fatalf("term = %q, want %q", got, want)
			}
		}
	}
}

func TestListChangeEventsDefaultsLimit(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, sequentialIDs(), nil, ServiceConfig{})
	_ = svc.SubmitNewItem(context.Background(), domain.Todo{What: "a"})
	_ = svc.SubmitFullList(context.Background(), nil)

	events, err := svc.ListChangeEvents(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListChangeEvents() error = %v", err)
	}
	if len(events) != 2 || events[0].Operation != domain.ChangeOperationReplace {
		t.Fatalf("unexpected events %#v", events)
	}
}
