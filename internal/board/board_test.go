package board

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evanschultz/todoboard/internal/domain"
)

// fakeSink records every submission.
type fakeSink struct {
	mu        sync.Mutex
	fullLists [][]domain.Todo
	newItems  []domain.Todo
	err       error
	submitted chan domain.Todo
}

func newFakeSink() *fakeSink {
	return &fakeSink{submitted: make(chan domain.Todo, 4)}
}

func (f *fakeSink) SubmitFullList(_ context.Context, items []domain.Todo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fullLists = append(f.fullLists, items)
	return f.err
}

func (f *fakeSink) SubmitNewItem(_ context.Context, item domain.Todo) error {
	f.mu.Lock()
	f.newItems = append(f.newItems, item)
	f.mu.Unlock()
	f.submitted <- item
	return f.err
}

// fakeDialog returns a handle whose close channel the test controls.
type fakeDialog struct {
	layout DialogLayout
	closed chan *domain.Todo
	err    error
}

func (f *fakeDialog) OpenModal(_ context.Context, layout DialogLayout) (DialogHandle, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.layout = layout
	return f, nil
}

func (f *fakeDialog) Closed() <-chan *domain.Todo {
	return f.closed
}

type chanSources struct {
	todos  chan []domain.Todo
	search chan string
	auth   chan *domain.User
	ctxs   []context.Context
}

func (c *chanSources) SubscribeTodos(ctx context.Context) (<-chan []domain.Todo, error) {
	c.ctxs = append(c.ctxs, ctx)
	return c.todos, nil
}

func (c *chanSources) SubscribeSearch(ctx context.Context) (<-chan string, error) {
	c.ctxs = append(c.ctxs, ctx)
	return c.search, nil
}

func (c *chanSources) SubscribeAuth(ctx context.Context) (<-chan *domain.User, error) {
	c.ctxs = append(c.ctxs, ctx)
	return c.auth, nil
}

func fixedClock(now time.Time) Clock {
	return func() time.Time { return now }
}

func TestNewBoardDraftUsesClock(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	b := New(newFakeSink(), nil, nil, WithClock(fixedClock(now)), WithDefaultDue(2*time.Hour))

	assert.Equal(t, now.Add(2*time.Hour), b.State().Draft.FinishBy)
	assert.Equal(t, domain.StatusPending, b.State().Draft.Status)
}

func TestBoardDialogLayoutUsesViewport(t *testing.T) {
	var asked int
	vp := ViewportFunc(func(width int) bool {
		asked = width
		return true
	})
	b := New(newFakeSink(), nil, vp)

	layout := b.DialogLayout()
	assert.Equal(t, MobileBreakpoint, asked)
	assert.Equal(t, DialogSize{MaxHeight: 300, MaxWidth: 500}, layout.Size)

	b = New(newFakeSink(), nil, ViewportFunc(func(int) bool { return false }), WithBreakpoint(720))
	assert.Equal(t, DialogSize{MaxHeight: 600, MaxWidth: 300}, b.DialogLayout().Size)
}

func TestOpenAddDialogSubmitsResult(t *testing.T) {
	sink := newFakeSink()
	dialog := &fakeDialog{closed: make(chan *domain.Todo, 1)}
	b := New(sink, dialog, ViewportFunc(func(int) bool { return false }))

	require.NoError(t, b.OpenAddDialog(context.Background()))
	assert.Equal(t, domain.StatusPending, dialog.layout.Data.Status)

	dialog.closed <- &domain.Todo{What: "new thing", Status: domain.StatusPending}
	select {
	case got := <-sink.submitted:
		assert.Equal(t, "new thing", got.What)
	case <-time.After(time.Second):
		t.Fatal("expected new item submission")
	}
	b.Wait()
	assert.Empty(t, sink.fullLists)
}

func TestOpenAddDialogDismissSubmitsNothing(t *testing.T) {
	sink := newFakeSink()
	dialog := &fakeDialog{closed: make(chan *domain.Todo, 1)}
	b := New(sink, dialog, nil)

	require.NoError(t, b.OpenAddDialog(context.Background()))
	dialog.closed <- nil
	b.Wait()

	assert.Empty(t, sink.newItems)
}

func TestOpenAddDialogCancelledContextReleasesWait(t *testing.T) {
	sink := newFakeSink()
	dialog := &fakeDialog{closed: make(chan *domain.Todo)}
	b := New(sink, dialog, nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, b.OpenAddDialog(ctx))
	cancel()
	b.Wait()

	assert.Empty(t, sink.newItems)
}

func TestOpenAddDialogErrors(t *testing.T) {
	b := New(newFakeSink(), nil, nil)
	require.Error(t, b.OpenAddDialog(context.Background()))

	boom := errors.New("boom")
	b = New(newFakeSink(), &fakeDialog{err: boom}, nil)
	require.ErrorIs(t, b.OpenAddDialog(context.Background()), boom)
}

func TestDeleteTodoSubmitsRemainder(t *testing.T) {
	sink := newFakeSink()
	b := New(sink, nil, nil)
	b.OnSnapshot([]domain.Todo{
		todo("a", domain.StatusPending),
		todo("b", domain.StatusDone),
		todo("a", domain.StatusDone),
	})

	require.NoError(t, b.DeleteTodo(context.Background(), todo("a", domain.StatusPending)))
	require.Len(t, sink.fullLists, 1)
	assert.Equal(t, []string{"b"}, whats(sink.fullLists[0]))
	// Columns refresh on the next snapshot, not on delete.
	assert.Len(t, b.State().Pending, 1)
}

func TestDeleteTodoWrapsSinkError(t *testing.T) {
	sink := newFakeSink()
	sink.err = errors.New("offline")
	b := New(sink, nil, nil)

	err := b.DeleteTodo(context.Background(), todo("a", domain.StatusPending))
	require.ErrorIs(t, err, sink.err)
}

func TestBoardDropLeavesSinkUntouched(t *testing.T) {
	sink := newFakeSink()
	b := New(sink, nil, nil)
	b.OnSnapshot([]domain.Todo{todo("a", domain.StatusPending)})

	require.NoError(t, b.Drop(DragEvent{From: ColumnPending, To: ColumnDone}))
	assert.Equal(t, []string{"a"}, whats(b.State().Done))
	assert.Empty(t, sink.fullLists)

	require.ErrorIs(t, b.Drop(DragEvent{From: ColumnPending, To: ColumnDone}), ErrInvalidIndex)
}

func TestBoardIsOverdueUsesClock(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	b := New(newFakeSink(), nil, nil, WithClock(fixedClock(now)))

	assert.True(t, b.IsOverdue(now.Add(-time.Minute)))
	assert.False(t, b.IsOverdue(now))
}

func TestRunAppliesEventsInOrderAndStopsOnCancel(t *testing.T) {
	src := &chanSources{
		todos:  make(chan []domain.Todo),
		search: make(chan string),
		auth:   make(chan *domain.User),
	}
	b := New(newFakeSink(), nil, nil)
	states := make(chan State, 8)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- b.Run(ctx, Sources{Todos: src, Search: src, Auth: src}, func(s State) { states <- s })
	}()

	src.todos <- sampleSnapshot()
	got := <-states
	assert.Len(t, got.Pending, 2)

	src.search <- "milk"
	got = <-states
	assert.Equal(t, []string{"buy milk"}, whats(got.Pending))

	user := domain.User{ID: "u-1", Name: "Ada"}
	src.auth <- &user
	got = <-states
	assert.True(t, got.LoggedIn)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	require.Len(t, src.ctxs, 3)
	for _, subCtx := range src.ctxs {
		assert.Error(t, subCtx.Err(), "subscription contexts end with Run")
	}
}

func TestRunReturnsWhenStreamsClose(t *testing.T) {
	src := &chanSources{todos: make(chan []domain.Todo)}
	b := New(newFakeSink(), nil, nil)
	done := make(chan error, 1)
	go func() {
		done <- b.Run(context.Background(), Sources{Todos: src}, nil)
	}()
	src.todos <- sampleSnapshot()
	close(src.todos)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after streams closed")
	}
	assert.Len(t, b.State().All, 5)
}
