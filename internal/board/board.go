package board

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	charmLog "github.com/charmbracelet/log"

	"github.com/evanschultz/todoboard/internal/domain"
)

// defaultDueIn is how far ahead of construction time the draft due date lands.
const defaultDueIn = 24 * time.Hour

// Board wires the pure reducers to the data, dialog and viewport
// collaborators. A Board is not safe for concurrent use; the host serializes
// calls, either through Run or through its own event loop.
type Board struct {
	state      State
	data       DataSink
	dialog     Dialog
	viewport   Viewport
	clock      Clock
	logger     *charmLog.Logger
	breakpoint int
	dueIn      time.Duration
	status     domain.Status

	pending sync.WaitGroup
}

// Option configures a Board.
type Option func(*Board)

// WithClock sets the time source used for the default due date and overdue checks.
func WithClock(clock Clock) Option {
	return func(b *Board) {
		if clock != nil {
			b.clock = clock
		}
	}
}

// WithLogger sets the logger used for collaborator failures.
func WithLogger(logger *charmLog.Logger) Option {
	return func(b *Board) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithBreakpoint overrides the mobile viewport breakpoint.
func WithBreakpoint(width int) Option {
	return func(b *Board) {
		if width > 0 {
			b.breakpoint = width
		}
	}
}

// WithDefaultDue sets how far ahead of now the draft due date is placed.
func WithDefaultDue(d time.Duration) Option {
	return func(b *Board) {
		if d > 0 {
			b.dueIn = d
		}
	}
}

// WithDefaultStatus sets the draft status for new items.
func WithDefaultStatus(status domain.Status) Option {
	return func(b *Board) {
		if status.Valid() {
			b.status = status
		}
	}
}

// New constructs a Board. data is required; dialog and viewport may be nil
// when the host never opens the add dialog.
func New(data DataSink, dialog Dialog, viewport Viewport, opts ...Option) *Board {
	b := &Board{
		data:       data,
		dialog:     dialog,
		viewport:   viewport,
		clock:      time.Now,
		logger:     charmLog.New(io.Discard),
		breakpoint: MobileBreakpoint,
		dueIn:      defaultDueIn,
		status:     domain.StatusPending,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	b.state = NewState(b.clock(), b.dueIn, b.status)
	return b
}

// State returns the current board state.
func (b *Board) State() State {
	return b.state
}

// OnSnapshot classifies a fresh snapshot from the data collaborator.
func (b *Board) OnSnapshot(all []domain.Todo) {
	b.state = Classify(b.state, all)
}

// OnSearch applies one search term.
func (b *Board) OnSearch(term string) {
	b.state = HandleSearch(b.state, term)
}

// OnAuth records the latest auth event.
func (b *Board) OnAuth(user *domain.User) {
	b.state = SetUser(b.state, user)
}

// Drop applies a drag event locally. Nothing is persisted.
func (b *Board) Drop(ev DragEvent) error {
	next, err := Drop(b.state, ev)
	if err != nil {
		return err
	}
	b.state = next
	return nil
}

// DialogLayout returns the layout the add dialog would open with right now.
func (b *Board) DialogLayout() DialogLayout {
	mobile := false
	if b.viewport != nil {
		mobile = b.viewport.IsViewportAtMost(b.breakpoint)
	}
	return LayoutFor(mobile, b.state.Draft)
}

// OpenAddDialog opens the add modal and returns once it is shown. When the
// modal later closes with a result, that item is submitted to the data
// collaborator; a dismissal submits nothing. The wait is bound to ctx.
func (b *Board) OpenAddDialog(ctx context.Context) error {
	if b.dialog == nil {
		return errors.New("open add dialog: no dialog configured")
	}
	handle, err := b.dialog.OpenModal(ctx, b.DialogLayout())
	if err != nil {
		return fmt.Errorf("open add dialog: %w", err)
	}
	b.pending.Add(1)
	go func() {
		defer b.pending.Done()
		select {
		case <-ctx.Done():
			return
		case item, ok := <-handle.Closed():
			if !ok || item == nil {
				return
			}
			if err := b.data.SubmitNewItem(ctx, *item); err != nil {
				b.logger.Error("submit new item failed", "what", item.What, "err", err)
			}
		}
	}()
	return nil
}

// DeleteTodo removes every item whose description equals target's from the
// full snapshot and submits the remainder.
func (b *Board) DeleteTodo(ctx context.Context, target domain.Todo) error {
	next := DeleteMatching(b.state.All, target)
	b.state.All = next
	if err := b.data.SubmitFullList(ctx, next); err != nil {
		return fmt.Errorf("delete todo %q: %w", target.What, err)
	}
	return nil
}

// IsOverdue reports whether due has strictly passed.
func (b *Board) IsOverdue(due time.Time) bool {
	return IsOverdue(b.clock(), due)
}

// Wait blocks until every add dialog opened by this board has resolved.
func (b *Board) Wait() {
	b.pending.Wait()
}

// Run subscribes to src and applies each event in arrival order until ctx
// ends or every stream closes. onChange, when set, receives the state after
// each applied event. Subscriptions are released when Run returns.
func (b *Board) Run(ctx context.Context, src Sources, onChange func(State)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		todos  <-chan []domain.Todo
		search <-chan string
		auth   <-chan *domain.User
		err    error
	)
	if src.Todos != nil {
		if todos, err = src.Todos.SubscribeTodos(ctx); err != nil {
			return fmt.Errorf("subscribe todos: %w", err)
		}
	}
	if src.Search != nil {
		if search, err = src.Search.SubscribeSearch(ctx); err != nil {
			return fmt.Errorf("subscribe search: %w", err)
		}
	}
	if src.Auth != nil {
		if auth, err = src.Auth.SubscribeAuth(ctx); err != nil {
			return fmt.Errorf("subscribe auth: %w", err)
		}
	}

	for todos != nil || search != nil || auth != nil {
		select {
		case <-ctx.Done():
			return nil
		case items, ok := <-todos:
			if !ok {
				todos = nil
				continue
			}
			b.OnSnapshot(items)
		case term, ok := <-search:
			if !ok {
				search = nil
				continue
			}
			b.OnSearch(term)
		case user, ok := <-auth:
			if !ok {
				auth = nil
				continue
			}
			b.OnAuth(user)
		}
		if onChange != nil {
			onChange(b.state)
		}
	}
	return nil
}
