package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	charmLog "github.com/charmbracelet/log"

	"github.com/evanschultz/todoboard/internal/board"
	"github.com/evanschultz/todoboard/internal/domain"
)

// searchBuffer bounds queued search terms per subscriber.
const searchBuffer = 32

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	DefaultStatus domain.Status
	Logger        *charmLog.Logger
}

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// Service is the data and search collaborator behind every board host. It
// persists through Repository and broadcasts a fresh snapshot after each
// mutation.
type Service struct {
	repo          Repository
	idGen         IDGenerator
	clock         Clock
	defaultStatus domain.Status
	logger        *charmLog.Logger

	// mu serializes mutations with their broadcast so subscribers never
	// observe snapshots out of order.
	mu     sync.Mutex
	todos  *broker[[]domain.Todo]
	search *broker[string]
}

// NewService constructs a new value for this package.
func NewService(repo Repository, idGen IDGenerator, clock Clock, cfg ServiceConfig) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	if !cfg.DefaultStatus.Valid() {
		cfg.DefaultStatus = domain.StatusPending
	}
	logger := cfg.Logger
	if logger == nil {
		logger = charmLog.New(io.Discard)
	}
	return &Service{
		repo:          repo,
		idGen:         idGen,
		clock:         clock,
		defaultStatus: cfg.DefaultStatus,
		logger:        logger,
		todos:         newBroker[[]domain.Todo](1, true),
		search:        newBroker[string](searchBuffer, false),
	}
}

// ListTodos returns the stored list in board order.
func (s *Service) ListTodos(ctx context.Context) ([]domain.Todo, error) {
	return s.repo.ListTodos(ctx)
}

// SubmitFullList replaces the stored list with items, in order. Items
// without an id receive one.
func (s *Service) SubmitFullList(ctx context.Context, items []domain.Todo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaceLocked(ctx, items)
}

// SubmitNewItem appends one item to the end of the list.
func (s *Service) SubmitNewItem(ctx context.Context, item domain.Todo) error {
	_, err := s.AddTodo(ctx, item)
	return err
}

// AddTodo appends one item and returns it as stored. An empty status takes
// the configured default.
func (s *Service) AddTodo(ctx context.Context, item domain.Todo) (domain.Todo, error) {
	status := item.Status
	if status == "" {
		status = s.defaultStatus
	}
	todo, err := domain.NewTodo(domain.TodoInput{
		ID:       s.idGen(),
		What:     item.What,
		Status:   status,
		FinishBy: item.FinishBy,
	})
	if err != nil {
		return domain.Todo{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.repo.AppendTodo(ctx, todo, attributedTo(ctx)); err != nil {
		return domain.Todo{}, fmt.Errorf("append todo: %w", err)
	}
	return todo, s.broadcastLocked(ctx)
}

// DeleteByDescription removes every item whose description equals what and
// returns how many were removed. ErrNotFound means nothing matched.
func (s *Service) DeleteByDescription(ctx context.Context, what string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.repo.ListTodos(ctx)
	if err != nil {
		return 0, err
	}
	next := board.DeleteMatching(all, domain.Todo{What: what})
	removed := len(all) - len(next)
	if removed == 0 {
		return 0, ErrNotFound
	}
	if err := s.replaceLocked(ctx, next); err != nil {
		return 0, err
	}
	return removed, nil
}

// BoardView returns the classified board narrowed by each term in order.
func (s *Service) BoardView(ctx context.Context, terms ...string) (board.State, error) {
	all, err := s.repo.ListTodos(ctx)
	if err != nil {
		return board.State{}, err
	}
	state := board.Classify(board.State{}, all)
	for _, term := range terms {
		state = board.HandleSearch(state, term)
	}
	return state, nil
}

// SubscribeTodos streams the current list immediately and then one list per
// mutation until ctx ends. A slow subscriber only receives the newest list.
func (s *Service) SubscribeTodos(ctx context.Context) (<-chan []domain.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, err := s.repo.ListTodos(ctx)
	if err != nil {
		return nil, err
	}
	return s.todos.subscribe(ctx, func(ch chan []domain.Todo) {
		ch <- current
	}), nil
}

// PublishSearch broadcasts one search term to every search subscriber.
func (s *Service) PublishSearch(_ context.Context, term string) error {
	if dropped := s.search.publish(term); dropped > 0 {
		s.logger.Warn("search term dropped for slow subscribers", "term", term, "dropped", dropped)
	}
	return nil
}

// SubscribeSearch streams published search terms until ctx ends.
func (s *Service) SubscribeSearch(ctx context.Context) (<-chan string, error) {
	return s.search.subscribe(ctx, nil), nil
}

// ListChangeEvents returns the newest change events first.
func (s *Service) ListChangeEvents(ctx context.Context, limit int) ([]domain.ChangeEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.ListChangeEvents(ctx, limit)
}

// replaceLocked stores items as the full list and broadcasts; s.mu must be held.
func (s *Service) replaceLocked(ctx context.Context, items []domain.Todo) error {
	next := make([]domain.Todo, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.ID) == "" {
			item.ID = s.idGen()
		}
		next = append(next, item)
	}
	if err := s.repo.ReplaceTodos(ctx, next, attributedTo(ctx)); err != nil {
		return fmt.Errorf("replace todos: %w", err)
	}
	return s.broadcastLocked(ctx)
}

// broadcastLocked publishes the stored list; s.mu must be held.
func (s *Service) broadcastLocked(ctx context.Context) error {
	items, err := s.repo.ListTodos(ctx)
	if err != nil {
		return fmt.Errorf("reload todos: %w", err)
	}
	s.todos.publish(items)
	s.logger.Debug("todos broadcast", "count", len(items), "subscribers", s.todos.subscribers())
	return nil
}
