package tui

import (
	"context"
	"slices"
	"sync"

	"github.com/evanschultz/todoboard/internal/domain"
)

// fakeService stores items in memory and broadcasts every mutation.
type fakeService struct {
	mu         sync.Mutex
	items      []domain.Todo
	todoSubs   []chan []domain.Todo
	searchSubs []chan string
	fullLists  [][]domain.Todo
	terms      []string
	added      chan domain.Todo
	subErr     error
}

// newFakeService constructs fake service.
func newFakeService(items ...domain.Todo) *fakeService {
	return &fakeService{
		items: slices.Clone(items),
		added: make(chan domain.Todo, 8),
	}
}

func (f *fakeService) SubscribeTodos(ctx context.Context) (<-chan []domain.Todo, error) {
	if f.subErr != nil {
		return nil, f.subErr
	}
	f.mu.Lock()
	ch := make(chan []domain.Todo, 8)
	ch <- slices.Clone(f.items)
	f.todoSubs = append(f.todoSubs, ch)
	f.mu.Unlock()
	go func() {
		<-ctx.Done()
		f.mu.Lock()
		defer f.mu.Unlock()
		f.todoSubs = slices.DeleteFunc(f.todoSubs, func(c chan []domain.Todo) bool { return c == ch })
		close(ch)
	}()
	return ch, nil
}

func (f *fakeService) SubscribeSearch(ctx context.Context) (<-chan string, error) {
	f.mu.Lock()
	ch := make(chan string, 8)
	f.searchSubs = append(f.searchSubs, ch)
	f.mu.Unlock()
	go func() {
		<-ctx.Done()
		f.mu.Lock()
		defer f.mu.Unlock()
		f.searchSubs = slices.DeleteFunc(f.searchSubs, func(c chan string) bool { return c == ch })
		close(ch)
	}()
	return ch, nil
}

func (f *fakeService) PublishSearch(_ context.Context, term string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terms = append(f.terms, term)
	for _, ch := range f.searchSubs {
		select {
		case ch <- term:
		default:
		}
	}
	return nil
}

func (f *fakeService) SubmitFullList(_ context.Context, items []domain.Todo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = slices.Clone(items)
	f.fullLists = append(f.fullLists, slices.Clone(items))
	f.broadcastLocked()
	return nil
}

func (f *fakeService) SubmitNewItem(_ context.Context, item domain.Todo) error {
	f.mu.Lock()
	f.items = append(f.items, item)
	f.broadcastLocked()
	f.mu.Unlock()
	f.added <- item
	return nil
}

func (f *fakeService) broadcastLocked() {
	for _, ch := range f.todoSubs {
		select {
		case ch <- slices.Clone(f.items):
		default:
		}
	}
}

func (f *fakeService) submittedLists() [][]domain.Todo {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.fullLists)
}

func (f *fakeService) publishedTerms() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.terms)
}

// fakeAuth emits a fixed sequence of identities.
type fakeAuth struct {
	users []*domain.User
}

func (f fakeAuth) SubscribeAuth(ctx context.Context) (<-chan *domain.User, error) {
	ch := make(chan *domain.User, len(f.users))
	for _, user := range f.users {
		ch <- user
	}
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}
