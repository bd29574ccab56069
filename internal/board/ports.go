package board

import (
	"context"
	"time"

	"github.com/evanschultz/todoboard/internal/domain"
)

// TodoSource streams full todo snapshots, one per external mutation.
type TodoSource interface {
	SubscribeTodos(context.Context) (<-chan []domain.Todo, error)
}

// DataSink accepts board mutations.
type DataSink interface {
	SubmitFullList(context.Context, []domain.Todo) error
	SubmitNewItem(context.Context, domain.Todo) error
}

// SearchSource streams search terms.
type SearchSource interface {
	SubscribeSearch(context.Context) (<-chan string, error)
}

// AuthSource streams authentication identity; nil means signed out.
type AuthSource interface {
	SubscribeAuth(context.Context) (<-chan *domain.User, error)
}

// DialogHandle reports the single close event of an opened modal. A nil
// result means the modal was dismissed.
type DialogHandle interface {
	Closed() <-chan *domain.Todo
}

// Dialog presents the add-item modal.
type Dialog interface {
	OpenModal(context.Context, DialogLayout) (DialogHandle, error)
}

// Viewport answers width breakpoint queries synchronously.
type Viewport interface {
	IsViewportAtMost(width int) bool
}

// ViewportFunc adapts a function to Viewport.
type ViewportFunc func(width int) bool

// IsViewportAtMost implements Viewport.
func (f ViewportFunc) IsViewportAtMost(width int) bool {
	return f(width)
}

// Clock returns the current time.
type Clock func() time.Time

// Sources groups the three event streams a Board reacts to.
type Sources struct {
	Todos  TodoSource
	Search SearchSource
	Auth   AuthSource
}
