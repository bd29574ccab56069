package board

import (
	"errors"
	"fmt"

	"github.com/evanschultz/todoboard/internal/domain"
)

// ErrInvalidIndex reports a drag event whose source index is outside the source column.
var ErrInvalidIndex = errors.New("invalid drag index")

// DragEvent describes one completed drag: which item left which container
// and where it landed.
type DragEvent struct {
	From      Column
	To        Column
	FromIndex int
	ToIndex   int
}

// Drop applies a drag event. Inside one container the item is moved to the
// destination index; across containers it is transferred. The moved item's
// Status is left as-is, so its field and its column can disagree until the
// next snapshot is classified.
func Drop(s State, ev DragEvent) (State, error) {
	src := s.Column(ev.From)
	if ev.FromIndex < 0 || ev.FromIndex >= len(src) {
		return s, fmt.Errorf("%w: %d not in [0,%d) of %s", ErrInvalidIndex, ev.FromIndex, len(src), ev.From)
	}
	if ev.From == ev.To {
		return s.withColumn(ev.From, moveItemInArray(cloneTodos(src), ev.FromIndex, ev.ToIndex)), nil
	}
	nextSrc, nextDst := transferArrayItem(cloneTodos(src), cloneTodos(s.Column(ev.To)), ev.FromIndex, ev.ToIndex)
	s = s.withColumn(ev.From, nextSrc)
	s = s.withColumn(ev.To, nextDst)
	return s, nil
}

// moveItemInArray moves items[from] to position to, shifting the items in
// between by one. to is clamped to the slice bounds.
func moveItemInArray(items []domain.Todo, from, to int) []domain.Todo {
	to = clampIndex(to, len(items)-1)
	if from == to {
		return items
	}
	moved := items[from]
	if to < from {
		copy(items[to+1:from+1], items[to:from])
	} else {
		copy(items[from:to], items[from+1:to+1])
	}
	items[to] = moved
	return items
}

// transferArrayItem removes src[from] and inserts it into dst at to; to is
// clamped to [0, len(dst)].
func transferArrayItem(src, dst []domain.Todo, from, to int) ([]domain.Todo, []domain.Todo) {
	moved := src[from]
	src = append(src[:from], src[from+1:]...)
	to = clampIndex(to, len(dst))
	dst = append(dst, domain.Todo{})
	copy(dst[to+1:], dst[to:])
	dst[to] = moved
	return src, dst
}

func clampIndex(v, maxValue int) int {
	if v < 0 {
		return 0
	}
	if v > maxValue {
		return maxValue
	}
	return v
}
