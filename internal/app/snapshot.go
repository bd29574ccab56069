package app

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/evanschultz/todoboard/internal/domain"
)

// SnapshotVersion identifies the export format.
const SnapshotVersion = "todoboard.snapshot.v1"

// Snapshot is a portable export of the whole board.
type Snapshot struct {
	Version    string         `json:"version"`
	ExportedAt time.Time      `json:"exported_at"`
	Todos      []SnapshotTodo `json:"todos"`
}

// SnapshotTodo represents one exported todo row.
type SnapshotTodo struct {
	ID       string        `json:"id"`
	Position int           `json:"position"`
	What     string        `json:"what"`
	Status   domain.Status `json:"status"`
	FinishBy time.Time     `json:"finish_by"`
}

// ExportSnapshot captures the stored list in board order.
func (s *Service) ExportSnapshot(ctx context.Context) (Snapshot, error) {
	items, err := s.repo.ListTodos(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: s.clock().UTC(),
		Todos:      make([]SnapshotTodo, 0, len(items)),
	}
	for i, item := range items {
		snap.Todos = append(snap.Todos, SnapshotTodo{
			ID:       item.ID,
			Position: i,
			What:     item.What,
			Status:   item.Status,
			FinishBy: item.FinishBy,
		})
	}
	return snap, nil
}

// Validate checks version and row shape before import.
func (snap Snapshot) Validate() error {
	if strings.TrimSpace(snap.Version) != SnapshotVersion {
		return fmt.Errorf("%w: %q", ErrUnsupportedSnapshotVersion, snap.Version)
	}
	seen := map[string]struct{}{}
	for i, row := range snap.Todos {
		if _, err := domain.ParseStatus(string(row.Status)); err != nil {
			return fmt.Errorf("%w: todos[%d]: %v", ErrInvalidSnapshot, i, err)
		}
		if strings.TrimSpace(row.What) == "" {
			return fmt.Errorf("%w: todos[%d]: empty description", ErrInvalidSnapshot, i)
		}
		id := strings.TrimSpace(row.ID)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("%w: duplicate id %q", ErrInvalidSnapshot, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// ImportSnapshot replaces the stored list with the snapshot rows, ordered by position.
func (s *Service) ImportSnapshot(ctx context.Context, snap Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	rows := append([]SnapshotTodo(nil), snap.Todos...)
	sortSnapshotTodos(rows)

	items := make([]domain.Todo, 0, len(rows))
	for _, row := range rows {
		status, _ := domain.ParseStatus(string(row.Status))
		todo, err := domain.NewTodo(domain.TodoInput{
			ID:       row.ID,
			What:     row.What,
			Status:   status,
			FinishBy: row.FinishBy,
		})
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
		}
		items = append(items, todo)
	}
	return s.SubmitFullList(ctx, items)
}

// sortSnapshotTodos orders rows by position, keeping file order for ties.
func sortSnapshotTodos(rows []SnapshotTodo) {
	slices.SortStableFunc(rows, func(a, b SnapshotTodo) int {
		return cmp.Compare(a.Position, b.Position)
	})
}
