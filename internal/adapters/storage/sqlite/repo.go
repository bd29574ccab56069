// Package sqlite persists the ordered todo list and its change ledger in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/evanschultz/todoboard/internal/domain"
	_ "modernc.org/sqlite"
)

// fallbackActor is written to the ledger when a caller passes a blank actor.
const fallbackActor = "todoboard-user"

// defaultEventLimit applies when ListChangeEvents is asked for zero or fewer rows.
const defaultEventLimit = 50

// schema is applied on every open; each statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS todos (
		position INTEGER PRIMARY KEY,
		id TEXT NOT NULL DEFAULT '',
		what TEXT NOT NULL,
		status TEXT NOT NULL,
		finish_by TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS change_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		todo_id TEXT NOT NULL DEFAULT '',
		operation TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		metadata_json TEXT NOT NULL DEFAULT '{}',
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_todos_id ON todos(id)`,
}

// Repository stores the ordered todo list and its change ledger.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens the database file at path, creating missing parent directories.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("open sqlite: empty database path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("open sqlite: create %s: %w", filepath.Dir(path), err)
	}
	return openDSN(path, 0)
}

// OpenInMemory opens a private in-memory database. The pool is pinned to one
// connection because every :memory: connection is its own database.
func OpenInMemory() (*Repository, error) {
	return openDSN(":memory:", 1)
}

func openDSN(dsn string, maxConns int) (*Repository, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply sqlite schema: %w", err)
		}
	}
	return &Repository{db: db, now: time.Now}, nil
}

// Close releases the database handle.
func (r *Repository) Close() error {
	return r.db.Close()
}

// ListTodos returns every stored todo in position order.
func (r *Repository) ListTodos(ctx context.Context) ([]domain.Todo, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, what, status, finish_by FROM todos ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	defer rows.Close()

	todos := []domain.Todo{}
	for rows.Next() {
		var (
			todo     domain.Todo
			status   string
			finishBy sql.NullString
		)
		if err := rows.Scan(&todo.ID, &todo.What, &status, &finishBy); err != nil {
			return nil, fmt.Errorf("scan todo: %w", err)
		}
		todo.Status = domain.Status(status)
		if finishBy.Valid {
			todo.FinishBy = parseTimestamp(finishBy.String)
		}
		todos = append(todos, todo)
	}
	return todos, rows.Err()
}

// ReplaceTodos swaps the whole list for items, positions following slice order.
func (r *Repository) ReplaceTodos(ctx context.Context, items []domain.Todo, actorID string) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		var previous int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM todos`).Scan(&previous); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM todos`); err != nil {
			return err
		}
		for position, item := range items {
			if err := putTodo(ctx, tx, position, item); err != nil {
				return err
			}
		}
		return r.record(ctx, tx, domain.ChangeEvent{
			Operation: domain.ChangeOperationReplace,
			ActorID:   actorID,
			Metadata: map[string]string{
				"count":          strconv.Itoa(len(items)),
				"previous_count": strconv.Itoa(previous),
			},
		})
	})
}

// AppendTodo stores item after every existing todo. item.ID must be set.
func (r *Repository) AppendTodo(ctx context.Context, item domain.Todo, actorID string) error {
	if strings.TrimSpace(item.ID) == "" {
		return domain.ErrInvalidID
	}
	return r.inTx(ctx, func(tx *sql.Tx) error {
		var position int
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(position) + 1, 0) FROM todos`).Scan(&position); err != nil {
			return err
		}
		if err := putTodo(ctx, tx, position, item); err != nil {
			return err
		}
		return r.record(ctx, tx, domain.ChangeEvent{
			TodoID:    item.ID,
			Operation: domain.ChangeOperationCreate,
			ActorID:   actorID,
			Metadata: map[string]string{
				"what":     item.What,
				"status":   string(item.Status),
				"position": strconv.Itoa(position),
			},
		})
	})
}

// ListChangeEvents returns up to limit ledger rows, newest first.
func (r *Repository) ListChangeEvents(ctx context.Context, limit int) ([]domain.ChangeEvent, error) {
	if limit <= 0 {
		limit = defaultEventLimit
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, todo_id, operation, actor_id, metadata_json, created_at
		FROM change_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list change events: %w", err)
	}
	defer rows.Close()

	events := []domain.ChangeEvent{}
	for rows.Next() {
		var (
			event     domain.ChangeEvent
			operation string
			metadata  string
			createdAt string
		)
		if err := rows.Scan(&event.ID, &event.TodoID, &operation, &event.ActorID, &metadata, &createdAt); err != nil {
			return nil, fmt.Errorf("scan change event: %w", err)
		}
		event.Operation = domain.ChangeOperation(operation)
		event.OccurredAt = parseTimestamp(createdAt)
		event.Metadata = map[string]string{}
		if strings.TrimSpace(metadata) != "" {
			if err := json.Unmarshal([]byte(metadata), &event.Metadata); err != nil {
				return nil, fmt.Errorf("change event %d metadata: %w", event.ID, err)
			}
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// inTx runs fn in a transaction, committing only when fn succeeds.
func (r *Repository) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sqlite tx: %w", err)
	}
	if err := fn(tx); err != nil {
		return errors.Join(err, rollback(tx))
	}
	return tx.Commit()
}

func rollback(tx *sql.Tx) error {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

func putTodo(ctx context.Context, tx *sql.Tx, position int, item domain.Todo) error {
	var finishBy any
	if !item.FinishBy.IsZero() {
		finishBy = formatTimestamp(item.FinishBy)
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO todos(position, id, what, status, finish_by) VALUES (?, ?, ?, ?, ?)`,
		position, strings.TrimSpace(item.ID), item.What, string(item.Status), finishBy)
	if err != nil {
		return fmt.Errorf("insert todo at %d: %w", position, err)
	}
	return nil
}

// record appends event to the ledger inside tx, stamping it with the repository clock.
func (r *Repository) record(ctx context.Context, tx *sql.Tx, event domain.ChangeEvent) error {
	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("encode %s metadata: %w", event.Operation, err)
	}
	actor := strings.TrimSpace(event.ActorID)
	if actor == "" {
		actor = fallbackActor
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO change_events(todo_id, operation, actor_id, metadata_json, created_at) VALUES (?, ?, ?, ?, ?)`,
		event.TodoID, string(event.Operation), actor, string(metadata), formatTimestamp(r.now()))
	if err != nil {
		return fmt.Errorf("record %s event: %w", event.Operation, err)
	}
	return nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTimestamp reads a stored timestamp; unreadable values become the zero time.
func parseTimestamp(raw string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}
	}
	return parsed.UTC()
}
