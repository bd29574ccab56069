package domain

import (
	"errors"
	"testing"
	"time"
)

func TestNewTodoDefaultsAndNormalization(t *testing.T) {
	due := time.Date(2026, 3, 1, 9, 30, 15, 999, time.FixedZone("CET", 3600))
	todo, err := NewTodo(TodoInput{What: "  buy milk ", FinishBy: due})
	if err != nil {
		t.Fatalf("NewTodo() error = %v", err)
	}
	if todo.What != "buy milk" {
		t.Fatalf("unexpected what %q", todo.What)
	}
	if todo.Status != StatusPending {
		t.Fatalf("expected pending default, got %q", todo.Status)
	}
	if todo.FinishBy.Location() != time.UTC || todo.FinishBy.Nanosecond() != 0 {
		t.Fatalf("expected UTC second precision, got %v", todo.FinishBy)
	}
}

func TestNewTodoValidation(t *testing.T) {
	if _, err := NewTodo(TodoInput{What: "   "}); !errors.Is(err, ErrInvalidWhat) {
		t.Fatalf("expected ErrInvalidWhat, got %v", err)
	}
	if _, err := NewTodo(TodoInput{What: "x", Status: "later"}); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestParseStatusAliases(t *testing.T) {
	cases := map[string]Status{
		"pending":     StatusPending,
		"todo":        StatusPending,
		"inProgress":  StatusInProgress,
		"in-progress": StatusInProgress,
		" progress ":  StatusInProgress,
		"DONE":        StatusDone,
	}
	for raw, want := range cases {
		got, err := ParseStatus(raw)
		if err != nil {
			t.Fatalf("ParseStatus(%q) error = %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseStatus(%q) = %q, want %q", raw, got, want)
		}
	}
	if _, err := ParseStatus("blocked"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestTodoOverdueIsStrict(t *testing.T) {
	due := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	todo := Todo{What: "x", Status: StatusPending, FinishBy: due}
	if todo.Overdue(due) {
		t.Fatal("expected not overdue at the exact due instant")
	}
	if !todo.Overdue(due.Add(time.Second)) {
		t.Fatal("expected overdue one second after due")
	}
}

func TestNewUser(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	u, err := NewUser(" u1 ", "", "a@example.com", "", now)
	if err != nil {
		t.Fatalf("NewUser() error = %v", err)
	}
	if u.Name != "u1" || u.Provider != "local" {
		t.Fatalf("unexpected defaults %#v", u)
	}
	if got := u.DisplayName(); got != "u1 <a@example.com>" {
		t.Fatalf("unexpected display name %q", got)
	}
	if _, err := NewUser("", "n", "", "", now); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}
