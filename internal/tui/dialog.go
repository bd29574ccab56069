package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"

	"github.com/evanschultz/todoboard/internal/board"
	"github.com/evanschultz/todoboard/internal/domain"
)

// errDialogOpen reports an attempt to open a second modal.
var errDialogOpen = errors.New("a dialog is already open")

// modalDialog renders the add-item modal inside the model and implements board.Dialog.
type modalDialog struct {
	pending *modalRequest
}

// modalRequest is one opened modal; it fires its close event once.
type modalRequest struct {
	layout board.DialogLayout
	closed chan *domain.Todo
}

// Closed implements board.DialogHandle.
func (r *modalRequest) Closed() <-chan *domain.Todo {
	return r.closed
}

// OpenModal implements board.Dialog.
func (d *modalDialog) OpenModal(ctx context.Context, layout board.DialogLayout) (board.DialogHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.pending != nil {
		return nil, errDialogOpen
	}
	d.pending = &modalRequest{
		layout: layout,
		closed: make(chan *domain.Todo, 1),
	}
	return d.pending, nil
}

// current returns the open modal, if any.
func (d *modalDialog) current() (*modalRequest, bool) {
	return d.pending, d.pending != nil
}

// close fires the open modal's close event with result; nil means dismissed.
func (d *modalDialog) close(result *domain.Todo) {
	if d.pending == nil {
		return
	}
	d.pending.closed <- result
	close(d.pending.closed)
	d.pending = nil
}

// terminalViewport tracks the last known terminal width in cells.
type terminalViewport struct {
	cols      int
	cellWidth int
}

// atMost reports whether the terminal, scaled by cellWidth, is no wider than
// width. Before the first size message the width is unknown and the answer is
// false, so the dialog opens at desktop size.
func (v *terminalViewport) atMost(width int) bool {
	if v.cols <= 0 {
		return false
	}
	return v.cols*v.cellWidth <= width
}

// add-form field indexes.
const (
	addFieldWhat = iota
	addFieldStatus
	addFieldDue
	addFieldCount
)

// addForm is the modal form bound to one open modal.
type addForm struct {
	layout board.DialogLayout
	what   textinput.Model
	due    textinput.Model
	status domain.Status
	focus  int
	err    string
}

// newAddForm prefills the form from the layout's draft.
func newAddForm(layout board.DialogLayout) addForm {
	status := layout.Data.Status
	if !status.Valid() {
		status = domain.StatusPending
	}
	return addForm{
		layout: layout,
		what:   newModalInput("what: ", "describe the item", layout.Data.What, 200),
		due:    newModalInput("due: ", "YYYY-MM-DD HH:MM", formatDue(layout.Data.FinishBy), 32),
		status: status,
	}
}

// focusField moves focus to idx and returns the cursor blink command.
func (f *addForm) focusField(idx int) tea.Cmd {
	f.focus = wrapIndex(f.focus, idx-f.focus, addFieldCount)
	f.what.Blur()
	f.due.Blur()
	switch f.focus {
	case addFieldWhat:
		return f.what.Focus()
	case addFieldDue:
		return f.due.Focus()
	}
	return nil
}

// cycleStatus steps the status selector by delta.
func (f *addForm) cycleStatus(delta int) {
	idx := 0
	for i, status := range domain.Statuses {
		if status == f.status {
			idx = i
		}
	}
	f.status = domain.Statuses[wrapIndex(idx, delta, len(domain.Statuses))]
}

// update routes one key press to the focused field.
func (f addForm) update(msg tea.KeyPressMsg) (addForm, tea.Cmd) {
	switch msg.String() {
	case "tab", "down":
		return f, f.focusField(f.focus + 1)
	case "shift+tab", "up":
		return f, f.focusField(f.focus - 1)
	}
	var cmd tea.Cmd
	switch f.focus {
	case addFieldWhat:
		f.what, cmd = f.what.Update(msg)
	case addFieldDue:
		f.due, cmd = f.due.Update(msg)
	case addFieldStatus:
		switch msg.String() {
		case "h", "left":
			f.cycleStatus(-1)
		case "l", "right", "space", " ":
			f.cycleStatus(1)
		}
	}
	return f, cmd
}

// result validates the form and builds the item to submit.
func (f addForm) result() (domain.Todo, error) {
	what := strings.TrimSpace(f.what.Value())
	if what == "" {
		return domain.Todo{}, errors.New("description is required")
	}
	due, err := parseDue(f.due.Value(), f.layout.Data.FinishBy)
	if err != nil {
		return domain.Todo{}, err
	}
	return domain.Todo{
		What:     what,
		Status:   f.status,
		FinishBy: due,
	}, nil
}

// boxSize converts layout bounds into terminal cells.
func (f addForm) boxSize(cellWidth, termWidth, termHeight int) (int, int) {
	if cellWidth <= 0 {
		cellWidth = 8
	}
	w := clamp(f.layout.Size.MaxWidth/cellWidth, 28, max(28, termWidth-4))
	// terminal cells are roughly twice as tall as they are wide
	h := clamp(f.layout.Size.MaxHeight/(2*cellWidth), 8, max(8, termHeight-2))
	return w, h
}

// view renders the form body.
func (f addForm) view() string {
	statusLine := "status: "
	for _, status := range domain.Statuses {
		label := status.Label()
		if status == f.status {
			label = "[" + label + "]"
		}
		statusLine += label + " "
	}
	if f.focus == addFieldStatus {
		statusLine = "› " + statusLine
	} else {
		statusLine = "  " + statusLine
	}
	lines := []string{
		focusMark(f.focus == addFieldWhat) + f.what.View(),
		strings.TrimRight(statusLine, " "),
		focusMark(f.focus == addFieldDue) + f.due.View(),
	}
	if f.err != "" {
		lines = append(lines, "", "! "+f.err)
	}
	lines = append(lines, "", "tab next field • enter add • esc cancel")
	return strings.Join(lines, "\n")
}

func focusMark(focused bool) string {
	if focused {
		return "› "
	}
	return "  "
}

// parseDue parses input into a normalized form; blank keeps fallback.
func parseDue(raw string, fallback time.Time) (time.Time, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return fallback, nil
	}
	layouts := []string{
		"2006-01-02 15:04",
		"2006-01-02T15:04",
		"2006-01-02",
		time.RFC3339,
	}
	for _, layout := range layouts {
		parsed, err := time.Parse(layout, text)
		if err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("due date must be YYYY-MM-DD, YYYY-MM-DD HH:MM, or RFC3339")
}

// formatDue formats due datetime values for compact UI display and editing.
func formatDue(due time.Time) string {
	if due.IsZero() {
		return ""
	}
	due = due.UTC()
	if due.Hour() == 0 && due.Minute() == 0 {
		return due.Format("2006-01-02")
	}
	return due.Format("2006-01-02 15:04")
}

// newModalInput constructs modal input.
func newModalInput(prompt, placeholder, value string, limit int) textinput.Model {
	in := textinput.New()
	in.Prompt = prompt
	in.Placeholder = placeholder
	in.CharLimit = limit
	if value != "" {
		in.SetValue(value)
	}
	return in
}
