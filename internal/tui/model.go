package tui

import (
	"context"
	"fmt"
	"image/color"
	"io"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/atotto/clipboard"
	charmLog "github.com/charmbracelet/log"
	"github.com/mattn/go-runewidth"

	"github.com/evanschultz/todoboard/internal/board"
	"github.com/evanschultz/todoboard/internal/domain"
)

// Service is the data collaborator the model hosts the board over.
type Service interface {
	board.DataSink
	board.TodoSource
	board.SearchSource
	PublishSearch(context.Context, string) error
}

// inputMode describes the active interaction surface.
type inputMode int

// inputMode values.
const (
	modeNone inputMode = iota
	modeSearch
	modeAddTodo
	modeTodoInfo
)

// todosMsg carries one snapshot and the stream it came from.
type todosMsg struct {
	items []domain.Todo
	ch    <-chan []domain.Todo
}

// searchMsg carries one search term and the stream it came from.
type searchMsg struct {
	term string
	ch   <-chan string
}

// authMsg carries one identity event and the stream it came from.
type authMsg struct {
	user *domain.User
	ch   <-chan *domain.User
}

// streamClosedMsg reports a subscription that ended.
type streamClosedMsg struct {
	stream string
}

// subscribeFailedMsg reports a subscription that could not start.
type subscribeFailedMsg struct {
	stream string
	err    error
}

// actionMsg reports the outcome of a background action.
type actionMsg struct {
	status string
	err    error
}

// Model hosts a board in the terminal.
type Model struct {
	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc

	svc      Service
	auth     board.AuthSource
	board    *board.Board
	dialog   *modalDialog
	viewport *terminalViewport
	boardCfg BoardConfig
	logger   *charmLog.Logger
	clock    func() time.Time
	copyText func(string) error
	markdown *markdownRenderer

	ready  bool
	width  int
	height int
	err    error
	status string

	help help.Model
	keys keyMap

	mode           inputMode
	selectedColumn int
	selectedTodo   int
	searchInput    textinput.Model
	searchTerm     string
	form           addForm
}

// NewModel constructs a model over svc.
func NewModel(svc Service, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	m := Model{
		parent:      context.Background(),
		svc:         svc,
		boardCfg:    DefaultBoardConfig(),
		logger:      charmLog.New(io.Discard),
		clock:       time.Now,
		copyText:    clipboard.WriteAll,
		markdown:    &markdownRenderer{},
		status:      "loading",
		help:        h,
		keys:        newKeyMap(),
		searchInput: newModalInput("search: ", "filter by description", "", 120),
		dialog:      &modalDialog{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	m.viewport = &terminalViewport{cellWidth: m.boardCfg.CellWidthPx}
	m.ctx, m.cancel = context.WithCancel(m.parent)
	m.board = board.New(svc, m.dialog, board.ViewportFunc(m.viewport.atMost),
		board.WithClock(m.clock),
		board.WithLogger(m.logger),
		board.WithBreakpoint(m.boardCfg.MobileBreakpoint),
		board.WithDefaultDue(m.boardCfg.DefaultDue),
		board.WithDefaultStatus(m.boardCfg.DefaultStatus),
	)
	return m
}

// Init subscribes to every event stream.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.subscribeTodos, m.subscribeSearch}
	if m.auth != nil {
		cmds = append(cmds, m.subscribeAuth)
	}
	return tea.Batch(cmds...)
}

// subscribeTodos opens the snapshot stream and waits for the first snapshot.
func (m Model) subscribeTodos() tea.Msg {
	ch, err := m.svc.SubscribeTodos(m.ctx)
	if err != nil {
		return subscribeFailedMsg{stream: "todos", err: err}
	}
	return waitTodos(ch)()
}

// subscribeSearch opens the search stream.
func (m Model) subscribeSearch() tea.Msg {
	ch, err := m.svc.SubscribeSearch(m.ctx)
	if err != nil {
		return subscribeFailedMsg{stream: "search", err: err}
	}
	return waitSearch(ch)()
}

// subscribeAuth opens the auth stream.
func (m Model) subscribeAuth() tea.Msg {
	ch, err := m.auth.SubscribeAuth(m.ctx)
	if err != nil {
		return subscribeFailedMsg{stream: "auth", err: err}
	}
	return waitAuth(ch)()
}

func waitTodos(ch <-chan []domain.Todo) tea.Cmd {
	return func() tea.Msg {
		items, ok := <-ch
		if !ok {
			return streamClosedMsg{stream: "todos"}
		}
		return todosMsg{items: items, ch: ch}
	}
}

func waitSearch(ch <-chan string) tea.Cmd {
	return func() tea.Msg {
		term, ok := <-ch
		if !ok {
			return streamClosedMsg{stream: "search"}
		}
		return searchMsg{term: term, ch: ch}
	}
}

func waitAuth(ch <-chan *domain.User) tea.Cmd {
	return func() tea.Msg {
		user, ok := <-ch
		if !ok {
			return streamClosedMsg{stream: "auth"}
		}
		return authMsg{user: user, ch: ch}
	}
}

// Update handles update.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.cols = msg.Width
		m.help.SetWidth(max(0, msg.Width-2))
		return m, nil

	case todosMsg:
		// A snapshot re-classifies from scratch, which drops any narrowing.
		m.board.OnSnapshot(msg.items)
		m.searchTerm = ""
		m.ready = true
		if m.status == "loading" {
			m.status = "ready"
		}
		m.clampSelection()
		return m, waitTodos(msg.ch)

	case searchMsg:
		m.board.OnSearch(msg.term)
		m.searchTerm = msg.term
		m.clampSelection()
		return m, waitSearch(msg.ch)

	case authMsg:
		m.board.OnAuth(msg.user)
		return m, waitAuth(msg.ch)

	case streamClosedMsg:
		m.logger.Debug("stream closed", "stream", msg.stream)
		return m, nil

	case subscribeFailedMsg:
		m.logger.Error("subscribe failed", "stream", msg.stream, "err", msg.err)
		if msg.stream == "todos" {
			m.err = msg.err
			return m, nil
		}
		m.status = msg.stream + " unavailable"
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.logger.Error("action failed", "err", msg.err)
			m.status = "error: " + msg.err.Error()
			return m, nil
		}
		if msg.status != "" {
			m.status = msg.status
		}
		return m, nil

	case tea.KeyPressMsg:
		if m.err != nil {
			if key.Matches(msg, m.keys.quit) {
				return m.quit()
			}
			return m, nil
		}
		if m.mode != modeNone {
			return m.handleInputModeKey(msg)
		}
		return m.handleNormalModeKey(msg)
	}
	return m, nil
}

// quit releases every subscription and stops the program.
func (m Model) quit() (tea.Model, tea.Cmd) {
	m.dialog.close(nil)
	m.cancel()
	return m, tea.Quit
}

// handleNormalModeKey handles normal mode key.
func (m Model) handleNormalModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "esc" {
		if m.help.ShowAll {
			m.help.ShowAll = false
			return m, nil
		}
		if m.searchTerm != "" {
			return m, m.publishSearch("")
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m.quit()
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.moveLeft):
		m.selectedColumn = clamp(m.selectedColumn-1, 0, len(board.Columns)-1)
		m.clampSelection()
		return m, nil
	case key.Matches(msg, m.keys.moveRight):
		m.selectedColumn = clamp(m.selectedColumn+1, 0, len(board.Columns)-1)
		m.clampSelection()
		return m, nil
	case key.Matches(msg, m.keys.moveUp):
		m.selectedTodo--
		m.clampSelection()
		return m, nil
	case key.Matches(msg, m.keys.moveDown):
		m.selectedTodo++
		m.clampSelection()
		return m, nil
	case key.Matches(msg, m.keys.search):
		m.mode = modeSearch
		m.searchInput.SetValue("")
		return m, m.searchInput.Focus()
	case key.Matches(msg, m.keys.addTodo):
		if err := m.board.OpenAddDialog(m.ctx); err != nil {
			m.status = "error: " + err.Error()
			return m, nil
		}
		req, ok := m.dialog.current()
		if !ok {
			return m, nil
		}
		m.form = newAddForm(req.layout)
		m.mode = modeAddTodo
		return m, m.form.focusField(addFieldWhat)
	case key.Matches(msg, m.keys.deleteTodo):
		todo, ok := m.selectedTodoItem()
		if !ok {
			m.status = "no item selected"
			return m, nil
		}
		if err := m.board.DeleteTodo(m.ctx, todo); err != nil {
			m.logger.Error("delete failed", "what", todo.What, "err", err)
			m.status = "error: " + err.Error()
			return m, nil
		}
		m.status = fmt.Sprintf("deleted %q", todo.What)
		return m, nil
	case key.Matches(msg, m.keys.reorderUp):
		return m.dragSelected(m.selectedColumn, m.selectedTodo-1)
	case key.Matches(msg, m.keys.reorderDown):
		return m.dragSelected(m.selectedColumn, m.selectedTodo+1)
	case key.Matches(msg, m.keys.transferLeft):
		return m.dragSelected(m.selectedColumn-1, -1)
	case key.Matches(msg, m.keys.transferRight):
		return m.dragSelected(m.selectedColumn+1, -1)
	case key.Matches(msg, m.keys.todoInfo):
		if _, ok := m.selectedTodoItem(); !ok {
			return m, nil
		}
		m.mode = modeTodoInfo
		return m, nil
	case key.Matches(msg, m.keys.copyTodo):
		todo, ok := m.selectedTodoItem()
		if !ok {
			return m, nil
		}
		copyText := m.copyText
		return m, func() tea.Msg {
			if err := copyText(todo.What); err != nil {
				return actionMsg{err: fmt.Errorf("copy description: %w", err)}
			}
			return actionMsg{status: "copied description"}
		}
	}
	return m, nil
}

// dragSelected drops the selected item at toIndex in column toColumn; a
// negative index appends to the end of the destination.
func (m Model) dragSelected(toColumn, toIndex int) (tea.Model, tea.Cmd) {
	if _, ok := m.selectedTodoItem(); !ok {
		return m, nil
	}
	if toColumn < 0 || toColumn >= len(board.Columns) {
		return m, nil
	}
	from := board.Columns[m.selectedColumn]
	to := board.Columns[toColumn]
	if toIndex < 0 {
		toIndex = len(m.board.State().Column(to))
	}
	ev := board.DragEvent{From: from, To: to, FromIndex: m.selectedTodo, ToIndex: toIndex}
	if err := m.board.Drop(ev); err != nil {
		m.status = "error: " + err.Error()
		return m, nil
	}
	m.selectedColumn = toColumn
	m.selectedTodo = toIndex
	m.clampSelection()
	return m, nil
}

// handleInputModeKey routes keys to the active input surface.
func (m Model) handleInputModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeSearch:
		switch msg.String() {
		case "esc":
			m.mode = modeNone
			m.searchInput.Blur()
			return m, nil
		case "enter":
			term := strings.TrimSpace(m.searchInput.Value())
			m.mode = modeNone
			m.searchInput.Blur()
			return m, m.publishSearch(term)
		}
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		return m, cmd

	case modeAddTodo:
		switch msg.String() {
		case "esc":
			m.dialog.close(nil)
			m.mode = modeNone
			m.status = "add canceled"
			return m, nil
		case "enter":
			todo, err := m.form.result()
			if err != nil {
				m.form.err = err.Error()
				return m, nil
			}
			m.dialog.close(&todo)
			m.mode = modeNone
			m.status = fmt.Sprintf("added %q", todo.What)
			return m, nil
		}
		var cmd tea.Cmd
		m.form, cmd = m.form.update(msg)
		return m, cmd

	case modeTodoInfo:
		switch {
		case msg.String() == "esc", key.Matches(msg, m.keys.todoInfo), key.Matches(msg, m.keys.quit):
			m.mode = modeNone
		}
		return m, nil
	}
	return m, nil
}

// publishSearch sends term to the search collaborator.
func (m Model) publishSearch(term string) tea.Cmd {
	ctx, svc := m.ctx, m.svc
	return func() tea.Msg {
		if err := svc.PublishSearch(ctx, term); err != nil {
			return actionMsg{err: fmt.Errorf("publish search: %w", err)}
		}
		if term == "" {
			return actionMsg{status: "search cleared"}
		}
		return actionMsg{status: fmt.Sprintf("search %q", term)}
	}
}

// selectedTodoItem returns the item under the cursor.
func (m Model) selectedTodoItem() (domain.Todo, bool) {
	items := m.board.State().Column(board.Columns[m.selectedColumn])
	if m.selectedTodo < 0 || m.selectedTodo >= len(items) {
		return domain.Todo{}, false
	}
	return items[m.selectedTodo], true
}

// clampSelection keeps the cursor inside the visible items.
func (m *Model) clampSelection() {
	m.selectedColumn = clamp(m.selectedColumn, 0, len(board.Columns)-1)
	items := m.board.State().Column(board.Columns[m.selectedColumn])
	if len(items) == 0 {
		m.selectedTodo = 0
		return
	}
	m.selectedTodo = clamp(m.selectedTodo, 0, len(items)-1)
}

// View handles view.
func (m Model) View() tea.View {
	return newAltView(m.render())
}

// render renders the full screen as text.
func (m Model) render() string {
	if m.err != nil {
		return "error: " + m.err.Error() + "\n\npress q to quit\n"
	}
	if !m.ready {
		return "loading..."
	}

	accent := lipgloss.Color("62")
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")

	header := m.renderHeader(accent, muted)
	columns := m.renderColumns(accent, muted, dim)

	helpLine := lipgloss.NewStyle().
		Foreground(muted).
		BorderTop(true).
		BorderForeground(dim).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(m.help.View(m.keys))
	statusLine := lipgloss.NewStyle().Foreground(dim).Render(m.status)

	content := strings.Join([]string{header, "", columns, statusLine}, "\n")
	if m.height > 0 {
		content = fitLines(content, max(0, m.height-lipgloss.Height(helpLine)))
	}
	full := content + "\n" + helpLine
	if overlay := m.renderModeOverlay(accent, muted); overlay != "" {
		full = overlayOnContent(full, overlay, max(1, m.width), max(1, lipgloss.Height(full)))
	}
	return full
}

func newAltView(content string) tea.View {
	v := tea.NewView(content)
	v.MouseMode = tea.MouseModeCellMotion
	v.AltScreen = true
	return v
}

// renderHeader renders title, identity, and the active search.
func (m Model) renderHeader(accent, muted color.Color) string {
	state := m.board.State()
	title := lipgloss.NewStyle().Bold(true).Foreground(accent).Render("todoboard")
	who := "signed out"
	if state.LoggedIn && state.User != nil {
		who = state.User.DisplayName()
	}
	parts := []string{title, lipgloss.NewStyle().Foreground(muted).Render(who)}
	if m.searchTerm != "" {
		parts = append(parts, lipgloss.NewStyle().Foreground(muted).Render("search: "+m.searchTerm))
	}
	return strings.Join(parts, "  ")
}

// renderColumns renders the three status columns side by side.
func (m Model) renderColumns(accent, muted, dim color.Color) string {
	state := m.board.State()
	colWidth := columnWidthFor(m.width)
	rendered := make([]string, 0, len(board.Columns))
	for idx, column := range board.Columns {
		items := state.Column(column)
		selected := idx == m.selectedColumn
		borderColor := dim
		if selected {
			borderColor = accent
		}
		lines := []string{
			lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%s (%d)", column.Status().Label(), len(items))),
		}
		if len(items) == 0 {
			lines = append(lines, lipgloss.NewStyle().Foreground(muted).Render("(empty)"))
		}
		for i, todo := range items {
			lines = append(lines, m.renderTodoLine(todo, colWidth-4, selected && i == m.selectedTodo, muted))
		}
		style := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor).
			Padding(0, 1).
			Width(colWidth)
		rendered = append(rendered, style.Render(strings.Join(lines, "\n")))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

// renderTodoLine renders one item row.
func (m Model) renderTodoLine(todo domain.Todo, width int, selected bool, muted color.Color) string {
	prefix := "  "
	if selected {
		prefix = "› "
	}
	marker := ""
	if m.boardCfg.ShowOverdue && !todo.FinishBy.IsZero() && m.board.IsOverdue(todo.FinishBy) {
		marker = "! "
	}
	line := prefix + marker + truncate(todo.What, max(1, width-runewidth.StringWidth(prefix+marker)))
	if selected {
		line = lipgloss.NewStyle().Bold(true).Render(line)
	}
	if due := formatDue(todo.FinishBy); due != "" {
		line += "\n" + lipgloss.NewStyle().Foreground(muted).Render("    due "+due)
	}
	return line
}

// renderModeOverlay renders the active modal, if any.
func (m Model) renderModeOverlay(accent, muted color.Color) string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 1)
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	switch m.mode {
	case modeSearch:
		body := titleStyle.Render("Search") + "\n\n" + m.searchInput.View() + "\n\n" +
			lipgloss.NewStyle().Foreground(muted).Render("enter apply • esc cancel")
		return boxStyle.Width(clamp(m.width-8, 30, 64)).Render(body)
	case modeAddTodo:
		w, h := m.form.boxSize(m.boardCfg.CellWidthPx, m.width, m.height)
		title := "New item"
		if m.form.layout.Mobile {
			title += " (compact)"
		}
		body := titleStyle.Render(title) + "\n\n" + m.form.view()
		return boxStyle.Width(w).Render(fitLines(body, h))
	case modeTodoInfo:
		todo, ok := m.selectedTodoItem()
		if !ok {
			return ""
		}
		w := clamp(m.width-8, 30, 80)
		return boxStyle.Width(w).Render(m.markdown.render(m.todoMarkdown(todo), w-4))
	}
	return ""
}

// todoMarkdown renders one item's details as markdown.
func (m Model) todoMarkdown(todo domain.Todo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", todo.What)
	fmt.Fprintf(&b, "- **Status:** %s\n", todo.Status.Label())
	if due := formatDue(todo.FinishBy); due != "" {
		fmt.Fprintf(&b, "- **Due:** %s\n", due)
		if m.board.IsOverdue(todo.FinishBy) {
			b.WriteString("- **Overdue:** yes\n")
		}
	}
	if todo.ID != "" {
		fmt.Fprintf(&b, "- **ID:** `%s`\n", todo.ID)
	}
	return b.String()
}

// Close releases subscriptions and dismisses any open modal. Safe to call twice.
func (m Model) Close() {
	m.dialog.close(nil)
	m.cancel()
	m.board.Wait()
}

// columnWidthFor splits the terminal across the three columns.
func columnWidthFor(width int) int {
	if width <= 0 {
		return 28
	}
	return clamp((width-6)/len(board.Columns), 16, 48)
}

// wrapIndex wraps index.
func wrapIndex(current int, delta int, total int) int {
	if total <= 0 {
		return 0
	}
	next := current + delta
	for next < 0 {
		next += total
	}
	for next >= total {
		next -= total
	}
	return next
}

// clamp clamps the requested operation.
func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

// fitLines pads or cuts content to exactly maxLines lines.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		padding := make([]string, maxLines-len(lines))
		lines = append(lines, padding...)
	}
	return strings.Join(lines, "\n")
}

// overlayOnContent overlays on content.
func overlayOnContent(base, overlay string, width, height int) string {
	if width <= 0 || height <= 0 {
		if strings.TrimSpace(overlay) == "" {
			return base
		}
		return overlay + "\n\n" + base
	}

	base = fitLines(base, height)
	canvas := lipgloss.NewCanvas(width, height)
	baseLayer := lipgloss.NewLayer(base).X(0).Y(0).Z(0)
	centeredOverlay := lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		overlay,
	)
	overlayLayer := lipgloss.NewLayer(centeredOverlay).X(0).Y(0).Z(10)

	canvas.Compose(baseLayer)
	canvas.Compose(overlayLayer)
	return canvas.Render()
}

// truncate cuts s to max display cells.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= max {
		return s
	}
	return runewidth.Truncate(s, max, "…")
}

var _ board.Dialog = (*modalDialog)(nil)
