package tui

import "charm.land/bubbles/v2/key"

// keyMap represents key map data used by this package.
type keyMap struct {
	quit          key.Binding
	toggleHelp    key.Binding
	moveLeft      key.Binding
	moveRight     key.Binding
	moveUp        key.Binding
	moveDown      key.Binding
	search        key.Binding
	addTodo       key.Binding
	deleteTodo    key.Binding
	reorderUp     key.Binding
	reorderDown   key.Binding
	transferLeft  key.Binding
	transferRight key.Binding
	todoInfo      key.Binding
	copyTodo      key.Binding
}

// newKeyMap constructs key map.
func newKeyMap() keyMap {
	return keyMap{
		quit:          key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		toggleHelp:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		moveLeft:      key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "column left")),
		moveRight:     key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/→", "column right")),
		moveUp:        key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "item up")),
		moveDown:      key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "item down")),
		search:        key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		addTodo:       key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new item")),
		deleteTodo:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete by description")),
		reorderUp:     key.NewBinding(key.WithKeys("K", "shift+k"), key.WithHelp("K", "drag up")),
		reorderDown:   key.NewBinding(key.WithKeys("J", "shift+j"), key.WithHelp("J", "drag down")),
		transferLeft:  key.NewBinding(key.WithKeys("["), key.WithHelp("[", "drag to left column")),
		transferRight: key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "drag to right column")),
		todoInfo:      key.NewBinding(key.WithKeys("i", "enter"), key.WithHelp("i/enter", "item info")),
		copyTodo:      key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy description")),
	}
}

// ShortHelp handles short help.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.addTodo, k.deleteTodo, k.search, k.todoInfo, k.toggleHelp, k.quit,
	}
}

// FullHelp handles full help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.addTodo, k.deleteTodo, k.search, k.todoInfo, k.copyTodo, k.toggleHelp, k.quit},
		{k.moveLeft, k.moveRight, k.moveUp, k.moveDown},
		{k.reorderUp, k.reorderDown, k.transferLeft, k.transferRight},
	}
}
