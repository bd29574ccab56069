package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// minDetailWrap keeps the item detail pane readable on very narrow terminals.
const minDetailWrap = 24

// markdownRenderer renders the item detail pane and caches one glamour renderer per wrap width.
type markdownRenderer struct {
	width    int
	renderer *glamour.TermRenderer
}

// render returns md as styled terminal text; on renderer failure it returns md unchanged.
func (r *markdownRenderer) render(md string, width int) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	wrap := max(width, minDetailWrap)
	if r.renderer == nil || r.width != wrap {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(wrap),
		)
		if err != nil {
			return md
		}
		r.renderer, r.width = renderer, wrap
	}
	out, err := r.renderer.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}
