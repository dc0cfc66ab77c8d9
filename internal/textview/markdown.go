// Package textview renders worklog records for the terminal.
package textview

import (
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/hylla/worklog/internal/adapters/storage/summarydoc"
	"github.com/hylla/worklog/internal/domain"
)

// minWrapWidth keeps narrow terminals readable.
const minWrapWidth = 24

// MarkdownRenderer renders markdown for terminal output and recreates the glamour renderer when the
// wrap width changes.
type MarkdownRenderer struct {
	style    string
	width    int
	renderer *glamour.TermRenderer
}

// NewMarkdownRenderer builds a renderer using one glamour standard style ("dark", "light", "notty").
// An empty style selects "dark".
func NewMarkdownRenderer(style string) *MarkdownRenderer {
	style = strings.TrimSpace(style)
	if style == "" {
		style = "dark"
	}
	return &MarkdownRenderer{style: style}
}

// Render converts markdown into ANSI-styled terminal text wrapped at width. Rendering failures fall
// back to the raw markdown.
func (r *MarkdownRenderer) Render(markdown string, width int) string {
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return ""
	}

	wrapWidth := max(width, minWrapWidth)
	if r.renderer == nil || r.width != wrapWidth {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(r.style),
			glamour.WithWordWrap(wrapWidth),
		)
		if err != nil {
			return markdown
		}
		r.renderer = renderer
		r.width = wrapWidth
	}

	rendered, err := r.renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimRight(rendered, "\n")
}

// RenderSummary renders one summary in the same layout as its markdown document.
func (r *MarkdownRenderer) RenderSummary(summary domain.Summary, loc *time.Location, width int) string {
	return r.Render(summarydoc.Render(summary, loc), width)
}
