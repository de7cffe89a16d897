package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/x/term"
)

// DefaultTermWidth is used when stdout is not a terminal or its size is unknown.
const DefaultTermWidth = 120

// Terminal describes where rendered documents are printed.
type Terminal struct {
	Width int

	// Styled is false for pipes, files and NO_COLOR, which get plain markdown.
	Styled bool
}

// DetectTerminal inspects f, normally os.Stdout.
func DetectTerminal(f *os.File) Terminal {
	t := Terminal{Width: DefaultTermWidth}
	if f == nil || !term.IsTerminal(f.Fd()) {
		return t
	}
	if w, _, err := term.GetSize(f.Fd()); err == nil && w > 0 {
		t.Width = w
	}
	t.Styled = os.Getenv("NO_COLOR") == ""
	return t
}

// Render returns md ready to print, ending in a single newline. Styled
// terminals get glamour output wrapped to fit inside the left margin; if
// styling fails the markdown is returned as is.
func (t Terminal) Render(md string) string {
	plain := strings.TrimRight(md, "\n") + "\n"
	if !t.Styled {
		return plain
	}
	out, err := RenderMarkdown(md, t.Width-MarkdownRenderMargin)
	if err != nil {
		return plain
	}
	return out
}
