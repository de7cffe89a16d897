package render

import (
	"fmt"
	"strings"
)

// Markdown flattens f back into markdown for terminal display. Block embeds
// become blockquotes; inline content is substituted in place.
func Markdown(f Fragment) string {
	var b strings.Builder
	writeMarkdown(&b, f)
	return b.String()
}

func writeMarkdown(b *strings.Builder, f Fragment) {
	switch f.Kind {
	case KindText:
		b.WriteString(f.Text)
	case KindContent:
		for _, child := range f.Children {
			writeMarkdown(b, child)
		}
	case KindEmbed:
		var inner strings.Builder
		for _, child := range f.Children {
			writeMarkdown(&inner, child)
		}
		b.WriteString("\n\n")
		b.WriteString(quote(inner.String()))
		b.WriteString("\n\n")
	case KindLink:
		fmt.Fprintf(b, "**%s**", f.Text)
	case KindUnresolved:
		fmt.Fprintf(b, "~~%s~~", f.Text)
	case KindCyclic:
		fmt.Fprintf(b, "_[cyclic embed: %s]_", f.Text)
	case KindTooDeep:
		fmt.Fprintf(b, "_[embed depth limit reached: %s]_", f.Text)
	case KindResource:
		label := f.Text
		if f.Page > 0 {
			label = fmt.Sprintf("%s, page %d", label, f.Page)
		}
		fmt.Fprintf(b, "[%s](%s)", label, f.Path)
	}
}

func quote(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		if line == "" {
			lines[i] = ">"
		} else {
			lines[i] = "> " + line
		}
	}
	return strings.Join(lines, "\n")
}
