package parser

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/aidanlsb/weft/internal/slugs"
)

// Heading represents a parsed heading.
type Heading struct {
	Level int
	Text  string
	Line  int // 1-indexed
	// Offset is the byte offset of the start of the heading's line.
	Offset int
}

// Slug returns the fragment ID of the heading.
func (h Heading) Slug() string {
	return slugs.HeadingSlug(h.Text)
}

var headingParser = goldmark.New().Parser()

// ExtractHeadings extracts headings from markdown content using goldmark.
func ExtractHeadings(content string, startLine int) []Heading {
	var headings []Heading

	source := []byte(content)
	doc := headingParser.Parse(text.NewReader(source))
	lineStarts := computeLineStarts(content)

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}

		headingText := strings.TrimSpace(nodeText(heading, source))
		if headingText == "" || heading.Lines().Len() == 0 {
			return ast.WalkSkipChildren, nil
		}

		offset := heading.Lines().At(0).Start
		lineIdx := offsetToLine(lineStarts, offset)
		headings = append(headings, Heading{
			Level:  heading.Level,
			Text:   headingText,
			Line:   startLine + lineIdx,
			Offset: lineStarts[lineIdx],
		})
		return ast.WalkSkipChildren, nil
	})

	return headings
}

// Section returns the part of content under the heading matching anchor,
// from the heading line up to the next heading of the same or higher level.
// Headings match when their slugs are equal. ok is false when no heading matches.
func Section(content, anchor string) (section string, ok bool) {
	want := slugs.HeadingSlug(anchor)
	if want == "" {
		return "", false
	}

	headings := ExtractHeadings(content, 1)
	for i, h := range headings {
		if h.Slug() != want {
			continue
		}
		end := len(content)
		for _, next := range headings[i+1:] {
			if next.Level <= h.Level {
				end = next.Offset
				break
			}
		}
		return strings.TrimRight(content[h.Offset:end], "\n") + "\n", true
	}
	return "", false
}

// nodeText concatenates the text segments under n.
func nodeText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := child.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

// computeLineStarts computes the byte offset of each line start.
func computeLineStarts(content string) []int {
	starts := []int{0}
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' && i+1 < len(content) {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// offsetToLine converts a byte offset to a 0-indexed line number.
func offsetToLine(lineStarts []int, offset int) int {
	lo, hi := 0, len(lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if lineStarts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}
