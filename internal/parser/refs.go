package parser

import (
	"strings"

	"github.com/aidanlsb/weft/internal/wikilink"
)

// Reference is a reference occurrence found in a markdown body.
type Reference struct {
	// Ref is the parsed interior, with Mode set from the "!" prefix.
	Ref wikilink.Ref

	// Literal is the full occurrence as written (e.g. "![[Note#2]]").
	Literal string

	// Line is the line number where the occurrence starts.
	Line int

	// Start and End are byte offsets of Literal within the scanned content.
	Start int
	End   int

	// InnerStart is the byte offset of the bracket interior within the content.
	InnerStart int
}

// ExtractRefs extracts references from content.
// It automatically skips refs inside fenced code blocks and inline code spans.
func ExtractRefs(content string, startLine int) []Reference {
	var refs []Reference

	state := FenceState{}
	lineOffset := 0
	for i, line := range strings.Split(content, "\n") {
		offset := lineOffset
		lineOffset += len(line) + 1

		if state.UpdateFenceState(line) || state.InFence {
			continue
		}

		// Masking keeps byte positions, so offsets stay valid for the original line.
		sanitized := RemoveInlineCode(line)
		for _, m := range wikilink.FindAllInLine(sanitized) {
			refs = append(refs, Reference{
				Ref:        wikilink.ParseWithMode(line[m.InnerStart:m.InnerStart+len(m.Inner)], wikilink.ModeForPrefix(m.Prefix)),
				Literal:    line[m.Start:m.End],
				Line:       startLine + i,
				Start:      offset + m.Start,
				End:        offset + m.End,
				InnerStart: offset + m.InnerStart,
			})
		}
	}

	return refs
}

// ExtractBodyRefs extracts references from a whole document, skipping YAML
// frontmatter. Offsets and lines are relative to the full content.
func ExtractBodyRefs(content string) []Reference {
	body, offset := StripFrontmatter(content)
	startLine := 1 + strings.Count(content[:offset], "\n")

	refs := ExtractRefs(body, startLine)
	for i := range refs {
		refs[i].Start += offset
		refs[i].End += offset
		refs[i].InnerStart += offset
	}
	return refs
}
