// Package wikilink provides canonical parsing/scanning of weft references.
//
// Reference grammar (bracket interior):
//
//	raw    := target ('|' alias)?
//	target := path ('#' anchor)? | path '->' WS* '#' anchor
//	path   := segment ('/' segment)*
//
// Delimiters select the embed mode: [[x]] is a link, ![[x]] a block embed and
// !![[x]] an inline embed.
//
// This package intentionally does NOT understand markdown code fences; higher-level
// parsers decide whether scanning is enabled for a given region.
package wikilink

import (
	"strconv"
	"strings"

	"github.com/aidanlsb/weft/internal/model"
)

// Mode is the rendering mode selected by the delimiter prefix.
type Mode int

const (
	ModeLink Mode = iota
	ModeBlockEmbed
	ModeInlineEmbed
)

// ModeForPrefix maps the number of "!" characters before "[[" to a Mode.
func ModeForPrefix(n int) Mode {
	switch {
	case n <= 0:
		return ModeLink
	case n == 1:
		return ModeBlockEmbed
	default:
		return ModeInlineEmbed
	}
}

// Prefix returns the delimiter prefix for the mode ("", "!" or "!!").
func (m Mode) Prefix() string {
	switch m {
	case ModeBlockEmbed:
		return "!"
	case ModeInlineEmbed:
		return "!!"
	default:
		return ""
	}
}

func (m Mode) String() string {
	switch m {
	case ModeBlockEmbed:
		return "block-embed"
	case ModeInlineEmbed:
		return "inline-embed"
	default:
		return "link"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Ref is a parsed reference. It is immutable once returned by Parse.
type Ref struct {
	// Raw is the bracket interior exactly as given to Parse.
	Raw string

	// Target is the trimmed path as written, including any folder prefix and
	// explicit extension. Empty means "show the folder-scoped suggestion list".
	Target string

	// Alias is the text after '|', if present and non-empty.
	Alias *string

	// Anchor is the text after '#' (or '-> #'), if present and non-empty.
	Anchor *string

	// ExplicitKind is the lowercased recognized extension on the last path
	// segment (e.g. ".pdf"), or "" when the target carries none.
	ExplicitKind string

	// Mode is the embed mode chosen by the caller from the delimiter style.
	Mode Mode

	stemStart int
	stemEnd   int
}

// Parse parses a bracket interior (delimiters already stripped) as a plain link.
// Malformed input never fails; the result is a best-effort partial Ref.
func Parse(raw string) Ref {
	return ParseWithMode(raw, ModeLink)
}

// ParseWithMode parses a bracket interior and records the embed mode.
func ParseWithMode(raw string, mode Mode) Ref {
	ref := Ref{Raw: raw, Mode: mode}

	targetPart := raw
	if pipe := strings.IndexByte(raw, '|'); pipe >= 0 {
		targetPart = raw[:pipe]
		if alias := strings.TrimSpace(raw[pipe+1:]); alias != "" {
			ref.Alias = &alias
		}
	}

	pathPart := targetPart
	hash := strings.IndexByte(targetPart, '#')
	arrow := strings.Index(targetPart, "->")
	arrowAnchor := false
	if arrow >= 0 && (hash < 0 || hash > arrow) {
		rest := strings.TrimLeft(targetPart[arrow+2:], " \t")
		if strings.HasPrefix(rest, "#") {
			pathPart = targetPart[:arrow]
			setAnchor(&ref, rest[1:])
			arrowAnchor = true
		}
	}
	if !arrowAnchor && hash >= 0 {
		pathPart = targetPart[:hash]
		setAnchor(&ref, targetPart[hash+1:])
	}

	start, end := trimSpan(pathPart, 0, len(pathPart))
	ref.Target = pathPart[start:end]

	leafStart := start
	if slash := strings.LastIndexByte(ref.Target, '/'); slash >= 0 {
		leafStart = start + slash + 1
	}
	leafStart, _ = trimSpan(pathPart, leafStart, end)

	ref.ExplicitKind = model.RecognizedExtension(pathPart[leafStart:end])
	ref.stemStart = leafStart
	ref.stemEnd = end - len(ref.ExplicitKind)
	return ref
}

func setAnchor(ref *Ref, s string) {
	if a := strings.TrimSpace(s); a != "" {
		ref.Anchor = &a
	}
}

// trimSpan narrows [start,end) of s past surrounding whitespace.
func trimSpan(s string, start, end int) (int, int) {
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return start, end
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

// Empty reports whether the target is empty after trimming.
func (r Ref) Empty() bool {
	return r.Target == ""
}

// Absolute reports whether the target is vault-absolute ("/a/Note").
func (r Ref) Absolute() bool {
	return strings.HasPrefix(r.Target, "/")
}

// Relative reports whether the target is relative to the origin ("./Note", "../x/Note").
func (r Ref) Relative() bool {
	return strings.HasPrefix(r.Target, "./") || strings.HasPrefix(r.Target, "../")
}

// Folder returns the folder prefix of the target (everything before the last
// '/'), with the leading '/' of absolute targets removed.
func (r Ref) Folder() string {
	slash := strings.LastIndexByte(r.Target, '/')
	if slash < 0 {
		return ""
	}
	return strings.TrimPrefix(r.Target[:slash], "/")
}

// Leaf returns the last path segment with any explicit extension stripped.
func (r Ref) Leaf() string {
	if r.stemEnd < r.stemStart {
		return ""
	}
	return r.Raw[r.stemStart:r.stemEnd]
}

// StemSpan returns the byte offsets in Raw of the leaf name, excluding any
// explicit extension. Rewriting only this span preserves every other character.
func (r Ref) StemSpan() (start, end int) {
	return r.stemStart, r.stemEnd
}

// Kind returns the document kind named by ExplicitKind.
func (r Ref) Kind() (model.Kind, bool) {
	if r.ExplicitKind == "" {
		return model.KindOther, false
	}
	return model.KindForExtension(r.ExplicitKind)
}

// Page returns the anchor as a page number when it is a positive decimal integer.
func (r Ref) Page() (int, bool) {
	if r.Anchor == nil {
		return 0, false
	}
	n, err := strconv.Atoi(*r.Anchor)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// AnchorText returns the anchor or "" when absent.
func (r Ref) AnchorText() string {
	if r.Anchor == nil {
		return ""
	}
	return *r.Anchor
}

// DisplayText returns the alias when present, otherwise the target followed by
// the anchor ("Note > Section").
func (r Ref) DisplayText() string {
	if r.Alias != nil {
		return *r.Alias
	}
	if r.Anchor != nil {
		if r.Target == "" {
			return *r.Anchor
		}
		return r.Target + " > " + *r.Anchor
	}
	return r.Target
}

// Match represents a reference found in a string (typically a single line).
type Match struct {
	// Start and End delimit the whole literal including "!" prefixes.
	Start int
	End   int

	// Prefix is the number of "!" characters before "[[" (0, 1 or 2).
	Prefix int

	// Inner is the text between "[[" and "]]"; InnerStart is its offset.
	Inner      string
	InnerStart int

	Literal string
}

// Ref parses the match interior with the mode implied by its prefix.
func (m Match) Ref() Ref {
	return ParseWithMode(m.Inner, ModeForPrefix(m.Prefix))
}

// FindAllInLine finds references in a single line.
//
// Matches preceded by '[' are skipped to avoid array syntax like [[[ref]]].
// At most two "!" characters are counted as the embed prefix; further ones
// are treated as text.
func FindAllInLine(line string) []Match {
	var out []Match

	pos := 0
	for pos < len(line) {
		open := strings.Index(line[pos:], "[[")
		if open < 0 {
			break
		}
		open += pos

		if open > 0 && line[open-1] == '[' {
			// Skip the whole run of brackets.
			pos = open + 2
			for pos < len(line) && line[pos] == '[' {
				pos++
			}
			continue
		}
		if open+2 < len(line) && line[open+2] == '[' {
			pos = open + 1
			continue
		}

		innerStart := open + 2
		closeRel := strings.Index(line[innerStart:], "]]")
		if closeRel < 0 {
			break
		}
		// A nested opener means this one was never closed; restart from it.
		if nested := strings.Index(line[innerStart:innerStart+closeRel], "[["); nested >= 0 {
			pos = innerStart + nested
			continue
		}
		innerEnd := innerStart + closeRel
		end := innerEnd + 2

		start := open
		prefix := 0
		for prefix < 2 && start > 0 && line[start-1] == '!' {
			start--
			prefix++
		}

		out = append(out, Match{
			Start:      start,
			End:        end,
			Prefix:     prefix,
			Inner:      line[innerStart:innerEnd],
			InnerStart: innerStart,
			Literal:    line[start:end],
		})
		pos = end
	}

	return out
}

// ParseExact parses a string that is exactly one reference literal
// (e.g. "![[Note#2]]"), returning the parsed Ref.
func ParseExact(s string) (Ref, bool) {
	s = strings.TrimSpace(s)
	matches := FindAllInLine(s)
	if len(matches) != 1 || matches[0].Start != 0 || matches[0].End != len(s) {
		return Ref{}, false
	}
	return matches[0].Ref(), true
}
