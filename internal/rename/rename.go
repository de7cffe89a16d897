// Package rename rewrites references after a document is renamed.
//
// Only the leaf name inside each matching reference changes. Prefixes,
// folder parts, explicit extensions, anchors and aliases are copied through
// byte for byte, as is every character outside the reference.
package rename

import (
	"strings"

	"github.com/aidanlsb/weft/internal/model"
	"github.com/aidanlsb/weft/internal/parser"
	"github.com/aidanlsb/weft/internal/slugs"
)

// Edit is one rewritten reference.
type Edit struct {
	Line   int    `json:"line"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// Rewrite is the new text for one document.
type Rewrite struct {
	DocumentID string `json:"document_id"`
	Path       string `json:"path"`
	OldText    string `json:"-"`
	NewText    string `json:"-"`
	Edits      []Edit `json:"edits"`
}

// Target describes the renamed document as references should name it.
type Target struct {
	// Stem replaces the leaf name of each matching reference.
	Stem string

	// Kind is the renamed document's kind.
	Kind model.Kind

	// Extension is appended to bare references to non-markdown targets.
	Extension string
}

// NewTarget derives the rewrite target from the new title and basename.
// The title wins; the basename without its extension is the fallback. A
// basename without a recognized extension is taken to be markdown.
func NewTarget(newTitle, newBasename string) Target {
	newBasename = strings.TrimSpace(newBasename)

	kind := model.KindMarkdown
	ext := ""
	if recognized := model.RecognizedExtension(newBasename); recognized != "" {
		kind, _ = model.KindForExtension(recognized)
		ext = newBasename[len(newBasename)-len(recognized):]
	}

	stem := cleanStem(newTitle)
	if recognized := model.RecognizedExtension(stem); recognized != "" {
		stem = strings.TrimSpace(stem[:len(stem)-len(recognized)])
	}
	if stem == "" {
		stem = cleanStem(strings.TrimSuffix(newBasename, ext))
	}

	return Target{Stem: stem, Kind: kind, Extension: ext}
}

var stemReplacer = strings.NewReplacer("[", "", "]", "", "|", "", "#", "", "/", " ", `\`, " ")

// cleanStem removes characters that would change how a reference parses.
func cleanStem(s string) string {
	return strings.TrimSpace(stemReplacer.Replace(s))
}

// Propagate computes the rewrites needed after the document known as oldSlug
// was renamed. Documents without a matching reference are omitted, as are
// non-markdown documents. The input is not modified.
//
// A reference matches when the slug of its leaf name equals oldSlug, ignoring
// any folder prefix or extension. References whose explicit extension names a
// different kind than the renamed document are left alone, since they point
// at a namesake.
func Propagate(oldSlug, newTitle, newBasename string, docs []model.Document) []Rewrite {
	return PropagateTo(oldSlug, NewTarget(newTitle, newBasename), docs)
}

// PropagateTo is Propagate with an explicit target.
func PropagateTo(oldSlug string, target Target, docs []model.Document) []Rewrite {
	oldSlug = slugs.Normalize(oldSlug)
	if oldSlug == "" || target.Stem == "" {
		return nil
	}

	var out []Rewrite
	for _, doc := range docs {
		if doc.Kind != model.KindMarkdown {
			continue
		}
		newText, edits := RewriteText(doc.RawText, oldSlug, target)
		if newText == doc.RawText {
			continue
		}
		out = append(out, Rewrite{
			DocumentID: doc.ID,
			Path:       doc.Path,
			OldText:    doc.RawText,
			NewText:    newText,
			Edits:      edits,
		})
	}
	return out
}

// RewriteText rewrites every reference to oldSlug in content. References in
// code blocks and inline code are not touched. Edits lists only references
// whose text actually changed.
func RewriteText(content, oldSlug string, target Target) (string, []Edit) {
	var b strings.Builder
	var edits []Edit
	last := 0

	for _, occ := range parser.ExtractRefs(content, 1) {
		ref := occ.Ref
		if slugs.Normalize(ref.Leaf()) != oldSlug {
			continue
		}
		if kind, ok := ref.Kind(); ok && kind != target.Kind {
			continue
		}

		replacement := target.Stem
		if ref.ExplicitKind == "" && !strings.Contains(ref.Target, "/") && target.Kind != model.KindMarkdown {
			replacement += target.Extension
		}

		stemStart, stemEnd := ref.StemSpan()
		start := occ.InnerStart + stemStart
		end := occ.InnerStart + stemEnd
		if content[start:end] == replacement {
			continue
		}

		b.WriteString(content[last:start])
		b.WriteString(replacement)
		last = end

		edits = append(edits, Edit{
			Line:   occ.Line,
			Before: occ.Literal,
			After:  content[occ.Start:start] + replacement + content[end:occ.End],
		})
	}

	if len(edits) == 0 {
		return content, nil
	}
	b.WriteString(content[last:])
	return b.String(), edits
}
