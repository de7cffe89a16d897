// Package resolver handles reference resolution.
package resolver

import (
	"path"
	"strings"

	"github.com/aidanlsb/weft/internal/index"
	"github.com/aidanlsb/weft/internal/model"
	"github.com/aidanlsb/weft/internal/slugs"
	"github.com/aidanlsb/weft/internal/wikilink"
)

// Result represents the result of a reference resolution.
// The zero value is the "unresolved" sentinel.
type Result struct {
	// DocumentID is the resolved target (empty if unresolved).
	DocumentID string `json:"document_id,omitempty"`

	// Candidate is the index entry for DocumentID.
	Candidate index.Candidate `json:"candidate"`

	// Ambiguous is true if the reference matched more than one document.
	// DocumentID is then the first match in index order.
	Ambiguous bool `json:"ambiguous,omitempty"`

	// Matches contains every candidate that survived filtering, in index order.
	Matches []index.Candidate `json:"matches,omitempty"`

	// Anchor is passed through unchanged from the reference.
	Anchor *string `json:"anchor,omitempty"`
}

// Unresolved returns the unresolved sentinel carrying anchor.
func Unresolved(anchor *string) Result {
	return Result{Anchor: anchor}
}

// Resolved reports whether the result points at a document.
func (r Result) Resolved() bool {
	return r.DocumentID != ""
}

// AnchorText returns the anchor or "" when absent.
func (r Result) AnchorText() string {
	if r.Anchor == nil {
		return ""
	}
	return *r.Anchor
}

// MatchIDs returns the document IDs of all matches.
func (r Result) MatchIDs() []string {
	ids := make([]string, len(r.Matches))
	for i, m := range r.Matches {
		ids[i] = m.DocumentID
	}
	return ids
}

// Resolve resolves a parsed reference against idx.
//
// Rules, in order:
//  1. A folder prefix restricts candidates to folders ending in that prefix
//     ("sub/Note" matches ".../sub"). "/a/Note" requires the folder to be
//     exactly "a"; "./Note" and "../x/Note" are taken relative to originFolder.
//  2. Candidates are looked up by the slug of the leaf name.
//  3. An explicit extension keeps only candidates of that kind, when any exist.
//  4. Several remaining candidates make the result ambiguous; the first in
//     index order is the default target.
//  5. No candidates yields the unresolved sentinel.
//
// A leaf ending in an extension the parser does not recognise ("Report.docx")
// that matches nothing as written is retried without it, keeping only files
// carrying that extension.
func Resolve(ref wikilink.Ref, originFolder string, idx *index.Index) Result {
	if idx == nil || ref.Empty() {
		return Unresolved(ref.Anchor)
	}

	slug := slugs.Normalize(ref.Leaf())
	if slug == "" {
		return Unresolved(ref.Anchor)
	}
	candidates := idx.Lookup(slug)
	if len(candidates) == 0 && ref.ExplicitKind == "" {
		candidates = lookupUnknownExtension(ref.Leaf(), idx)
	}

	if inScope, scoped := FolderScope(ref, originFolder); scoped {
		candidates = filter(candidates, func(c index.Candidate) bool {
			return inScope(c.Folder)
		})
	}

	if kind, ok := ref.Kind(); ok {
		if sameKind := filter(candidates, func(c index.Candidate) bool { return c.Kind == kind }); len(sameKind) > 0 {
			candidates = sameKind
		}
	}

	switch len(candidates) {
	case 0:
		return Unresolved(ref.Anchor)
	case 1:
		return Result{
			DocumentID: candidates[0].DocumentID,
			Candidate:  candidates[0],
			Matches:    candidates,
			Anchor:     ref.Anchor,
		}
	default:
		return Result{
			DocumentID: candidates[0].DocumentID,
			Candidate:  candidates[0],
			Ambiguous:  true,
			Matches:    candidates,
			Anchor:     ref.Anchor,
		}
	}
}

// FolderScope returns a predicate selecting the folders addressed by the folder
// part of ref. scoped is false when the target carries no folder part.
func FolderScope(ref wikilink.Ref, originFolder string) (inScope func(folder string) bool, scoped bool) {
	switch {
	case ref.Relative():
		want := model.NormalizeFolder(path.Join(model.NormalizeFolder(originFolder), ref.Folder()))
		return func(folder string) bool { return model.NormalizeFolder(folder) == want }, true
	case ref.Absolute() || ref.Folder() != "":
		prefix, exact := ref.Folder(), ref.Absolute()
		return func(folder string) bool { return index.FolderMatches(folder, prefix, exact) }, true
	default:
		return func(string) bool { return true }, false
	}
}

// ResolveFrom resolves ref as written in the document originID. A reference
// with only an anchor ("[[#Heading]]") points back at the origin itself.
func ResolveFrom(ref wikilink.Ref, originID string, idx *index.Index) Result {
	if idx == nil {
		return Unresolved(ref.Anchor)
	}
	origin, ok := idx.Document(originID)
	if ok && ref.Empty() && ref.Anchor != nil {
		return Result{
			DocumentID: origin.DocumentID,
			Candidate:  origin,
			Matches:    []index.Candidate{origin},
			Anchor:     ref.Anchor,
		}
	}
	return Resolve(ref, origin.Folder, idx)
}

// ResolveString parses raw (a bracket interior) and resolves it.
func ResolveString(raw, originFolder string, idx *index.Index) Result {
	return Resolve(wikilink.Parse(raw), originFolder, idx)
}

func lookupUnknownExtension(leaf string, idx *index.Index) []index.Candidate {
	ext := path.Ext(leaf)
	stem := strings.TrimSuffix(leaf, ext)
	if ext == "" || ext == leaf || strings.TrimSpace(stem) == "" {
		return nil
	}
	return filter(idx.Lookup(slugs.Normalize(stem)), func(c index.Candidate) bool {
		return strings.EqualFold(path.Ext(c.FileName()), ext)
	})
}

func filter(in []index.Candidate, keep func(index.Candidate) bool) []index.Candidate {
	var out []index.Candidate
	for _, c := range in {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}
