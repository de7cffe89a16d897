// Package render turns references into fragments: navigable links, wrapped
// block embeds, or content-only inline embeds.
//
// Rendering never fails. Unresolved targets, cycles and over-deep embed chains
// all produce placeholder fragments.
package render

import (
	"strings"

	"github.com/aidanlsb/weft/internal/index"
	"github.com/aidanlsb/weft/internal/model"
	"github.com/aidanlsb/weft/internal/parser"
	"github.com/aidanlsb/weft/internal/resolver"
	"github.com/aidanlsb/weft/internal/wikilink"
)

// DefaultMaxDepth caps nested embeds independently of cycle detection.
const DefaultMaxDepth = 8

// Kind identifies what a fragment represents.
type Kind int

const (
	// KindText is literal markdown source between references.
	KindText Kind = iota
	// KindLink is a navigable reference to a resolved document.
	KindLink
	// KindUnresolved marks a reference that matched no document.
	KindUnresolved
	// KindEmbed wraps the content of a block embed.
	KindEmbed
	// KindContent is unwrapped content: an inline embed or a whole document.
	KindContent
	// KindCyclic replaces an embed whose target is already being rendered.
	KindCyclic
	// KindTooDeep replaces an embed beyond the depth limit.
	KindTooDeep
	// KindResource is a non-markdown target to be loaded by the viewer.
	KindResource
)

var kindNames = [...]string{
	KindText:       "text",
	KindLink:       "link",
	KindUnresolved: "unresolved",
	KindEmbed:      "embed",
	KindContent:    "content",
	KindCyclic:     "cyclic",
	KindTooDeep:    "too-deep",
	KindResource:   "resource",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Fragment is a node of rendered output.
type Fragment struct {
	Kind Kind `json:"kind"`

	// Text is markdown source for KindText and display text otherwise.
	Text string `json:"text,omitempty"`

	// Target is the reference target as written.
	Target string `json:"target,omitempty"`

	DocumentID   string        `json:"document_id,omitempty"`
	DocumentKind model.Kind    `json:"document_kind,omitempty"`
	Path         string        `json:"path,omitempty"`
	Anchor       string        `json:"anchor,omitempty"`
	Page         int           `json:"page,omitempty"`
	Ambiguous    bool          `json:"ambiguous,omitempty"`
	Mode         wikilink.Mode `json:"mode"`
	Children     []Fragment    `json:"children,omitempty"`
}

// Walk calls fn for f and every descendant, depth first. Returning false
// from fn skips the fragment's children.
func (f Fragment) Walk(fn func(Fragment) bool) {
	if !fn(f) {
		return
	}
	for _, child := range f.Children {
		child.Walk(fn)
	}
}

// Find returns every fragment of the given kind in f, including f itself.
func (f Fragment) Find(kind Kind) []Fragment {
	var out []Fragment
	f.Walk(func(n Fragment) bool {
		if n.Kind == kind {
			out = append(out, n)
		}
		return true
	})
	return out
}

// Visited is the set of document IDs on the current embed path.
type Visited map[string]struct{}

// NewVisited returns a set holding ids.
func NewVisited(ids ...string) Visited {
	v := make(Visited, len(ids))
	for _, id := range ids {
		if id != "" {
			v[id] = struct{}{}
		}
	}
	return v
}

// Has reports whether id is on the path.
func (v Visited) Has(id string) bool {
	_, ok := v[id]
	return ok
}

// With returns a copy of v extended with id. Sibling embeds each get their own
// copy, so the same document may be embedded twice side by side.
func (v Visited) With(id string) Visited {
	out := make(Visited, len(v)+1)
	for k := range v {
		out[k] = struct{}{}
	}
	out[id] = struct{}{}
	return out
}

// DocumentSource provides document bodies.
type DocumentSource interface {
	GetDocument(id string) (model.Document, bool)
}

// Options configures a Renderer.
type Options struct {
	// MaxDepth is the deepest embed nesting rendered. Zero means DefaultMaxDepth.
	MaxDepth int
}

// Renderer renders references against one index snapshot.
type Renderer struct {
	idx      *index.Index
	docs     DocumentSource
	maxDepth int
}

// New creates a renderer. idx may be nil, in which case every reference is unresolved.
func New(idx *index.Index, docs DocumentSource, opts Options) *Renderer {
	if idx == nil {
		idx = index.Empty()
	}
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Renderer{idx: idx, docs: docs, maxDepth: maxDepth}
}

// MaxDepth returns the effective depth limit.
func (r *Renderer) MaxDepth() int {
	return r.maxDepth
}

// RenderEmbed renders a resolved reference in the mode carried by ref.
//
// Links never fetch content. Block embeds wrap the target's content in a
// KindEmbed fragment; inline embeds return a KindContent fragment whose
// children are the content alone. Before recursing, the target is checked
// against visited (KindCyclic) and depth against the limit (KindTooDeep).
func (r *Renderer) RenderEmbed(res resolver.Result, ref wikilink.Ref, depth int, visited Visited) Fragment {
	if !res.Resolved() {
		return unresolved(ref)
	}

	c := res.Candidate
	frag := Fragment{
		Text:         ref.DisplayText(),
		Target:       ref.Target,
		DocumentID:   res.DocumentID,
		DocumentKind: c.Kind,
		Path:         c.Path,
		Anchor:       res.AnchorText(),
		Ambiguous:    res.Ambiguous,
		Mode:         ref.Mode,
	}
	if frag.Text == "" {
		frag.Text = c.Title
	}

	if ref.Mode == wikilink.ModeLink {
		frag.Kind = KindLink
		return frag
	}
	if depth >= r.maxDepth {
		frag.Kind = KindTooDeep
		return frag
	}
	if visited.Has(res.DocumentID) {
		frag.Kind = KindCyclic
		return frag
	}

	var content []Fragment
	switch c.Kind {
	case model.KindMarkdown:
		doc, ok := r.document(res.DocumentID)
		if !ok {
			return unresolved(ref)
		}
		body := embeddedBody(doc, ref)
		content = r.renderContent(body, res.DocumentID, depth+1, visited.With(res.DocumentID))
	case model.KindPDF, model.KindImage, model.KindVideo, model.KindOther:
		resource := frag
		resource.Kind = KindResource
		if page, ok := ref.Page(); ok && c.Kind.Paginated() {
			resource.Page = page
		}
		content = []Fragment{resource}
	}

	if ref.Mode == wikilink.ModeInlineEmbed {
		frag.Kind = KindContent
	} else {
		frag.Kind = KindEmbed
	}
	frag.Children = content
	return frag
}

// RenderReference resolves ref from the document originID and renders it.
func (r *Renderer) RenderReference(ref wikilink.Ref, originID string) Fragment {
	res := resolver.ResolveFrom(ref, originID, r.idx)
	return r.RenderEmbed(res, ref, 0, NewVisited(originID))
}

// RenderDocument renders a whole document with all of its references.
// Frontmatter is omitted.
func (r *Renderer) RenderDocument(id string) Fragment {
	doc, ok := r.document(id)
	if !ok {
		return Fragment{Kind: KindUnresolved, Text: id, Target: id}
	}

	frag := Fragment{
		Kind:         KindContent,
		Text:         doc.DisplayTitle(),
		DocumentID:   doc.ID,
		DocumentKind: doc.Kind,
		Path:         doc.Path,
	}
	switch doc.Kind {
	case model.KindMarkdown:
		body, _ := parser.StripFrontmatter(doc.RawText)
		frag.Children = r.renderContent(body, doc.ID, 0, NewVisited(doc.ID))
	case model.KindPDF, model.KindImage, model.KindVideo, model.KindOther:
		resource := frag
		resource.Kind = KindResource
		frag.Children = []Fragment{resource}
	}
	return frag
}

// renderContent splits markdown into text runs and rendered references.
func (r *Renderer) renderContent(content, originID string, depth int, visited Visited) []Fragment {
	var out []Fragment
	last := 0
	for _, occ := range parser.ExtractRefs(content, 1) {
		if occ.Start > last {
			out = append(out, Fragment{Kind: KindText, Text: content[last:occ.Start]})
		}
		res := resolver.ResolveFrom(occ.Ref, originID, r.idx)
		out = append(out, r.RenderEmbed(res, occ.Ref, depth, visited))
		last = occ.End
	}
	if last < len(content) {
		out = append(out, Fragment{Kind: KindText, Text: content[last:]})
	}
	return out
}

func (r *Renderer) document(id string) (model.Document, bool) {
	if r.docs == nil || id == "" {
		return model.Document{}, false
	}
	return r.docs.GetDocument(id)
}

// embeddedBody returns the part of doc an embed shows: the section under a
// heading anchor when one matches, the whole body otherwise.
func embeddedBody(doc model.Document, ref wikilink.Ref) string {
	body, _ := parser.StripFrontmatter(doc.RawText)
	if _, numeric := ref.Page(); ref.Anchor != nil && !numeric {
		if section, ok := parser.Section(body, *ref.Anchor); ok {
			body = section
		}
	}
	if ref.Mode == wikilink.ModeInlineEmbed {
		body = strings.TrimRight(body, "\n")
	}
	return body
}

func unresolved(ref wikilink.Ref) Fragment {
	return Fragment{
		Kind:   KindUnresolved,
		Text:   ref.DisplayText(),
		Target: ref.Target,
		Anchor: ref.AnchorText(),
		Mode:   ref.Mode,
	}
}
