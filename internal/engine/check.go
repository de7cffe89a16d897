package engine

import (
	"log/slog"

	"github.com/aidanlsb/weft/internal/index"
	"github.com/aidanlsb/weft/internal/model"
	"github.com/aidanlsb/weft/internal/parser"
	"github.com/aidanlsb/weft/internal/resolver"
	"github.com/aidanlsb/weft/internal/slugs"
)

// Report summarizes reference health across the workspace.
type Report struct {
	Stats index.Stats `json:"stats"`

	// Links is the number of reference occurrences scanned.
	Links int `json:"links"`

	Unresolved    []model.Link      `json:"unresolved"`
	Ambiguous     []model.Link      `json:"ambiguous"`
	BrokenAnchors []model.Link      `json:"broken_anchors"`
	Collisions    []index.Collision `json:"collisions"`
}

// OK reports whether nothing needs attention. Slug collisions alone are fine.
func (r Report) OK() bool {
	return len(r.Unresolved) == 0 && len(r.Ambiguous) == 0 && len(r.BrokenAnchors) == 0
}

// Check scans every reference in the workspace and reports unresolved and
// ambiguous references, and heading anchors that match no heading.
func (e *Engine) Check() Report {
	idx := e.Index()
	report := e.classify(idx, e.Links())
	report.Stats = idx.Stats()
	report.Collisions = idx.Collisions()

	e.logger.Debug("engine: checked references",
		slog.Int("links", report.Links),
		slog.Int("unresolved", len(report.Unresolved)),
		slog.Int("ambiguous", len(report.Ambiguous)))
	return report
}

// CheckText checks the references in text as if it were the body of
// originID. The text need not match what the registry holds, so editors can
// check unsaved buffers. Stats and Collisions are left empty.
func (e *Engine) CheckText(originID, text string) Report {
	idx := e.Index()
	doc := model.Document{ID: originID, Path: originID, Kind: model.KindMarkdown, RawText: text}
	if c, ok := idx.Document(originID); ok {
		doc.Path = c.Path
	}
	return e.classify(idx, documentLinks(doc, idx))
}

func (e *Engine) classify(idx *index.Index, links []model.Link) Report {
	report := Report{Links: len(links)}

	headings := make(map[string]map[string]bool)
	hasHeading := func(id, anchor string) bool {
		set, ok := headings[id]
		if !ok {
			set = make(map[string]bool)
			if doc, found := e.reg.GetDocument(id); found {
				body, _ := parser.StripFrontmatter(doc.RawText)
				for _, h := range parser.ExtractHeadings(body, 1) {
					set[h.Slug()] = true
				}
			}
			headings[id] = set
		}
		return set[slugs.HeadingSlug(anchor)]
	}

	for _, l := range links {
		switch {
		case !l.Resolved():
			report.Unresolved = append(report.Unresolved, l)
			continue
		case l.Ambiguous:
			report.Ambiguous = append(report.Ambiguous, l)
		}

		if l.Anchor == "" || isPage(l.Anchor) {
			continue
		}
		if c, ok := idx.Document(l.TargetID); ok && c.Kind == model.KindMarkdown && !hasHeading(l.TargetID, l.Anchor) {
			report.BrokenAnchors = append(report.BrokenAnchors, l)
		}
	}
	return report
}

// documentLinks scans doc and resolves every reference in it.
func documentLinks(doc model.Document, idx *index.Index) []model.Link {
	refs := parser.ExtractRefs(doc.RawText, 1)
	if len(refs) == 0 {
		return nil
	}

	out := make([]model.Link, 0, len(refs))
	for _, occ := range refs {
		res := resolver.ResolveFrom(occ.Ref, doc.ID, idx)
		link := model.Link{
			SourceID:  doc.ID,
			Raw:       occ.Literal,
			Target:    occ.Ref.Target,
			Anchor:    occ.Ref.AnchorText(),
			Line:      occ.Line,
			Mode:      occ.Ref.Mode.String(),
			TargetID:  res.DocumentID,
			Ambiguous: res.Ambiguous,
		}
		if res.Ambiguous {
			link.Candidates = res.MatchIDs()
		}
		out = append(out, link)
	}
	return out
}

func isPage(anchor string) bool {
	for i := 0; i < len(anchor); i++ {
		if anchor[i] < '0' || anchor[i] > '9' {
			return false
		}
	}
	return anchor != ""
}
