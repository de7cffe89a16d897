// Package index builds the reference index: the slug → candidate mapping and
// folder tree that resolution and suggestion run against.
//
// An Index is immutable once Build returns. Callers rebuild wholesale whenever
// the document set changes and publish the new value in place of the old one.
package index

import (
	"sort"
	"strings"

	"github.com/aidanlsb/weft/internal/model"
	"github.com/aidanlsb/weft/internal/slugs"
)

// Candidate is one document as seen by the index.
type Candidate struct {
	DocumentID string     `json:"document_id"`
	Path       string     `json:"path"`
	Folder     string     `json:"folder"`
	Kind       model.Kind `json:"kind"`
	Title      string     `json:"title"`
	Basename   string     `json:"basename"`

	// TitleSlug and BaseSlug are the keys the document is filed under.
	TitleSlug string `json:"title_slug,omitempty"`
	BaseSlug  string `json:"base_slug,omitempty"`

	order int
}

// Order is the document's position in build order, used as the final tie-break.
func (c Candidate) Order() int { return c.order }

// FileName returns the basename with the extension of the document's path.
func (c Candidate) FileName() string {
	slash := strings.LastIndexByte(c.Path, '/')
	return c.Path[slash+1:]
}

// Index is the reference index.
type Index struct {
	bySlug  map[string][]Candidate
	docs    []Candidate
	byID    map[string]int
	folders *FolderTree
}

// Empty returns an index with no documents.
func Empty() *Index {
	return Build(nil)
}

// Build scans docs in order and produces a new Index.
//
// Every document is filed under the slug of its title and, independently, the
// slug of its basename. Documents with neither are skipped. Duplicate IDs keep
// their first occurrence.
func Build(docs []model.Document) *Index {
	idx := &Index{
		bySlug:  make(map[string][]Candidate),
		byID:    make(map[string]int, len(docs)),
		folders: newFolderTree(),
	}

	for _, doc := range docs {
		if doc.ID == "" {
			continue
		}
		if _, dup := idx.byID[doc.ID]; dup {
			continue
		}

		titleSlug := slugs.Normalize(doc.Title)
		baseSlug := slugs.Normalize(doc.Basename())
		if titleSlug == "" && baseSlug == "" {
			continue
		}

		c := Candidate{
			DocumentID: doc.ID,
			Path:       model.CleanPath(doc.Path),
			Folder:     doc.Folder(),
			Kind:       doc.Kind,
			Title:      doc.DisplayTitle(),
			Basename:   doc.Basename(),
			TitleSlug:  titleSlug,
			BaseSlug:   baseSlug,
			order:      len(idx.docs),
		}

		idx.byID[c.DocumentID] = len(idx.docs)
		idx.docs = append(idx.docs, c)

		if titleSlug != "" {
			idx.bySlug[titleSlug] = append(idx.bySlug[titleSlug], c)
		}
		if baseSlug != "" && baseSlug != titleSlug {
			idx.bySlug[baseSlug] = append(idx.bySlug[baseSlug], c)
		}

		idx.folders.add(c.Folder, c.order)
	}

	return idx
}

// Lookup returns the candidates filed under slug, in build order.
// The returned slice is a copy.
func (i *Index) Lookup(slug string) []Candidate {
	found := i.bySlug[slug]
	if len(found) == 0 {
		return nil
	}
	out := make([]Candidate, len(found))
	copy(out, found)
	return out
}

// Document returns the candidate for a document ID.
func (i *Index) Document(id string) (Candidate, bool) {
	pos, ok := i.byID[id]
	if !ok {
		return Candidate{}, false
	}
	return i.docs[pos], true
}

// Documents returns every indexed document in build order.
func (i *Index) Documents() []Candidate {
	out := make([]Candidate, len(i.docs))
	copy(out, i.docs)
	return out
}

// DocumentsIn returns the documents whose folder is exactly folder.
func (i *Index) DocumentsIn(folder string) []Candidate {
	node, ok := i.folders.Get(model.NormalizeFolder(folder))
	if !ok {
		return nil
	}
	out := make([]Candidate, 0, len(node.documents))
	for _, pos := range node.documents {
		out = append(out, i.docs[pos])
	}
	return out
}

// Folders returns the folder tree.
func (i *Index) Folders() *FolderTree {
	return i.folders
}

// Len returns the number of indexed documents.
func (i *Index) Len() int {
	return len(i.docs)
}

// Collision is a slug shared by more than one document.
type Collision struct {
	Slug        string   `json:"slug"`
	DocumentIDs []string `json:"document_ids"`
}

// Collisions returns every slug with more than one candidate, sorted by slug.
// This is useful for `weft check` to warn about potential reference ambiguity.
func (i *Index) Collisions() []Collision {
	var out []Collision
	for slug, cands := range i.bySlug {
		if len(cands) < 2 {
			continue
		}
		ids := make([]string, len(cands))
		for j, c := range cands {
			ids[j] = c.DocumentID
		}
		out = append(out, Collision{Slug: slug, DocumentIDs: ids})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Slug < out[b].Slug })
	return out
}

// Stats summarizes the index.
type Stats struct {
	Documents  int `json:"documents"`
	Slugs      int `json:"slugs"`
	Folders    int `json:"folders"`
	Collisions int `json:"collisions"`
}

// Stats returns counts describing the index.
func (i *Index) Stats() Stats {
	collisions := 0
	for _, cands := range i.bySlug {
		if len(cands) > 1 {
			collisions++
		}
	}
	return Stats{
		Documents:  len(i.docs),
		Slugs:      len(i.bySlug),
		Folders:    len(i.folders.All()),
		Collisions: collisions,
	}
}
