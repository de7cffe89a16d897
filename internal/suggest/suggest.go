// Package suggest produces completion candidates for partially typed references.
package suggest

import (
	"sort"
	"strings"

	"github.com/aidanlsb/weft/internal/index"
	"github.com/aidanlsb/weft/internal/model"
	"github.com/aidanlsb/weft/internal/resolver"
	"github.com/aidanlsb/weft/internal/slugs"
	"github.com/aidanlsb/weft/internal/wikilink"
)

// ItemKind distinguishes document and folder suggestions.
type ItemKind int

const (
	ItemDocument ItemKind = iota
	ItemFolder
)

func (k ItemKind) String() string {
	if k == ItemFolder {
		return "folder"
	}
	return "document"
}

// MarshalText implements encoding.TextMarshaler.
func (k ItemKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Item is a single completion candidate.
type Item struct {
	Kind ItemKind `json:"kind"`

	// Display is what a completion list shows. Folders display their terminal
	// segment followed by "/".
	Display string `json:"display"`

	// Insert is a complete reference target that selects this item.
	Insert string `json:"insert"`

	// Path is the document path or the full folder path.
	Path string `json:"path"`

	DocumentID   string     `json:"document_id,omitempty"`
	DocumentKind model.Kind `json:"document_kind,omitempty"`
}

// Suggest returns completion candidates for query typed in a document located
// in originFolder.
//
//   - An empty query lists the folders reachable from originFolder (its
//     children first), then the documents in originFolder and at the top level.
//     Entries with the same display text appear once.
//   - A query ending in "/" lists the folders and documents directly under
//     the folders that prefix addresses.
//   - Anything else is matched against slugs and display titles. Prefix matches
//     rank before substring matches, which rank before hyphen-shorthand matches
//     ("proj-o" for "project-one"); ties go to shorter display text, then index order.
//
// limit <= 0 disables truncation. The result is deterministic for a given index.
func Suggest(query, originFolder string, idx *index.Index, limit int) []Item {
	if idx == nil {
		return nil
	}
	originFolder = model.NormalizeFolder(originFolder)

	var items []Item
	switch {
	case strings.TrimSpace(query) == "":
		items = browse(originFolder, idx)
	case strings.HasSuffix(query, "/"):
		items = under(query, originFolder, idx)
	default:
		items = search(query, originFolder, idx)
	}

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

func browse(originFolder string, idx *index.Index) []Item {
	var items []Item
	seen := make(map[string]struct{})
	add := func(item Item) {
		if _, dup := seen[item.Display]; dup {
			return
		}
		seen[item.Display] = struct{}{}
		items = append(items, item)
	}

	tree := idx.Folders()
	for _, f := range tree.Children(originFolder) {
		add(folderItem(f))
	}
	for _, f := range tree.All() {
		if f.Path != originFolder {
			add(folderItem(f))
		}
	}
	for _, c := range idx.DocumentsIn(originFolder) {
		add(documentItem(c, idx))
	}
	if originFolder != "" {
		for _, c := range idx.DocumentsIn("") {
			add(documentItem(c, idx))
		}
	}
	return items
}

func under(query, originFolder string, idx *index.Index) []Item {
	ref := wikilink.Parse(query)
	tree := idx.Folders()

	var folders []*index.Folder
	if root, _ := tree.Get(""); root != nil {
		folders = append(folders, root)
	}
	folders = append(folders, tree.All()...)

	// Every query here contains a '/', so the scope is always set; "/" alone
	// addresses the top level.
	inScope, _ := resolver.FolderScope(ref, originFolder)

	var items []Item
	seen := make(map[string]struct{})
	add := func(item Item) {
		key := item.Kind.String() + ":" + item.Insert
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		items = append(items, item)
	}

	var matched []*index.Folder
	for _, f := range folders {
		if inScope(f.Path) {
			matched = append(matched, f)
		}
	}
	for _, f := range matched {
		for _, child := range tree.Children(f.Path) {
			add(folderItem(child))
		}
	}
	for _, f := range matched {
		for _, c := range idx.DocumentsIn(f.Path) {
			add(documentItem(c, idx))
		}
	}
	return items
}

type scored struct {
	item Item
	rank int
	seq  int
}

const (
	rankPrefix = iota
	rankSubstring
	rankShorthand
)

func search(query, originFolder string, idx *index.Index) []Item {
	ref := wikilink.Parse(query)
	leaf := ref.Leaf()
	if leaf == "" {
		leaf = strings.TrimSpace(ref.Target)
	}
	qSlug := slugs.Normalize(leaf)
	qLower := strings.ToLower(strings.TrimSpace(leaf))
	if qSlug == "" && qLower == "" {
		return nil
	}

	inScope, _ := resolver.FolderScope(ref, originFolder)
	kind, hasKind := ref.Kind()

	var found []scored
	seq := 0
	for _, c := range idx.Documents() {
		seq++
		if !inScope(c.Folder) || (hasKind && c.Kind != kind) {
			continue
		}
		rank, ok := matchRank(qSlug, qLower, c.Title, c.TitleSlug, c.BaseSlug)
		if !ok {
			continue
		}
		found = append(found, scored{item: documentItem(c, idx), rank: rank, seq: seq})
	}

	if !hasKind {
		for _, f := range idx.Folders().All() {
			seq++
			if !inScope(f.Parent) {
				continue
			}
			rank, ok := matchRank(qSlug, qLower, f.Name, slugs.Normalize(f.Name))
			if !ok {
				continue
			}
			found = append(found, scored{item: folderItem(f), rank: rank, seq: seq})
		}
	}

	sort.SliceStable(found, func(a, b int) bool {
		if found[a].rank != found[b].rank {
			return found[a].rank < found[b].rank
		}
		if la, lb := len(found[a].item.Display), len(found[b].item.Display); la != lb {
			return la < lb
		}
		return found[a].seq < found[b].seq
	})

	items := make([]Item, len(found))
	for i, s := range found {
		items[i] = s.item
	}
	return items
}

// matchRank reports how well the query matches a display name and its slugs.
func matchRank(qSlug, qLower, display string, candidateSlugs ...string) (int, bool) {
	displayLower := strings.ToLower(display)
	best, ok := 0, false
	consider := func(rank int) {
		if !ok || rank < best {
			best, ok = rank, true
		}
	}

	if qLower != "" {
		if strings.HasPrefix(displayLower, qLower) {
			consider(rankPrefix)
		} else if strings.Contains(displayLower, qLower) {
			consider(rankSubstring)
		}
	}
	if qSlug == "" {
		return best, ok
	}
	for _, s := range candidateSlugs {
		switch {
		case s == "":
		case strings.HasPrefix(s, qSlug):
			consider(rankPrefix)
		case strings.Contains(s, qSlug):
			consider(rankSubstring)
		case shorthandMatch(s, qSlug):
			consider(rankShorthand)
		}
	}
	return best, ok
}

// shorthandMatch allows segment-wise shorthand for hyphenated slugs:
// "proj-o" matches "project-one".
func shorthandMatch(candidate, query string) bool {
	if !strings.Contains(query, "-") || !strings.Contains(candidate, "-") {
		return false
	}
	queryParts := strings.Split(query, "-")
	candidateParts := strings.Split(candidate, "-")
	if len(candidateParts) < len(queryParts) {
		return false
	}
	for i, part := range queryParts {
		if !strings.HasPrefix(candidateParts[i], part) {
			return false
		}
	}
	return true
}

func folderItem(f *index.Folder) Item {
	return Item{
		Kind:    ItemFolder,
		Display: f.Name + "/",
		Insert:  f.Path + "/",
		Path:    f.Path,
	}
}

// documentItem builds the suggestion for a document. The inserted target is
// the bare name unless other documents share its slug, in which case the
// folder is prepended so the reference resolves unambiguously.
func documentItem(c index.Candidate, idx *index.Index) Item {
	name := c.Title
	if c.Kind != model.KindMarkdown && c.Title == c.Basename {
		name = c.FileName()
	}

	insert := name
	key := c.TitleSlug
	if key == "" {
		key = c.BaseSlug
	}
	if len(idx.Lookup(key)) > 1 && c.Folder != "" {
		insert = c.Folder + "/" + name
	}

	return Item{
		Kind:         ItemDocument,
		Display:      name,
		Insert:       insert,
		Path:         c.Path,
		DocumentID:   c.DocumentID,
		DocumentKind: c.Kind,
	}
}
