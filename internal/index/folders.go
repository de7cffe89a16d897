package index

import (
	"strings"

	"github.com/aidanlsb/weft/internal/model"
	"github.com/aidanlsb/weft/internal/slugs"
)

// Folder is a node of the folder tree, keyed by its full path.
// Two folders with the same terminal name stay distinct nodes.
type Folder struct {
	Path   string
	Name   string
	Parent string

	children  []string
	documents []int
}

// Depth returns the number of path segments (root is 0).
func (f *Folder) Depth() int {
	if f.Path == "" {
		return 0
	}
	return strings.Count(f.Path, "/") + 1
}

// FolderTree holds every folder containing an indexed document, plus ancestors.
type FolderTree struct {
	nodes map[string]*Folder
	order []string
}

func newFolderTree() *FolderTree {
	t := &FolderTree{nodes: make(map[string]*Folder)}
	t.nodes[""] = &Folder{}
	return t
}

// add files document position pos under folder, creating missing ancestors.
func (t *FolderTree) add(folder string, pos int) {
	node := t.ensure(folder)
	node.documents = append(node.documents, pos)
}

func (t *FolderTree) ensure(path string) *Folder {
	if node, ok := t.nodes[path]; ok {
		return node
	}

	parent := ""
	name := path
	if slash := strings.LastIndexByte(path, '/'); slash >= 0 {
		parent = path[:slash]
		name = path[slash+1:]
	}
	parentNode := t.ensure(parent)

	node := &Folder{Path: path, Name: name, Parent: parent}
	t.nodes[path] = node
	t.order = append(t.order, path)
	parentNode.children = append(parentNode.children, path)
	return node
}

// Get returns the folder at path ("" is the root).
func (t *FolderTree) Get(path string) (*Folder, bool) {
	node, ok := t.nodes[path]
	return node, ok
}

// All returns every non-root folder in insertion order. Ancestors always
// precede their descendants.
func (t *FolderTree) All() []*Folder {
	out := make([]*Folder, 0, len(t.order))
	for _, p := range t.order {
		out = append(out, t.nodes[p])
	}
	return out
}

// Children returns the direct subfolders of path in insertion order.
func (t *FolderTree) Children(path string) []*Folder {
	node, ok := t.nodes[path]
	if !ok {
		return nil
	}
	out := make([]*Folder, 0, len(node.children))
	for _, p := range node.children {
		out = append(out, t.nodes[p])
	}
	return out
}

// Match returns the folders matched by prefix (see FolderMatches), in insertion order.
func (t *FolderTree) Match(prefix string, exact bool) []*Folder {
	var out []*Folder
	for _, p := range t.order {
		if FolderMatches(p, prefix, exact) {
			out = append(out, t.nodes[p])
		}
	}
	return out
}

// FolderMatches reports whether folder is addressed by prefix.
//
// Segments are compared by slug, so "My Notes/sub" matches "my-notes/sub".
// Unless exact is set, prefix may name only the trailing segments of folder:
// "sub" matches "a/b/sub". An empty prefix matches only the root when exact,
// and everything otherwise.
func FolderMatches(folder, prefix string, exact bool) bool {
	folder = model.NormalizeFolder(folder)
	prefix = model.NormalizeFolder(prefix)

	if prefix == "" {
		return !exact || folder == ""
	}
	if folder == "" {
		return false
	}

	want := strings.Split(prefix, "/")
	have := strings.Split(folder, "/")
	if len(want) > len(have) || (exact && len(want) != len(have)) {
		return false
	}

	have = have[len(have)-len(want):]
	for i := range want {
		if slugs.Normalize(want[i]) != slugs.Normalize(have[i]) {
			return false
		}
	}
	return true
}
