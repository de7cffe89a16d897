// Package vault is the filesystem document registry: every file under a root
// directory is a document. A document's ID is its slash-separated relative
// path when first seen and stays with the document across Rename.
package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aidanlsb/weft/internal/model"
	"github.com/aidanlsb/weft/internal/parser"
)

var (
	// ErrNotFound is returned for paths or IDs that name no document.
	ErrNotFound = errors.New("document not found")
	// ErrExists is returned when a rename target is already taken.
	ErrExists = errors.New("document already exists")
	// ErrOutsideVault is returned for paths that escape the vault root.
	ErrOutsideVault = errors.New("path is outside the vault")
)

// Options configures a Vault.
type Options struct {
	// Ignore lists directory names to skip. Nil means DefaultIgnore.
	Ignore []string

	Logger *slog.Logger
}

// Vault is a document registry backed by a directory. Documents are loaded
// into memory by Reload; reads never touch the disk.
type Vault struct {
	root   string
	ignore []string
	logger *slog.Logger

	mu        sync.RWMutex
	docs      []model.Document
	byID      map[string]int
	byPath    map[string]int
	ids       map[string]string // path -> ID, kept across reloads
	listeners []func()
}

// Open loads the vault rooted at root.
func Open(root string, opts Options) (*Vault, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve vault path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("open vault: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open vault: %s is not a directory", abs)
	}

	if opts.Ignore == nil {
		opts.Ignore = DefaultIgnore
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	v := &Vault{root: abs, ignore: opts.Ignore, logger: opts.Logger, byID: map[string]int{}}
	if _, err := v.Reload(); err != nil {
		return nil, err
	}
	return v, nil
}

// Root returns the absolute vault directory.
func (v *Vault) Root() string {
	return v.root
}

// Reload re-walks the vault. Listeners are notified when a document was added,
// removed, moved or retitled. Unreadable files are logged and skipped; the
// returned slice lists them.
func (v *Vault) Reload() ([]WalkResult, error) {
	var docs []model.Document
	var failed []WalkResult

	err := Walk(v.root, v.ignore, func(result WalkResult) error {
		if result.Error != nil {
			v.logger.Warn("vault: skipping file",
				slog.String("path", result.RelativePath),
				slog.String("error", result.Error.Error()))
			failed = append(failed, result)
			return nil
		}
		docs = append(docs, result.Document)
		return nil
	})
	if err != nil {
		return failed, fmt.Errorf("walk vault: %w", err)
	}

	v.mu.Lock()
	v.assignIDs(docs)
	changed := structureChanged(v.docs, docs)
	v.docs = docs
	v.byID = make(map[string]int, len(docs))
	v.byPath = make(map[string]int, len(docs))
	for i, d := range docs {
		v.byID[d.ID] = i
		v.byPath[d.Path] = i
	}
	v.mu.Unlock()

	v.logger.Debug("vault: reloaded", slog.Int("documents", len(docs)), slog.Bool("changed", changed))
	if changed {
		v.notify()
	}
	return failed, nil
}

// assignIDs gives each document the ID recorded for its path, or its path
// for a document not seen before. A path still taken as the ID of a renamed
// document gets a numbered suffix. Must be called with mu held.
func (v *Vault) assignIDs(docs []model.Document) {
	ids := make(map[string]string, len(docs))
	used := make(map[string]bool, len(docs))
	var fresh []int
	for i := range docs {
		if id, ok := v.ids[docs[i].Path]; ok {
			docs[i].ID = id
			ids[docs[i].Path] = id
			used[id] = true
			continue
		}
		fresh = append(fresh, i)
	}
	for _, i := range fresh {
		id := docs[i].Path
		for n := 2; used[id]; n++ {
			id = fmt.Sprintf("%s~%d", docs[i].Path, n)
		}
		docs[i].ID = id
		ids[docs[i].Path] = id
		used[id] = true
	}
	v.ids = ids
}

// structureChanged reports whether the document set differs in anything the
// index depends on: IDs, paths, titles, kinds or order.
func structureChanged(before, after []model.Document) bool {
	if len(before) != len(after) {
		return true
	}
	for i := range before {
		b, a := before[i], after[i]
		if b.ID != a.ID || b.Path != a.Path || b.Title != a.Title || b.Kind != a.Kind {
			return true
		}
	}
	return false
}

// ListDocuments returns every document in path order.
func (v *Vault) ListDocuments() []model.Document {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]model.Document, len(v.docs))
	copy(out, v.docs)
	return out
}

// GetDocument returns the document with the given ID.
func (v *Vault) GetDocument(id string) (model.Document, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	i, ok := v.byID[id]
	if !ok {
		return model.Document{}, false
	}
	return v.docs[i], true
}

// Lookup finds a document by a path given on the command line: absolute, or
// relative to the vault root, with or without the ".md" extension. A document
// ID is accepted too.
func (v *Vault) Lookup(p string) (model.Document, error) {
	rel, err := v.Rel(p)
	if err != nil {
		return model.Document{}, err
	}
	candidates := []string{rel}
	if path.Ext(rel) == "" {
		candidates = append(candidates, rel+".md")
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, c := range candidates {
		if i, ok := v.byPath[c]; ok {
			return v.docs[i], nil
		}
	}
	if i, ok := v.byID[strings.TrimSpace(p)]; ok {
		return v.docs[i], nil
	}
	return model.Document{}, fmt.Errorf("%w: %s", ErrNotFound, p)
}

// Rel converts an absolute or vault-relative path to a clean vault-relative
// path.
func (v *Vault) Rel(p string) (string, error) {
	if filepath.IsAbs(p) {
		rel, err := filepath.Rel(v.root, p)
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrOutsideVault, p)
		}
		p = rel
	}
	rel := model.CleanPath(filepath.ToSlash(p))
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") || strings.HasPrefix(rel, "/") {
		return "", fmt.Errorf("%w: %s", ErrOutsideVault, p)
	}
	return rel, nil
}

// WriteDocumentText replaces the text of a markdown document on disk and in
// memory. Listeners are notified only if the frontmatter title changed.
func (v *Vault) WriteDocumentText(ctx context.Context, id, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	doc, ok := v.GetDocument(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if doc.Kind != model.KindMarkdown {
		return fmt.Errorf("write %s: not a markdown document", id)
	}

	full := filepath.Join(v.root, filepath.FromSlash(doc.Path))
	if err := ValidateWithinVault(v.root, full); err != nil {
		return err
	}
	if err := WriteFileAtomic(full, []byte(text)); err != nil {
		return fmt.Errorf("write %s: %w", id, err)
	}

	title := parser.Title(text)
	v.mu.Lock()
	if i, ok := v.byID[id]; ok {
		v.docs[i].RawText = text
		v.docs[i].Title = title
	}
	v.mu.Unlock()

	v.logger.Debug("vault: wrote document", slog.String("id", id))
	if title != doc.Title {
		v.notify()
	}
	return nil
}

// Rename moves a document to newPath (vault-relative) and reloads the vault.
// Missing parent directories are created. The document keeps its ID.
func (v *Vault) Rename(id, newPath string) (model.Document, error) {
	doc, ok := v.GetDocument(id)
	if !ok {
		return model.Document{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	rel, err := v.Rel(newPath)
	if err != nil {
		return model.Document{}, err
	}

	src := filepath.Join(v.root, filepath.FromSlash(doc.Path))
	dst := filepath.Join(v.root, filepath.FromSlash(rel))
	if _, err := os.Stat(dst); err == nil {
		return model.Document{}, fmt.Errorf("%w: %s", ErrExists, rel)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return model.Document{}, fmt.Errorf("create directory: %w", err)
	}
	if err := ValidateWithinVault(v.root, dst); err != nil {
		return model.Document{}, err
	}
	if err := os.Rename(src, dst); err != nil {
		return model.Document{}, fmt.Errorf("rename %s: %w", id, err)
	}

	v.mu.Lock()
	delete(v.ids, doc.Path)
	v.ids[rel] = doc.ID
	v.mu.Unlock()

	v.logger.Info("vault: renamed document", slog.String("from", doc.Path), slog.String("to", rel))
	if _, err := v.Reload(); err != nil {
		return model.Document{}, err
	}
	moved, ok := v.GetDocument(doc.ID)
	if !ok {
		return model.Document{}, fmt.Errorf("%w: %s", ErrNotFound, rel)
	}
	return moved, nil
}

// OnChange registers fn to be called after structural changes.
func (v *Vault) OnChange(fn func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.listeners = append(v.listeners, fn)
}

func (v *Vault) notify() {
	v.mu.RLock()
	listeners := make([]func(), len(v.listeners))
	copy(listeners, v.listeners)
	v.mu.RUnlock()
	for _, fn := range listeners {
		fn()
	}
}
