// Package engine owns the reference index for one workspace and exposes the
// reference operations: resolution, suggestion, rendering and rename
// propagation.
//
// The index is rebuilt wholesale and published atomically; readers always see
// a complete index. Registry change notifications mark the index stale and the
// next operation rebuilds it before running.
package engine

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aidanlsb/weft/internal/index"
	"github.com/aidanlsb/weft/internal/model"
	"github.com/aidanlsb/weft/internal/render"
	"github.com/aidanlsb/weft/internal/rename"
	"github.com/aidanlsb/weft/internal/resolver"
	"github.com/aidanlsb/weft/internal/suggest"
	"github.com/aidanlsb/weft/internal/wikilink"
)

// DefaultWriteConcurrency bounds concurrent registry writes during rename.
const DefaultWriteConcurrency = 8

// Options configures an Engine.
type Options struct {
	Logger *slog.Logger

	// MaxEmbedDepth caps nested embeds. Zero means render.DefaultMaxDepth.
	MaxEmbedDepth int

	// WriteConcurrency bounds concurrent writes. Zero means DefaultWriteConcurrency.
	WriteConcurrency int
}

// Engine is the reference engine for one workspace.
type Engine struct {
	reg    Registry
	logger *slog.Logger
	opts   Options

	idx atomic.Pointer[index.Index]

	// changes counts change notifications; built is the count the published
	// index reflects. The index is stale while built < changes.
	changes atomic.Uint64
	built   atomic.Uint64

	// rebuildMu serializes rebuilds; renameMu serializes propagation.
	rebuildMu sync.Mutex
	renameMu  sync.Mutex
}

// New creates an engine over reg. The index starts empty and is built on first
// use. If reg implements Notifier, its change notifications mark the index stale.
func New(reg Registry, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.MaxEmbedDepth <= 0 {
		opts.MaxEmbedDepth = render.DefaultMaxDepth
	}
	if opts.WriteConcurrency <= 0 {
		opts.WriteConcurrency = DefaultWriteConcurrency
	}

	e := &Engine{reg: reg, logger: opts.Logger, opts: opts}
	e.idx.Store(index.Empty())
	e.changes.Store(1)

	if n, ok := reg.(Notifier); ok {
		n.OnChange(e.MarkDirty)
	}
	return e
}

// MarkDirty marks the index stale. The next operation rebuilds it.
func (e *Engine) MarkDirty() {
	e.changes.Add(1)
}

// RebuildIndex rebuilds the index from the registry and publishes it.
func (e *Engine) RebuildIndex() index.Stats {
	e.rebuildMu.Lock()
	defer e.rebuildMu.Unlock()
	return e.rebuild()
}

// rebuild must be called with rebuildMu held.
func (e *Engine) rebuild() index.Stats {
	// Read before listing so a change that lands mid-build leaves it stale.
	gen := e.changes.Load()

	start := time.Now()
	idx := index.Build(e.reg.ListDocuments())
	e.idx.Store(idx)
	e.built.Store(gen)

	stats := idx.Stats()
	e.logger.Debug("engine: rebuilt index",
		slog.Int("documents", stats.Documents),
		slog.Int("slugs", stats.Slugs),
		slog.Int("collisions", stats.Collisions),
		slog.Duration("took", time.Since(start)))
	return stats
}

// Index returns the current index, rebuilding it first if any change
// notified before the call is not yet reflected. A caller arriving during a
// rebuild that started before its change waits and rebuilds again.
func (e *Engine) Index() *index.Index {
	if want := e.changes.Load(); e.built.Load() < want {
		e.rebuildMu.Lock()
		if e.built.Load() < want {
			e.rebuild()
		}
		e.rebuildMu.Unlock()
	}
	return e.idx.Load()
}

// ParseRaw parses bracket text as typed by a user. Surrounding "[[" and "]]"
// are accepted and stripped.
func ParseRaw(raw string, embedPrefixCount int) wikilink.Ref {
	inner := raw
	if trimmed := strings.TrimSpace(raw); strings.HasPrefix(trimmed, "[[") && strings.HasSuffix(trimmed, "]]") && len(trimmed) >= 4 {
		inner = trimmed[2 : len(trimmed)-2]
	}
	return wikilink.ParseWithMode(inner, wikilink.ModeForPrefix(embedPrefixCount))
}

// ResolveReference resolves bracket text written in the document originID.
func (e *Engine) ResolveReference(raw string, embedPrefixCount int, originID string) resolver.Result {
	ref := ParseRaw(raw, embedPrefixCount)
	return resolver.ResolveFrom(ref, originID, e.Index())
}

// GetSuggestions returns completions for partial bracket text typed in originID.
func (e *Engine) GetSuggestions(partial, originID string, limit int) []suggest.Item {
	idx := e.Index()
	return suggest.Suggest(partial, e.folderOf(idx, originID), idx, limit)
}

// RenderReference resolves and renders bracket text written in originID.
func (e *Engine) RenderReference(raw string, embedPrefixCount int, originID string) render.Fragment {
	return e.renderer().RenderReference(ParseRaw(raw, embedPrefixCount), originID)
}

// RenderDocument renders a whole document with its references.
func (e *Engine) RenderDocument(id string) render.Fragment {
	return e.renderer().RenderDocument(id)
}

func (e *Engine) renderer() *render.Renderer {
	return render.New(e.Index(), e.reg, render.Options{MaxDepth: e.opts.MaxEmbedDepth})
}

// PreviewRename returns the rewrites OnDocumentRenamed would write.
func (e *Engine) PreviewRename(oldSlug, newTitle, newBasename string) []rename.Rewrite {
	return rename.Propagate(oldSlug, newTitle, newBasename, e.reg.ListDocuments())
}

// OnDocumentRenamed rewrites every reference to oldSlug so it names the
// renamed document, and returns the number of documents written.
//
// Each document is written independently. A failed write does not stop the
// others; failures are reported in a *RenameError and excluded from the count.
func (e *Engine) OnDocumentRenamed(ctx context.Context, oldSlug, newTitle, newBasename string) (int, error) {
	e.renameMu.Lock()
	defer e.renameMu.Unlock()

	rewrites := e.PreviewRename(oldSlug, newTitle, newBasename)
	if len(rewrites) == 0 {
		return 0, nil
	}

	var (
		written  atomic.Int64
		mu       sync.Mutex
		failures []WriteFailure
	)

	var g errgroup.Group
	g.SetLimit(e.opts.WriteConcurrency)
	for _, rw := range rewrites {
		rw := rw
		g.Go(func() error {
			if err := e.reg.WriteDocumentText(ctx, rw.DocumentID, rw.NewText); err != nil {
				e.logger.Warn("engine: rename write failed",
					slog.String("document", rw.DocumentID),
					slog.String("error", err.Error()))
				mu.Lock()
				failures = append(failures, WriteFailure{DocumentID: rw.DocumentID, Err: err})
				mu.Unlock()
				return nil
			}
			written.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	e.MarkDirty()

	count := int(written.Load())
	e.logger.Info("engine: propagated rename",
		slog.String("old_slug", oldSlug),
		slog.String("new_title", newTitle),
		slog.Int("modified", count),
		slog.Int("failed", len(failures)))

	if len(failures) > 0 {
		sortFailures(failures, rewrites)
		return count, &RenameError{Failures: failures}
	}
	return count, nil
}

// sortFailures puts failures in registry order so errors are reproducible.
func sortFailures(failures []WriteFailure, rewrites []rename.Rewrite) {
	order := make(map[string]int, len(rewrites))
	for i, rw := range rewrites {
		order[rw.DocumentID] = i
	}
	sort.SliceStable(failures, func(a, b int) bool {
		return order[failures[a].DocumentID] < order[failures[b].DocumentID]
	})
}

func (e *Engine) folderOf(idx *index.Index, id string) string {
	if c, ok := idx.Document(id); ok {
		return c.Folder
	}
	if doc, ok := e.reg.GetDocument(id); ok {
		return doc.Folder()
	}
	return ""
}

// Links returns every reference occurrence in the workspace with its resolution.
func (e *Engine) Links() []model.Link {
	idx := e.Index()
	var out []model.Link
	for _, doc := range e.reg.ListDocuments() {
		if doc.Kind != model.KindMarkdown {
			continue
		}
		out = append(out, documentLinks(doc, idx)...)
	}
	return out
}
