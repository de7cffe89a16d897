// Package watcher reloads a vault when files under it change.
//
// It is used standalone via `weft watch` and embedded in `weft serve`.
package watcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/aidanlsb/weft/internal/vault"
)

// DefaultDebounceDelay is used when Config.DebounceDelay is zero.
const DefaultDebounceDelay = 150 * time.Millisecond

// Reloader re-reads the document registry from disk.
type Reloader interface {
	Reload() ([]vault.WalkResult, error)
}

// Watcher monitors a vault directory and reloads the registry after a burst
// of changes settles.
type Watcher struct {
	vaultPath string
	reloader  Reloader
	ignore    map[string]bool

	debounceDelay time.Duration
	logger        *slog.Logger

	fsWatcher *fsnotify.Watcher
	pending   map[string]time.Time
	mu        sync.Mutex

	onReload func(paths []string, err error)
}

// Config holds configuration options for the Watcher.
type Config struct {
	VaultPath string
	Reloader  Reloader
	// Ignore lists directory names to skip. Nil means vault.DefaultIgnore.
	Ignore        []string
	DebounceDelay time.Duration
	Logger        *slog.Logger
	// OnReload is called after each reload with the changed paths, relative
	// to the vault root.
	OnReload func(paths []string, err error)
}

// New creates a new Watcher with the given configuration.
func New(cfg Config) (*Watcher, error) {
	if cfg.VaultPath == "" {
		return nil, fmt.Errorf("vault path is required")
	}
	if cfg.Reloader == nil {
		return nil, fmt.Errorf("reloader is required")
	}

	debounce := cfg.DebounceDelay
	if debounce <= 0 {
		debounce = DefaultDebounceDelay
	}
	ignore := cfg.Ignore
	if ignore == nil {
		ignore = vault.DefaultIgnore
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	abs, err := filepath.Abs(cfg.VaultPath)
	if err != nil {
		return nil, fmt.Errorf("resolve vault path: %w", err)
	}

	w := &Watcher{
		vaultPath:     abs,
		reloader:      cfg.Reloader,
		ignore:        make(map[string]bool, len(ignore)),
		debounceDelay: debounce,
		logger:        logger,
		pending:       make(map[string]time.Time),
		onReload:      cfg.OnReload,
	}
	for _, name := range ignore {
		w.ignore[name] = true
	}
	return w, nil
}

// Start begins watching the vault for file changes.
// It blocks until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	var err error
	w.fsWatcher, err = fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer w.fsWatcher.Close()

	if err := w.addWatchRecursive(w.vaultPath); err != nil {
		return fmt.Errorf("failed to watch vault: %w", err)
	}

	w.logger.Info("watcher: watching vault",
		slog.String("path", w.vaultPath),
		slog.Duration("debounce", w.debounceDelay))

	go w.processDebounced(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher: error", slog.String("error", err.Error()))
		}
	}
}

// handleEvent processes a single filesystem event.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name
	if w.shouldIgnore(path) {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := w.addWatchRecursive(path); err != nil {
				w.logger.Warn("watcher: failed to watch directory",
					slog.String("path", path),
					slog.String("error", err.Error()))
			}
		}
	}
	if event.Op == fsnotify.Chmod {
		return
	}

	w.logger.Debug("watcher: event", slog.String("op", event.Op.String()), slog.String("path", path))
	w.schedule(path)
}

// schedule records a change. The debounce clock restarts on every event for
// the same path.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[path] = time.Now()
}

// processDebounced flushes pending changes after the debounce delay.
func (w *Watcher) processDebounced(ctx context.Context) {
	tick := w.debounceDelay / 3
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.processPending()
		}
	}
}

// processPending reloads once when every pending change is older than the
// debounce delay. A reload re-walks the whole vault, so one reload covers
// every pending path.
func (w *Watcher) processPending() {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	now := time.Now()
	for _, at := range w.pending {
		if now.Sub(at) < w.debounceDelay {
			w.mu.Unlock()
			return
		}
	}
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, w.rel(path))
	}
	w.pending = make(map[string]time.Time)
	w.mu.Unlock()

	sort.Strings(paths)
	_, err := w.reloader.Reload()
	if err != nil {
		w.logger.Error("watcher: reload failed", slog.String("error", err.Error()))
	} else {
		w.logger.Info("watcher: reloaded", slog.Int("changes", len(paths)))
	}
	if w.onReload != nil {
		w.onReload(paths, err)
	}
}

// addWatchRecursive adds a directory and all subdirectories to the watcher.
func (w *Watcher) addWatchRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // Skip unreadable entries
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.vaultPath && w.shouldIgnoreDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsWatcher.Add(path); err != nil {
			w.logger.Warn("watcher: failed to watch",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
		return nil
	})
}

// shouldIgnore reports whether a changed path is invisible to the vault:
// inside an ignored or hidden directory, a hidden file, or an editor
// temporary file.
func (w *Watcher) shouldIgnore(path string) bool {
	rel, err := filepath.Rel(w.vaultPath, path)
	if err != nil || rel == "." {
		return true
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if parts[0] == ".." {
		return true
	}
	for _, part := range parts[:len(parts)-1] {
		if w.shouldIgnoreDir(part) {
			return true
		}
	}
	base := parts[len(parts)-1]
	return w.ignore[base] || strings.HasPrefix(base, ".") || isTempFile(base)
}

// shouldIgnoreDir reports whether a directory should not be watched.
func (w *Watcher) shouldIgnoreDir(name string) bool {
	return w.ignore[name] || strings.HasPrefix(name, ".")
}

func (w *Watcher) rel(path string) string {
	rel, err := filepath.Rel(w.vaultPath, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

func isTempFile(name string) bool {
	return strings.HasSuffix(name, "~") ||
		strings.HasSuffix(name, ".swp") ||
		strings.HasSuffix(name, ".swx") ||
		strings.HasSuffix(name, ".tmp") ||
		strings.HasPrefix(name, "#")
}
