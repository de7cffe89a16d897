package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/aidanlsb/weft/internal/model"
)

// Registry is the document store the engine reads from and writes rewritten
// text back to.
type Registry interface {
	ListDocuments() []model.Document
	GetDocument(id string) (model.Document, bool)
	WriteDocumentText(ctx context.Context, id, text string) error
}

// Notifier is implemented by registries that report additions, removals,
// renames and moves. The engine marks its index stale on every call.
type Notifier interface {
	OnChange(fn func())
}

// MemoryRegistry is an in-memory Registry. It is safe for concurrent use.
type MemoryRegistry struct {
	mu        sync.RWMutex
	docs      []model.Document
	listeners []func()
}

// NewMemoryRegistry creates a registry holding docs in the given order.
func NewMemoryRegistry(docs ...model.Document) *MemoryRegistry {
	return &MemoryRegistry{docs: append([]model.Document(nil), docs...)}
}

// ListDocuments returns a copy of every document in insertion order.
func (r *MemoryRegistry) ListDocuments() []model.Document {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Document, len(r.docs))
	copy(out, r.docs)
	return out
}

// GetDocument returns the document with the given ID.
func (r *MemoryRegistry) GetDocument(id string) (model.Document, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.find(id); i >= 0 {
		return r.docs[i], true
	}
	return model.Document{}, false
}

// WriteDocumentText replaces a document's text. Text changes do not fire
// change notifications.
func (r *MemoryRegistry) WriteDocumentText(ctx context.Context, id, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.find(id)
	if i < 0 {
		return fmt.Errorf("document not found: %s", id)
	}
	r.docs[i].RawText = text
	return nil
}

// Add inserts or replaces a document and notifies listeners.
func (r *MemoryRegistry) Add(doc model.Document) {
	r.mu.Lock()
	if i := r.find(doc.ID); i >= 0 {
		r.docs[i] = doc
	} else {
		r.docs = append(r.docs, doc)
	}
	r.mu.Unlock()
	r.notify()
}

// Remove deletes a document and notifies listeners.
func (r *MemoryRegistry) Remove(id string) bool {
	r.mu.Lock()
	i := r.find(id)
	if i >= 0 {
		r.docs = append(r.docs[:i], r.docs[i+1:]...)
	}
	r.mu.Unlock()
	if i >= 0 {
		r.notify()
	}
	return i >= 0
}

// Move changes a document's path and title and notifies listeners.
func (r *MemoryRegistry) Move(id, newPath, newTitle string) bool {
	r.mu.Lock()
	i := r.find(id)
	if i >= 0 {
		r.docs[i].Path = newPath
		r.docs[i].Title = newTitle
	}
	r.mu.Unlock()
	if i >= 0 {
		r.notify()
	}
	return i >= 0
}

// OnChange registers fn to be called after every structural change.
func (r *MemoryRegistry) OnChange(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

func (r *MemoryRegistry) notify() {
	r.mu.RLock()
	listeners := make([]func(), len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.RUnlock()
	for _, fn := range listeners {
		fn()
	}
}

func (r *MemoryRegistry) find(id string) int {
	for i, d := range r.docs {
		if d.ID == id {
			return i
		}
	}
	return -1
}

// Rename moves a document to newPath, keeping its ID and title.
func (r *MemoryRegistry) Rename(id, newPath string) (model.Document, error) {
	r.mu.Lock()
	i := r.find(id)
	if i < 0 {
		r.mu.Unlock()
		return model.Document{}, fmt.Errorf("document not found: %s", id)
	}
	for _, d := range r.docs {
		if d.Path == newPath {
			r.mu.Unlock()
			return model.Document{}, fmt.Errorf("document already exists: %s", newPath)
		}
	}
	r.docs[i].Path = newPath
	r.docs[i].Kind = model.KindForPath(newPath)
	doc := r.docs[i]
	r.mu.Unlock()
	r.notify()
	return doc, nil
}
