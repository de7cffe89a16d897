package lsp

import (
	"sort"
	"sync"
)

// DocumentManager tracks open documents and their content.
type DocumentManager struct {
	mu        sync.RWMutex
	documents map[string]*Document
}

// Document represents an open document in the editor.
type Document struct {
	URI     string
	Content string
	Version int

	// ID is the vault document ID, empty for files outside the vault.
	ID string
}

// NewDocumentManager creates a new document manager.
func NewDocumentManager() *DocumentManager {
	return &DocumentManager{
		documents: make(map[string]*Document),
	}
}

// Open registers a newly opened document.
func (dm *DocumentManager) Open(uri, id, content string, version int) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	dm.documents[uri] = &Document{
		URI:     uri,
		ID:      id,
		Content: content,
		Version: version,
	}
}

// Update replaces the content of an open document. Only full document sync
// is supported.
func (dm *DocumentManager) Update(uri, content string, version int) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if doc, ok := dm.documents[uri]; ok {
		doc.Content = content
		doc.Version = version
	}
}

// Close removes a document from tracking.
func (dm *DocumentManager) Close(uri string) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	delete(dm.documents, uri)
}

// Get returns a snapshot of a document, or nil if it is not open.
func (dm *DocumentManager) Get(uri string) *Document {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	doc, ok := dm.documents[uri]
	if !ok {
		return nil
	}
	snapshot := *doc
	return &snapshot
}

// All returns snapshots of all open documents ordered by URI.
func (dm *DocumentManager) All() []*Document {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	docs := make([]*Document, 0, len(dm.documents))
	for _, doc := range dm.documents {
		snapshot := *doc
		docs = append(docs, &snapshot)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].URI < docs[j].URI })
	return docs
}
