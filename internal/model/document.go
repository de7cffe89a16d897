// Package model defines the records shared between the registry and the engine.
package model

import (
	"path"
	"strings"
)

// Document is a single entry in the document registry.
type Document struct {
	// ID is an opaque identifier, unique for the registry's lifetime.
	ID string `json:"id"`

	// Title is the display name. Empty means "derive from the filename".
	Title string `json:"title,omitempty"`

	// Path is the workspace-relative, slash-separated location (e.g. "people/Freya.md").
	Path string `json:"path"`

	// Kind classifies the document.
	Kind Kind `json:"kind"`

	// RawText is the body; only meaningful for markdown documents.
	RawText string `json:"-"`
}

// Folder returns the parent directory of the document, normalized with
// NormalizeFolder. Documents at the workspace root have folder "".
func (d Document) Folder() string {
	dir := path.Dir(CleanPath(d.Path))
	return NormalizeFolder(dir)
}

// Basename returns the filename without its extension.
func (d Document) Basename() string {
	base := path.Base(CleanPath(d.Path))
	if base == "." || base == "/" {
		return ""
	}
	if ext := path.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// Extension returns the lowercased file extension including the dot.
func (d Document) Extension() string {
	return strings.ToLower(path.Ext(CleanPath(d.Path)))
}

// DisplayTitle returns Title when set and the basename otherwise.
func (d Document) DisplayTitle() string {
	if t := strings.TrimSpace(d.Title); t != "" {
		return t
	}
	return d.Basename()
}

// CleanPath converts backslashes to slashes and cleans the result.
func CleanPath(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	if p == "" {
		return ""
	}
	return path.Clean(p)
}

// NormalizeFolder returns a folder path without leading "./" or "/" and without
// a trailing slash. The workspace root is "".
func NormalizeFolder(folder string) string {
	folder = CleanPath(strings.TrimSpace(folder))
	folder = strings.Trim(folder, "/")
	if folder == "." {
		return ""
	}
	return folder
}
