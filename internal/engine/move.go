package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"

	"github.com/aidanlsb/weft/internal/index"
	"github.com/aidanlsb/weft/internal/model"
	"github.com/aidanlsb/weft/internal/rename"
	"github.com/aidanlsb/weft/internal/slugs"
)

// Mover is implemented by registries that can move a document to a new path.
// The document keeps its ID; the returned document carries the new path.
type Mover interface {
	Rename(id, newPath string) (model.Document, error)
}

// MoveResult describes a completed move.
type MoveResult struct {
	ID      string `json:"id"`
	OldPath string `json:"old_path"`
	NewPath string `json:"new_path"`

	// OldSlugs are the slugs references used to reach the document.
	OldSlugs []string `json:"old_slugs"`

	// Modified is the number of distinct documents whose text was rewritten.
	Modified int `json:"modified"`
}

// MoveDocument moves id to newPath through mv, then rewrites every reference
// that reached the document by its old title or basename so it names the
// document as it is now.
//
// Write failures are returned as a *RenameError alongside a valid result.
func (e *Engine) MoveDocument(ctx context.Context, mv Mover, id, newPath string) (MoveResult, error) {
	before, ok := e.Index().Document(id)
	if !ok {
		return MoveResult{}, fmt.Errorf("document not found: %s", id)
	}

	moved, err := mv.Rename(id, newPath)
	if err != nil {
		return MoveResult{}, err
	}
	e.MarkDirty()

	newBasename := path.Base(moved.Path)
	result := MoveResult{
		ID:       moved.ID,
		OldPath:  before.Path,
		NewPath:  moved.Path,
		OldSlugs: movedSlugs(before, moved.Title, newBasename),
	}

	touched := make(map[string]bool)
	failed := make(map[string]bool)
	var failures []WriteFailure
	for _, oldSlug := range result.OldSlugs {
		for _, rw := range e.PreviewRename(oldSlug, moved.Title, newBasename) {
			touched[rw.DocumentID] = true
		}
		if _, err := e.OnDocumentRenamed(ctx, oldSlug, moved.Title, newBasename); err != nil {
			var renameErr *RenameError
			if !errors.As(err, &renameErr) {
				return result, err
			}
			for _, f := range renameErr.Failures {
				if !failed[f.DocumentID] {
					failed[f.DocumentID] = true
					failures = append(failures, f)
				}
			}
		}
	}
	for id := range touched {
		if !failed[id] {
			result.Modified++
		}
	}

	e.logger.Info("engine: moved document",
		slog.String("id", result.ID),
		slog.String("from", result.OldPath),
		slog.String("to", result.NewPath),
		slog.Int("modified", result.Modified))

	if len(failures) > 0 {
		return result, &RenameError{Failures: failures}
	}
	return result, nil
}

// PreviewMove returns the rewrites MoveDocument would write if id were moved
// to newPath. Nothing is moved or written.
func (e *Engine) PreviewMove(id, newPath string) ([]rename.Rewrite, error) {
	before, ok := e.Index().Document(id)
	if !ok {
		return nil, fmt.Errorf("document not found: %s", id)
	}
	doc, _ := e.reg.GetDocument(id)
	newBasename := path.Base(model.CleanPath(newPath))

	var out []rename.Rewrite
	seen := make(map[string]int)
	for _, oldSlug := range movedSlugs(before, doc.Title, newBasename) {
		docs := e.reg.ListDocuments()
		for i := range docs {
			if j, ok := seen[docs[i].ID]; ok {
				docs[i].RawText = out[j].NewText
			}
		}
		for _, rw := range rename.Propagate(oldSlug, doc.Title, newBasename, docs) {
			if j, ok := seen[rw.DocumentID]; ok {
				out[j].NewText = rw.NewText
				out[j].Edits = append(out[j].Edits, rw.Edits...)
				continue
			}
			seen[rw.DocumentID] = len(out)
			out = append(out, rw)
		}
	}
	return out, nil
}

// movedSlugs lists the slugs that reached the document before the move and
// no longer name it afterwards.
func movedSlugs(before index.Candidate, newTitle, newBasename string) []string {
	newSlug := slugs.Normalize(rename.NewTarget(newTitle, newBasename).Stem)
	var out []string
	for _, s := range []string{before.TitleSlug, before.BaseSlug} {
		if s == "" || s == newSlug || contains(out, s) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
