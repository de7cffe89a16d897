package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/aidanlsb/weft/internal/model"
	"github.com/aidanlsb/weft/internal/parser"
)

// DefaultIgnore lists directory names never walked.
var DefaultIgnore = []string{".git", ".weft", ".trash"}

// WalkResult contains the result of loading one file.
type WalkResult struct {
	Path         string
	RelativePath string
	Document     model.Document
	Error        error
}

// Walk visits every file in the vault in lexical order and loads it as a
// document. Directories named in ignore and hidden entries are skipped.
// Markdown files are read and their frontmatter title extracted; other
// files are listed without reading them.
func Walk(vaultPath string, ignore []string, handler func(result WalkResult) error) error {
	skip := make(map[string]bool, len(ignore))
	for _, name := range ignore {
		skip[name] = true
	}

	return filepath.WalkDir(vaultPath, func(path string, d fs.DirEntry, err error) error {
		relativePath, _ := filepath.Rel(vaultPath, path)
		relativePath = filepath.ToSlash(relativePath)

		if err != nil {
			return handler(WalkResult{Path: path, RelativePath: relativePath, Error: err})
		}

		if d.IsDir() {
			if path == vaultPath {
				return nil
			}
			name := d.Name()
			if skip[name] || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") || !d.Type().IsRegular() {
			return nil
		}

		if err := ValidateWithinVault(vaultPath, path); err != nil {
			if errors.Is(err, ErrOutsideVault) {
				return nil
			}
			return handler(WalkResult{Path: path, RelativePath: relativePath, Error: err})
		}

		doc, err := loadDocument(path, relativePath)
		if err != nil {
			return handler(WalkResult{Path: path, RelativePath: relativePath, Error: err})
		}
		return handler(WalkResult{Path: path, RelativePath: relativePath, Document: doc})
	})
}

// loadDocument builds the registry entry for one file. The ID is the
// vault-relative slash path.
func loadDocument(path, relativePath string) (model.Document, error) {
	doc := model.Document{
		ID:   relativePath,
		Path: relativePath,
		Kind: model.KindForPath(relativePath),
	}
	if doc.Kind != model.KindMarkdown {
		return doc, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return model.Document{}, fmt.Errorf("read %s: %w", relativePath, err)
	}
	doc.RawText = string(content)
	doc.Title = parser.Title(doc.RawText)
	return doc, nil
}

// ValidateWithinVault returns ErrOutsideVault if path, after resolving
// symlinks, is not inside vaultPath.
func ValidateWithinVault(vaultPath, path string) error {
	root, err := filepath.EvalSymlinks(vaultPath)
	if err != nil {
		return err
	}
	target, err := filepath.EvalSymlinks(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		// Not created yet: check the lexical path of its closest parent.
		parent, perr := filepath.EvalSymlinks(filepath.Dir(path))
		if perr != nil {
			return perr
		}
		target = filepath.Join(parent, filepath.Base(path))
	}

	rel, err := filepath.Rel(root, target)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrOutsideVault, path)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("%w: %s", ErrOutsideVault, path)
	}
	return nil
}
