package cli

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/weft/internal/engine"
	"github.com/aidanlsb/weft/internal/rename"
	"github.com/aidanlsb/weft/internal/slugs"
	"github.com/aidanlsb/weft/internal/ui"
)

var (
	renameDryRun       bool
	renameSlugFilename bool
)

// renameJSON is the JSON representation of a move or a propagated rename.
type renameJSON struct {
	DryRun   bool             `json:"dry_run"`
	ID       string           `json:"id,omitempty"`
	OldPath  string           `json:"old_path,omitempty"`
	NewPath  string           `json:"new_path,omitempty"`
	OldSlugs []string         `json:"old_slugs,omitempty"`
	Modified int              `json:"modified"`
	Rewrites []rename.Rewrite `json:"rewrites,omitempty"`
	Failed   []string         `json:"failed,omitempty"`
}

var renameCmd = &cobra.Command{
	Use:   "rename <document> <new-path>",
	Short: "Move or rename a document and update references to it",
	Long: `Moves a document to a new vault-relative path, then rewrites every
reference that named it by its old title or file name.

The document keeps its extension, so "Meeting Minutes" and
"Meeting Minutes.md" mean the same. A new-path ending in "/" moves the
document into that folder. With --slug-filename the new file name is slugified ("Project Plan" becomes
"project-plan.md").

Examples:
  weft rename people/Freya.md people/Freya-Odinsdottir.md
  weft rename Inbox/Idea.md projects/ --dry-run
  weft rename "Meeting Notes.md" "Meeting Minutes" --slug-filename`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace()
		if err != nil {
			return handleError(ErrVaultNotFound, err, "")
		}
		doc, err := ws.lookup(args[0])
		if err != nil {
			return handleError(vaultErrorCode(err), err, "")
		}
		newPath := targetPath(doc.Path, args[1], renameSlugFilename)
		if newPath == doc.Path {
			return handleErrorMsg(ErrInvalidInput, "new path is the same as the current path", "")
		}

		if renameDryRun {
			rewrites, err := ws.engine.PreviewMove(doc.ID, newPath)
			if err != nil {
				return handleError(ErrFileNotFound, err, "")
			}
			return outputRename(renameJSON{
				DryRun:   true,
				ID:       doc.ID,
				OldPath:  doc.Path,
				NewPath:  newPath,
				Modified: len(rewrites),
				Rewrites: rewrites,
			}, nil)
		}

		result, err := ws.engine.MoveDocument(context.Background(), ws.vault, doc.ID, newPath)
		out := renameJSON{
			ID:       result.ID,
			OldPath:  result.OldPath,
			NewPath:  result.NewPath,
			OldSlugs: result.OldSlugs,
			Modified: result.Modified,
		}
		warnings, err := renameWarnings(err)
		if err != nil {
			return handleError(vaultErrorCode(err), err, "")
		}
		out.Failed = failedIDs(warnings)
		warnings = append(warnings, ws.refreshStoredLinks()...)
		return outputRename(out, warnings)
	},
}

var (
	propagateTitle    string
	propagateBasename string
	propagateDryRun   bool
)

var propagateCmd = &cobra.Command{
	Use:   "propagate <old-slug>",
	Short: "Rewrite references after a document was renamed outside weft",
	Long: `Rewrites every reference whose target slug is old-slug so that it names
the renamed document. Use this after renaming a file in an editor.

At least one of --title or --basename is required. The new title is written
into references when given; otherwise the new file name is.

Examples:
  weft propagate meeting-notes --title "Meeting Minutes"
  weft propagate old-report --basename report-2025.pdf --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(propagateTitle) == "" && strings.TrimSpace(propagateBasename) == "" {
			return handleErrorMsg(ErrMissingArgument, "--title or --basename is required", "")
		}
		ws, err := openWorkspace()
		if err != nil {
			return handleError(ErrVaultNotFound, err, "")
		}
		oldSlug := slugs.Normalize(args[0])

		if propagateDryRun {
			rewrites := ws.engine.PreviewRename(oldSlug, propagateTitle, propagateBasename)
			return outputRename(renameJSON{DryRun: true, Modified: len(rewrites), Rewrites: rewrites}, nil)
		}

		count, err := ws.engine.OnDocumentRenamed(context.Background(), oldSlug, propagateTitle, propagateBasename)
		warnings, err := renameWarnings(err)
		if err != nil {
			return handleError(ErrFileWriteError, err, "")
		}
		out := renameJSON{Modified: count, Failed: failedIDs(warnings)}
		warnings = append(warnings, ws.refreshStoredLinks()...)
		return outputRename(out, warnings)
	},
}

// targetPath turns the new-path argument into a vault-relative document path.
// A trailing slash moves the document into that folder under its current
// name. The document keeps its extension.
func targetPath(oldPath, arg string, slugFilename bool) string {
	arg = strings.TrimSpace(arg)
	if arg == "" || strings.HasSuffix(arg, "/") {
		arg += path.Base(oldPath)
	}
	arg = path.Clean(arg)

	dir, base := path.Split(arg)
	oldExt := path.Ext(oldPath)
	stem := base
	if strings.EqualFold(path.Ext(base), oldExt) {
		stem = strings.TrimSuffix(base, path.Ext(base))
	}
	if slugFilename {
		stem = slugs.FileSlug(stem)
	}
	return dir + stem + oldExt
}

// renameWarnings splits partial write failures, which become warnings, from
// errors that stopped the operation.
func renameWarnings(err error) ([]Warning, error) {
	if err == nil {
		return nil, nil
	}
	var renameErr *engine.RenameError
	if !errors.As(err, &renameErr) {
		return nil, err
	}
	warnings := make([]Warning, 0, len(renameErr.Failures))
	for _, f := range renameErr.Failures {
		warnings = append(warnings, Warning{
			Code:    WarnWriteFailed,
			Message: fmt.Sprintf("%s: %v", f.DocumentID, f.Err),
			Ref:     f.DocumentID,
		})
	}
	return warnings, nil
}

func failedIDs(warnings []Warning) []string {
	var ids []string
	for _, w := range warnings {
		if w.Code == WarnWriteFailed {
			ids = append(ids, w.Ref)
		}
	}
	return ids
}

func outputRename(out renameJSON, warnings []Warning) error {
	if isJSONOutput() {
		outputSuccessWithWarnings(out, warnings, &Meta{Count: out.Modified})
		return nil
	}

	if out.DryRun {
		if len(out.Rewrites) == 0 {
			fmt.Println("No references would change")
			return nil
		}
		fmt.Println(ui.Header(fmt.Sprintf("Would update %d documents:", len(out.Rewrites))))
		for _, rw := range out.Rewrites {
			fmt.Printf("\n%s\n", ui.DocID(rw.DocumentID))
			for _, edit := range rw.Edits {
				fmt.Printf("  %s  %s %s %s\n", ui.LineNum(edit.Line, 4), edit.Before, ui.SymbolArrow, edit.After)
			}
		}
		return nil
	}

	if out.NewPath != "" {
		fmt.Println(ui.Checkf("Moved %s %s %s", ui.DocID(out.OldPath), ui.SymbolArrow, ui.DocID(out.NewPath)))
	}
	fmt.Println(ui.Checkf("Updated references in %d documents", out.Modified))
	for _, w := range warnings {
		fmt.Println(ui.Warning(w.Message))
	}
	if len(out.Failed) > 0 {
		return fmt.Errorf("%d documents could not be updated", len(out.Failed))
	}
	return nil
}

func init() {
	renameCmd.Flags().BoolVar(&renameDryRun, "dry-run", false, "Show the reference updates without writing")
	renameCmd.Flags().BoolVar(&renameSlugFilename, "slug-filename", false, "Slugify the new file name")
	rootCmd.AddCommand(renameCmd)

	propagateCmd.Flags().StringVar(&propagateTitle, "title", "", "New title of the renamed document")
	propagateCmd.Flags().StringVar(&propagateBasename, "basename", "", "New file name of the renamed document")
	propagateCmd.Flags().BoolVar(&propagateDryRun, "dry-run", false, "Show the reference updates without writing")
	rootCmd.AddCommand(propagateCmd)
}
