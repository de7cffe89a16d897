package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/weft/internal/ui"
)

var (
	resolveFrom   string
	resolveMode   modeFlag
	resolveStrict bool
)

// resolveJSON is the JSON representation of a resolution.
type resolveJSON struct {
	Ref        string   `json:"ref"`
	From       string   `json:"from,omitempty"`
	Resolved   bool     `json:"resolved"`
	DocumentID string   `json:"document_id,omitempty"`
	Path       string   `json:"path,omitempty"`
	Kind       string   `json:"kind,omitempty"`
	Title      string   `json:"title,omitempty"`
	Anchor     *string  `json:"anchor,omitempty"`
	Ambiguous  bool     `json:"ambiguous"`
	Matches    []string `json:"matches,omitempty"`
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <reference>",
	Short: "Resolve a reference to a document",
	Long: `Resolves a reference the way it would resolve inside a document.

The reference may be written bare (Meeting Notes) or with brackets
([[Meeting Notes#Agenda]]). Leading "!" characters before the brackets set
the embed mode. --from names the document the reference is written in, which
matters for relative (./, ../) references and folder-scoped suggestions.

Examples:
  weft resolve "Meeting Notes"
  weft resolve "[[people/Freya]]" --from projects/Launch.md
  weft resolve "../Map.pdf#page=2" --from notes/trip/Day1.md --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, prefix := splitEmbedPrefix(args[0])
		prefix = resolveMode.prefix(prefix)
		if strings.TrimSpace(raw) == "" {
			return handleErrorMsg(ErrRefInvalid, "reference is empty", "")
		}

		ws, err := openWorkspace()
		if err != nil {
			return handleError(ErrVaultNotFound, err, "")
		}
		origin, err := ws.originID(resolveFrom)
		if err != nil {
			return handleError(vaultErrorCode(err), err, "--from must name a document in the vault")
		}

		res := ws.engine.ResolveReference(raw, prefix, origin)
		out := resolveJSON{
			Ref:       args[0],
			From:      origin,
			Resolved:  res.Resolved(),
			Anchor:    res.Anchor,
			Ambiguous: res.Ambiguous,
		}
		if res.Resolved() {
			out.DocumentID = res.DocumentID
			out.Path = res.Candidate.Path
			out.Kind = res.Candidate.Kind.String()
			out.Title = res.Candidate.Title
		}
		if res.Ambiguous {
			out.Matches = res.MatchIDs()
		}

		if !res.Resolved() {
			return handleErrorWithDetails(ErrRefNotFound,
				fmt.Sprintf("reference '%s' matches no document", args[0]),
				"Run 'weft suggest' to see what the reference could name",
				out)
		}
		if res.Ambiguous && resolveStrict {
			return handleErrorWithDetails(ErrRefAmbiguous,
				fmt.Sprintf("reference '%s' matches %d documents", args[0], len(out.Matches)),
				"Add a folder prefix to narrow the reference",
				out)
		}

		if isJSONOutput() {
			var warnings []Warning
			if res.Ambiguous {
				warnings = append(warnings, Warning{
					Code:    WarnRefAmbiguous,
					Message: fmt.Sprintf("reference matches %d documents; using the first", len(out.Matches)),
					Ref:     args[0],
				})
			}
			outputSuccessWithWarnings(out, warnings, nil)
			return nil
		}

		line := ui.DocID(out.DocumentID)
		if out.Anchor != nil {
			line += ui.Hint("#" + *out.Anchor)
		}
		fmt.Println(line)
		if res.Ambiguous {
			fmt.Println(ui.Warningf("ambiguous, also matches:"))
			for _, id := range out.Matches[1:] {
				fmt.Printf("  %s\n", ui.DocID(id))
			}
		}
		return nil
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveFrom, "from", "", "Document the reference is written in")
	addModeFlag(resolveCmd.Flags(), &resolveMode)
	resolveCmd.Flags().BoolVar(&resolveStrict, "strict", false, "Fail when the reference is ambiguous")
	rootCmd.AddCommand(resolveCmd)
}
