package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/weft/internal/suggest"
	"github.com/aidanlsb/weft/internal/ui"
)

var (
	suggestFrom  string
	suggestLimit int
)

var suggestCmd = &cobra.Command{
	Use:   "suggest [partial]",
	Short: "List completions for a partial reference",
	Long: `Lists the documents and folders a partial reference could complete to.

With no argument, lists folders reachable from the --from document and the
documents next to it. A partial ending in "/" lists that folder's contents.
Anything else is matched against titles and file names.

Examples:
  weft suggest
  weft suggest proj/ --from daily/2025-02-01.md
  weft suggest "meet" --limit 5 --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		partial := ""
		if len(args) == 1 {
			partial = args[0]
		}
		limit := getConfig().Engine.SuggestionLimit
		if cmd.Flags().Changed("limit") {
			limit = suggestLimit
		}
		start := time.Now()

		ws, err := openWorkspace()
		if err != nil {
			return handleError(ErrVaultNotFound, err, "")
		}
		origin, err := ws.originID(suggestFrom)
		if err != nil {
			return handleError(vaultErrorCode(err), err, "--from must name a document in the vault")
		}

		items := ws.engine.GetSuggestions(partial, origin, limit)
		if items == nil {
			items = []suggest.Item{}
		}
		elapsed := time.Since(start).Milliseconds()

		if isJSONOutput() {
			outputSuccess(map[string]interface{}{
				"query": partial,
				"items": items,
			}, &Meta{Count: len(items), QueryTimeMs: elapsed})
			return nil
		}

		if len(items) == 0 {
			fmt.Printf("No suggestions for '%s'\n", partial)
			return nil
		}
		table := ui.NewTable(2)
		for _, item := range items {
			display := ui.DocID(item.Display)
			if item.Kind == suggest.ItemFolder {
				display = ui.Bold.Render(item.Display)
			}
			table.AddRow(display, ui.Hint(item.Insert))
		}
		fmt.Print(table.String())
		return nil
	},
}

func init() {
	suggestCmd.Flags().StringVar(&suggestFrom, "from", "", "Document the reference is being typed in")
	suggestCmd.Flags().IntVar(&suggestLimit, "limit", 0, "Maximum suggestions (0 for no limit; default from config)")
	rootCmd.AddCommand(suggestCmd)
}
