package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/weft/internal/linkdb"
	"github.com/aidanlsb/weft/internal/ui"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild the reference index and the link database",
	Long: `Walks the vault, rebuilds the slug index and stores every reference
edge in .weft/links.db for backlink queries.

Examples:
  weft index
  weft index --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()

		spinner := ui.NewSpinner("Indexing vault...")
		if !isJSONOutput() {
			spinner.Start()
		}
		ws, err := openWorkspace()
		if err != nil {
			spinner.Stop()
			return handleError(ErrVaultNotFound, err, "")
		}
		idxStats := ws.engine.RebuildIndex()

		db, err := linkdb.Open(ws.vault.Root())
		if err != nil {
			spinner.Stop()
			return handleError(ErrDatabaseError, err, "")
		}
		defer db.Close()

		if err := db.Replace(ws.engine.Links()); err != nil {
			spinner.Stop()
			return handleError(ErrDatabaseError, err, "Another weft process may be indexing; try again")
		}
		linkStats, err := db.Stats()
		spinner.Stop()
		if err != nil {
			return handleError(ErrDatabaseError, err, "")
		}

		elapsed := time.Since(start).Milliseconds()

		if isJSONOutput() {
			outputSuccess(map[string]interface{}{
				"index": idxStats,
				"links": linkStats,
			}, &Meta{Count: idxStats.Documents, QueryTimeMs: elapsed})
			return nil
		}

		fmt.Println(ui.Checkf("Indexed %d documents and %d references %s",
			idxStats.Documents, linkStats.Links, ui.Hint(fmt.Sprintf("(%dms)", elapsed))))
		if linkStats.Unresolved > 0 {
			fmt.Println(ui.Warningf("%d unresolved references", linkStats.Unresolved))
		}
		if idxStats.Collisions > 0 {
			fmt.Println(ui.Hint(fmt.Sprintf("%d slugs are shared by several documents; run 'weft check' for details", idxStats.Collisions)))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
}
