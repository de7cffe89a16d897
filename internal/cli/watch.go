package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/weft/internal/linkdb"
	"github.com/aidanlsb/weft/internal/ui"
	"github.com/aidanlsb/weft/internal/watcher"
)

var watchNoDB bool

// newVaultWatcher returns a watcher that reloads ws on change and keeps db,
// when given, in step with the vault. report is called after each reload.
func newVaultWatcher(ws *workspace, db *linkdb.DB, report func(paths []string, links int, err error)) (*watcher.Watcher, error) {
	c := getConfig()
	return watcher.New(watcher.Config{
		VaultPath:     ws.vault.Root(),
		Reloader:      ws.vault,
		Ignore:        c.Vault.Ignore,
		DebounceDelay: time.Duration(c.Watch.DebounceMS) * time.Millisecond,
		Logger:        logger,
		OnReload: func(paths []string, err error) {
			if err != nil {
				report(paths, 0, err)
				return
			}
			links := ws.engine.Links()
			if db != nil {
				if err := db.Replace(links); err != nil {
					logger.Warn("cli: storing links failed", slog.String("error", err.Error()))
					report(paths, len(links), err)
					return
				}
			}
			report(paths, len(links), nil)
		},
	})
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the index and link database current while files change",
	Long: `Watches the vault and rebuilds the index and .weft/links.db after each
burst of changes. Runs until interrupted.

With --json each reload prints one JSON envelope per line.

Examples:
  weft watch
  weft watch --no-db --verbose`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace()
		if err != nil {
			return handleError(ErrVaultNotFound, err, "")
		}

		var db *linkdb.DB
		if !watchNoDB {
			db, err = linkdb.Open(ws.vault.Root())
			if err != nil {
				return handleError(ErrDatabaseError, err, "")
			}
			defer db.Close()
			if err := db.Replace(ws.engine.Links()); err != nil {
				return handleError(ErrDatabaseError, err, "")
			}
		}

		w, err := newVaultWatcher(ws, db, printReload)
		if err != nil {
			return handleError(ErrInternal, err, "")
		}

		ctx, stop := signalContext()
		defer stop()

		if !isJSONOutput() {
			fmt.Println(ui.Checkf("Watching %s %s", ws.vault.Root(), ui.Hint("(Ctrl+C to stop)")))
		}
		if err := w.Start(ctx); err != nil && ctx.Err() == nil {
			return handleError(ErrInternal, err, "")
		}
		return nil
	},
}

func printReload(paths []string, links int, err error) {
	if isJSONOutput() {
		if err != nil {
			outputError(ErrInternal, err.Error(), map[string]interface{}{"paths": paths}, "")
			return
		}
		outputSuccess(map[string]interface{}{"paths": paths, "links": links}, &Meta{Count: len(paths)})
		return
	}
	if err != nil {
		fmt.Println(ui.Errorf("Reload failed: %v", err))
		return
	}
	fmt.Println(ui.Checkf("Reindexed after %d changes %s", len(paths), ui.Hint(fmt.Sprintf("(%d references)", links))))
}

func init() {
	watchCmd.Flags().BoolVar(&watchNoDB, "no-db", false, "Do not write .weft/links.db")
	rootCmd.AddCommand(watchCmd)
}
