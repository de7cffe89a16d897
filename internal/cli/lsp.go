package cli

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aidanlsb/weft/internal/lsp"
)

var lspWatch bool

var lspCmd = &cobra.Command{
	Use:   "lsp",
	Short: "Start the Language Server Protocol server",
	Long: `Start a Language Server Protocol (LSP) server for the vault.

This enables editor features for wiki references:
- Completion inside [[
- Go-to-definition, including #Heading anchors
- Hover previews of the referenced content
- Diagnostics for unresolved, ambiguous and broken-anchor references

The server communicates over stdin/stdout using JSON-RPC. Logs go to stderr.

Examples:
  weft lsp
  weft lsp --verbose --watch
  weft lsp --vault-path /path/to/vault`,
	Args: cobra.NoArgs,
	RunE: runLSP,
}

func init() {
	lspCmd.Flags().BoolVar(&lspWatch, "watch", false, "Also reload the vault when files change outside the editor")
	rootCmd.AddCommand(lspCmd)
}

func runLSP(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}

	server := lsp.NewServer(ws.vault, ws.engine, os.Stdin, os.Stdout, lsp.Options{
		Logger:          logger,
		SuggestionLimit: getConfig().Engine.SuggestionLimit,
	})

	ctx, stop := signalContext()
	defer stop()

	if !lspWatch {
		return ignoreCanceled(server.Run(ctx))
	}

	w, err := newVaultWatcher(ws, nil, func([]string, int, error) {})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	runCtx, cancel := context.WithCancel(gctx)
	defer cancel()
	g.Go(func() error {
		return w.Start(runCtx)
	})
	g.Go(func() error {
		defer cancel()
		return server.Run(runCtx)
	})
	return ignoreCanceled(g.Wait())
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
