package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aidanlsb/weft/internal/config"
	"github.com/aidanlsb/weft/internal/httpapi"
	"github.com/aidanlsb/weft/internal/linkdb"
)

var (
	serveAddr    string
	serveNoWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the reference engine over HTTP",
	Long: `Starts an HTTP server exposing resolve, suggest, render, rename, check,
backlinks and reindex endpoints for editors and scripts. The vault is watched
for changes unless --no-watch is given.

Examples:
  weft serve
  weft serve --addr 127.0.0.1:9000 --verbose`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := getConfig()
		addr := c.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}
		if !verbose && c.LogLevel == config.LogLevelWarn {
			// serve logs requests unless log_level says otherwise.
			logger = newLoggerAt(slog.LevelInfo)
		}

		ws, err := openWorkspace()
		if err != nil {
			return handleError(ErrVaultNotFound, err, "")
		}
		db, err := linkdb.Open(ws.vault.Root())
		if err != nil {
			return handleError(ErrDatabaseError, err, "")
		}
		defer db.Close()
		if err := db.Replace(ws.engine.Links()); err != nil {
			logger.Warn("serve: initial link sync failed", slog.String("error", err.Error()))
		}

		router := httpapi.NewRouter(httpapi.Options{
			Engine: ws.engine,
			Mover:  ws.vault,
			Reload: func() error {
				_, err := ws.vault.Reload()
				return err
			},
			Links:           db,
			SuggestionLimit: c.Engine.SuggestionLimit,
			Logger:          logger,
		})
		httpServer := &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signalContext()
		defer stop()
		g, gCtx := errgroup.WithContext(ctx)

		if !serveNoWatch {
			w, err := newVaultWatcher(ws, db, func(paths []string, links int, err error) {
				if err != nil {
					logger.Error("serve: reload failed", slog.String("error", err.Error()))
				}
			})
			if err != nil {
				return handleError(ErrInternal, err, "")
			}
			g.Go(func() error {
				if err := w.Start(gCtx); err != nil && gCtx.Err() == nil {
					return fmt.Errorf("watcher: %w", err)
				}
				return nil
			})
		}

		g.Go(func() error {
			logger.Info("serve: listening", slog.String("address", addr), slog.String("vault", ws.vault.Root()))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("HTTP server error: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-gCtx.Done()
			logger.Info("serve: shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("serve: shutdown error", slog.String("error", err.Error()))
			}
			return nil
		})

		if err := g.Wait(); err != nil {
			return handleError(ErrInternal, err, "")
		}
		logger.Info("serve: stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, \":7878\")")
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "Do not watch the vault for changes")
	rootCmd.AddCommand(serveCmd)
}
