// Package httpapi exposes the reference engine over HTTP using chi.
package httpapi

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aidanlsb/weft/internal/engine"
	"github.com/aidanlsb/weft/internal/linkdb"
	"github.com/aidanlsb/weft/internal/model"
)

// Options configures the router.
type Options struct {
	Engine *engine.Engine

	// Mover enables POST /rename with new_path. Optional.
	Mover engine.Mover

	// Reload is called by POST /reindex before the index is rebuilt. Optional.
	Reload func() error

	// Links enables GET /backlinks. Optional.
	Links *linkdb.DB

	// SuggestionLimit is used when a request has no limit parameter.
	SuggestionLimit int

	Logger *slog.Logger
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(opts Options) chi.Router {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	h := &Handler{
		eng:    opts.Engine,
		mover:  opts.Mover,
		reload: opts.Reload,
		links:  opts.Links,
		limit:  opts.SuggestionLimit,
		logger: opts.Logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(opts.Logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/resolve", h.Resolve)
	r.Get("/suggest", h.Suggest)
	r.Get("/render", h.Render)
	r.Get("/check", h.Check)
	r.Get("/backlinks", h.Backlinks)
	r.Post("/rename", h.Rename)
	r.Post("/reindex", h.Reindex)

	return r
}

// linkList keeps empty results as [] rather than null.
func linkList(links []model.Link) []model.Link {
	if links == nil {
		return []model.Link{}
	}
	return links
}
