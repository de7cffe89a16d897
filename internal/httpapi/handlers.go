package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/aidanlsb/weft/internal/engine"
	"github.com/aidanlsb/weft/internal/index"
	"github.com/aidanlsb/weft/internal/linkdb"
	"github.com/aidanlsb/weft/internal/model"
	"github.com/aidanlsb/weft/internal/render"
	"github.com/aidanlsb/weft/internal/rename"
	"github.com/aidanlsb/weft/internal/resolver"
	"github.com/aidanlsb/weft/internal/suggest"
)

// Handler holds API route handlers.
type Handler struct {
	eng    *engine.Engine
	mover  engine.Mover
	reload func() error
	links  *linkdb.DB
	limit  int
	logger *slog.Logger
}

type resolveResponse struct {
	Ref      string          `json:"ref"`
	From     string          `json:"from,omitempty"`
	Resolved bool            `json:"resolved"`
	Result   resolver.Result `json:"result"`
}

// Resolve handles GET /resolve?ref=&prefix=&from=.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ref := q.Get("ref")
	if strings.TrimSpace(ref) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("MISSING_ARGUMENT", "ref is required"))
		return
	}
	prefix, ok := intParam(w, q.Get("prefix"), "prefix")
	if !ok {
		return
	}

	res := h.eng.ResolveReference(ref, prefix, q.Get("from"))
	writeJSON(w, http.StatusOK, resolveResponse{
		Ref:      ref,
		From:     q.Get("from"),
		Resolved: res.Resolved(),
		Result:   res,
	})
}

// Suggest handles GET /suggest?q=&from=&limit=.
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := h.limit
	if raw := q.Get("limit"); raw != "" {
		n, ok := intParam(w, raw, "limit")
		if !ok {
			return
		}
		limit = n
	}

	items := h.eng.GetSuggestions(q.Get("q"), q.Get("from"), limit)
	if items == nil {
		items = []suggest.Item{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// Render handles GET /render. Either doc=<id> renders a whole document, or
// ref=&prefix=&from= renders one reference. format is html (default), json
// or markdown.
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var frag render.Fragment
	switch {
	case q.Get("doc") != "":
		frag = h.eng.RenderDocument(q.Get("doc"))
		if frag.Kind == render.KindUnresolved {
			writeJSON(w, http.StatusNotFound, errorBody("DOCUMENT_NOT_FOUND", "document not found: "+q.Get("doc")))
			return
		}
	case q.Get("ref") != "":
		prefix, ok := intParam(w, q.Get("prefix"), "prefix")
		if !ok {
			return
		}
		frag = h.eng.RenderReference(q.Get("ref"), prefix, q.Get("from"))
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("MISSING_ARGUMENT", "doc or ref is required"))
		return
	}

	switch q.Get("format") {
	case "", "html":
		out, err := render.HTML(frag, render.HTMLOptions{})
		if err != nil {
			h.logger.Error("httpapi: render failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("INTERNAL_ERROR", "render failed"))
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(out))
	case "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(render.Markdown(frag)))
	case "json":
		writeJSON(w, http.StatusOK, frag)
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("INVALID_INPUT", "format must be html, markdown or json"))
	}
}

// Check handles GET /check.
func (h *Handler) Check(w http.ResponseWriter, _ *http.Request) {
	report := h.eng.Check()
	report.Unresolved = linkList(report.Unresolved)
	report.Ambiguous = linkList(report.Ambiguous)
	report.BrokenAnchors = linkList(report.BrokenAnchors)
	if report.Collisions == nil {
		report.Collisions = []index.Collision{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     report.OK(),
		"report": report,
	})
}

// Backlinks handles GET /backlinks?id=. Stored edges are used when a link
// database is configured; otherwise edges are computed from the live index.
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("MISSING_ARGUMENT", "id is required"))
		return
	}

	var links []model.Link
	if h.links != nil {
		stored, err := h.links.Backlinks(id)
		if err != nil {
			h.logger.Error("httpapi: backlinks query failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("DATABASE_ERROR", "backlinks query failed"))
			return
		}
		links = stored
	} else {
		for _, l := range h.eng.Links() {
			if l.TargetID == id {
				links = append(links, l)
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "items": linkList(links)})
}

type renameRequest struct {
	// DocumentID and NewPath move a document and propagate its new name.
	DocumentID string `json:"document_id"`
	NewPath    string `json:"new_path"`

	// OldSlug, NewTitle and NewBasename propagate a rename that already
	// happened outside weft.
	OldSlug     string `json:"old_slug"`
	NewTitle    string `json:"new_title"`
	NewBasename string `json:"new_basename"`

	DryRun bool `json:"dry_run"`
}

type renameResponse struct {
	DryRun   bool               `json:"dry_run"`
	Modified int                `json:"modified"`
	Move     *engine.MoveResult `json:"move,omitempty"`
	Rewrites []rename.Rewrite   `json:"rewrites,omitempty"`
	Failed   []string           `json:"failed,omitempty"`
}

// Rename handles POST /rename.
func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("INVALID_INPUT", "invalid request body"))
		return
	}

	switch {
	case req.DocumentID != "" && req.NewPath != "":
		h.move(w, r, req)
	case req.OldSlug != "" && (req.NewTitle != "" || req.NewBasename != ""):
		h.propagate(w, r, req)
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("MISSING_ARGUMENT",
			"document_id and new_path, or old_slug and new_title/new_basename, are required"))
	}
}

func (h *Handler) move(w http.ResponseWriter, r *http.Request, req renameRequest) {
	if req.DryRun {
		rewrites, err := h.eng.PreviewMove(req.DocumentID, req.NewPath)
		if err != nil {
			writeJSON(w, http.StatusNotFound, errorBody("DOCUMENT_NOT_FOUND", err.Error()))
			return
		}
		writeJSON(w, http.StatusOK, renameResponse{DryRun: true, Modified: len(rewrites), Rewrites: rewrites})
		return
	}
	if h.mover == nil {
		writeJSON(w, http.StatusNotImplemented, errorBody("NOT_SUPPORTED", "moving documents is not enabled"))
		return
	}

	result, err := h.eng.MoveDocument(r.Context(), h.mover, req.DocumentID, req.NewPath)
	resp := renameResponse{Modified: result.Modified, Move: &result}
	if err != nil {
		var renameErr *engine.RenameError
		if !errors.As(err, &renameErr) {
			writeJSON(w, http.StatusConflict, errorBody("RENAME_FAILED", err.Error()))
			return
		}
		resp.Failed = renameErr.FailedIDs()
		writeJSON(w, http.StatusMultiStatus, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) propagate(w http.ResponseWriter, r *http.Request, req renameRequest) {
	if req.DryRun {
		rewrites := h.eng.PreviewRename(req.OldSlug, req.NewTitle, req.NewBasename)
		writeJSON(w, http.StatusOK, renameResponse{DryRun: true, Modified: len(rewrites), Rewrites: rewrites})
		return
	}

	count, err := h.eng.OnDocumentRenamed(r.Context(), req.OldSlug, req.NewTitle, req.NewBasename)
	resp := renameResponse{Modified: count}
	if err != nil {
		var renameErr *engine.RenameError
		if errors.As(err, &renameErr) {
			resp.Failed = renameErr.FailedIDs()
		}
		writeJSON(w, http.StatusMultiStatus, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Reindex handles POST /reindex: reload the registry, rebuild the index and
// refresh the stored link edges.
func (h *Handler) Reindex(w http.ResponseWriter, _ *http.Request) {
	if h.reload != nil {
		if err := h.reload(); err != nil {
			h.logger.Error("httpapi: reload failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("RELOAD_FAILED", "reload failed"))
			return
		}
	}

	stats := h.eng.RebuildIndex()
	links := 0
	if h.links != nil {
		edges := h.eng.Links()
		if err := h.links.Replace(edges); err != nil {
			h.logger.Error("httpapi: storing links failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("DATABASE_ERROR", "storing links failed"))
			return
		}
		links = len(edges)
	}
	writeJSON(w, http.StatusOK, map[string]any{"stats": stats, "links": links})
}

// intParam parses an optional integer query parameter. Empty means zero.
func intParam(w http.ResponseWriter, raw, name string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("INVALID_INPUT", name+" must be an integer"))
		return 0, false
	}
	return n, true
}
