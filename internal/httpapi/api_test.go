package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aidanlsb/weft/internal/engine"
	"github.com/aidanlsb/weft/internal/linkdb"
	"github.com/aidanlsb/weft/internal/model"
)

func md(id, text string) model.Document {
	return model.Document{ID: id, Path: id, Kind: model.KindMarkdown, RawText: text}
}

// testEnv builds an engine over an in-memory registry and returns its router.
func testEnv(t *testing.T) (*engine.MemoryRegistry, http.Handler) {
	t.Helper()
	reg := engine.NewMemoryRegistry(
		md("Home.md", "Hello ![[people/Freya]] and [[Missing]]."),
		md("people/Freya.md", "# Freya\nShield maiden.\n"),
		md("Log.md", "[[Freya#Bio]] [[Freya]]"),
		model.Document{ID: "files/Map.pdf", Path: "files/Map.pdf", Kind: model.KindPDF},
	)
	eng := engine.New(reg, engine.Options{})
	router := NewRouter(Options{Engine: eng, Mover: reg, SuggestionLimit: 20})
	return reg, router
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func TestHealthz(t *testing.T) {
	_, router := testEnv(t)
	w := do(t, router, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if decode(t, w)["status"] != "ok" {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestResolveEndpoint(t *testing.T) {
	_, router := testEnv(t)

	w := do(t, router, http.MethodGet, "/resolve?ref=Freya&from=Home.md", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["resolved"] != true {
		t.Errorf("expected resolved, got %s", w.Body.String())
	}
	result := body["result"].(map[string]any)
	if result["document_id"] != "people/Freya.md" {
		t.Errorf("document_id = %v", result["document_id"])
	}

	w = do(t, router, http.MethodGet, "/resolve?ref=Nobody", nil)
	if body := decode(t, w); body["resolved"] != false {
		t.Errorf("expected unresolved, got %s", w.Body.String())
	}

	if w := do(t, router, http.MethodGet, "/resolve", nil); w.Code != http.StatusBadRequest {
		t.Errorf("missing ref status = %d", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/resolve?ref=x&prefix=two", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad prefix status = %d", w.Code)
	}
}

func TestSuggestEndpoint(t *testing.T) {
	_, router := testEnv(t)

	w := do(t, router, http.MethodGet, "/suggest?q=fre", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	items := decode(t, w)["items"].([]any)
	if len(items) == 0 {
		t.Fatal("expected suggestions")
	}
	first := items[0].(map[string]any)
	if first["document_id"] != "people/Freya.md" || first["kind"] != "document" {
		t.Errorf("first item = %v", first)
	}

	w = do(t, router, http.MethodGet, "/suggest?q=zzzz", nil)
	if got := decode(t, w)["items"].([]any); len(got) != 0 {
		t.Errorf("expected empty list, got %v", got)
	}

	w = do(t, router, http.MethodGet, "/suggest?q=&limit=1", nil)
	if got := decode(t, w)["items"].([]any); len(got) != 1 {
		t.Errorf("limit not applied: %v", got)
	}
}

func TestRenderEndpoint(t *testing.T) {
	_, router := testEnv(t)

	w := do(t, router, http.MethodGet, "/render?doc=Home.md", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
	html := w.Body.String()
	for _, want := range []string{"Shield maiden.", "wikilink-embed", "wikilink-unresolved"} {
		if !strings.Contains(html, want) {
			t.Errorf("expected %q in %s", want, html)
		}
	}

	w = do(t, router, http.MethodGet, "/render?ref=Freya&prefix=1&format=json", nil)
	if body := decode(t, w); body["kind"] != "embed" {
		t.Errorf("fragment = %s", w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/render?doc=Log.md&format=markdown", nil)
	if !strings.Contains(w.Body.String(), "**Freya**") {
		t.Errorf("markdown = %q", w.Body.String())
	}

	if w := do(t, router, http.MethodGet, "/render?doc=Nope.md", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing doc status = %d", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/render", nil); w.Code != http.StatusBadRequest {
		t.Errorf("no args status = %d", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/render?doc=Home.md&format=pdf", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad format status = %d", w.Code)
	}
}

func TestCheckEndpoint(t *testing.T) {
	_, router := testEnv(t)

	w := do(t, router, http.MethodGet, "/check", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decode(t, w)
	if body["ok"] != false {
		t.Errorf("expected problems to be reported: %s", w.Body.String())
	}
	report := body["report"].(map[string]any)
	if got := report["unresolved"].([]any); len(got) != 1 {
		t.Errorf("unresolved = %v", got)
	}
	if got := report["broken_anchors"].([]any); len(got) != 1 {
		t.Errorf("broken_anchors = %v", got)
	}
}

func TestBacklinksEndpoint(t *testing.T) {
	_, router := testEnv(t)

	w := do(t, router, http.MethodGet, "/backlinks?id=people/Freya.md", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if items := decode(t, w)["items"].([]any); len(items) != 3 {
		t.Errorf("expected 3 live backlinks, got %d", len(items))
	}

	if w := do(t, router, http.MethodGet, "/backlinks", nil); w.Code != http.StatusBadRequest {
		t.Errorf("missing id status = %d", w.Code)
	}
}

func TestReindexStoresLinks(t *testing.T) {
	reg := engine.NewMemoryRegistry(
		md("A.md", "[[B]]"),
		md("B.md", ""),
	)
	eng := engine.New(reg, engine.Options{})
	db, err := linkdb.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	reloaded := false
	router := NewRouter(Options{Engine: eng, Links: db, Reload: func() error {
		reloaded = true
		return nil
	}})

	w := do(t, router, http.MethodPost, "/reindex", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !reloaded {
		t.Error("reload was not called")
	}
	if links := decode(t, w)["links"]; links != float64(1) {
		t.Errorf("links = %v", links)
	}

	w = do(t, router, http.MethodGet, "/backlinks?id=B.md", nil)
	if items := decode(t, w)["items"].([]any); len(items) != 1 {
		t.Errorf("stored backlinks = %v", items)
	}
}

func TestRenameEndpointMove(t *testing.T) {
	reg, router := testEnv(t)

	w := do(t, router, http.MethodPost, "/rename", map[string]any{
		"document_id": "people/Freya.md",
		"new_path":    "people/Freyja.md",
		"dry_run":     true,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("dry run status = %d, body = %s", w.Code, w.Body.String())
	}
	if body := decode(t, w); body["modified"] != float64(2) || body["dry_run"] != true {
		t.Errorf("dry run = %s", w.Body.String())
	}
	if _, ok := reg.GetDocument("people/Freya.md"); !ok {
		t.Fatal("dry run moved the document")
	}

	w = do(t, router, http.MethodPost, "/rename", map[string]any{
		"document_id": "people/Freya.md",
		"new_path":    "people/Freyja.md",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["modified"] != float64(2) {
		t.Errorf("modified = %v", body["modified"])
	}
	if move, _ := body["move"].(map[string]any); move["id"] != "people/Freya.md" || move["new_path"] != "people/Freyja.md" {
		t.Errorf("move = %v", body["move"])
	}
	if doc, ok := reg.GetDocument("people/Freya.md"); !ok || doc.Path != "people/Freyja.md" {
		t.Errorf("moved document should keep its ID, got %+v", doc)
	}
	log, _ := reg.GetDocument("Log.md")
	if log.RawText != "[[Freyja#Bio]] [[Freyja]]" {
		t.Errorf("Log.md = %q", log.RawText)
	}

	w = do(t, router, http.MethodPost, "/rename", map[string]any{
		"document_id": "Home.md",
		"new_path":    "Log.md",
	})
	if w.Code != http.StatusConflict {
		t.Errorf("collision status = %d", w.Code)
	}
}

func TestRenameEndpointPropagate(t *testing.T) {
	reg, router := testEnv(t)

	w := do(t, router, http.MethodPost, "/rename", map[string]any{
		"old_slug":     "missing",
		"new_title":    "Found",
		"new_basename": "Found.md",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	home, _ := reg.GetDocument("Home.md")
	if !strings.Contains(home.RawText, "[[Found]]") {
		t.Errorf("Home.md = %q", home.RawText)
	}

	if w := do(t, router, http.MethodPost, "/rename", map[string]any{}); w.Code != http.StatusBadRequest {
		t.Errorf("empty request status = %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/rename", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d", rec.Code)
	}
}
