package lsp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/aidanlsb/weft/internal/engine"
	"github.com/aidanlsb/weft/internal/vault"
)

type session struct {
	t      *testing.T
	root   string
	in     bytes.Buffer
	nextID int
}

func newSession(t *testing.T, files map[string]string) *session {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	s := &session{t: t, root: root}
	s.request("initialize", map[string]interface{}{"rootUri": "file://" + filepath.ToSlash(root)})
	s.notify("initialized", map[string]interface{}{})
	return s
}

func (s *session) uri(rel string) string {
	return "file://" + filepath.ToSlash(filepath.Join(s.root, rel))
}

func (s *session) write(msg map[string]interface{}) {
	msg["jsonrpc"] = "2.0"
	data, err := json.Marshal(msg)
	if err != nil {
		s.t.Fatal(err)
	}
	fmt.Fprintf(&s.in, "Content-Length: %d\r\n\r\n%s", len(data), data)
}

func (s *session) request(method string, params interface{}) int {
	s.nextID++
	s.write(map[string]interface{}{"id": s.nextID, "method": method, "params": params})
	return s.nextID
}

func (s *session) notify(method string, params interface{}) {
	s.write(map[string]interface{}{"method": method, "params": params})
}

func (s *session) open(rel, text string) {
	s.notify("textDocument/didOpen", map[string]interface{}{
		"textDocument": map[string]interface{}{"uri": s.uri(rel), "languageId": "markdown", "version": 1, "text": text},
	})
}

func (s *session) position(rel string, line, character int) map[string]interface{} {
	return map[string]interface{}{
		"textDocument": map[string]interface{}{"uri": s.uri(rel)},
		"position":     map[string]interface{}{"line": line, "character": character},
	}
}

type reply struct {
	ID     *int            `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	Result json.RawMessage `json:"result"`
	Error  *jsonRPCError   `json:"error"`
}

// run sends shutdown and exit, runs the server over the queued input and
// returns every message it wrote.
func (s *session) run() []reply {
	s.t.Helper()
	s.request("shutdown", nil)
	s.notify("exit", nil)

	v, err := vault.Open(s.root, vault.Options{})
	if err != nil {
		s.t.Fatalf("open vault: %v", err)
	}
	var out bytes.Buffer
	srv := NewServer(v, engine.New(v, engine.Options{}), &s.in, &out, Options{SuggestionLimit: 10})
	if err := srv.Run(context.Background()); err != nil {
		s.t.Fatalf("Run: %v", err)
	}
	return readReplies(s.t, &out)
}

func readReplies(t *testing.T, r io.Reader) []reply {
	t.Helper()
	br := bufio.NewReader(r)
	var replies []reply
	for {
		header, err := br.ReadString('\n')
		if err == io.EOF {
			return replies
		}
		if err != nil {
			t.Fatal(err)
		}
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(header, "Content-Length:")))
		if err != nil {
			t.Fatalf("bad header %q", header)
		}
		if _, err := br.ReadString('\n'); err != nil {
			t.Fatal(err)
		}
		body := make([]byte, n)
		if _, err := io.ReadFull(br, body); err != nil {
			t.Fatal(err)
		}
		var rep reply
		if err := json.Unmarshal(body, &rep); err != nil {
			t.Fatalf("decode %s: %v", body, err)
		}
		replies = append(replies, rep)
	}
}

func result(t *testing.T, replies []reply, id int, v interface{}) {
	t.Helper()
	for _, r := range replies {
		if r.ID != nil && *r.ID == id {
			if r.Error != nil {
				t.Fatalf("request %d failed: %+v", id, r.Error)
			}
			if err := json.Unmarshal(r.Result, v); err != nil {
				t.Fatalf("decode result %d: %v", id, err)
			}
			return
		}
	}
	t.Fatalf("no reply for request %d", id)
}

func lastDiagnostics(t *testing.T, replies []reply, uri string) []Diagnostic {
	t.Helper()
	var found []Diagnostic
	seen := false
	for _, r := range replies {
		if r.Method != "textDocument/publishDiagnostics" {
			continue
		}
		var p PublishDiagnosticsParams
		if err := json.Unmarshal(r.Params, &p); err != nil {
			t.Fatal(err)
		}
		if p.URI == uri {
			found, seen = p.Diagnostics, true
		}
	}
	if !seen {
		t.Fatalf("no diagnostics published for %s", uri)
	}
	return found
}

var sampleFiles = map[string]string{
	"Home.md":            "# Home\n\nSee [[Freya]] and [[Nowhere]].\n",
	"people/Freya.md":    "---\ntitle: Freya\n---\n# Freya\n\n## Projects\n\nWorks on [[Launch]].\n",
	"projects/Launch.md": "# Launch\n",
}

func TestInitializeCapabilities(t *testing.T) {
	s := newSession(t, sampleFiles)
	replies := s.run()

	var init InitializeResult
	result(t, replies, 1, &init)
	if !init.Capabilities.DefinitionProvider || !init.Capabilities.HoverProvider {
		t.Errorf("capabilities = %+v", init.Capabilities)
	}
	if init.Capabilities.CompletionProvider == nil {
		t.Fatal("expected completion provider")
	}
}

func TestCompletion(t *testing.T) {
	s := newSession(t, sampleFiles)
	s.open("Home.md", "# Home\n\nAsk [[fre\n")
	id := s.request("textDocument/completion", s.position("Home.md", 2, 9))
	replies := s.run()

	var list CompletionList
	result(t, replies, id, &list)
	if len(list.Items) == 0 {
		t.Fatal("expected completion items")
	}
	first := list.Items[0]
	if first.Label != "Freya" || first.Kind != CompletionKindFile {
		t.Errorf("first item = %+v", first)
	}
	if first.TextEdit == nil || first.TextEdit.NewText != "Freya]]" {
		t.Fatalf("text edit = %+v", first.TextEdit)
	}
	if first.TextEdit.Range.Start.Character != 6 || first.TextEdit.Range.End.Character != 9 {
		t.Errorf("edit range = %+v", first.TextEdit.Range)
	}
}

func TestCompletionOutsideReference(t *testing.T) {
	s := newSession(t, sampleFiles)
	s.open("Home.md", "plain [[Freya]] text\n")
	id := s.request("textDocument/completion", s.position("Home.md", 0, 19))
	replies := s.run()

	var list CompletionList
	result(t, replies, id, &list)
	if len(list.Items) != 0 {
		t.Errorf("expected no items, got %+v", list.Items)
	}
}

func TestDefinition(t *testing.T) {
	s := newSession(t, sampleFiles)
	s.open("Home.md", "See [[Freya#Projects]] now\n")
	id := s.request("textDocument/definition", s.position("Home.md", 0, 8))
	replies := s.run()

	var loc Location
	result(t, replies, id, &loc)
	if !strings.HasSuffix(loc.URI, "/people/Freya.md") {
		t.Errorf("URI = %q", loc.URI)
	}
	// "## Projects" is line 6, after three frontmatter lines.
	if loc.Range.Start.Line != 5 {
		t.Errorf("line = %d, want 5", loc.Range.Start.Line)
	}
}

func TestDefinitionUnresolved(t *testing.T) {
	s := newSession(t, sampleFiles)
	s.open("Home.md", "[[Nowhere]]\n")
	id := s.request("textDocument/definition", s.position("Home.md", 0, 4))
	replies := s.run()

	for _, r := range replies {
		if r.ID != nil && *r.ID == id && string(r.Result) != "null" {
			t.Errorf("expected null result, got %s", r.Result)
		}
	}
}

func TestHover(t *testing.T) {
	s := newSession(t, sampleFiles)
	s.open("Home.md", "[[Launch]] and [[Gone]]\n")
	found := s.request("textDocument/hover", s.position("Home.md", 0, 3))
	missing := s.request("textDocument/hover", s.position("Home.md", 0, 18))
	replies := s.run()

	var hover Hover
	result(t, replies, found, &hover)
	if !strings.Contains(hover.Contents.Value, "projects/Launch.md") || !strings.Contains(hover.Contents.Value, "> # Launch") {
		t.Errorf("hover = %q", hover.Contents.Value)
	}

	result(t, replies, missing, &hover)
	if !strings.Contains(hover.Contents.Value, "Not found") {
		t.Errorf("hover = %q", hover.Contents.Value)
	}
}

func TestDiagnostics(t *testing.T) {
	s := newSession(t, sampleFiles)
	s.open("Home.md", "[[Freya]] [[Nowhere]]\n[[Freya#Hobbies]] `[[Code]]`\n")
	replies := s.run()

	diags := lastDiagnostics(t, replies, s.uri("Home.md"))
	if len(diags) != 2 {
		t.Fatalf("expected 2 diagnostics, got %+v", diags)
	}
	if diags[0].Code != "unresolved" || diags[0].Range.Start != (Position{Line: 0, Character: 10}) {
		t.Errorf("first = %+v", diags[0])
	}
	if diags[1].Code != "broken-anchor" || diags[1].Range.Start.Line != 1 {
		t.Errorf("second = %+v", diags[1])
	}
}

func TestDiagnosticsAfterChangeAndClose(t *testing.T) {
	s := newSession(t, sampleFiles)
	s.open("Home.md", "[[Nowhere]]\n")
	s.notify("textDocument/didChange", map[string]interface{}{
		"textDocument":   map[string]interface{}{"uri": s.uri("Home.md"), "version": 2},
		"contentChanges": []map[string]interface{}{{"text": "[[Freya]]\n"}},
	})
	replies := s.run()

	if diags := lastDiagnostics(t, replies, s.uri("Home.md")); len(diags) != 0 {
		t.Errorf("expected diagnostics cleared, got %+v", diags)
	}
}

func TestUnknownRequest(t *testing.T) {
	s := newSession(t, sampleFiles)
	id := s.request("workspace/symbol", map[string]interface{}{"query": ""})
	replies := s.run()

	for _, r := range replies {
		if r.ID != nil && *r.ID == id {
			if r.Error == nil || r.Error.Code != codeMethodNotFound {
				t.Errorf("expected method not found, got %+v", r)
			}
			return
		}
	}
	t.Fatal("no reply")
}

func TestTextHelpers(t *testing.T) {
	t.Run("byteOffset counts UTF-16 units", func(t *testing.T) {
		line := "é😀[[x"
		if got := byteOffset(line, 3); got != len("é😀") {
			t.Errorf("byteOffset = %d", got)
		}
		if got := utf16Len("é😀"); got != 3 {
			t.Errorf("utf16Len = %d", got)
		}
	})

	t.Run("openReferenceStart", func(t *testing.T) {
		tests := []struct {
			line string
			col  int
			want int
			ok   bool
		}{
			{"[[No", 4, 2, true},
			{"a [[b]] [[c", 11, 10, true},
			{"[[b]] c", 7, 0, false},
			{"[[Note#He", 9, 0, false},
			{"[[[arr", 6, 0, false},
		}
		for _, tt := range tests {
			got, ok := openReferenceStart(tt.line, tt.col)
			if got != tt.want || ok != tt.ok {
				t.Errorf("openReferenceStart(%q, %d) = (%d, %v), want (%d, %v)", tt.line, tt.col, got, ok, tt.want, tt.ok)
			}
		}
	})

	t.Run("referenceAt skips inline code", func(t *testing.T) {
		if _, ok := referenceAt("`[[Code]]`", 4); ok {
			t.Error("expected no reference inside inline code")
		}
		m, ok := referenceAt("x ![[Note]] y", 5)
		if !ok || m.Inner != "Note" || m.Prefix != 1 {
			t.Errorf("referenceAt = %+v, %v", m, ok)
		}
	})
}
