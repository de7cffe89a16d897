package lsp

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/aidanlsb/weft/internal/model"
	"github.com/aidanlsb/weft/internal/parser"
	"github.com/aidanlsb/weft/internal/render"
	"github.com/aidanlsb/weft/internal/slugs"
	"github.com/aidanlsb/weft/internal/suggest"
	"github.com/aidanlsb/weft/internal/wikilink"
)

const diagnosticSource = "weft"

func (s *Server) handleInitialize(msg jsonRPCMessage) error {
	var params InitializeParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, "Invalid params")
	}

	s.engine.RebuildIndex()

	return s.sendResult(msg.ID, InitializeResult{
		Capabilities: ServerCapabilities{
			TextDocumentSync: 1, // Full sync
			CompletionProvider: &CompletionOptions{
				TriggerCharacters: []string{"[", "/"},
			},
			DefinitionProvider: true,
			HoverProvider:      true,
		},
		ServerInfo: &ServerInfo{Name: "weft"},
	})
}

func (s *Server) handleDidOpen(msg jsonRPCMessage) error {
	var params DidOpenTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}

	uri := params.TextDocument.URI
	id, _ := s.documentID(uri)
	s.documents.Open(uri, id, params.TextDocument.Text, params.TextDocument.Version)
	s.logger.Debug("lsp: opened", slog.String("uri", uri), slog.String("id", id))

	s.publishDiagnostics(uri)
	return nil
}

func (s *Server) handleDidChange(msg jsonRPCMessage) error {
	var params DidChangeTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}

	// Full sync: the last change holds the whole document.
	if n := len(params.ContentChanges); n > 0 {
		s.documents.Update(params.TextDocument.URI, params.ContentChanges[n-1].Text, params.TextDocument.Version)
		s.publishDiagnostics(params.TextDocument.URI)
	}
	return nil
}

func (s *Server) handleDidSave(msg jsonRPCMessage) error {
	var params DidSaveTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}

	s.logger.Debug("lsp: saved", slog.String("uri", params.TextDocument.URI))

	// A save can add a document or change a title, which other buffers'
	// references depend on.
	if _, err := s.ws.Reload(); err != nil {
		s.logger.Warn("lsp: reload failed", slog.String("error", err.Error()))
	}
	for _, doc := range s.documents.All() {
		s.publishDiagnostics(doc.URI)
	}
	return nil
}

func (s *Server) handleDidClose(msg jsonRPCMessage) error {
	var params DidCloseTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}

	s.documents.Close(params.TextDocument.URI)
	s.logger.Debug("lsp: closed", slog.String("uri", params.TextDocument.URI))

	// Clear diagnostics for the closed buffer.
	return s.sendNotification("textDocument/publishDiagnostics", PublishDiagnosticsParams{
		URI:         params.TextDocument.URI,
		Diagnostics: []Diagnostic{},
	})
}

func (s *Server) handleCompletion(msg jsonRPCMessage) error {
	var params TextDocumentPositionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, "Invalid params")
	}

	doc := s.documents.Get(params.TextDocument.URI)
	if doc == nil {
		return s.sendResult(msg.ID, nil)
	}

	line := lineAt(doc.Content, params.Position.Line)
	col := byteOffset(line, params.Position.Character)
	start, ok := openReferenceStart(line, col)
	if !ok {
		return s.sendResult(msg.ID, CompletionList{Items: []CompletionItem{}})
	}

	partial := line[start:col]
	closed := strings.HasPrefix(line[col:], "]]")
	editRange := Range{
		Start: Position{Line: params.Position.Line, Character: utf16Len(line[:start])},
		End:   params.Position,
	}

	suggestions := s.engine.GetSuggestions(partial, doc.ID, s.opts.SuggestionLimit)
	items := make([]CompletionItem, 0, len(suggestions))
	for i, item := range suggestions {
		items = append(items, completionItem(item, i, editRange, closed))
	}

	return s.sendResult(msg.ID, CompletionList{
		IsIncomplete: s.opts.SuggestionLimit > 0 && len(items) >= s.opts.SuggestionLimit,
		Items:        items,
	})
}

func completionItem(item suggest.Item, rank int, editRange Range, closed bool) CompletionItem {
	out := CompletionItem{
		Label:    item.Display,
		Detail:   item.Path,
		SortText: fmt.Sprintf("%05d", rank),
		TextEdit: &TextEdit{Range: editRange, NewText: item.Insert},
	}
	if item.Kind == suggest.ItemFolder {
		out.Kind = CompletionKindFolder
		return out
	}
	out.Kind = CompletionKindFile
	if !closed {
		out.TextEdit.NewText += "]]"
	}
	return out
}

func (s *Server) handleDefinition(msg jsonRPCMessage) error {
	var params TextDocumentPositionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, "Invalid params")
	}

	doc := s.documents.Get(params.TextDocument.URI)
	if doc == nil {
		return s.sendResult(msg.ID, nil)
	}

	line := lineAt(doc.Content, params.Position.Line)
	m, ok := referenceAt(line, byteOffset(line, params.Position.Character))
	if !ok {
		return s.sendResult(msg.ID, nil)
	}

	res := s.engine.ResolveReference(m.Inner, m.Prefix, doc.ID)
	if !res.Resolved() {
		return s.sendResult(msg.ID, nil)
	}

	pos := Position{}
	if target, found := s.ws.GetDocument(res.DocumentID); found {
		pos.Line = headingLine(target, res.AnchorText())
	}
	return s.sendResult(msg.ID, Location{
		URI:   s.documentURI(res.Candidate.Path),
		Range: Range{Start: pos, End: pos},
	})
}

func (s *Server) handleHover(msg jsonRPCMessage) error {
	var params TextDocumentPositionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, codeInvalidParams, "Invalid params")
	}

	doc := s.documents.Get(params.TextDocument.URI)
	if doc == nil {
		return s.sendResult(msg.ID, nil)
	}

	line := lineAt(doc.Content, params.Position.Line)
	m, ok := referenceAt(line, byteOffset(line, params.Position.Character))
	if !ok {
		return s.sendResult(msg.ID, nil)
	}

	hoverRange := &Range{
		Start: Position{Line: params.Position.Line, Character: utf16Len(line[:m.Start])},
		End:   Position{Line: params.Position.Line, Character: utf16Len(line[:m.End])},
	}

	res := s.engine.ResolveReference(m.Inner, m.Prefix, doc.ID)
	if !res.Resolved() {
		return s.sendResult(msg.ID, Hover{
			Contents: MarkupContent{Kind: "markdown", Value: fmt.Sprintf("**Not found:** `%s`", m.Inner)},
			Range:    hoverRange,
		})
	}

	var b strings.Builder
	fmt.Fprintf(&b, "### %s\n\n`%s`\n", res.Candidate.Title, res.Candidate.Path)
	if res.Ambiguous {
		b.WriteString("\n**Ambiguous:** also matches")
		for _, id := range res.MatchIDs()[1:] {
			fmt.Fprintf(&b, " `%s`", id)
		}
		b.WriteString("\n")
	}

	// Preview the target the way a block embed would show it.
	preview := render.Markdown(s.engine.RenderReference(m.Inner, 1, doc.ID))
	if preview = strings.TrimSpace(preview); preview != "" {
		b.WriteString("\n---\n\n")
		b.WriteString(preview)
		b.WriteString("\n")
	}

	return s.sendResult(msg.ID, Hover{
		Contents: MarkupContent{Kind: "markdown", Value: b.String()},
		Range:    hoverRange,
	})
}

// Diagnostics

func (s *Server) publishDiagnostics(uri string) {
	doc := s.documents.Get(uri)
	if doc == nil {
		return
	}

	diagnostics := s.diagnose(doc)
	if err := s.sendNotification("textDocument/publishDiagnostics", PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	}); err != nil {
		s.logger.Debug("lsp: publish diagnostics failed", slog.String("error", err.Error()))
	}
}

func (s *Server) diagnose(doc *Document) []Diagnostic {
	report := s.engine.CheckText(doc.ID, doc.Content)
	lines := strings.Split(doc.Content, "\n")
	locate := newLocator(lines)

	diagnostics := []Diagnostic{}
	add := func(l model.Link, severity int, code, message string) {
		r, ok := locate(l)
		if !ok {
			return
		}
		diagnostics = append(diagnostics, Diagnostic{
			Range:    r,
			Severity: severity,
			Source:   diagnosticSource,
			Code:     code,
			Message:  message,
		})
	}

	for _, l := range report.Unresolved {
		add(l, DiagnosticSeverityWarning, "unresolved", fmt.Sprintf("No document matches %q", l.Target))
	}
	for _, l := range report.Ambiguous {
		add(l, DiagnosticSeverityInformation, "ambiguous",
			fmt.Sprintf("%q matches %d documents; using %s", l.Target, len(l.Candidates), l.TargetID))
	}
	for _, l := range report.BrokenAnchors {
		add(l, DiagnosticSeverityWarning, "broken-anchor", fmt.Sprintf("No heading %q in %s", l.Anchor, l.TargetID))
	}
	return diagnostics
}

// newLocator maps links to ranges by finding their literal on the reported
// line. Repeated literals on one line are matched left to right.
func newLocator(lines []string) func(model.Link) (Range, bool) {
	next := make(map[string]int)
	return func(l model.Link) (Range, bool) {
		if l.Line < 1 || l.Line > len(lines) {
			return Range{}, false
		}
		line := lines[l.Line-1]
		key := strconv.Itoa(l.Line) + "\x00" + l.Raw
		from := next[key]
		i := strings.Index(line[from:], l.Raw)
		if i < 0 {
			return Range{}, false
		}
		start := from + i
		end := start + len(l.Raw)
		next[key] = end
		return Range{
			Start: Position{Line: l.Line - 1, Character: utf16Len(line[:start])},
			End:   Position{Line: l.Line - 1, Character: utf16Len(line[:end])},
		}, true
	}
}

// headingLine returns the zero-based line of the heading matching anchor in
// a markdown document, or 0.
func headingLine(doc model.Document, anchor string) int {
	if anchor == "" || doc.Kind != model.KindMarkdown {
		return 0
	}
	if _, err := strconv.Atoi(anchor); err == nil {
		return 0
	}
	body, offset := parser.StripFrontmatter(doc.RawText)
	startLine := 1 + strings.Count(doc.RawText[:offset], "\n")
	want := slugs.HeadingSlug(anchor)
	for _, h := range parser.ExtractHeadings(body, startLine) {
		if h.Slug() == want {
			return h.Line - 1
		}
	}
	return 0
}

// Text helpers

func lineAt(content string, lineNum int) string {
	lines := strings.Split(content, "\n")
	if lineNum < 0 || lineNum >= len(lines) {
		return ""
	}
	return strings.TrimSuffix(lines[lineNum], "\r")
}

// openReferenceStart returns the offset just after an unclosed "[[" before
// col. Typing an anchor or alias is not completed.
func openReferenceStart(line string, col int) (int, bool) {
	before := line[:col]
	open := strings.LastIndex(before, "[[")
	if open < 0 || strings.Contains(before[open:], "]]") {
		return 0, false
	}
	if open > 0 && line[open-1] == '[' {
		return 0, false
	}
	partial := before[open+2:]
	if strings.ContainsAny(partial, "#|") {
		return 0, false
	}
	return open + 2, true
}

// referenceAt returns the reference whose literal spans col.
func referenceAt(line string, col int) (wikilink.Match, bool) {
	for _, m := range wikilink.FindAllInLine(parser.RemoveInlineCode(line)) {
		if col >= m.Start && col <= m.End {
			m.Inner = line[m.InnerStart : m.InnerStart+len(m.Inner)]
			return m, true
		}
	}
	return wikilink.Match{}, false
}

// byteOffset converts a UTF-16 character offset to a byte offset in line.
func byteOffset(line string, character int) int {
	units := 0
	for i, r := range line {
		if units >= character {
			return i
		}
		units += utf16Width(r)
	}
	return len(line)
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16Width(r)
	}
	return n
}

func utf16Width(r rune) int {
	if r >= 0x10000 && r <= utf8.MaxRune {
		return 2
	}
	return 1
}
