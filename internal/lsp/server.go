// Package lsp implements a Language Server Protocol server for weft vaults.
//
// It offers reference completion inside [[...]], go-to-definition, hover
// previews of the referenced content, and diagnostics for unresolved,
// ambiguous and broken-anchor references.
package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/aidanlsb/weft/internal/engine"
	"github.com/aidanlsb/weft/internal/model"
	"github.com/aidanlsb/weft/internal/vault"
)

// Workspace is the document registry the server edits against.
type Workspace interface {
	Root() string
	Rel(p string) (string, error)
	Lookup(p string) (model.Document, error)
	GetDocument(id string) (model.Document, bool)
	Reload() ([]vault.WalkResult, error)
}

// Options configures a Server.
type Options struct {
	Logger *slog.Logger

	// SuggestionLimit caps completion lists. Zero or less means unlimited.
	SuggestionLimit int
}

// Server is the weft LSP server.
type Server struct {
	ws     Workspace
	engine *engine.Engine
	opts   Options
	logger *slog.Logger

	documents *DocumentManager

	reader *bufio.Reader
	output io.Writer
	mu     sync.Mutex // Protects output writes

	shutdown bool
	exited   bool
}

// NewServer creates a server reading requests from in and writing to out.
func NewServer(ws Workspace, eng *engine.Engine, in io.Reader, out io.Writer, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		ws:        ws,
		engine:    eng,
		opts:      opts,
		logger:    logger,
		documents: NewDocumentManager(),
		reader:    bufio.NewReader(in),
		output:    out,
	}
}

// Run processes messages until the client sends exit, the input closes or
// ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("lsp: server started", slog.String("vault", s.ws.Root()))

	for !s.exited {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.handleNextMessage(); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			s.logger.Debug("lsp: error handling message", slog.String("error", err.Error()))
		}
	}
	return nil
}

// handleNextMessage reads and processes a single LSP message.
func (s *Server) handleNextMessage() error {
	contentLength := -1
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			return err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break // Empty line separates header from content
		}
		name, value, ok := strings.Cut(line, ":")
		if ok && strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return fmt.Errorf("bad Content-Length %q", value)
			}
			contentLength = n
		}
	}

	if contentLength < 0 {
		return fmt.Errorf("no Content-Length header")
	}

	content := make([]byte, contentLength)
	if _, err := io.ReadFull(s.reader, content); err != nil {
		return err
	}

	var msg jsonRPCMessage
	if err := json.Unmarshal(content, &msg); err != nil {
		return fmt.Errorf("failed to parse message: %w", err)
	}

	s.logger.Debug("lsp: received", slog.String("method", msg.Method))
	return s.dispatch(msg)
}

// dispatch routes a message to the appropriate handler.
func (s *Server) dispatch(msg jsonRPCMessage) error {
	if s.shutdown && msg.Method != "exit" && msg.ID != nil {
		return s.sendError(msg.ID, codeInvalidRequest, "Server is shutting down")
	}

	switch msg.Method {
	case "initialize":
		return s.handleInitialize(msg)
	case "initialized":
		return nil
	case "shutdown":
		s.shutdown = true
		return s.sendResult(msg.ID, nil)
	case "exit":
		s.exited = true
		return nil
	case "textDocument/didOpen":
		return s.handleDidOpen(msg)
	case "textDocument/didChange":
		return s.handleDidChange(msg)
	case "textDocument/didSave":
		return s.handleDidSave(msg)
	case "textDocument/didClose":
		return s.handleDidClose(msg)
	case "textDocument/completion":
		return s.handleCompletion(msg)
	case "textDocument/definition":
		return s.handleDefinition(msg)
	case "textDocument/hover":
		return s.handleHover(msg)
	default:
		if msg.ID != nil {
			return s.sendError(msg.ID, codeMethodNotFound, "Method not found: "+msg.Method)
		}
		s.logger.Debug("lsp: unhandled notification", slog.String("method", msg.Method))
		return nil
	}
}

// sendResult sends a successful response.
func (s *Server) sendResult(id interface{}, result interface{}) error {
	return s.send(jsonRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  mustMarshal(result),
	})
}

// sendError sends an error response.
func (s *Server) sendError(id interface{}, code int, message string) error {
	return s.send(jsonRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &jsonRPCError{
			Code:    code,
			Message: message,
		},
	})
}

// sendNotification sends a notification (no response expected).
func (s *Server) sendNotification(method string, params interface{}) error {
	return s.send(jsonRPCMessage{
		JSONRPC: "2.0",
		Method:  method,
		Params:  mustMarshal(params),
	})
}

// send writes a JSON-RPC message to the output.
func (s *Server) send(msg interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	content, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(content))
	if _, err := io.WriteString(s.output, header); err != nil {
		return err
	}
	_, err = s.output.Write(content)
	return err
}

// documentID maps a file:// URI to a vault document ID. A file the vault has
// not loaded yet is identified by its relative path. ok is false for URIs
// outside the vault.
func (s *Server) documentID(uri string) (string, bool) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return "", false
	}
	rel, err := s.ws.Rel(filepath.FromSlash(u.Path))
	if err != nil {
		return "", false
	}
	if doc, err := s.ws.Lookup(rel); err == nil && doc.Path == rel {
		return doc.ID, true
	}
	return rel, true
}

// documentURI returns the file:// URI of a vault-relative path.
func (s *Server) documentURI(rel string) string {
	p := filepath.ToSlash(filepath.Join(s.ws.Root(), filepath.FromSlash(rel)))
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return (&url.URL{Scheme: "file", Path: p}).String()
}

func mustMarshal(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return data
}

// JSON-RPC types

const (
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

type jsonRPCMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type jsonRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonRPCError   `json:"error,omitempty"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
