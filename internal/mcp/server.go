package mcpserver

import (
	"context"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"granite/internal/domain"
	"granite/internal/drawio"
)

// EventEmitter is the small slice of the app's event surface the MCP
// server needs: it notifies the frontend when an agent changed a note.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// CacheStats is implemented by the cache service so agents can inspect
// preview cache usage without going through HTTP.
type CacheStats interface {
	Dir() string
}

// Server is the MCP server for Granite. It exposes the diagram blocks
// of notes as tools so AI agents can read and rewrite diagrams through
// the same patch path the editor uses.
type Server struct {
	mcp     *server.MCPServer
	emitter EventEmitter

	notes  domain.NoteStore
	hasher *drawio.Hasher
	cache  CacheStats
}

// Deps holds all dependencies passed from the App layer to the MCP server.
type Deps struct {
	Emitter EventEmitter
	Notes   domain.NoteStore
	Hasher  *drawio.Hasher
	Cache   CacheStats
}

// New creates and configures a new MCP server with the diagram tools.
func New(deps Deps) *Server {
	s := &Server{
		emitter: deps.Emitter,
		notes:   deps.Notes,
		hasher:  deps.Hasher,
		cache:   deps.Cache,
	}

	s.mcp = server.NewMCPServer(
		"granite-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.registerDiagramTools()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	log.Println("[MCP] Starting stdio server...")
	return server.ServeStdio(s.mcp)
}

// ── Helpers ────────────────────────────────────────────────

// emitNoteChanged notifies the frontend that a note's blocks changed.
func (s *Server) emitNoteChanged(ctx context.Context, noteID string) {
	if s.emitter != nil {
		s.emitter.Emit(ctx, "note:blocks-changed", map[string]string{"noteId": noteID})
	}
}

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func boolPtr(v bool) *bool { return &v }
