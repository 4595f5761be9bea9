package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"

	"granite/internal/drawio"
)

func (s *Server) registerDiagramTools() {
	s.mcp.AddTool(mcp.NewTool("list_diagrams",
		mcp.WithDescription("List the drawio diagram blocks of a note with their ordinal ids and names"),
		mcp.WithString("noteId", mcp.Description("Note ID"), mcp.Required()),
	), s.handleListDiagrams)

	s.mcp.AddTool(mcp.NewTool("get_diagram",
		mcp.WithDescription("Get the XML source of one diagram block"),
		mcp.WithString("noteId", mcp.Description("Note ID"), mcp.Required()),
		mcp.WithNumber("diagramId", mcp.Description("Ordinal id of the block within the note"), mcp.Required()),
	), s.handleGetDiagram)

	s.mcp.AddTool(mcp.NewTool("update_diagram",
		mcp.WithDescription("🛑 DESTRUCTIVE: Replace the XML source of one diagram block in a note"),
		mcp.WithString("noteId", mcp.Description("Note ID"), mcp.Required()),
		mcp.WithNumber("diagramId", mcp.Description("Ordinal id of the block within the note"), mcp.Required()),
		mcp.WithString("xml", mcp.Description("New diagram XML"), mcp.Required()),
		mcp.WithString("name", mcp.Description("Diagram name (optional, empty removes the name)")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleUpdateDiagram)

	s.mcp.AddTool(mcp.NewTool("diagram_fingerprint",
		mcp.WithDescription("Compute the preview-cache fingerprint of diagram XML"),
		mcp.WithString("xml", mcp.Description("Diagram XML"), mcp.Required()),
	), s.handleDiagramFingerprint)

	s.mcp.AddTool(mcp.NewTool("diagram_cache_stats",
		mcp.WithDescription("Report how many rendered previews are cached and their total size"),
	), s.handleDiagramCacheStats)
}

func (s *Server) handleListDiagrams(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	noteID, _ := args["noteId"].(string)
	if noteID == "" {
		return nil, fmt.Errorf("noteId is required")
	}

	content, err := s.notes.Content(noteID)
	if err != nil {
		return nil, fmt.Errorf("load note: %w", err)
	}

	blocks := drawio.ParseBlocks(content)
	type entry struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	entries := make([]entry, 0, len(blocks))
	for _, b := range blocks {
		entries = append(entries, entry{ID: b.ID, Name: b.Name})
	}
	out, _ := json.Marshal(entries)
	return textResult(string(out)), nil
}

func (s *Server) handleGetDiagram(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	noteID, _ := args["noteId"].(string)
	id := getInt(args, "diagramId", -1)
	if noteID == "" || id < 0 {
		return nil, fmt.Errorf("noteId and diagramId are required")
	}

	content, err := s.notes.Content(noteID)
	if err != nil {
		return nil, fmt.Errorf("load note: %w", err)
	}

	blocks := drawio.ParseBlocks(content)
	if id >= len(blocks) {
		return nil, fmt.Errorf("note has no diagram %d (found %d)", id, len(blocks))
	}
	return textResult(blocks[id].SourceXML), nil
}

func (s *Server) handleUpdateDiagram(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	noteID, _ := args["noteId"].(string)
	id := getInt(args, "diagramId", -1)
	xml, _ := args["xml"].(string)
	name, _ := args["name"].(string)
	if noteID == "" || id < 0 || xml == "" {
		return nil, fmt.Errorf("noteId, diagramId and xml are required")
	}

	content, err := s.notes.Content(noteID)
	if err != nil {
		return nil, fmt.Errorf("load note: %w", err)
	}

	patched := drawio.ReplaceBlock(content, id, xml, name)
	if patched == content {
		return nil, fmt.Errorf("note has no diagram %d", id)
	}
	if err := s.notes.UpdateContent(noteID, patched); err != nil {
		return nil, fmt.Errorf("update note: %w", err)
	}

	s.emitNoteChanged(ctx, noteID)
	return textResult(fmt.Sprintf("Diagram %d updated (%d bytes of XML)", id, len(xml))), nil
}

func (s *Server) handleDiagramFingerprint(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	xml, _ := req.GetArguments()["xml"].(string)
	if xml == "" {
		return nil, fmt.Errorf("xml is required")
	}
	return textResult(s.hasher.Fingerprint(xml)), nil
}

func (s *Server) handleDiagramCacheStats(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := os.ReadDir(s.cache.Dir())
	if err != nil {
		return nil, fmt.Errorf("read cache dir: %w", err)
	}

	var count int
	var bytes int64
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".svg" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		count++
		bytes += info.Size()
	}
	return textResult(fmt.Sprintf("%d cached previews, %d bytes", count, bytes)), nil
}

// getInt reads a numeric tool argument, tolerating the float64 that
// JSON decoding produces and string-encoded numbers.
func getInt(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
