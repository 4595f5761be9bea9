package mcpserver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"granite/internal/domain"
	"granite/internal/drawio"
)

// fakeNotes is an in-memory domain.NoteStore.
type fakeNotes struct {
	content map[string]string
}

func (f *fakeNotes) CreateNote(n *domain.Note, content string) error {
	f.content[n.ID] = content
	return nil
}

func (f *fakeNotes) GetNote(id string) (*domain.Note, error) {
	if _, ok := f.content[id]; !ok {
		return nil, fmt.Errorf("note %s not found", id)
	}
	return &domain.Note{ID: id}, nil
}

func (f *fakeNotes) ListNotes() ([]domain.Note, error) { return nil, nil }

func (f *fakeNotes) Content(id string) (string, error) {
	c, ok := f.content[id]
	if !ok {
		return "", fmt.Errorf("note %s not found", id)
	}
	return c, nil
}

func (f *fakeNotes) UpdateContent(id, content string) error {
	f.content[id] = content
	return nil
}

func (f *fakeNotes) DeleteNote(id string) error {
	delete(f.content, id)
	return nil
}

func callReq(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func newTestMCP(content string) (*Server, *fakeNotes) {
	notes := &fakeNotes{content: map[string]string{
		"n1": content,
	}}
	s := New(Deps{Notes: notes, Hasher: drawio.NewHasher()})
	return s, notes
}

func TestListDiagrams(t *testing.T) {
	s, _ := newTestMCP("```drawio name=\"X\"\n<a/>\n```\n\n```drawio\n<b/>\n```\n")

	res, err := s.handleListDiagrams(context.Background(), callReq(map[string]any{"noteId": "n1"}))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	text := res.Content[0].(mcp.TextContent).Text
	if !strings.Contains(text, `"name":"X"`) || !strings.Contains(text, `"id":1`) {
		t.Fatalf("list output wrong: %s", text)
	}
}

func TestGetDiagram(t *testing.T) {
	s, _ := newTestMCP("```drawio\n<a/>\n```\n")

	res, err := s.handleGetDiagram(context.Background(), callReq(map[string]any{"noteId": "n1", "diagramId": float64(0)}))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if text := res.Content[0].(mcp.TextContent).Text; text != "<a/>" {
		t.Fatalf("got %q", text)
	}

	if _, err := s.handleGetDiagram(context.Background(), callReq(map[string]any{"noteId": "n1", "diagramId": float64(3)})); err == nil {
		t.Fatal("out-of-range id must error")
	}
}

func TestUpdateDiagram(t *testing.T) {
	s, notes := newTestMCP("intro\n```drawio\n<a/>\n```\noutro\n")

	_, err := s.handleUpdateDiagram(context.Background(), callReq(map[string]any{
		"noteId": "n1", "diagramId": float64(0), "xml": "<b/>", "name": "renamed",
	}))
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	got := notes.content["n1"]
	if !strings.Contains(got, "<b/>") || !strings.Contains(got, `name="renamed"`) {
		t.Fatalf("note not patched: %q", got)
	}
	if !strings.HasPrefix(got, "intro\n") || !strings.HasSuffix(got, "outro\n") {
		t.Fatalf("surrounding prose disturbed: %q", got)
	}
}

type fakeCacheDir struct{ dir string }

func (f fakeCacheDir) Dir() string { return f.dir }

func TestDiagramCacheStats(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "aaaabbbbccccdddd.svg"), []byte("<svg/>"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644); err != nil {
		t.Fatal(err)
	}

	s := New(Deps{
		Notes:  &fakeNotes{content: map[string]string{}},
		Hasher: drawio.NewHasher(),
		Cache:  fakeCacheDir{dir: dir},
	})
	res, err := s.handleDiagramCacheStats(context.Background(), callReq(nil))
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if text := res.Content[0].(mcp.TextContent).Text; !strings.HasPrefix(text, "1 cached previews") {
		t.Fatalf("stats = %q", text)
	}
}

func TestDiagramFingerprint(t *testing.T) {
	s, _ := newTestMCP("")
	res, err := s.handleDiagramFingerprint(context.Background(), callReq(map[string]any{"xml": "test"}))
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	if text := res.Content[0].(mcp.TextContent).Text; text != "9f86d081884c7d65" {
		t.Fatalf("fingerprint = %q", text)
	}
}
