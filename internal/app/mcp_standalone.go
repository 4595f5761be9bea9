package app

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"granite/internal/cacheserver"
	"granite/internal/drawio"
	mcpserver "granite/internal/mcp"
	"granite/internal/storage"
)

// noopEmitter is a no-op EventEmitter used in MCP-only mode (no Wails frontend).
type noopEmitter struct{}

func (noopEmitter) Emit(_ context.Context, _ string, _ any) {}

// ServeMCP runs the app as a standalone MCP server on stdin/stdout with
// no GUI, sharing the database and cache directory with the desktop app.
func ServeMCP() {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".local", "share", "granite")
	notesDir := filepath.Join(dataDir, "notes")

	db, err := storage.New(filepath.Join(dataDir, "granite.db"), notesDir)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	hasher := drawio.NewHasher()
	cacheSrv, err := cacheserver.New(notesDir, hasher)
	if err != nil {
		log.Fatalf("Failed to open drawio cache: %v", err)
	}

	srv := mcpserver.New(mcpserver.Deps{
		Emitter: noopEmitter{},
		Notes:   storage.NewNoteStore(db),
		Hasher:  hasher,
		Cache:   cacheSrv,
	})

	if err := srv.ServeStdio(); err != nil {
		log.Fatalf("MCP server error: %v", err)
	}
}
