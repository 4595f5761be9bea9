package app

import (
	"context"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"granite/internal/bridge"
	"granite/internal/cacheserver"
	"granite/internal/domain"
	"granite/internal/drawio"
	"granite/internal/storage"
)

// cacheAddr is where the drawio cache service listens. The embedded
// editor page and the preview pass both resolve cache URLs against it.
const cacheAddr = "127.0.0.1:41800"

// drawioOrigin is the trusted origin of the embedded diagram editor.
const drawioOrigin = "https://embed.diagrams.net"

// App is the main Wails application struct.
// All exported methods are available as Wails bindings.
type App struct {
	ctx context.Context

	db    *storage.DB
	notes *storage.NoteStore

	// Per-note view mode, driven by the frontend. Notes default to edit.
	viewModes   map[string]domain.ViewMode
	viewModesMu sync.Mutex

	hasher      *drawio.Hasher
	cacheClient *drawio.CacheClient
	renderer    *drawio.Renderer
	editor      *drawio.Controller
	editorLink  *bridge.Bridge

	cacheSrv *cacheserver.Server
	httpSrv  *http.Server
	watcher  *noteWatcher
}

// New creates a new App.
func New() *App {
	return &App{viewModes: make(map[string]domain.ViewMode)}
}

// Startup is called when the app starts.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx

	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".local", "share", "granite")
	notesDir := filepath.Join(dataDir, "notes")

	db, err := storage.New(filepath.Join(dataDir, "granite.db"), notesDir)
	if err != nil {
		wailsRuntime.LogFatalf(ctx, "Failed to open database: %v", err)
		return
	}
	a.db = db
	a.notes = storage.NewNoteStore(db)

	a.hasher = drawio.NewHasher()

	// Cache service plus the websocket editor bridge share one listener.
	cacheSrv, err := cacheserver.New(notesDir, a.hasher)
	if err != nil {
		wailsRuntime.LogFatalf(ctx, "Failed to create drawio cache: %v", err)
		return
	}
	a.cacheSrv = cacheSrv
	a.cacheSrv.StartJanitor()

	a.cacheClient = drawio.NewCacheClient("http://"+cacheAddr+"/api/drawio-cache", a.hasher)
	a.renderer = drawio.NewRenderer(a.cacheClient)

	a.editor = drawio.NewController(drawio.Deps{
		Docs:    &noteDocs{app: a},
		Cache:   a.cacheClient,
		Notify:  &toaster{app: a},
		Surface: &editorSurface{app: a},
		Origin:  drawioOrigin,
		Theme:   "dark",
		UI:      "min",
		Logf:    func(format string, args ...any) { wailsRuntime.LogErrorf(a.ctx, format, args...) },
	})
	a.editorLink = bridge.New(a.editor.HandleMessage)

	mux := http.NewServeMux()
	mux.Handle("/api/drawio-cache", a.cacheSrv.Handler())
	mux.Handle("/api/drawio-cache/", a.cacheSrv.Handler())
	mux.Handle("/api/drawio-bridge", a.editorLink)
	a.httpSrv = &http.Server{Handler: mux}
	go a.serveHTTP()

	watcher, err := newNoteWatcher(a, notesDir)
	if err != nil {
		wailsRuntime.LogErrorf(ctx, "Failed to start note watcher: %v", err)
	} else {
		a.watcher = watcher
		a.watcher.Start()
	}
}

func (a *App) serveHTTP() {
	ln, err := net.Listen("tcp", cacheAddr)
	if err != nil {
		wailsRuntime.LogErrorf(a.ctx, "drawio cache listen: %v", err)
		return
	}
	if err := a.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
		wailsRuntime.LogErrorf(a.ctx, "drawio cache serve: %v", err)
	}
}

// Shutdown is called when the app is closing.
func (a *App) Shutdown(ctx context.Context) {
	if a.editor != nil {
		a.editor.Close()
	}
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if a.cacheSrv != nil {
		a.cacheSrv.StopJanitor()
	}
	if a.httpSrv != nil {
		a.httpSrv.Shutdown(ctx)
	}
	if a.db != nil {
		a.db.Close()
	}
}

// Emit forwards an event to the frontend. Implements the EventEmitter
// interface the MCP server and watcher use.
func (a *App) Emit(_ context.Context, event string, data any) {
	wailsRuntime.EventsEmit(a.ctx, event, data)
}

// ============================================================
// Notes
// ============================================================

// ListNotes returns all note metadata, most recently updated first.
func (a *App) ListNotes() ([]domain.Note, error) {
	return a.notes.ListNotes()
}

// GetNote returns one note's metadata.
func (a *App) GetNote(id string) (*domain.Note, error) {
	return a.notes.GetNote(id)
}

// NoteContent returns the markdown body of a note.
func (a *App) NoteContent(id string) (string, error) {
	return a.notes.Content(id)
}

// SaveNoteContent replaces the markdown body of a note.
func (a *App) SaveNoteContent(id, content string) error {
	return a.notes.UpdateContent(id, content)
}

// CreateNote creates a note and returns it.
func (a *App) CreateNote(title, content string) (*domain.Note, error) {
	n := &domain.Note{ID: uuid.New().String(), Title: title}
	if err := a.notes.CreateNote(n, content); err != nil {
		return nil, err
	}
	return n, nil
}

// DeleteNote removes a note and its file.
func (a *App) DeleteNote(id string) error {
	return a.notes.DeleteNote(id)
}

// SetViewMode records how a note is currently presented. The diagram
// editor is only allowed to open from an editable mode.
func (a *App) SetViewMode(noteID, mode string) {
	a.viewModesMu.Lock()
	defer a.viewModesMu.Unlock()
	a.viewModes[noteID] = domain.ViewMode(mode)
}

func (a *App) viewMode(noteID string) domain.ViewMode {
	a.viewModesMu.Lock()
	defer a.viewModesMu.Unlock()
	if m, ok := a.viewModes[noteID]; ok {
		return m
	}
	return domain.ViewModeEdit
}
