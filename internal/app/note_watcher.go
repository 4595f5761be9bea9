package app

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// noteWatcher watches the notes directory for external modifications
// (another editor, a sync tool, the standalone MCP process) and emits
// events so the frontend refreshes the affected note and its previews.
type noteWatcher struct {
	app *App
	fw  *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*time.Timer // file path → debounce timer

	stopCh chan struct{}
	doneCh chan struct{} // closed when the event loop has exited
}

func newNoteWatcher(app *App, notesDir string) (*noteWatcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(notesDir); err != nil {
		fw.Close()
		return nil, err
	}
	return &noteWatcher{
		app:     app,
		fw:      fw,
		pending: make(map[string]*time.Timer),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}, nil
}

// Start begins consuming filesystem events. Should be called once.
func (w *noteWatcher) Start() {
	go w.loop()
}

// Stop terminates the watcher and waits for the event loop to exit.
func (w *noteWatcher) Stop() {
	close(w.stopCh)
	w.fw.Close()
	<-w.doneCh
}

func (w *noteWatcher) loop() {
	defer close(w.doneCh)
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if !strings.HasSuffix(ev.Name, ".md") {
				continue
			}
			w.debounce(ev.Name)
		case _, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			// Watch errors are non-fatal; the poll-free design just
			// misses one refresh.
		case <-w.stopCh:
			return
		}
	}
}

// debounce coalesces the burst of write events most editors produce
// into a single refresh per file.
func (w *noteWatcher) debounce(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(200*time.Millisecond, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.changed(path)
	})
}

func (w *noteWatcher) changed(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	note, err := w.app.notes.FindByPath(abs)
	if err != nil {
		return // not a tracked note
	}

	w.app.Emit(context.Background(), "note:changed", map[string]string{"noteId": note.ID})

	// Re-render so diagram previews track the edited source.
	if _, err := w.app.RenderNotePreviews(note.ID); err == nil {
		w.app.Emit(context.Background(), "note:blocks-changed", map[string]string{"noteId": note.ID})
	}
}
