package app

import (
	"context"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"granite/internal/drawio"
)

// ── Drawio editor ──────────────────────────────────────────
// The session controller drives these bindings and adapters. The
// embedded editor lives in an iframe the frontend opens on the
// drawio:open event; its postMessage traffic is relayed through
// EditorMessage (webview) or the websocket bridge (external window).

// RenderedBlock is the frontend view of one diagram block: container
// markup carrying either the inline preview or the edit placeholder.
type RenderedBlock struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Markup string `json:"markup"`
}

// RenderNotePreviews parses a note's diagram blocks and returns their
// static containers. Cached artifacts are filled in asynchronously via
// drawio:preview events as fetches resolve.
func (a *App) RenderNotePreviews(noteID string) ([]RenderedBlock, error) {
	content, err := a.notes.Content(noteID)
	if err != nil {
		return nil, err
	}

	blocks := drawio.ParseBlocks(content)
	rendered := make([]RenderedBlock, 0, len(blocks))
	for _, b := range blocks {
		rendered = append(rendered, RenderedBlock{
			ID:     b.ID,
			Name:   b.Name,
			Markup: drawio.RenderBlock(b.SourceXML, b.ID, b.Name),
		})
	}

	go a.renderer.RefreshPreviews(context.Background(), blocks, func(id int, artifact string) {
		a.Emit(context.Background(), "drawio:preview", map[string]any{
			"noteId":  noteID,
			"blockId": id,
			"content": artifact,
		})
	})

	return rendered, nil
}

// OpenDiagramEditor starts an editing session for one diagram block.
func (a *App) OpenDiagramEditor(noteID string, blockID int) error {
	return a.editor.Open(noteID, blockID)
}

// EditorMessage relays one raw postMessage payload from the frontend.
func (a *App) EditorMessage(origin, payload string) {
	a.editor.HandleMessage(origin, payload)
}

// CloseDiagramEditor dismisses the active session, if any.
func (a *App) CloseDiagramEditor() {
	a.editor.Close()
}

// ── Controller adapters ────────────────────────────────────

// noteDocs adapts the note store to the controller's DocumentStore.
type noteDocs struct {
	app *App
}

func (d *noteDocs) Source(noteID string) (string, error) {
	return d.app.notes.Content(noteID)
}

func (d *noteDocs) Update(noteID, text string) error {
	if err := d.app.notes.UpdateContent(noteID, text); err != nil {
		return err
	}
	d.app.Emit(context.Background(), "note:content-updated", map[string]string{"noteId": noteID})
	return nil
}

func (d *noteDocs) Editable(noteID string) bool {
	return d.app.viewMode(noteID).Editable()
}

// toaster surfaces controller notices as frontend toasts.
type toaster struct {
	app *App
}

func (t *toaster) Info(msg string) {
	t.app.Emit(context.Background(), "notify:info", msg)
}

func (t *toaster) Warn(msg string) {
	t.app.Emit(context.Background(), "notify:warn", msg)
}

// editorSurface drives the modal through frontend events.
type editorSurface struct {
	app *App
}

// Spawn shows the editor modal. When an external editor window is
// attached through the websocket bridge it becomes the channel;
// otherwise outbound payloads travel as drawio:message events for the
// frontend to forward into the iframe.
func (s *editorSurface) Spawn(cfg drawio.EditorConfig) (drawio.Sender, error) {
	s.app.Emit(context.Background(), "drawio:open", cfg)
	if s.app.editorLink.Connected() {
		return s.app.editorLink, nil
	}
	return &eventSender{app: s.app}, nil
}

func (s *editorSurface) UpdatePreview(blockID int, content string) {
	s.app.Emit(context.Background(), "drawio:preview", map[string]any{
		"blockId": blockID,
		"content": content,
	})
}

func (s *editorSurface) ConfirmDiscard() bool {
	choice, err := wailsRuntime.MessageDialog(s.app.ctx, wailsRuntime.MessageDialogOptions{
		Type:          wailsRuntime.QuestionDialog,
		Title:         "Unsaved changes",
		Message:       "Discard changes to this diagram?",
		Buttons:       []string{"Discard", "Keep editing"},
		DefaultButton: "Keep editing",
	})
	return err == nil && choice == "Discard"
}

func (s *editorSurface) Dismiss() {
	s.app.Emit(context.Background(), "drawio:close", nil)
}

// eventSender delivers outbound protocol payloads via frontend events.
type eventSender struct {
	app *App
}

func (s *eventSender) Send(payload string) error {
	s.app.Emit(context.Background(), "drawio:message", payload)
	return nil
}
