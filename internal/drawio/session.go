package drawio

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ─────────────────────────────────────────────────────────────
// Editor session controller — modal lifecycle state machine
// ─────────────────────────────────────────────────────────────

// State of the editing session.
type State int

const (
	StateClosed State = iota
	StateOpening
	StateAwaitingInit
	StateEditing
	StateExporting
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpening:
		return "opening"
	case StateAwaitingInit:
		return "awaiting-init"
	case StateEditing:
		return "editing"
	case StateExporting:
		return "exporting"
	}
	return "unknown"
}

// Session is the single active editing session. At most one exists at a
// time; opening a new one tears down the previous.
type Session struct {
	NoteID    string
	BlockID   int
	SourceXML string
	Name      string
	Loaded    bool

	pendingExport    bool
	closeAfterExport bool
}

// DocumentStore provides the current source text of the note being
// edited and accepts patched replacements. Update marks the note dirty.
// Source must be re-read before every patch so concurrent edits through
// other paths are never lost.
type DocumentStore interface {
	Source(noteID string) (string, error)
	Update(noteID, text string) error
	Editable(noteID string) bool
}

// Notifier surfaces user-visible toasts.
type Notifier interface {
	Info(msg string)
	Warn(msg string)
}

// Sender pushes one encoded protocol payload to the embedded editor.
type Sender interface {
	Send(payload string) error
}

// Surface drives the host UI: it shows the editor modal and returns the
// live message channel, swaps preview content into a block's container,
// asks the user to confirm discarding changes, and hides the modal.
type Surface interface {
	Spawn(cfg EditorConfig) (Sender, error)
	UpdatePreview(blockID int, content string)
	ConfirmDiscard() bool
	Dismiss()
}

// EditorConfig is passed to Surface.Spawn when the editor is created.
type EditorConfig struct {
	Theme   string `json:"theme"`
	UI      string `json:"ui"`
	BlockID int    `json:"blockId"`
	Name    string `json:"name"`
}

// Minimal document sent when a block's source is empty, so the editor
// opens on a blank canvas instead of rejecting the load.
const emptyDiagramXML = `<mxGraphModel><root><mxCell id="0"/><mxCell id="1" parent="0"/></root></mxGraphModel>`

// DefaultLoadTimeout is how long to wait for the editor's init event
// before warning the user. Advisory only, never tears the session down.
const DefaultLoadTimeout = 10 * time.Second

// Deps holds the collaborators injected into a Controller.
type Deps struct {
	Docs    DocumentStore
	Cache   *CacheClient
	Notify  Notifier
	Surface Surface

	// Origin is the trusted embedded-editor origin; messages from any
	// other origin are discarded.
	Origin string

	Theme       string
	UI          string
	LoadTimeout time.Duration

	// Logf receives diagnostics for failures that are never surfaced to
	// the user (cache store errors, spawn failures, vanished blocks).
	Logf func(format string, args ...any)
}

// Controller owns the modal lifecycle and coordinates the hasher, cache
// and block locator in response to protocol events. All handlers are
// serialized on one mutex; async cache effects carry a generation number
// so a stale completion can never touch a newer session.
type Controller struct {
	mu        sync.Mutex
	state     State
	sess      *Session
	sender    Sender
	loadTimer *time.Timer
	gen       uint64

	dec         *Decoder
	docs        DocumentStore
	cache       *CacheClient
	notify      Notifier
	surface     Surface
	theme       string
	ui          string
	loadTimeout time.Duration
	logf        func(format string, args ...any)
}

// NewController creates a Controller in the Closed state.
func NewController(deps Deps) *Controller {
	timeout := deps.LoadTimeout
	if timeout == 0 {
		timeout = DefaultLoadTimeout
	}
	logf := deps.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Controller{
		state:       StateClosed,
		dec:         NewDecoder(deps.Origin),
		docs:        deps.Docs,
		cache:       deps.Cache,
		notify:      deps.Notify,
		surface:     deps.Surface,
		theme:       deps.Theme,
		ui:          deps.UI,
		loadTimeout: timeout,
		logf:        logf,
	}
}

// State returns the controller's current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Open starts an editing session for the blockID-th diagram block of a
// note. Outside an editable view the request is rejected with a toast
// and no state changes. Any prior session is torn down first.
func (c *Controller) Open(noteID string, blockID int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.docs.Editable(noteID) {
		c.notify.Warn("Switch to edit mode to open the diagram editor")
		return nil
	}

	c.closeLocked()

	text, err := c.docs.Source(noteID)
	if err != nil {
		return fmt.Errorf("load note: %w", err)
	}
	blocks := ParseBlocks(text)
	if blockID < 0 || blockID >= len(blocks) {
		c.logf("drawio: block %d not found in note %s", blockID, noteID)
		return nil
	}
	b := blocks[blockID]

	c.sess = &Session{
		NoteID:    noteID,
		BlockID:   blockID,
		SourceXML: b.SourceXML,
		Name:      b.Name,
	}
	c.state = StateOpening

	sender, err := c.surface.Spawn(EditorConfig{
		Theme:   c.theme,
		UI:      c.ui,
		BlockID: blockID,
		Name:    b.Name,
	})
	if err != nil {
		c.logf("drawio: spawn editor: %v", err)
		c.sess = nil
		c.state = StateClosed
		return nil
	}
	c.sender = sender
	c.state = StateAwaitingInit

	gen := c.gen
	c.loadTimer = time.AfterFunc(c.loadTimeout, func() { c.loadTimedOut(gen) })
	return nil
}

// loadTimedOut surfaces the slow-load warning. Non-fatal: the session
// stays up and init is still honored whenever it arrives.
func (c *Controller) loadTimedOut(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.sess == nil || c.sess.Loaded {
		return
	}
	c.notify.Warn("The diagram editor is taking a while to load")
}

// HandleMessage processes one raw payload from the message channel.
// Payloads from untrusted origins, non-JSON payloads and unknown tags
// are dropped without a state transition.
func (c *Controller) HandleMessage(origin, payload string) {
	ev, ok := c.dec.Decode(origin, payload)
	if !ok {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return
	}

	switch ev.Event {
	case EventInit:
		c.handleInit()
	case EventExit:
		c.handleExit(ev.Modified)
	case EventSave, EventAutosave, EventExport:
		// Content events are only meaningful once the editor has
		// loaded; anything earlier is dropped without a transition.
		if !c.sess.Loaded {
			return
		}
		switch ev.Event {
		case EventSave:
			c.applySave(ev.XML, ev.Exit, true)
		case EventAutosave:
			c.applySave(ev.XML, false, false)
		case EventExport:
			c.handleExport(ev.Format, ev.Data)
		}
	}
}

// Close tears the session down: cancels the pending timer, detaches the
// channel, clears the session and hides the surface. Idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Controller) handleInit() {
	c.stopTimerLocked()
	c.sess.Loaded = true
	c.state = StateEditing

	xml := c.sess.SourceXML
	if xml == "" {
		xml = emptyDiagramXML
	}
	c.sendLocked(LoadPayload(xml))
}

// applySave is the shared save path for save, autosave, and xml-format
// export responses. It updates the working copy, patches the document,
// refreshes the block's static preview, and requests a preview export
// unless one is already in flight.
func (c *Controller) applySave(xml string, exit, toast bool) {
	c.sess.SourceXML = xml
	c.surface.UpdatePreview(c.sess.BlockID, RenderBlock(xml, c.sess.BlockID, c.sess.Name))
	c.patchDocument(xml)
	if toast {
		c.notify.Info("Diagram saved")
	}

	if exit {
		// Defer the close until the export round-trip completes so the
		// final preview artifact is not lost.
		c.sess.closeAfterExport = true
	}
	if !c.sess.pendingExport {
		c.sess.pendingExport = true
		c.state = StateExporting
		c.sendLocked(ExportPayload(FormatPreview))
	}
}

// patchDocument splices the working copy into the note's current text.
// The full text is re-read on every patch; diagram edits never clobber
// prose edited through another path in the meantime.
func (c *Controller) patchDocument(xml string) {
	doc, err := c.docs.Source(c.sess.NoteID)
	if err != nil {
		c.logf("drawio: load note %s: %v", c.sess.NoteID, err)
		return
	}
	patched := ReplaceBlock(doc, c.sess.BlockID, xml, c.sess.Name)
	if patched == doc {
		return
	}
	if err := c.docs.Update(c.sess.NoteID, patched); err != nil {
		c.logf("drawio: update note %s: %v", c.sess.NoteID, err)
	}
}

func (c *Controller) handleExit(modified bool) {
	if !modified {
		c.closeLocked()
		return
	}
	if c.surface.ConfirmDiscard() {
		c.closeLocked()
		return
	}
	// User declined the discard: capture final content before closing.
	c.sess.closeAfterExport = true
	c.state = StateExporting
	c.sendLocked(ExportPayload(FormatXML))
}

func (c *Controller) handleExport(format, data string) {
	switch format {
	case FormatXML:
		// An xml export response is a save; the preview export it queues
		// (or the one already pending) carries closeAfterExport through.
		c.applySave(data, false, true)

	case FormatPreview:
		artifact, err := DecodeArtifact(data)
		if err != nil {
			c.logf("drawio: decode export artifact: %v", err)
			c.sess.pendingExport = false
			if c.sess.closeAfterExport {
				c.closeLocked()
			} else {
				c.state = StateEditing
			}
			return
		}

		// Fire-and-forget store; the session may close before it lands.
		xml := c.sess.SourceXML
		go func() {
			if _, err := c.cache.Store(context.Background(), xml, artifact); err != nil {
				c.logf("drawio: cache store: %v", err)
			}
		}()

		c.surface.UpdatePreview(c.sess.BlockID, artifact)
		c.sess.pendingExport = false
		if c.sess.closeAfterExport {
			c.closeLocked()
		} else {
			c.state = StateEditing
		}
	}
}

func (c *Controller) closeLocked() {
	if c.state == StateClosed && c.sess == nil {
		return
	}
	c.stopTimerLocked()
	c.sender = nil
	c.sess = nil
	c.state = StateClosed
	c.gen++
	c.surface.Dismiss()
}

func (c *Controller) stopTimerLocked() {
	if c.loadTimer != nil {
		c.loadTimer.Stop()
		c.loadTimer = nil
	}
}

func (c *Controller) sendLocked(payload string) {
	if c.sender == nil {
		return
	}
	if err := c.sender.Send(payload); err != nil {
		c.logf("drawio: send to editor: %v", err)
	}
}
