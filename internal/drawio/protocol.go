package drawio

import "encoding/json"

// ─────────────────────────────────────────────────────────────
// Editor message protocol — tagged JSON over a postMessage channel
// ─────────────────────────────────────────────────────────────

// Event tags accepted from the embedded editor.
const (
	EventInit     = "init"
	EventSave     = "save"
	EventExit     = "exit"
	EventExport   = "export"
	EventAutosave = "autosave"
)

// Export formats exchanged with the editor.
const (
	FormatXML     = "xml"
	FormatPreview = "preview"
)

// EditorEvent is one inbound message from the embedded editor.
type EditorEvent struct {
	Event    string `json:"event"`
	XML      string `json:"xml,omitempty"`
	Exit     bool   `json:"exit,omitempty"`
	Modified bool   `json:"modified,omitempty"`
	Format   string `json:"format,omitempty"`
	Data     string `json:"data,omitempty"`
}

// loadAction pushes content into the editor. autosave:1 asks the editor
// to emit periodic autosave events.
type loadAction struct {
	Action   string `json:"action"`
	XML      string `json:"xml"`
	Autosave int    `json:"autosave"`
}

// exportAction asks the editor for an export in the given format.
type exportAction struct {
	Action string `json:"action"`
	Format string `json:"format"`
}

// LoadPayload encodes a load action carrying xml.
func LoadPayload(xml string) string {
	b, _ := json.Marshal(loadAction{Action: "load", XML: xml, Autosave: 1})
	return string(b)
}

// ExportPayload encodes an export request for format.
func ExportPayload(format string) string {
	b, _ := json.Marshal(exportAction{Action: "export", Format: format})
	return string(b)
}

// Decoder filters and parses raw channel payloads into typed events.
// It holds no state beyond the trusted origin; dispatch is the
// controller's job.
type Decoder struct {
	trustedOrigin string
}

// NewDecoder creates a Decoder accepting messages from origin only.
func NewDecoder(origin string) *Decoder {
	return &Decoder{trustedOrigin: origin}
}

// Decode parses payload if it arrived from the trusted origin and is a
// well-formed event with a known tag. Anything else is silently dropped
// (ok=false): wrong origin, non-JSON, parse failure, unknown tag.
func (d *Decoder) Decode(origin, payload string) (EditorEvent, bool) {
	if origin != d.trustedOrigin {
		return EditorEvent{}, false
	}
	var ev EditorEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return EditorEvent{}, false
	}
	switch ev.Event {
	case EventInit, EventSave, EventExit, EventExport, EventAutosave:
		return ev, true
	}
	return EditorEvent{}, false
}
