package drawio

import (
	"encoding/json"
	"testing"
)

// ─────────────────────────────────────────────────────────────
// Protocol decoder unit tests
// ─────────────────────────────────────────────────────────────

const testOrigin = "https://embed.diagrams.net"

func TestDecode_SaveWithExit(t *testing.T) {
	d := NewDecoder(testOrigin)
	ev, ok := d.Decode(testOrigin, `{"event":"save","xml":"<a/>","exit":true}`)
	if !ok {
		t.Fatal("valid save event dropped")
	}
	if ev.Event != EventSave || ev.XML != "<a/>" || !ev.Exit {
		t.Fatalf("event fields wrong: %+v", ev)
	}
}

func TestDecode_RejectsForeignOrigin(t *testing.T) {
	d := NewDecoder(testOrigin)
	if _, ok := d.Decode("https://evil.example", `{"event":"init"}`); ok {
		t.Fatal("message from untrusted origin accepted")
	}
}

func TestDecode_DropsMalformedPayloads(t *testing.T) {
	d := NewDecoder(testOrigin)
	for _, payload := range []string{
		"",
		"not json",
		"{",
		`{"event":}`,
		`{"event":"configure"}`, // unknown tag
		`{"other":"thing"}`,     // no tag at all
	} {
		if _, ok := d.Decode(testOrigin, payload); ok {
			t.Errorf("payload %q accepted", payload)
		}
	}
}

func TestDecode_ExportEvent(t *testing.T) {
	d := NewDecoder(testOrigin)
	ev, ok := d.Decode(testOrigin, `{"event":"export","format":"preview","data":"<svg/>"}`)
	if !ok || ev.Format != FormatPreview || ev.Data != "<svg/>" {
		t.Fatalf("export event mis-decoded: %+v ok=%v", ev, ok)
	}
}

func TestLoadPayload_Shape(t *testing.T) {
	var m map[string]any
	if err := json.Unmarshal([]byte(LoadPayload("<a/>")), &m); err != nil {
		t.Fatalf("load payload not json: %v", err)
	}
	if m["action"] != "load" || m["xml"] != "<a/>" || m["autosave"] != float64(1) {
		t.Fatalf("load payload wrong: %v", m)
	}
}

func TestExportPayload_Shape(t *testing.T) {
	var m map[string]any
	if err := json.Unmarshal([]byte(ExportPayload(FormatXML)), &m); err != nil {
		t.Fatalf("export payload not json: %v", err)
	}
	if m["action"] != "export" || m["format"] != "xml" {
		t.Fatalf("export payload wrong: %v", m)
	}
}
