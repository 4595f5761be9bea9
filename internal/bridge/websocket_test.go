package bridge

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type recorder struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recorder) record(origin, payload string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, origin+"|"+payload)
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}

func dial(t *testing.T, ts *httptest.Server, origin string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	hdr := map[string][]string{"Origin": {origin}}
	ws, _, err := websocket.DefaultDialer.Dial(url, hdr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return ws
}

func TestBridge_RelaysInboundWithOrigin(t *testing.T) {
	rec := &recorder{}
	b := New(rec.record)
	ts := httptest.NewServer(b)
	defer ts.Close()

	ws := dial(t, ts, "https://embed.diagrams.net")
	defer ws.Close()

	if err := ws.WriteMessage(websocket.TextMessage, []byte(`{"event":"init"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(rec.all()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	got := rec.all()
	if len(got) != 1 || got[0] != `https://embed.diagrams.net|{"event":"init"}` {
		t.Fatalf("relayed = %v", got)
	}
}

func TestBridge_SendReachesEditor(t *testing.T) {
	b := New(func(string, string) {})
	ts := httptest.NewServer(b)
	defer ts.Close()

	ws := dial(t, ts, "")
	defer ws.Close()

	deadline := time.Now().Add(2 * time.Second)
	for !b.Connected() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if err := b.Send(`{"action":"load"}`); err != nil {
		t.Fatalf("send: %v", err)
	}

	_, data, err := ws.ReadMessage()
	if err != nil || string(data) != `{"action":"load"}` {
		t.Fatalf("read: %q, %v", data, err)
	}
}

func TestBridge_SendWithoutConnection(t *testing.T) {
	b := New(func(string, string) {})
	if err := b.Send("x"); err == nil {
		t.Fatal("expected error with no connection")
	}
}
