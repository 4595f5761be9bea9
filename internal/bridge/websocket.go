package bridge

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// ─────────────────────────────────────────────────────────────
// Editor bridge — websocket channel to an out-of-process editor
// ─────────────────────────────────────────────────────────────

// MessageFunc receives one raw inbound payload with its source origin.
type MessageFunc func(origin, payload string)

// Bridge relays protocol payloads between the session controller and an
// embedded editor window that cannot post messages into the webview
// directly (external browser, wails dev). One connection at a time: a
// new connection replaces the old.
type Bridge struct {
	upgrader  websocket.Upgrader
	onMessage MessageFunc

	mu     sync.Mutex
	conn   *websocket.Conn
	origin string
}

// New creates a Bridge delivering inbound payloads to onMessage.
func New(onMessage MessageFunc) *Bridge {
	return &Bridge{
		// The controller filters by the page's reported origin; the
		// upgrade itself accepts any local window.
		upgrader:  websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		onMessage: onMessage,
	}
}

// ServeHTTP upgrades the request and pumps inbound messages until the
// connection drops.
func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	origin := r.Header.Get("Origin")

	b.mu.Lock()
	if b.conn != nil {
		b.conn.Close()
	}
	b.conn = ws
	b.origin = origin
	b.mu.Unlock()

	for {
		msgType, data, err := ws.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		b.onMessage(origin, string(data))
	}

	b.mu.Lock()
	if b.conn == ws {
		b.conn = nil
		b.origin = ""
	}
	b.mu.Unlock()
	ws.Close()
}

// Send pushes one payload to the connected editor window.
func (b *Bridge) Send(payload string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return fmt.Errorf("no editor window connected")
	}
	return b.conn.WriteMessage(websocket.TextMessage, []byte(payload))
}

// Connected reports whether an editor window is currently attached.
func (b *Bridge) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil
}
