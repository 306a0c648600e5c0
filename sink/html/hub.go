package html

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/weaveui/weave"
	"github.com/weaveui/weave/stream"
)

// Message is the wire format between hub and browser. The hub pushes "frame"
// messages; the browser sends "click" messages naming an element id.
type Message struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
	HTML string `json:"html,omitempty"`
}

// Hub serves live sessions over websockets: each connection mounts its own
// tree, receives a frame on every binding change, and feeds page events back
// into the reactive graph.
type Hub struct {
	build    func() (weave.Renderable, error)
	logger   weave.Logger
	upgrader websocket.Upgrader
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithLogger adds connection and event logging.
func WithLogger(l weave.Logger) HubOption {
	return func(h *Hub) {
		h.logger = l
	}
}

// NewHub creates a hub mounting a fresh tree per connection via build.
func NewHub(build func() (weave.Renderable, error), opts ...HubOption) *Hub {
	h := &Hub{
		build:  build,
		logger: weave.NopLogger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP upgrades the request and runs the connection until the peer
// disconnects or the session fails.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	renderable, err := h.build()
	if err != nil {
		h.logger.Error("mount failed", "error", err)
		_ = conn.WriteJSON(Message{Type: "error", HTML: err.Error()})
		return
	}
	session := NewSession(renderable)
	defer session.Close()

	// gorilla allows one concurrent writer; frames arrive re-entrantly from
	// the read loop's click dispatches as well as from the initial frame
	var writeMu sync.Mutex
	send := func(m Message) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(m)
	}

	if err := send(Message{Type: "frame", HTML: session.HTML()}); err != nil {
		return
	}
	frameSub := session.Frames().Subscribe(stream.Observer[string]{
		Next: func(frame string) {
			if err := send(Message{Type: "frame", HTML: frame}); err != nil {
				h.logger.Debug("frame write failed", "error", err)
			}
		},
		Err: func(err error) {
			h.logger.Error("session failed", "error", err)
			_ = send(Message{Type: "error", HTML: err.Error()})
		},
	})
	defer frameSub.Unsubscribe()

	h.logger.Info("session connected", "remote", r.RemoteAddr)
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			h.logger.Debug("session disconnected", "remote", r.RemoteAddr, "error", err)
			return
		}
		switch msg.Type {
		case "click":
			if err := session.Click(msg.ID); err != nil {
				h.logger.Debug("click ignored", "id", msg.ID, "error", err)
			}
		default:
			h.logger.Debug("unknown message", "type", msg.Type)
		}
	}
}
