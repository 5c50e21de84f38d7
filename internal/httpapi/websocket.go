package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"modelstation/internal/bus"
)

// clientHeartbeatInterval is how often the UI is expected to ping; the
// server's read deadline is kept a little looser so one missed beat isn't
// treated as a disconnect.
const clientHeartbeatInterval = 60 * time.Second
const readDeadline = 70 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type clientMessage struct {
	Type string `json:"type"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Logger.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	events, unsubscribe := s.Bus.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go s.wsReadPump(conn, done)
	s.wsWritePump(conn, events, done)
}

// wsReadPump drains client frames (heartbeats) until the connection closes
// or goes quiet past readDeadline.
func (s *Server) wsReadPump(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
		var msg clientMessage
		if json.Unmarshal(raw, &msg) == nil && msg.Type == "heartbeat" {
			_ = conn.WriteJSON(clientMessage{Type: "heartbeat"})
		}
	}
}

// wsWritePump forwards bus events to the client until done fires.
func (s *Server) wsWritePump(conn *websocket.Conn, events <-chan bus.Event, done chan struct{}) {
	for {
		select {
		case evt, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
