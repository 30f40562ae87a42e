package server

import (
	"net/http"
	"time"

	"codeberg.org/mutker/resmon/internal/logger"
	"codeberg.org/mutker/resmon/internal/monitor"
	"github.com/gorilla/websocket"
)

const (
	// writeWait is the time allowed to write a message to a client
	writeWait = 10 * time.Second

	// pongWait is how long to wait for a pong response
	pongWait = 60 * time.Second

	// pingPeriod must be shorter than pongWait
	pingPeriod = 30 * time.Second

	// clientEventBuffer bounds each connection's pending events
	clientEventBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(*http.Request) bool {
		// Local telemetry endpoint; the UI connects from file:// and
		// arbitrary dev origins.
		return true
	},
}

// handleWebSocket upgrades the connection and streams the monitor's
// event feed to the client as JSON messages. Each connection holds its
// own bounded subscription, so a stalled client only loses its own
// events and never slows the sampler or other clients.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	sub := s.monitor.Publisher().SubscribeBuffered(clientEventBuffer)

	logger.Debug().Str("remote", conn.RemoteAddr().String()).Msg("Subscriber connected")

	go s.readLoop(conn, func() { sub.Close() })
	s.writeLoop(conn, sub)
}

// readLoop drains client messages to process control frames; the
// stream is one-way, so content is discarded.
func (s *Server) readLoop(conn *websocket.Conn, onClose func()) {
	defer onClose()

	conn.SetReadLimit(512)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writeLoop(conn *websocket.Conn, sub *monitor.Subscription) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sub.Close()
		conn.Close()
	}()

	for {
		select {
		case event, ok := <-sub.Events():
			if !ok {
				// Subscription closed; tell the client we are done
				deadline := time.Now().Add(writeWait)
				_ = conn.WriteControl(websocket.CloseMessage, nil, deadline)
				return
			}
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				logger.Debug().Err(err).Msg("Subscriber write failed")
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
