package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Kamalbura/micstream/internal/metrics"
)

// Hub owns the single consumer slot. At most one WebSocket client receives
// the stream at a time; a new connection replaces the previous one.
type Hub struct {
	logger       *slog.Logger
	metrics      *metrics.Metrics
	upgrader     websocket.Upgrader
	writeTimeout time.Duration

	mu   sync.Mutex
	conn *websocket.Conn

	// Statistics
	consumersAttached uint64
	consumersReplaced uint64
	framesSent        uint64
	sendErrors        uint64
}

// HubStats contains a snapshot of consumer statistics
type HubStats struct {
	Attached          bool   `json:"attached"`
	RemoteAddr        string `json:"remote_addr,omitempty"`
	ConsumersAttached uint64 `json:"consumers_attached"`
	ConsumersReplaced uint64 `json:"consumers_replaced"`
	FramesSent        uint64 `json:"frames_sent"`
	SendErrors        uint64 `json:"send_errors"`
}

// NewHub creates a consumer hub with the given write timeout
func NewHub(writeTimeout time.Duration, logger *slog.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		logger:       logger,
		metrics:      m,
		writeTimeout: writeTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The stream endpoint is open to any origin on the LAN
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HandleWS upgrades an HTTP request to a WebSocket connection and installs
// it as the current consumer, replacing any previous one
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed",
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("error", err.Error()),
		)
		return
	}

	h.attach(conn)

	// The consumer never sends application data; the read loop exists to
	// observe close frames and connection loss
	go h.readLoop(conn)
}

// attach installs conn as the current consumer, closing the previous one
func (h *Hub) attach(conn *websocket.Conn) {
	h.mu.Lock()
	prev := h.conn
	h.conn = conn
	h.consumersAttached++
	if prev != nil {
		h.consumersReplaced++
	}
	h.mu.Unlock()

	if prev != nil {
		deadline := time.Now().Add(h.writeTimeout)
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "replaced by new consumer")
		_ = prev.WriteControl(websocket.CloseMessage, msg, deadline)
		_ = prev.Close()

		h.logger.Info("Consumer replaced",
			slog.String("previous", prev.RemoteAddr().String()),
			slog.String("current", conn.RemoteAddr().String()),
		)
	} else {
		h.logger.Info("Consumer attached",
			slog.String("remote_addr", conn.RemoteAddr().String()),
		)
	}

	h.metrics.SetConsumerConnected(true)
}

// readLoop drains the connection until it closes, then detaches it
func (h *Hub) readLoop(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.detach(conn, fmt.Sprintf("read: %v", err))
			return
		}
	}
}

// detach removes conn if it is still the current consumer. A connection
// that was already replaced is only closed.
func (h *Hub) detach(conn *websocket.Conn, reason string) {
	h.mu.Lock()
	current := h.conn == conn
	if current {
		h.conn = nil
	}
	h.mu.Unlock()

	_ = conn.Close()

	if current {
		h.logger.Info("Consumer detached",
			slog.String("remote_addr", conn.RemoteAddr().String()),
			slog.String("reason", reason),
		)
		h.metrics.SetConsumerConnected(false)
	}
}

// Attached reports whether a consumer is currently connected
func (h *Hub) Attached() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conn != nil
}

// SendText sends a text frame to the current consumer. A write failure
// detaches the consumer and is reported to the caller.
func (h *Hub) SendText(data []byte) error {
	return h.send(websocket.TextMessage, data)
}

// SendBinary sends a binary frame to the current consumer
func (h *Hub) SendBinary(data []byte) error {
	return h.send(websocket.BinaryMessage, data)
}

func (h *Hub) send(messageType int, data []byte) error {
	h.mu.Lock()
	conn := h.conn
	h.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("no consumer attached")
	}

	_ = conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
	if err := conn.WriteMessage(messageType, data); err != nil {
		h.mu.Lock()
		h.sendErrors++
		h.mu.Unlock()

		h.detach(conn, fmt.Sprintf("write: %v", err))
		return fmt.Errorf("failed to write frame: %w", err)
	}

	h.mu.Lock()
	h.framesSent++
	h.mu.Unlock()

	return nil
}

// Close detaches the current consumer, if any
func (h *Hub) Close() {
	h.mu.Lock()
	conn := h.conn
	h.mu.Unlock()

	if conn != nil {
		deadline := time.Now().Add(h.writeTimeout)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "service shutting down")
		_ = conn.WriteControl(websocket.CloseMessage, msg, deadline)
		h.detach(conn, "service shutdown")
	}
}

// GetStats returns a snapshot of consumer statistics
func (h *Hub) GetStats() HubStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	stats := HubStats{
		Attached:          h.conn != nil,
		ConsumersAttached: h.consumersAttached,
		ConsumersReplaced: h.consumersReplaced,
		FramesSent:        h.framesSent,
		SendErrors:        h.sendErrors,
	}
	if h.conn != nil {
		stats.RemoteAddr = h.conn.RemoteAddr().String()
	}
	return stats
}
