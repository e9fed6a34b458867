package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/seenimoa/stockdash/internal/analysis"
	"github.com/seenimoa/stockdash/pkg/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS middleware does not apply to upgrades; the API is read-only
	},
}

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	sendBuffer = 64
)

// WSMessage is a message sent to a WebSocket client.
type WSMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// wsRequest is a message received from a client:
//
//	{"type":"analyze","ticker":"AAPL","range":"6mo"}
//	{"type":"ping"}
type wsRequest struct {
	Type   string `json:"type"`
	Ticker string `json:"ticker,omitempty"`
	Range  string `json:"range,omitempty"`
}

// wsError is the payload of an "error" message.
type wsError struct {
	Ticker string `json:"ticker,omitempty"`
	analysis.Problem
}

// ============================================================
// Hub
// ============================================================

// WSHub tracks connected clients and fans out broadcasts.
type WSHub struct {
	mu      sync.RWMutex
	clients map[*WSClient]struct{}
}

// WSClient is one WebSocket connection.
type WSClient struct {
	hub  *WSHub
	send chan WSMessage
	done chan struct{}
	once sync.Once
}

// NewWSHub creates an empty hub.
func NewWSHub() *WSHub {
	return &WSHub{clients: make(map[*WSClient]struct{})}
}

func newWSClient(hub *WSHub) *WSClient {
	return &WSClient{
		hub:  hub,
		send: make(chan WSMessage, sendBuffer),
		done: make(chan struct{}),
	}
}

// Register adds a client to the hub.
func (h *WSHub) Register(c *WSClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client and stops its writer.
func (h *WSHub) Unregister(c *WSClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

// Broadcast queues msg for every client. Slow clients miss the message.
func (h *WSHub) Broadcast(msg WSMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.enqueue(msg)
	}
}

// ClientCount returns the number of connected clients.
func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll disconnects every client.
func (h *WSHub) CloseAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*WSClient]struct{})
	h.mu.Unlock()
	for c := range clients {
		c.close()
	}
}

// enqueue queues msg without blocking and reports whether it was accepted.
func (c *WSClient) enqueue(msg WSMessage) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *WSClient) close() {
	c.once.Do(func() { close(c.done) })
}

// ============================================================
// Connection handling
// ============================================================

// handleWebSocket upgrades the connection and gives it its own analysis
// session: only the newest "analyze" request of a client gets an answer.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newWSClient(s.wsHub)
	s.wsHub.Register(client)

	session := s.svc.NewSession()
	logger := s.logger.With(zap.String("session", session.ID))
	logger.Debug("websocket connected", zap.String("remote", r.RemoteAddr))

	client.enqueue(WSMessage{Type: "session", Data: map[string]string{"id": session.ID}})

	go s.wsWritePump(conn, client, logger)
	go s.wsReadPump(conn, client, session, logger)
}

// wsReadPump reads client requests until the connection closes.
func (s *Server) wsReadPump(conn *websocket.Conn, client *WSClient, session *analysis.Session, logger *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		client.hub.Unregister(client)
		conn.Close()
		logger.Debug("websocket disconnected")
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}

		var req wsRequest
		if err := json.Unmarshal(message, &req); err != nil {
			client.enqueue(WSMessage{Type: "error", Data: wsError{Problem: analysis.Problem{
				Kind:    "InvalidMessage",
				Message: "message is not valid JSON",
			}}})
			continue
		}

		switch req.Type {
		case "analyze":
			go s.wsAnalyze(ctx, client, session, req, logger)
		case "ping":
			client.enqueue(WSMessage{Type: "pong"})
		default:
			client.enqueue(WSMessage{Type: "error", Data: wsError{Problem: analysis.Problem{
				Kind:    "InvalidMessage",
				Message: "unknown message type " + req.Type,
			}}})
		}
	}
}

// wsAnalyze runs one analysis and replies unless a newer one has started.
func (s *Server) wsAnalyze(ctx context.Context, client *WSClient, session *analysis.Session, req wsRequest, logger *zap.Logger) {
	raw := req.Range
	if raw == "" {
		raw = s.config().Analysis.DefaultRange
	}
	rng, err := models.ParseRange(raw)
	if err != nil {
		client.enqueue(WSMessage{Type: "error", Data: wsError{Ticker: req.Ticker, Problem: analysis.Problem{
			Kind:    "InvalidRange",
			Message: err.Error(),
		}}})
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout())
	defer cancel()

	a, err := session.Analyze(ctx, req.Ticker, rng)
	switch {
	case errors.Is(err, analysis.ErrSuperseded):
		logger.Debug("dropping superseded analysis", zap.String("ticker", req.Ticker))
	case err != nil:
		client.enqueue(WSMessage{Type: "error", Data: wsError{Ticker: req.Ticker, Problem: analysis.Describe(err)}})
	default:
		client.enqueue(WSMessage{Type: "analysis", Data: a})
	}
}

// wsWritePump writes queued messages and keepalive pings.
func (s *Server) wsWritePump(conn *websocket.Conn, client *WSClient, logger *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg := <-client.send:
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Error("websocket marshal failed", zap.String("type", msg.Type), zap.Error(err))
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-client.done:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
