package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/StrathCole/spread-go/pkg/logging"
	"github.com/StrathCole/spread-go/pkg/metrics"
	"github.com/StrathCole/spread-go/pkg/server/report"
)

// Message types exchanged with clients.
const (
	MessageReport = "report"
	MessagePing   = "ping"
	MessagePong   = "pong"
	MessageLatest = "latest"
	MessageStatus = "status"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = 54 * time.Second
	sendBuffer   = 16
	readMaxBytes = 4096
)

// WebSocketServer streams every report to connected clients.
type WebSocketServer struct {
	addr     string
	latest   LatestProvider
	logger   *logging.Logger
	upgrader websocket.Upgrader

	// Client management
	mu      sync.RWMutex
	clients map[*WebSocketClient]bool

	// Server control
	ctx    context.Context
	cancel context.CancelFunc
}

// WebSocketClient represents a connected WebSocket client.
type WebSocketClient struct {
	conn   *websocket.Conn
	send   chan []byte
	server *WebSocketServer
}

// WebSocketMessage represents a client message.
type WebSocketMessage struct {
	Type string `json:"type"` // "ping" or "latest"
}

// ReportMessage is sent to clients after every cycle.
type ReportMessage struct {
	Type string `json:"type"` // "report"
	report.Report
}

// StatusMessage is sent when a client asks for the latest report before the first cycle.
type StatusMessage struct {
	Type   string `json:"type"`   // "status"
	Status string `json:"status"` // "loading"
}

// NewWebSocketServer creates a new WebSocket server. latest may be nil, in
// which case new clients only receive subsequent reports.
func NewWebSocketServer(addr string, latest LatestProvider, logger *logging.Logger) *WebSocketServer {
	ctx, cancel := context.WithCancel(context.Background())

	return &WebSocketServer{
		addr:   addr,
		latest: latest,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				// Allow all origins (configure CORS as needed)
				return true
			},
		},
		clients: make(map[*WebSocketClient]bool),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start serves /ws on the server's own address. It blocks until Stop is
// called or ctx is cancelled.
func (s *WebSocketServer) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleWebSocket)

	server := &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("Starting WebSocket server", "addr", s.addr)

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	case <-s.ctx.Done():
	}

	s.closeClients()

	// Graceful shutdown with a bounded timeout, independent of the cancelled parent
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// Stop stops the WebSocket server and disconnects all clients.
func (s *WebSocketServer) Stop() {
	s.cancel()
	s.closeClients()
}

// Publish broadcasts a report to all clients. Clients whose buffer is full
// miss the update.
func (s *WebSocketServer) Publish(_ context.Context, r report.Report) {
	data, err := json.Marshal(ReportMessage{Type: MessageReport, Report: r})
	if err != nil {
		s.logger.Error("Failed to marshal report", "error", err)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for client := range s.clients {
		select {
		case client.send <- data:
		default:
			s.logger.Warn("Client send buffer full, skipping update", "remote", client.conn.RemoteAddr())
		}
	}
}

// ClientCount returns the number of connected clients.
func (s *WebSocketServer) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// HandleWebSocket upgrades a request and starts streaming to the client.
func (s *WebSocketServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.ctx.Err() != nil {
		http.Error(w, "server stopping", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := &WebSocketClient{
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		server: s,
	}

	s.registerClient(client)
	client.sendLatest()

	// Start client goroutines
	go client.writePump()
	go client.readPump()

	s.logger.Info("New WebSocket client connected", "remote", conn.RemoteAddr())
}

// registerClient adds a client to the server.
func (s *WebSocketServer) registerClient(client *WebSocketClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[client] = true
	metrics.WebSocketClients.Set(float64(len(s.clients)))
}

// unregisterClient removes a client from the server.
func (s *WebSocketServer) unregisterClient(client *WebSocketClient) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[client]; ok {
		delete(s.clients, client)
		close(client.send)
		metrics.WebSocketClients.Set(float64(len(s.clients)))
	}
}

func (s *WebSocketServer) closeClients() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for client := range s.clients {
		delete(s.clients, client)
		close(client.send)
	}
	metrics.WebSocketClients.Set(0)
}

// enqueue queues data for the client unless it has been unregistered.
func (c *WebSocketClient) enqueue(data []byte) {
	c.server.mu.RLock()
	defer c.server.mu.RUnlock()

	if !c.server.clients[c] {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *WebSocketClient) enqueueJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		c.server.logger.Error("Failed to marshal message", "error", err)
		return
	}
	c.enqueue(data)
}

// writePump sends messages to the WebSocket connection.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.server.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads messages from the WebSocket connection.
func (c *WebSocketClient) readPump() {
	defer func() {
		c.server.unregisterClient(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(readMaxBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.server.logger.Error("WebSocket error", "error", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// handleMessage processes client messages.
func (c *WebSocketClient) handleMessage(data []byte) {
	var msg WebSocketMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.server.logger.Warn("Invalid client message", "error", err)
		return
	}

	switch msg.Type {
	case MessagePing:
		c.enqueueJSON(WebSocketMessage{Type: MessagePong})
	case MessageLatest:
		if !c.sendLatest() {
			c.enqueueJSON(StatusMessage{Type: MessageStatus, Status: statusLoading})
		}
	default:
		c.server.logger.Warn("Unknown message type", "type", msg.Type)
	}
}

// sendLatest queues the latest report, if there is one.
func (c *WebSocketClient) sendLatest() bool {
	if c.server.latest == nil {
		return false
	}
	rep, ok := c.server.latest.Latest()
	if !ok {
		return false
	}
	c.enqueueJSON(ReportMessage{Type: MessageReport, Report: rep})
	return true
}
