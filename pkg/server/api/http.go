// Package api exposes the latest report over HTTP and WebSocket.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/StrathCole/spread-go/pkg/logging"
	"github.com/StrathCole/spread-go/pkg/metrics"
	"github.com/StrathCole/spread-go/pkg/server/report"
)

// LatestProvider returns the most recent report, or false before the first cycle.
type LatestProvider interface {
	Latest() (report.Report, bool)
}

// StatusResponse is returned when there is nothing to show yet.
type StatusResponse struct {
	Status string `json:"status"`
}

const (
	statusLoading     = "loading"
	statusUnavailable = "unavailable"
)

// Server represents the HTTP API server.
type Server struct {
	addr     string
	latest   LatestProvider
	server   *http.Server
	logger   *logging.Logger
	wsServer *WebSocketServer // Optional WebSocket server mounted at /ws
	tlsCert  string
	tlsKey   string
}

// NewServer creates a new HTTP API server.
func NewServer(addr string, latest LatestProvider, logger *logging.Logger) *Server {
	return &Server{
		addr:   addr,
		latest: latest,
		logger: logger,
	}
}

// SetWebSocketServer mounts the WebSocket endpoint on this server.
func (s *Server) SetWebSocketServer(ws *WebSocketServer) {
	s.wsServer = ws
}

// SetTLS serves HTTPS with the given certificate and key files.
func (s *Server) SetTLS(certFile, keyFile string) {
	s.tlsCert = certFile
	s.tlsKey = keyFile
}

// Handler returns the HTTP handler with all routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/v1/report", s.handleReport)
	mux.HandleFunc("/latest", s.handleReport)
	mux.HandleFunc("/v1/signal", s.handleSignal)
	if s.wsServer != nil {
		mux.HandleFunc("/ws", s.wsServer.HandleWebSocket)
	}
	return mux
}

// Start starts the HTTP server. It blocks until the server is stopped.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	var err error
	if s.tlsCert != "" {
		s.logger.Info("Starting HTTPS server", "addr", s.addr)
		err = s.server.ListenAndServeTLS(s.tlsCert, s.tlsKey)
	} else {
		s.logger.Info("Starting HTTP server", "addr", s.addr)
		err = s.server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		s.logger.Info("Stopping HTTP server")
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleHealth handles /health endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	start := time.Now()
	defer func() {
		metrics.RecordHTTPRequest("/health", "200", time.Since(start))
	}()

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReport handles /v1/report and /latest endpoints.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := http.StatusOK
	defer func() {
		metrics.RecordHTTPRequest(r.URL.Path, fmt.Sprint(status), time.Since(start))
	}()

	rep, ok := s.latest.Latest()
	if !ok {
		status = http.StatusServiceUnavailable
		s.sendJSON(w, status, StatusResponse{Status: statusLoading})
		return
	}

	s.sendJSON(w, status, rep)
}

// handleSignal handles /v1/signal endpoint.
func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := http.StatusOK
	defer func() {
		metrics.RecordHTTPRequest(r.URL.Path, fmt.Sprint(status), time.Since(start))
	}()

	rep, ok := s.latest.Latest()
	switch {
	case !ok:
		status = http.StatusServiceUnavailable
		s.sendJSON(w, status, StatusResponse{Status: statusLoading})
	case rep.Signal == nil:
		status = http.StatusServiceUnavailable
		s.sendJSON(w, status, StatusResponse{Status: statusUnavailable})
	default:
		s.sendJSON(w, status, rep.Signal)
	}
}

// sendJSON sends a JSON response.
func (s *Server) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response", "error", err)
	}
}
