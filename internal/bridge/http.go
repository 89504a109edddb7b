package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/bestway-spa/internal/coordinator"
	"github.com/muurk/bestway-spa/internal/logging"
	"github.com/muurk/bestway-spa/internal/spa"
	"github.com/muurk/bestway-spa/internal/spaclient"
	"github.com/muurk/bestway-spa/internal/version"
)

const maxRequestBody = 4096

// StateResponse is the body of GET /api/state and of successful commands
type StateResponse struct {
	Snapshot   spaclient.Snapshot `json:"snapshot"`
	Status     spa.Status         `json:"status"`
	Available  bool               `json:"available"`
	LastUpdate *time.Time         `json:"last_update,omitempty"`
	Error      string             `json:"error,omitempty"`
	Optimistic bool               `json:"optimistic,omitempty"`
}

// CommandRequest is the body of POST /api/command and a websocket command
type CommandRequest struct {
	ID    string `json:"id,omitempty"`
	Key   string `json:"key"`
	Value *int   `json:"value"`
}

// ErrorResponse is returned for failed requests
type ErrorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

// NewStateResponse converts a coordinator update to its JSON form
func NewStateResponse(u coordinator.Update) StateResponse {
	resp := StateResponse{
		Snapshot:   u.Snapshot,
		Status:     u.Status,
		Available:  u.Available,
		Error:      u.Error,
		Optimistic: u.Optimistic,
	}
	if !u.At.IsZero() {
		at := u.At
		resp.LastUpdate = &at
	}
	return resp
}

// Validate checks the command is well formed before it reaches the cloud
func (r CommandRequest) Validate() error {
	if strings.TrimSpace(r.Key) == "" {
		return errors.New("key is required")
	}
	if r.Value == nil {
		return errors.New("value is required")
	}
	if r.Key == spa.KeyTargetTemperature {
		return spa.ValidateTemperature(*r.Value)
	}
	return nil
}

// Handler returns the HTTP handler serving the bridge API
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("POST /api/command", s.handleCommand)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	return logRequests(mux)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, NewStateResponse(s.coord.Current()))
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	if err := s.coord.SendCommand(r.Context(), req.Key, *req.Value); err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewStateResponse(s.coord.Current()))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.coord.Refresh(r.Context()); err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewStateResponse(s.coord.Current()))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"available": s.coord.Current().Available,
		"version":   version.Info(),
		"clients":   s.ActiveConnections(),
	})
}

// writeAPIError maps cloud failures to 502 and everything else to 500
func writeAPIError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var apiErr *spaclient.APIError
	if errors.As(err, &apiErr) {
		status = http.StatusBadGateway
	}
	if errors.Is(err, coordinator.ErrClosed) {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, ErrorResponse{
		Error: spaclient.ShortMessage(err),
		Hint:  spaclient.TroubleshootingHint(err),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug("Failed to write response", zap.Error(err))
	}
}

// statusRecorder captures the status code for request logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Unwrap lets http.ResponseController reach the hijacker for websockets
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
