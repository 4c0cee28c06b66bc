// Package server exposes the recording service to the external graphical
// shell over HTTP, with level and lifecycle events streamed on a WebSocket.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/soundset/datacap/internal/recorder"
	"github.com/soundset/datacap/internal/service"
)

// Server is the shell-facing control server.
type Server struct {
	svc  *service.Service
	port string
	hub  *hub
}

// New creates a server around an opened service.
func New(svc *service.Service, port string) *Server {
	return &Server{svc: svc, port: port, hub: newHub()}
}

// Start runs the HTTP server. Blocks until the listener fails.
func (s *Server) Start() error {
	events, err := s.svc.Events()
	if err != nil {
		return err
	}
	go s.hub.run(events)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/devices", s.handleDevices)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/record", s.handleRecord)
	mux.HandleFunc("POST /api/stop", s.handleStop)
	mux.HandleFunc("POST /api/test/start", s.handleTestStart)
	mux.HandleFunc("POST /api/test/stop", s.handleTestStop)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	srv := &http.Server{
		Addr:              ":" + s.port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	slog.Info("control server listening", "addr", srv.Addr)
	return srv.ListenAndServe()
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.svc.Devices()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, map[string]any{"devices": devices, "count": len(devices)})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.svc.Status())
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	var params recorder.Params
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	if err := s.svc.Record(params); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, map[string]any{"status": "recording", "category": params.Category})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.StopRecording(); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, map[string]any{"status": "stopped"})
}

func (s *Server) handleTestStart(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.StartTest(); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, map[string]any{"status": "testing"})
}

func (s *Server) handleTestStop(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.StopTest(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, map[string]any{"status": "idle"})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, recorder.ErrInvalidParameter):
		return http.StatusBadRequest
	case errors.Is(err, recorder.ErrSessionConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
