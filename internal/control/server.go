// Package control exposes a small local HTTP API so the CLI can inspect
// a running daemon and resolve pending ratifications.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/resolvd/resolvd/internal/decision"
	"github.com/resolvd/resolvd/internal/router"
	"github.com/resolvd/resolvd/internal/store"
)

// Server is the daemon's control surface.
type Server struct {
	addr      string
	authToken string
	router    *router.Router
	gate      *decision.Gate
	store     *store.Service
	httpSrv   *http.Server
}

// NewServer creates a control server. Router, gate and store may each be
// nil; the corresponding endpoints degrade gracefully.
func NewServer(addr, authToken string, rt *router.Router, gate *decision.Gate, st *store.Service) *Server {
	return &Server{
		addr:      addr,
		authToken: strings.TrimSpace(authToken),
		router:    rt,
		gate:      gate,
		store:     st,
	}
}

// Run serves until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/stats", s.withAuth(s.handleStats))
	mux.HandleFunc("/ratifications", s.withAuth(s.handleRatifications))
	mux.HandleFunc("/ratify", s.withAuth(s.handleRatify))

	s.httpSrv = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	slog.Info("Control API listening", "addr", s.addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
		return nil
	}
}

func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.authToken != "" {
			got := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
			if got != s.authToken {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

// StatsResponse aggregates daemon counters for the CLI.
type StatsResponse struct {
	Router *router.Stats       `json:"router,omitempty"`
	Gate   *decision.GateStats `json:"gate,omitempty"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	resp := StatsResponse{}
	if s.router != nil {
		st := s.router.Stats()
		resp.Router = &st
	}
	if s.gate != nil {
		st := s.gate.Stats()
		resp.Gate = &st
	}
	writeJSON(w, resp)
}

func (s *Server) handleRatifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.store == nil {
		writeJSON(w, []store.RatificationRecord{})
		return
	}
	rows, err := s.store.ListPendingRatifications()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []store.RatificationRecord{}
	}
	writeJSON(w, rows)
}

// RatifyRequest is the CLI's approve/deny payload.
type RatifyRequest struct {
	RatificationID string `json:"ratification_id"`
	Approve        bool   `json:"approve"`
}

func (s *Server) handleRatify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req RatifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if req.RatificationID == "" {
		http.Error(w, "missing ratification_id", http.StatusBadRequest)
		return
	}
	if s.gate == nil || s.gate.Ratifier() == nil {
		http.Error(w, "no ratifier running", http.StatusServiceUnavailable)
		return
	}
	if err := s.gate.Ratifier().Respond(req.RatificationID, req.Approve); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{"ok": true, "approved": req.Approve})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
