package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"cardbot/pkg/activity"
	"cardbot/pkg/bot"
	"cardbot/pkg/cards"
	"cardbot/pkg/config"
	"cardbot/pkg/logger"
)

const maxActivityBytes = 1 << 20

type Dispatcher interface {
	Dispatch(ctx context.Context, ev bot.InboundEvent) (bot.Result, error)
}

type Server struct {
	mu         sync.Mutex
	server     *http.Server
	stopped    bool
	config     *config.Config
	dispatcher Dispatcher
	limiter    *rate.Limiter
	issues     func() []string
}

func NewServer(cfg *config.Config, dispatcher Dispatcher) *Server {
	limit := rate.Inf
	if cfg.Gateway.TurnsPerSecond > 0 {
		limit = rate.Limit(cfg.Gateway.TurnsPerSecond)
	}
	return &Server{
		config:     cfg,
		dispatcher: dispatcher,
		limiter:    rate.NewLimiter(limit, cfg.Gateway.TurnBurst),
	}
}

// SetHealthSource makes /health report the issues returned by fn. Call it
// before serving.
func (s *Server) SetHealthSource(fn func() []string) {
	s.issues = fn
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/messages", s.handleMessages)
	mux.HandleFunc("GET /{$}", s.handleRoot)
	return s.withCORS(mux)
}

// ListenAndServe blocks until the server stops. Shutdown via Stop returns
// nil; a server stopped before it started serving returns at once.
func (s *Server) ListenAndServe() error {
	addr := s.config.GatewayAddr()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ln)
}

func (s *Server) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ln.Close()
	}
	s.server = srv
	s.mu.Unlock()

	logger.InfoCF("server", "Starting HTTP gateway", map[string]interface{}{
		"addr": ln.Addr().String(),
	})

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.stopped = true
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	logger.InfoC("server", "Stopping HTTP gateway")
	return srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.issues != nil {
		if issues := s.issues(); len(issues) > 0 {
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "degraded", Issues: issues})
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "cardbot gateway running\nTime: %s", time.Now().Format(time.RFC3339))
}

type messagesResponse struct {
	Activities []activity.Activity `json:"activities"`
}

type healthResponse struct {
	Status string   `json:"status"`
	Issues []string `json:"issues"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleMessages runs one turn synchronously. Message-like activities get
// their replies back in the response body, in order; task module fetches get
// the invoke response body.
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow() {
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "too many turns"})
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxActivityBytes+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if len(data) > maxActivityBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "activity too large"})
		return
	}

	src, ev, err := activity.Decode(data)
	switch {
	case errors.Is(err, activity.ErrUnhandledActivity):
		logger.DebugCF("server", "Ignoring activity", map[string]interface{}{
			"type":                 src.Type,
			logger.FieldActivityID: src.ID,
		})
		w.WriteHeader(http.StatusAccepted)
		return
	case err != nil:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	fields := map[string]interface{}{
		logger.FieldEventType:      string(ev.Type()),
		logger.FieldConversationID: src.ConversationID(),
		logger.FieldActivityID:     src.ID,
	}

	res, err := s.dispatcher.Dispatch(r.Context(), ev)
	if err != nil {
		fields[logger.FieldError] = err.Error()
		var loadErr *cards.CardLoadError
		if errors.As(err, &loadErr) {
			fields[logger.FieldCardPath] = loadErr.Path
		}
		logger.ErrorCF("server", "Turn failed", fields)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "turn failed"})
		return
	}

	fields[logger.FieldActionCount] = len(res.Actions)
	logger.InfoCF("server", "Turn handled", fields)

	if res.TaskModule != nil {
		writeJSON(w, http.StatusOK, activity.TaskModuleBody(*res.TaskModule))
		return
	}
	writeJSON(w, http.StatusOK, messagesResponse{Activities: activity.Replies(src, res.Actions)})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WarnCF("server", "Failed to write response", map[string]interface{}{
			logger.FieldError: err.Error(),
		})
	}
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
