// Package api provides the HTTP server for ollamagate.
//
// Routes:
//
//	POST /api/chat     → {"model","prompt"} in, {"response"} or {"message"} out
//	GET  /health       → Health check (also pings Ollama)
//	GET  /api/info     → Gateway version, Ollama URL, host CPU summary
//	GET  /api/metrics  → JSON metrics snapshot
//	GET  /*            → Front-end assets
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hartyporpoise/ollamagate/internal/config"
	"github.com/hartyporpoise/ollamagate/internal/host"
	"github.com/hartyporpoise/ollamagate/internal/metrics"
	"github.com/hartyporpoise/ollamagate/internal/ollama"
)

// Version is the gateway release reported by /api/info and the CLI.
const Version = "0.1.0"

const (
	// maxRequestBodyBytes caps incoming JSON request bodies at 10 MB.
	maxRequestBodyBytes = 10 * 1024 * 1024

	shutdownTimeout = 10 * time.Second
)

// pingTimeout bounds version checks so a hung daemon cannot stall startup
// or the health and info routes.
var pingTimeout = 3 * time.Second

// Bridge is the part of *ollama.Client the server depends on.
type Bridge interface {
	Generate(ctx context.Context, req ollama.GenerateRequest) (*ollama.Result, error)
	Version(ctx context.Context) (string, error)
}

// Server is the ollamagate HTTP server.
type Server struct {
	cfg     *config.Config
	bridge  Bridge
	metrics *metrics.Collector
	host    host.Info
	log     *slog.Logger
	mux     *http.ServeMux
	started time.Time
}

// Ping asks the bridge for the Ollama version, giving up after a few seconds.
func Ping(ctx context.Context, b Bridge) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return b.Version(ctx)
}

// NewServer creates a Server with all routes registered. The bridge is
// shared by every request and must be safe for concurrent use.
func NewServer(cfg *config.Config, bridge Bridge, mc *metrics.Collector, info host.Info, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		cfg:     cfg,
		bridge:  bridge,
		metrics: mc,
		host:    info,
		log:     log,
		mux:     http.NewServeMux(),
		started: time.Now(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return requestID(accessLog(s.log, cors(s.mux)))
}

// Run serves on cfg.Addr() until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Addr(),
		Handler: s.Handler(),
		// ReadHeaderTimeout stops slow-loris clients from pinning goroutines.
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		// No WriteTimeout: a chat call is bounded by the Ollama request timeout.
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", "http://"+srv.Addr, "ollama", s.cfg.OllamaURL)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/api/chat", s.handleChat)

	// Utility
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/info", s.handleInfo)
	s.mux.HandleFunc("/api/metrics", s.handleMetrics)

	s.mux.Handle("/", staticHandler(s.cfg.StaticDir, s.log))
}

// ─────────────────────────────────────────────────────────────────────────
// Chat
// ─────────────────────────────────────────────────────────────────────────

// chatRequest uses pointers so a missing field can be told apart from an
// empty one; empty strings are forwarded unchanged.
type chatRequest struct {
	Model  *string `json:"model"`
	Prompt *string `json:"prompt"`
}

type chatResponse struct {
	Response string `json:"response"`
}

// apiError is the body of every failed response.
type apiError struct {
	Message string `json:"message"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	var req chatRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if dec.More() {
		writeError(w, http.StatusBadRequest, "invalid request body: unexpected data after JSON object")
		return
	}
	if req.Model == nil || req.Prompt == nil {
		writeError(w, http.StatusBadRequest, "invalid request body: model and prompt are required")
		return
	}

	log := s.log.With("request_id", RequestIDFrom(r.Context()), "model", *req.Model)

	done := s.metrics.RequestStart()
	defer done()

	res, err := s.bridge.Generate(r.Context(), ollama.GenerateRequest{
		Model:  *req.Model,
		Prompt: *req.Prompt,
		Stream: false,
	})
	if err != nil {
		kind := "internal"
		if oe, ok := ollama.AsError(err); ok {
			kind = string(oe.Kind)
		}
		s.metrics.RecordFailure(kind)
		log.Warn("chat failed", "kind", kind, "error", err)
		// Every bridge failure maps to 500; the message tells them apart.
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.metrics.RecordSuccess(res.Chunks, res.Skipped, res.Duration)
	log.Info("chat completed", "chunks", res.Chunks, "skipped", res.Skipped,
		"chars", len(res.Text), "duration", res.Duration)
	writeJSON(w, http.StatusOK, chatResponse{Response: res.Text})
}

// ─────────────────────────────────────────────────────────────────────────
// Health, info, metrics
// ─────────────────────────────────────────────────────────────────────────

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ollamaOK := true
	ollamaVersion, err := Ping(r.Context(), s.bridge)
	if err != nil {
		ollamaOK = false
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"ollama_ok":      ollamaOK,
		"ollama_version": ollamaVersion,
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	ollamaVersion, _ := Ping(r.Context(), s.bridge)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"version":          Version,
		"ollama_url":       s.cfg.OllamaURL,
		"ollama_version":   ollamaVersion,
		"repair_fragments": s.cfg.RepairFragments,
		"timeout_seconds":  s.cfg.RequestTimeout.Seconds(),
		"uptime_seconds":   int(time.Since(s.started).Seconds()),
		"host":             s.host,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}

// ─────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, apiError{Message: msg})
}
