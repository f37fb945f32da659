// Package api implements the HTTP surface of the agent daemon: a chat
// endpoint, the gateway webhook, health/version probes, and static
// serving of generated assets.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/aviv90/tasker-agent/internal/buildinfo"
	"github.com/aviv90/tasker-agent/internal/orchestrator"
)

// Responder delivers results to chats asynchronously. *gateway.Client
// satisfies it; tests substitute a recorder.
type Responder interface {
	SendMessage(ctx context.Context, chatID, text string) error
	SendFileByURL(ctx context.Context, chatID, fileURL, caption string) error
}

// Server is the HTTP API server.
type Server struct {
	addr      string
	orc       *orchestrator.Orchestrator
	responder Responder
	assetsDir string
	logger    *slog.Logger
	server    *http.Server
}

// NewServer creates an API server. responder may be nil when no
// outbound gateway is configured; webhook results are then only logged.
func NewServer(addr string, orc *orchestrator.Orchestrator, responder Responder, assetsDir string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:      addr,
		orc:       orc,
		responder: responder,
		assetsDir: assetsDir,
		logger:    logger,
	}
}

// Handler builds the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/chat", s.handleChat)
	mux.HandleFunc("POST /webhook", s.handleWebhook)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /version", s.handleVersion)

	if s.assetsDir != "" {
		mux.Handle("GET /assets/", http.StripPrefix("/assets/", http.FileServer(http.Dir(s.assetsDir))))
	}

	return s.withLogging(mux)
}

// Start begins serving HTTP requests and blocks until the listener
// fails or Shutdown is called.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}
	s.logger.Info("starting API server", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("failed to write JSON response", "error", err)
	}
}

// ChatRequest is the synchronous chat API request.
type ChatRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// handleChat runs one request through the orchestrator and returns the
// full result synchronously.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if req.Text == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
		return
	}
	if req.ChatID == "" {
		req.ChatID = "default"
	}

	res := s.orc.Handle(r.Context(), req.ChatID, req.Text)
	s.writeJSON(w, http.StatusOK, res)
}

// webhookPayload is the gateway's inbound message notification.
type webhookPayload struct {
	ChatID string `json:"chat_id"`
	Sender string `json:"sender,omitempty"`
	Text   string `json:"text"`
}

// handleWebhook accepts a gateway push, acknowledges immediately, and
// processes the request in the background, delivering the answer back
// through the responder.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if payload.ChatID == "" || payload.Text == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "chat_id and text are required"})
		return
	}

	go s.process(payload.ChatID, payload.Text)
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// process runs one webhook request end to end and delivers the result.
func (s *Server) process(chatID, text string) {
	ctx := context.Background()
	res := s.orc.Handle(ctx, chatID, text)

	if s.responder == nil {
		s.logger.Info("webhook result (no responder)", "chat_id", chatID, "success", res.Success)
		return
	}

	Deliver(ctx, s.responder, chatID, res, s.logger)
}

// Deliver sends an orchestrator result to a chat: text first, then each
// attached asset. Send failures are logged, not retried.
func Deliver(ctx context.Context, responder Responder, chatID string, res *orchestrator.Result, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	text := res.Text
	if !res.Success && res.Error != "" {
		text = res.Error
	}
	if text != "" {
		if err := responder.SendMessage(ctx, chatID, text); err != nil {
			logger.Warn("reply delivery failed", "chat_id", chatID, "error", err)
		}
	}

	for _, asset := range []string{res.ImageURL, res.VideoURL, res.AudioURL} {
		if asset == "" {
			continue
		}
		if err := responder.SendFileByURL(ctx, chatID, asset, ""); err != nil {
			logger.Warn("asset delivery failed", "chat_id", chatID, "url", asset, "error", err)
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"name":    "tasker-agent",
		"version": buildinfo.Version,
		"commit":  buildinfo.GitCommit,
		"uptime":  buildinfo.Uptime().String(),
	})
}
