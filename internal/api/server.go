// Package api is the HTTP transport: request decoding, auth, CORS, and the
// JSON envelope. All conversation logic lives in the engine.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trapline/trapline/internal/engine"
)

type Server struct {
	router *chi.Mux
	engine *engine.Engine
	apiKey string
	port   int
	logger *slog.Logger
}

func NewServer(port int, apiKey string, eng *engine.Engine, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(cors)

	s := &Server{
		router: router,
		engine: eng,
		apiKey: apiKey,
		port:   port,
		logger: logger,
	}

	router.Get("/health", s.health)
	router.Get("/honeypot", s.banner)
	router.Post("/honeypot", s.auth(s.honeypot))
	router.Get("/stats", s.auth(s.stats))
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return s
}

// Handler exposes the router so main can own the http.Server and its
// shutdown.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Addr() string {
	return fmt.Sprintf(":%d", s.port)
}

// cors answers preflight requests and stamps the permissive headers the
// tester platform expects.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, x-api-key")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// auth checks the shared key on protected routes. An empty configured key
// disables the check, which only makes sense in local development.
func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" && r.Header.Get("x-api-key") != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		next(w, r)
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "healthy",
		"service":         "honeypot-engine",
		"agent_available": s.engine.AgentAvailable(),
	})
}

// banner answers GET probes on the honeypot path so platform health checks
// see a live endpoint without authenticating.
func (s *Server) banner(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "Honeypot API is running. POST conversations to this endpoint.",
	})
}

// turnRequest is the inbound message envelope. The message text may arrive
// as a structured object or a bare string; inboundMessage absorbs both.
type turnRequest struct {
	SessionID string           `json:"sessionId"`
	Message   inboundMessage   `json:"message"`
	History   []inboundMessage `json:"conversationHistory"`
}

type inboundMessage struct {
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// UnmarshalJSON accepts either {"sender":...,"text":...} or a plain JSON
// string carrying just the text.
func (m *inboundMessage) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		m.Text = text
		return nil
	}
	type alias inboundMessage
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*m = inboundMessage(a)
	return nil
}

func (s *Server) honeypot(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "sessionId is required")
		return
	}
	if req.Message.Text == "" {
		writeError(w, http.StatusBadRequest, "message text is required")
		return
	}

	history := make([]engine.Turn, 0, len(req.History))
	for _, m := range req.History {
		history = append(history, engine.Turn{Sender: m.Sender, Text: m.Text, Timestamp: m.Timestamp})
	}
	turn := engine.Turn{
		Sender:    req.Message.Sender,
		Text:      req.Message.Text,
		Timestamp: req.Message.Timestamp,
	}

	reply, err := s.engine.ProcessTurn(r.Context(), req.SessionID, turn, history)
	if err != nil {
		s.logger.Error("turn failed", "session_id", req.SessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to process message")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "success",
		"reply":  reply,
	})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Stats())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"status": "error", "message": msg})
}
