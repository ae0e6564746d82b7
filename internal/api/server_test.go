package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/trapline/trapline/internal/engine"
	"github.com/trapline/trapline/internal/persona"
	"github.com/trapline/trapline/internal/report"
)

type stubAgent struct{}

func (stubAgent) Respond(_ context.Context, _ string, _ []persona.Message, _ persona.TurnContext) persona.Result {
	return persona.Result{Reply: "Hello? Who is this?"}
}

func (stubAgent) Available() bool { return false }

type stubDispatcher struct{}

func (stubDispatcher) Deliver(context.Context, report.FinalReport) error { return nil }

func newTestServer(apiKey string) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := engine.New(stubAgent{}, stubDispatcher{}, nil, nil, engine.DefaultPolicy(), nil, logger)
	return NewServer(8080, apiKey, eng, logger)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer("secret")

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("expected status healthy, got %q", body["status"])
	}
	if body["agent_available"] != false {
		t.Errorf("expected agent_available false, got %v", body["agent_available"])
	}
}

func TestHoneypotGetBanner(t *testing.T) {
	srv := newTestServer("secret")

	// The GET probe is unauthenticated.
	req := httptest.NewRequest("GET", "/honeypot", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestHoneypotRequiresAPIKey(t *testing.T) {
	srv := newTestServer("secret")

	body := `{"sessionId":"s1","message":{"sender":"scammer","text":"hello"}}`
	req := httptest.NewRequest("POST", "/honeypot", strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["status"] != "error" {
		t.Errorf("expected error envelope, got %v", resp)
	}
}

func TestHoneypotProcessesTurn(t *testing.T) {
	srv := newTestServer("secret")

	body := `{
		"sessionId": "s1",
		"message": {"sender": "scammer", "text": "your account is blocked, share otp"},
		"conversationHistory": []
	}`
	req := httptest.NewRequest("POST", "/honeypot", strings.NewReader(body))
	req.Header.Set("x-api-key", "secret")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["status"] != "success" {
		t.Errorf("expected status success, got %q", resp["status"])
	}
	if resp["reply"] == "" {
		t.Error("expected a non-empty reply")
	}
}

func TestHoneypotAcceptsStringMessage(t *testing.T) {
	srv := newTestServer("secret")

	body := `{"sessionId":"s1","message":"hello there"}`
	req := httptest.NewRequest("POST", "/honeypot", strings.NewReader(body))
	req.Header.Set("x-api-key", "secret")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHoneypotValidation(t *testing.T) {
	srv := newTestServer("secret")

	tests := []struct {
		name string
		body string
	}{
		{"missing session id", `{"message":{"text":"hi"}}`},
		{"empty message text", `{"sessionId":"s1","message":{"text":""}}`},
		{"invalid json", `{not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/honeypot", strings.NewReader(tt.body))
			req.Header.Set("x-api-key", "secret")
			w := httptest.NewRecorder()
			srv.router.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", w.Code)
			}
		})
	}
}

func TestStatsEndpoint(t *testing.T) {
	srv := newTestServer("secret")

	// Seed one session through the public surface.
	body := `{"sessionId":"s1","message":{"sender":"scammer","text":"pay to abc@upi"}}`
	req := httptest.NewRequest("POST", "/honeypot", strings.NewReader(body))
	req.Header.Set("x-api-key", "secret")
	srv.router.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest("GET", "/stats", nil)
	req.Header.Set("x-api-key", "secret")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var stats engine.Stats
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if stats.ActiveSessions != 1 {
		t.Errorf("expected 1 active session, got %d", stats.ActiveSessions)
	}
}

func TestStatsRequiresAPIKey(t *testing.T) {
	srv := newTestServer("secret")

	req := httptest.NewRequest("GET", "/stats", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer("secret")

	req := httptest.NewRequest("OPTIONS", "/honeypot", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected wildcard origin, got %q", got)
	}
}
