package report

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/trapline/trapline/internal/intel"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDispatcher(url string) *Dispatcher {
	d := NewDispatcher(url, discardLogger())
	d.delay = time.Millisecond // keep retries fast under test
	return d
}

func TestDeliverFirstAttempt(t *testing.T) {
	var calls atomic.Int32
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	rep := Build("sess-1", true, 12, intel.Record{UPIIDs: []string{"abc@upi"}}, []string{"Scam detected at msg 2 (conf: 0.85)"})
	if err := testDispatcher(srv.URL).Deliver(context.Background(), rep); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("collector called %d times, want 1", calls.Load())
	}

	var payload map[string]any
	if err := json.Unmarshal(gotBody, &payload); err != nil {
		t.Fatalf("payload not JSON: %v", err)
	}
	if payload["sessionId"] != "sess-1" || payload["scamDetected"] != true {
		t.Errorf("payload = %v", payload)
	}
	if payload["totalMessagesExchanged"] != float64(12) {
		t.Errorf("totalMessagesExchanged = %v", payload["totalMessagesExchanged"])
	}
	// Only non-empty categories appear on the wire.
	intelPayload := payload["extractedIntelligence"].(map[string]any)
	if _, ok := intelPayload["upiIds"]; !ok {
		t.Error("upiIds missing from payload")
	}
	if _, ok := intelPayload["phoneNumbers"]; ok {
		t.Error("empty phoneNumbers category should be omitted")
	}
}

func TestDeliverRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	rep := Build("sess-2", false, 20, intel.Record{}, nil)
	if err := testDispatcher(srv.URL).Deliver(context.Background(), rep); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("collector called %d times, want 3", calls.Load())
	}
}

func TestDeliverExhaustsAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	rep := Build("sess-3", true, 9, intel.Record{}, nil)
	err := testDispatcher(srv.URL).Deliver(context.Background(), rep)
	if err == nil {
		t.Fatal("Deliver() should fail after exhausting attempts")
	}
	if calls.Load() != defaultAttempts {
		t.Errorf("collector called %d times, want %d", calls.Load(), defaultAttempts)
	}
}

func TestBuildNotes(t *testing.T) {
	rep := Build("s", true, 5, intel.Record{}, []string{"a", "b"})
	if rep.AgentNotes != "a | b" {
		t.Errorf("AgentNotes = %q, want joined", rep.AgentNotes)
	}

	rep = Build("s", false, 5, intel.Record{}, nil)
	if !strings.Contains(rep.AgentNotes, "completed") {
		t.Errorf("AgentNotes = %q, want default note", rep.AgentNotes)
	}
}
