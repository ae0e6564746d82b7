package engine

import (
	"sync"

	"github.com/trapline/trapline/internal/intel"
)

// Turn is one message exchanged by either party. Immutable once recorded;
// the timestamp is advisory only.
type Turn struct {
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Sender values on the wire. Anything other than SenderEngine is treated
// as the counterparty.
const (
	SenderCounterparty = "scammer"
	SenderEngine       = "user"
)

// State is a session's position in the lifecycle. Reported is terminal.
// A session evicted before confirmation simply ends with no report.
type State string

const (
	StateActive      State = "active"
	StateConfirmed   State = "confirmed_scam"
	StateTerminating State = "terminating"
	StateReported    State = "reported"
)

// Session is the per-conversation state owned by the engine. All field
// access goes through mu; network calls never happen while it is held.
type Session struct {
	mu sync.Mutex

	ID            string
	State         State
	ScammerTurns  int // counterparty messages only; drives all thresholds
	TotalMessages int // counterparty + engine, reported to the collector
	ScamConfirmed bool
	Confidence    float64
	Intelligence  intel.Record
	Notes         []string
	AskedTopics   []string
	LastText      string // most recent counterparty message
	Reported      bool   // set exactly once, guards at-most-once dispatch
}

// SessionStore is the live session set: a mutex-guarded map whose contents
// are fully transient. Memory stays bounded because sessions are removed
// right after report dispatch completes.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*Session)}
}

// GetOrCreate returns the session for id, creating it on first contact.
// The second return reports whether the session was just created.
func (s *SessionStore) GetOrCreate(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess, false
	}
	sess := &Session{ID: id, State: StateActive}
	s.sessions[id] = sess
	return sess, true
}

func (s *SessionStore) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func (s *SessionStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// SessionSummary is the /stats view of one live session.
type SessionSummary struct {
	ID           string `json:"id"`
	Messages     int    `json:"messages"`
	ScamDetected bool   `json:"scam_detected"`
	IntelItems   int    `json:"intel_items"`
}

// Summaries snapshots every live session for the stats endpoint.
func (s *SessionStore) Summaries() []SessionSummary {
	out := make([]SessionSummary, 0, s.Len())
	for _, sess := range s.live() {
		sess.mu.Lock()
		out = append(out, SessionSummary{
			ID:           sess.ID,
			Messages:     sess.ScammerTurns,
			ScamDetected: sess.ScamConfirmed,
			IntelItems:   sess.Intelligence.Total(),
		})
		sess.mu.Unlock()
	}
	return out
}

// TotalsByCategory sums per-category intelligence counts across all live
// sessions.
func (s *SessionStore) TotalsByCategory() map[string]int {
	totals := make(map[string]int)
	for _, sess := range s.live() {
		sess.mu.Lock()
		for category, n := range sess.Intelligence.CategoryCounts() {
			totals[category] += n
		}
		sess.mu.Unlock()
	}
	return totals
}

func (s *SessionStore) live() []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out
}
