// Package engine owns the per-conversation lifecycle: it runs the per-turn
// pipeline (extract, score, reply, merge), decides when to stop engaging,
// and hands terminal sessions to the report dispatcher exactly once.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/trapline/trapline/internal/events"
	"github.com/trapline/trapline/internal/intel"
	"github.com/trapline/trapline/internal/observability/metrics"
	"github.com/trapline/trapline/internal/persona"
	"github.com/trapline/trapline/internal/report"
	"github.com/trapline/trapline/internal/risk"
)

// Replies used when the engine answers without consulting the persona
// agent.
const (
	nonEngagementReply = "I'm not sure I understand. Can you explain?"
	closingReply       = "Okay, I will go to the bank branch and check. Thank you."
)

// reportTimeout bounds one finalize pass: delivery attempts plus the
// archive write.
const reportTimeout = time.Minute

// PersonaAgent produces the decoy's replies. Implementations never fail a
// turn — they degrade to fallback output instead.
type PersonaAgent interface {
	Respond(ctx context.Context, msg string, history []persona.Message, tc persona.TurnContext) persona.Result
	Available() bool
}

// Deliverer sends a final report to the external collector.
type Deliverer interface {
	Deliver(ctx context.Context, rep report.FinalReport) error
}

// Archiver persists dispatched reports for audit. Optional.
type Archiver interface {
	SaveReport(ctx context.Context, rep report.FinalReport, delivered bool) error
}

// Publisher emits lifecycle events to a broker. Optional.
type Publisher interface {
	Publish(subject string, data any) error
}

type Engine struct {
	store      *SessionStore
	agent      PersonaAgent
	dispatcher Deliverer
	archive    Archiver
	events     Publisher
	policy     Policy
	metrics    *metrics.Metrics
	logger     *slog.Logger

	wg sync.WaitGroup // in-flight finalize goroutines
}

// New wires the engine. archive, ev and m may be nil — those concerns are
// optional.
func New(agent PersonaAgent, dispatcher Deliverer, archive Archiver, ev Publisher, policy Policy, m *metrics.Metrics, logger *slog.Logger) *Engine {
	return &Engine{
		store:      NewSessionStore(),
		agent:      agent,
		dispatcher: dispatcher,
		archive:    archive,
		events:     ev,
		policy:     policy,
		metrics:    m,
		logger:     logger,
	}
}

// AgentAvailable reports whether a live LLM backs the persona agent.
func (e *Engine) AgentAvailable() bool {
	return e.agent.Available()
}

// ProcessTurn runs one counterparty message through the pipeline and
// returns the decoy's reply. The transport layer guarantees a non-empty
// session id and message text. The reply never waits on report delivery.
func (e *Engine) ProcessTurn(ctx context.Context, sessionID string, msg Turn, history []Turn) (string, error) {
	sess, created := e.store.GetOrCreate(sessionID)
	if created {
		e.logger.Info("new session", "session_id", sessionID)
		e.metrics.SetActiveSessions(e.store.Len())
	}

	// Extraction and scoring are pure; they run outside any lock.
	turnIntel := intel.Extract(msg.Text)
	historyIntel := extractFromHistory(history)

	sess.mu.Lock()
	if sess.State == StateTerminating || sess.State == StateReported {
		// Report dispatch is already underway; do not reopen the session.
		sess.mu.Unlock()
		return closingReply, nil
	}
	sess.ScammerTurns++
	sess.TotalMessages++
	prevText := sess.LastText
	sess.LastText = msg.Text
	turns := sess.ScammerTurns
	confirmed := sess.ScamConfirmed
	askedTopics := slices.Clone(sess.AskedTopics)
	sess.mu.Unlock()

	e.metrics.ObserveTurn()

	assessment := risk.Score(msg.Text, turnIntel, prevText)

	// The engagement window keeps the decoy talking before enough signal
	// has accumulated; it forces engagement, not confirmation.
	engaged := confirmed || assessment.IsScam || e.policy.InEngagementWindow(turns)

	var reply string
	var agentRes persona.Result
	usedAgent := false
	if engaged {
		tc := persona.TurnContext{
			SessionID:    sessionID,
			MessageCount: turns,
			AskedTopics:  askedTopics,
			RegexIntel:   turnIntel,
		}
		agentRes = e.agent.Respond(ctx, msg.Text, toLLMHistory(history), tc)
		reply = agentRes.Reply
		usedAgent = true
		if agentRes.Fallback {
			e.metrics.ObserveFallback()
		}
	} else {
		reply = nonEngagementReply
	}

	// Re-acquire the lock to apply the turn's results.
	sess.mu.Lock()
	positive := assessment.IsScam || (usedAgent && agentRes.IsScam)
	confirmedNow := false
	if positive && !sess.ScamConfirmed {
		// Monotonic: later negative assessments never undo this.
		sess.ScamConfirmed = true
		sess.Confidence = confidenceFor(assessment, agentRes, usedAgent)
		if sess.State == StateActive {
			sess.State = StateConfirmed
		}
		sess.Notes = append(sess.Notes, fmt.Sprintf("Scam detected at msg %d (conf: %.2f)", turns, sess.Confidence))
		confirmedNow = true
	}

	sources := []intel.Record{turnIntel, historyIntel}
	if usedAgent {
		sources = append(sources, agentRes.Intelligence)
	}
	sess.Intelligence = intel.Merge(sess.Intelligence, sources...)

	if usedAgent && agentRes.AskedTopic != "" && !slices.Contains(sess.AskedTopics, agentRes.AskedTopic) {
		sess.AskedTopics = append(sess.AskedTopics, agentRes.AskedTopic)
	}
	sess.TotalMessages++ // the reply we are about to return

	var rep report.FinalReport
	dispatch := false
	if e.policy.ShouldTerminate(sess.ScammerTurns, sess.Intelligence) && !sess.Reported {
		// Reported is set before the send and never reset: concurrent or
		// duplicate end-condition checks cannot dispatch twice.
		sess.Reported = true
		sess.State = StateTerminating
		rep = report.Build(sess.ID, sess.ScamConfirmed, sess.TotalMessages, sess.Intelligence, slices.Clone(sess.Notes))
		dispatch = true
	}
	intelTotal := sess.Intelligence.Total()
	sess.mu.Unlock()

	if confirmedNow {
		e.metrics.ObserveScamConfirmed()
		e.logger.Info("scam confirmed", "session_id", sessionID, "turn", turns, "score", assessment.Score)
		if e.events != nil {
			if err := e.events.Publish(events.SubjectScamConfirmed, map[string]any{
				"session_id": sessionID,
				"turn":       turns,
				"score":      assessment.Score,
			}); err != nil {
				e.logger.Warn("failed to publish scam confirmed", "error", err)
			}
		}
	}

	e.logger.Info("turn processed",
		"session_id", sessionID,
		"turn", turns,
		"score", assessment.Score,
		"intel_items", intelTotal,
		"terminating", dispatch,
	)

	if dispatch {
		e.wg.Add(1)
		go e.finalize(sessionID, rep)
	}

	return reply, nil
}

// finalize delivers the report, archives it, and removes the session from
// the live set — unconditionally, whatever the delivery outcome.
func (e *Engine) finalize(sessionID string, rep report.FinalReport) {
	defer e.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
	defer cancel()

	err := e.dispatcher.Deliver(ctx, rep)
	delivered := err == nil
	if err != nil {
		e.logger.Error("report delivery abandoned", "session_id", sessionID, "error", err)
	}
	e.metrics.ObserveReport(delivered)

	if e.archive != nil {
		if aerr := e.archive.SaveReport(ctx, rep, delivered); aerr != nil {
			e.logger.Warn("report archive failed", "session_id", sessionID, "error", aerr)
		}
	}
	if e.events != nil {
		if perr := e.events.Publish(events.SubjectSessionReported, map[string]any{
			"session_id":     sessionID,
			"delivered":      delivered,
			"scam_detected":  rep.ScamDetected,
			"total_messages": rep.TotalMessagesExchanged,
		}); perr != nil {
			e.logger.Warn("failed to publish session reported", "error", perr)
		}
	}

	if sess, ok := e.store.Get(sessionID); ok {
		sess.mu.Lock()
		sess.State = StateReported
		sess.mu.Unlock()
	}
	e.store.Remove(sessionID)
	e.metrics.SetActiveSessions(e.store.Len())
	e.logger.Info("session closed", "session_id", sessionID, "delivered", delivered)
}

// Wait blocks until all in-flight report dispatches finish. Used on
// shutdown.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Stats snapshots the live session set for the stats endpoint.
type Stats struct {
	ActiveSessions    int              `json:"active_sessions"`
	TotalIntelligence map[string]int   `json:"total_intelligence"`
	Sessions          []SessionSummary `json:"sessions"`
}

func (e *Engine) Stats() Stats {
	summaries := e.store.Summaries()
	return Stats{
		ActiveSessions:    len(summaries),
		TotalIntelligence: e.store.TotalsByCategory(),
		Sessions:          summaries,
	}
}

func confidenceFor(assessment risk.Assessment, agentRes persona.Result, usedAgent bool) float64 {
	if usedAgent && agentRes.IsScam {
		return agentRes.Confidence
	}
	return float64(assessment.Score) / 100
}

// toLLMHistory maps conversation senders onto chat roles: counterparty
// text becomes "user", the decoy's own replies become "assistant".
func toLLMHistory(history []Turn) []persona.Message {
	msgs := make([]persona.Message, 0, len(history))
	for _, t := range history {
		role := "user"
		if t.Sender == SenderEngine {
			role = "assistant"
		}
		msgs = append(msgs, persona.Message{Role: role, Content: t.Text})
	}
	return msgs
}

// extractFromHistory runs the regex pass over the counterparty side of the
// provided history. The engine's own replies are skipped so the decoy's
// questions never feed the intelligence record.
func extractFromHistory(history []Turn) intel.Record {
	var merged intel.Record
	for _, t := range history {
		if t.Sender == SenderEngine {
			continue
		}
		merged = intel.Merge(merged, intel.Extract(t.Text))
	}
	return merged
}
