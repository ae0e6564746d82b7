package persona

import (
	"math/rand"
	"strings"
)

// Reply pools keyed by conversation phase. Used whenever the LLM is
// unavailable or returns something unusable.
var (
	earlyReplies = []string{
		"Oh my! Can you tell me your employee ID?",
		"Which bank department? What's your number?",
		"How do I know this is real? Your contact?",
	}
	midReplies = []string{
		"I'm confused. What should I do?",
		"My son handles this. Explain simply?",
		"Is this urgent? Call my daughter?",
	}
	lateReplies = []string{
		"What's the next step?",
		"I don't understand computers well.",
		"What details do you need?",
	}
)

// fallbackSignals drive the degraded scam heuristic: two or more hits in
// one message classifies positive.
var fallbackSignals = []string{"otp", "pin", "blocked", "suspended", "urgent"}

func (a *Agent) fallback(msg string, tc TurnContext) Result {
	lower := strings.ToLower(msg)
	hits := 0
	for _, sig := range fallbackSignals {
		if strings.Contains(lower, sig) {
			hits++
		}
	}

	confidence := float64(hits) * 0.3
	if confidence > 0.9 {
		confidence = 0.9
	}

	var pool []string
	switch {
	case tc.MessageCount <= 2:
		pool = earlyReplies
	case tc.MessageCount <= 5:
		pool = midReplies
	default:
		pool = lateReplies
	}
	reply := pool[rand.Intn(len(pool))]

	if a.logger != nil {
		a.logger.Warn("persona fallback", "session_id", tc.SessionID, "signal_hits", hits)
	}

	return Result{
		IsScam:     hits >= 2,
		Confidence: confidence,
		Reply:      reply,
		AskedTopic: questionTopic(reply),
		Fallback:   true,
	}
}
