// Package risk turns a counterparty message into a bounded numeric risk
// score and a boolean classification. Scoring is deterministic and
// side-effect-free; the monotonic scam-confirmation invariant is enforced
// by the engine, not here.
package risk

import (
	"regexp"
	"strings"

	"github.com/trapline/trapline/internal/intel"
)

// Assessment is the per-turn scoring result. It is ephemeral — nothing
// beyond the turn that produced it persists except how it feeds the
// session's confirmed flag.
type Assessment struct {
	Score  int
	IsScam bool
}

// Per-hit weights and per-category caps. Each category's contribution is
// capped independently before summing, so repeated hits of the same kind
// have diminishing returns.
const (
	weightHigh    = 30
	weightMedium  = 15
	weightContext = 10

	capHigh    = 60
	capMedium  = 30
	capContext = 20

	bonusURL        = 20
	bonusPhone      = 15
	bonusEscalation = 10

	maxScore = 100

	// Threshold is inclusive: a score exactly at the threshold classifies
	// as scam.
	Threshold = 40
)

var (
	highSignals = signalSet("otp", "pin", "cvv", "password", "blocked", "suspended")
	medSignals  = signalSet("urgent", "urgently", "immediately", "verify", "confirm", "expire")
	ctxSignals  = signalSet("bank", "account", "payment", "upi", "transfer")
)

func signalSet(tokens ...string) map[string]*regexp.Regexp {
	set := make(map[string]*regexp.Regexp, len(tokens))
	for _, tok := range tokens {
		set[tok] = regexp.MustCompile(`\b` + regexp.QuoteMeta(tok) + `\b`)
	}
	return set
}

// Score assesses one counterparty message. rec is the indicator record
// extracted from the same text; prevText is the prior counterparty turn
// (empty when there is none) and feeds the escalation bonus.
func Score(text string, rec intel.Record, prevText string) Assessment {
	lower := strings.ToLower(text)

	score := capped(countHits(lower, highSignals)*weightHigh, capHigh)
	score += capped(countHits(lower, medSignals)*weightMedium, capMedium)
	score += capped(countHits(lower, ctxSignals)*weightContext, capContext)

	if len(rec.PhishingLinks) > 0 {
		score += bonusURL
	}
	if len(rec.PhoneNumbers) > 0 {
		score += bonusPhone
	}

	// Rising urgency across consecutive turns is a stronger signal than a
	// static one-off hit.
	if prevText != "" && intel.UrgencyDensity(text) > intel.UrgencyDensity(prevText) {
		score += bonusEscalation
	}

	if score > maxScore {
		score = maxScore
	}
	return Assessment{Score: score, IsScam: score >= Threshold}
}

func countHits(lower string, signals map[string]*regexp.Regexp) int {
	n := 0
	for _, re := range signals {
		if re.MatchString(lower) {
			n++
		}
	}
	return n
}

func capped(v, limit int) int {
	if v > limit {
		return limit
	}
	return v
}
