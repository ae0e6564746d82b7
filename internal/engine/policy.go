package engine

import "github.com/trapline/trapline/internal/intel"

// Policy bundles the engagement and termination tunables. Every trigger is
// an independent constant so deployments can adjust one without touching
// the others.
type Policy struct {
	// EngagementWindowTurns forces continued engagement for the first N
	// counterparty turns even when the scorer alone would disengage. This
	// is a continuation policy, not a detection algorithm — it never sets
	// the confirmed flag by itself.
	EngagementWindowTurns int

	// MinTurnsBeforeStop gates the turn-based stop triggers; category hard
	// caps bypass it.
	MinTurnsBeforeStop int

	// MaxTurns is the absolute ceiling on counterparty turns.
	MaxTurns int

	// IntelVolumeMinTurns + IntelVolumeThreshold: stop once enough weighted
	// intelligence has accumulated after a minimum engagement length.
	IntelVolumeMinTurns  int
	IntelVolumeThreshold float64

	// LateStageMinTurns + LateStageThreshold: a long conversation stops on
	// a lower intelligence bar.
	LateStageMinTurns  int
	LateStageThreshold float64

	Caps    CategoryCaps
	Weights CategoryWeights
}

// CategoryWeights are the per-category multipliers for the weighted
// intelligence-volume score.
type CategoryWeights struct {
	BankAccount  float64
	UPIID        float64
	PhishingLink float64
	PhoneNumber  float64
	Keyword      float64
}

// CategoryCaps are per-category hard caps: reaching any one of them ends
// the engagement regardless of turn count.
type CategoryCaps struct {
	BankAccounts  int
	UPIIDs        int
	PhishingLinks int
	PhoneNumbers  int
}

func DefaultPolicy() Policy {
	return Policy{
		EngagementWindowTurns: 3,
		MinTurnsBeforeStop:    8,
		MaxTurns:              20,
		IntelVolumeMinTurns:   10,
		IntelVolumeThreshold:  8,
		LateStageMinTurns:     15,
		LateStageThreshold:    4,
		Caps: CategoryCaps{
			BankAccounts:  2,
			UPIIDs:        2,
			PhishingLinks: 2,
			PhoneNumbers:  3,
		},
		Weights: CategoryWeights{
			BankAccount:  2,
			UPIID:        2,
			PhishingLink: 1.5,
			PhoneNumber:  1.5,
			Keyword:      0.5,
		},
	}
}

// InEngagementWindow reports whether the turn falls inside the forced
// engagement span.
func (p Policy) InEngagementWindow(turns int) bool {
	return turns <= p.EngagementWindowTurns
}

// IntelVolume computes the weighted intelligence-volume score.
func (p Policy) IntelVolume(rec intel.Record) float64 {
	return float64(len(rec.BankAccounts))*p.Weights.BankAccount +
		float64(len(rec.UPIIDs))*p.Weights.UPIID +
		float64(len(rec.PhishingLinks))*p.Weights.PhishingLink +
		float64(len(rec.PhoneNumbers))*p.Weights.PhoneNumber +
		float64(len(rec.SuspiciousKeywords))*p.Weights.Keyword
}

// ShouldTerminate evaluates the composite stop condition after a turn. Any
// one trigger suffices: category hard cap (no turn gate), absolute max
// turns, or sufficient weighted intelligence volume past the minimum
// engagement length.
func (p Policy) ShouldTerminate(turns int, rec intel.Record) bool {
	if p.capReached(rec) {
		return true
	}
	if turns < p.MinTurnsBeforeStop {
		return false
	}
	if turns >= p.MaxTurns {
		return true
	}
	volume := p.IntelVolume(rec)
	if turns >= p.IntelVolumeMinTurns && volume >= p.IntelVolumeThreshold {
		return true
	}
	if turns >= p.LateStageMinTurns && volume >= p.LateStageThreshold {
		return true
	}
	return false
}

// capReached checks the per-category hard caps. A zero cap disables that
// category's trigger.
func (p Policy) capReached(rec intel.Record) bool {
	return (p.Caps.BankAccounts > 0 && len(rec.BankAccounts) >= p.Caps.BankAccounts) ||
		(p.Caps.UPIIDs > 0 && len(rec.UPIIDs) >= p.Caps.UPIIDs) ||
		(p.Caps.PhishingLinks > 0 && len(rec.PhishingLinks) >= p.Caps.PhishingLinks) ||
		(p.Caps.PhoneNumbers > 0 && len(rec.PhoneNumbers) >= p.Caps.PhoneNumbers)
}
