// Package report builds the one-time summary for a finished conversation
// and delivers it to the external collector, best-effort.
package report

import (
	"strings"

	"github.com/trapline/trapline/internal/intel"
)

// FinalReport is the write-once view over a terminal session. Never mutated
// after construction; only non-empty intelligence categories appear on the
// wire.
type FinalReport struct {
	SessionID              string       `json:"sessionId"`
	ScamDetected           bool         `json:"scamDetected"`
	TotalMessagesExchanged int          `json:"totalMessagesExchanged"`
	ExtractedIntelligence  intel.Record `json:"extractedIntelligence"`
	AgentNotes             string       `json:"agentNotes"`
}

const defaultNote = "Scam engagement completed"

// Build assembles the immutable report from session fields captured under
// the session lock.
func Build(sessionID string, scamDetected bool, totalMessages int, rec intel.Record, notes []string) FinalReport {
	agentNotes := defaultNote
	if len(notes) > 0 {
		agentNotes = strings.Join(notes, " | ")
	}
	return FinalReport{
		SessionID:              sessionID,
		ScamDetected:           scamDetected,
		TotalMessagesExchanged: totalMessages,
		ExtractedIntelligence:  rec,
		AgentNotes:             agentNotes,
	}
}
