// Package persona generates the decoy's conversational replies. The LLM is
// an untrusted black box: its self-reported intelligence is sanitized
// before use, and any failure — transport, timeout, malformed JSON —
// degrades to a fixed fallback reply pool instead of failing the turn.
package persona

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/trapline/trapline/internal/intel"
)

const systemPrompt = `You are Ramesh Kumar, 67, retired teacher from India.

PERSONA:
- Polite, worried, tech-confused
- Simple English, occasional Hindi
- Trusting but asks questions
- Concerned about money/account

STRATEGY:
- NEVER reveal scam detection
- Ask: employee ID, callback number, UPI details, verification steps
- NO repeat questions (check history)
- 1-2 short sentences max
- Use: "Oh dear", "Accha", "Haan ji"

EXTRACT: phone, UPI, bank account, URL, employee details

OUTPUT JSON ONLY:
{
  "is_scam": true/false,
  "confidence": 0.0-1.0,
  "reply": "response here",
  "intelligence": {
    "bankAccounts": [],
    "upiIds": [],
    "phishingLinks": [],
    "phoneNumbers": [],
    "suspiciousKeywords": []
  }
}`

const (
	historyWindow  = 4
	replyMaxTokens = 300
	replyTemp      = 0.8
)

// Agent wraps the LLM client with the decoy persona. A nil client is valid
// and means every turn uses the fallback pool.
type Agent struct {
	llm    *Client
	logger *slog.Logger
}

func NewAgent(llm *Client, logger *slog.Logger) *Agent {
	return &Agent{llm: llm, logger: logger}
}

// Available reports whether a live LLM backs this agent.
func (a *Agent) Available() bool {
	return a.llm != nil
}

// TurnContext is the compact per-turn context block appended to the prompt.
type TurnContext struct {
	SessionID    string
	MessageCount int
	AskedTopics  []string
	RegexIntel   intel.Record
}

// Result is the agent's contribution to one turn. Intelligence is already
// sanitized; AskedTopic is the topic of the question in Reply, if any.
type Result struct {
	IsScam       bool
	Confidence   float64
	Reply        string
	Intelligence intel.Record
	AskedTopic   string
	Fallback     bool
}

// Respond produces the decoy reply for one counterparty message. history is
// already role-mapped and ordered oldest-first; only the last few turns are
// sent. Respond never fails — on any LLM error it returns a fallback
// result.
func (a *Agent) Respond(ctx context.Context, msg string, history []Message, tc TurnContext) Result {
	if a.llm == nil {
		return a.fallback(msg, tc)
	}

	messages := []Message{{Role: "system", Content: systemPrompt}}
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	messages = append(messages, history...)
	messages = append(messages, Message{Role: "user", Content: msg})
	messages = append(messages, Message{Role: "user", Content: contextBlock(tc)})

	raw, err := a.llm.Complete(ctx, messages, replyMaxTokens, replyTemp)
	if err != nil {
		a.logger.Warn("llm call failed, using fallback", "session_id", tc.SessionID, "error", err)
		return a.fallback(msg, tc)
	}

	var out llmOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil || strings.TrimSpace(out.Reply) == "" {
		a.logger.Warn("llm output unusable, using fallback", "session_id", tc.SessionID, "error", err)
		return a.fallback(msg, tc)
	}

	res := Result{
		IsScam:       out.IsScam,
		Confidence:   out.Confidence,
		Reply:        out.Reply,
		Intelligence: intel.Sanitize(out.Intelligence.record()),
		AskedTopic:   questionTopic(out.Reply),
	}
	a.logger.Info("llm reply",
		"session_id", tc.SessionID,
		"is_scam", res.IsScam,
		"confidence", res.Confidence,
		"intel_items", res.Intelligence.Total(),
	)
	return res
}

func contextBlock(tc TurnContext) string {
	topics := tc.AskedTopics
	if len(topics) > 3 {
		topics = topics[len(topics)-3:]
	}
	regex, _ := json.Marshal(tc.RegexIntel)
	return fmt.Sprintf("Msg #%d\nAsked: %s\nRegex: %s\nRespond as Ramesh. Extract NEW intel. JSON only.",
		tc.MessageCount, strings.Join(topics, ", "), regex)
}

// llmOutput is the expected JSON shape of the model's reply. The
// intelligence block is untrusted: each category tolerates malformed
// content and degrades to empty rather than failing the parse.
type llmOutput struct {
	IsScam       bool     `json:"is_scam"`
	Confidence   float64  `json:"confidence"`
	Reply        string   `json:"reply"`
	Intelligence rawIntel `json:"intelligence"`
}

type rawIntel struct {
	BankAccounts       lenientStrings `json:"bankAccounts"`
	UPIIDs             lenientStrings `json:"upiIds"`
	PhishingLinks      lenientStrings `json:"phishingLinks"`
	PhoneNumbers       lenientStrings `json:"phoneNumbers"`
	SuspiciousKeywords lenientStrings `json:"suspiciousKeywords"`
}

func (r rawIntel) record() intel.Record {
	return intel.Record{
		BankAccounts:       r.BankAccounts,
		UPIIDs:             r.UPIIDs,
		PhishingLinks:      r.PhishingLinks,
		PhoneNumbers:       r.PhoneNumbers,
		SuspiciousKeywords: r.SuspiciousKeywords,
	}
}

// lenientStrings swallows malformed JSON for a single category.
type lenientStrings []string

func (s *lenientStrings) UnmarshalJSON(b []byte) error {
	var v []string
	if err := json.Unmarshal(b, &v); err != nil {
		*s = nil
		return nil
	}
	*s = v
	return nil
}

// questionTopics classifies what the decoy just asked about, so the next
// turn's prompt can steer away from repeats. Order fixes precedence.
var questionTopics = []struct {
	name  string
	hints []string
}{
	{"employee", []string{"employee", "id"}},
	{"phone", []string{"phone", "number", "contact"}},
	{"upi", []string{"upi", "payment"}},
	{"account", []string{"account", "bank"}},
	{"process", []string{"how", "what", "next"}},
}

func questionTopic(reply string) string {
	if !strings.Contains(reply, "?") {
		return ""
	}
	lower := strings.ToLower(reply)
	for _, topic := range questionTopics {
		for _, hint := range topic.hints {
			if strings.Contains(lower, hint) {
				return topic.name
			}
		}
	}
	return ""
}
