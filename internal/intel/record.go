package intel

// Record holds the structured indicators extracted from a conversation,
// grouped by category. Every element is non-empty and trimmed; each set is
// deduplicated case-insensitively. Categories with no matches stay empty —
// the omitempty tags keep them out of the collector payload.
type Record struct {
	BankAccounts       []string `json:"bankAccounts,omitempty"`
	UPIIDs             []string `json:"upiIds,omitempty"`
	PhishingLinks      []string `json:"phishingLinks,omitempty"`
	PhoneNumbers       []string `json:"phoneNumbers,omitempty"`
	SuspiciousKeywords []string `json:"suspiciousKeywords,omitempty"`
}

// Total returns the number of indicators across all categories.
func (r Record) Total() int {
	return len(r.BankAccounts) + len(r.UPIIDs) + len(r.PhishingLinks) +
		len(r.PhoneNumbers) + len(r.SuspiciousKeywords)
}

// Empty reports whether the record holds no indicators at all.
func (r Record) Empty() bool {
	return r.Total() == 0
}

// CategoryCounts returns per-category counts keyed by the collector payload
// field names. Used by the /stats endpoint.
func (r Record) CategoryCounts() map[string]int {
	counts := make(map[string]int, 5)
	if n := len(r.BankAccounts); n > 0 {
		counts["bankAccounts"] = n
	}
	if n := len(r.UPIIDs); n > 0 {
		counts["upiIds"] = n
	}
	if n := len(r.PhishingLinks); n > 0 {
		counts["phishingLinks"] = n
	}
	if n := len(r.PhoneNumbers); n > 0 {
		counts["phoneNumbers"] = n
	}
	if n := len(r.SuspiciousKeywords); n > 0 {
		counts["suspiciousKeywords"] = n
	}
	return counts
}
