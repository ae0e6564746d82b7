package intel

import (
	"regexp"
	"sort"
	"strings"
)

// Merge combines indicator records from independent extraction passes into
// one record: category-wise set union across all inputs, case-insensitive
// dedup, lexicographic ordering. Sparse sources are fine — a missing
// category is just an empty set. The operation is commutative and
// associative, so regex passes and agent-reported fields can arrive in any
// order and still produce byte-identical output.
func Merge(existing Record, sources ...Record) Record {
	accounts := [][]string{existing.BankAccounts}
	upis := [][]string{existing.UPIIDs}
	links := [][]string{existing.PhishingLinks}
	phones := [][]string{existing.PhoneNumbers}
	keywords := [][]string{existing.SuspiciousKeywords}
	for _, src := range sources {
		accounts = append(accounts, src.BankAccounts)
		upis = append(upis, src.UPIIDs)
		links = append(links, src.PhishingLinks)
		phones = append(phones, src.PhoneNumbers)
		keywords = append(keywords, src.SuspiciousKeywords)
	}
	return Record{
		BankAccounts:       union(accounts...),
		UPIIDs:             union(upis...),
		PhishingLinks:      union(links...),
		PhoneNumbers:       union(phones...),
		SuspiciousKeywords: union(keywords...),
	}
}

// union deduplicates under case-insensitive comparison. When two elements
// differ only by case, the lexicographically smaller original form wins —
// a deterministic representative keeps the result independent of input
// order. Output is sorted.
func union(lists ...[]string) []string {
	byKey := make(map[string]string)
	for _, list := range lists {
		for _, v := range list {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			key := strings.ToLower(v)
			if cur, ok := byKey[key]; !ok || v < cur {
				byKey[key] = v
			}
		}
	}
	if len(byKey) == 0 {
		return nil
	}
	out := make([]string, 0, len(byKey))
	for _, v := range byKey {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

var digitsOnlyRe = regexp.MustCompile(`\D`)

// Sanitize normalizes an untrusted record — typically the persona agent's
// self-reported intelligence — into the same canonical forms the extractor
// produces. Values that cannot be coerced into a valid shape for their
// category are dropped, never treated as an error.
func Sanitize(r Record) Record {
	var out Record
	for _, acc := range r.BankAccounts {
		digits := digitsOnlyRe.ReplaceAllString(acc, "")
		if len(digits) >= 11 && len(digits) <= 18 && !phoneShaped(digits) {
			out.BankAccounts = append(out.BankAccounts, digits)
		}
	}
	for _, id := range r.UPIIDs {
		id = strings.ToLower(strings.TrimSpace(id))
		if upiRe.MatchString(id) {
			out.UPIIDs = append(out.UPIIDs, id)
		}
	}
	for _, link := range r.PhishingLinks {
		link = strings.TrimSpace(link)
		if link == "" {
			continue
		}
		if !strings.Contains(link, "://") {
			link = "http://" + link
		}
		out.PhishingLinks = append(out.PhishingLinks, link)
	}
	for _, phone := range r.PhoneNumbers {
		if canonical, ok := canonicalPhone(phone); ok {
			out.PhoneNumbers = append(out.PhoneNumbers, canonical)
		}
	}
	for _, kw := range r.SuspiciousKeywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			out.SuspiciousKeywords = append(out.SuspiciousKeywords, kw)
		}
	}
	return out
}

// canonicalPhone coerces an arbitrarily formatted phone string into the
// canonical +91XXXXXXXXXX form. Returns false when the digits cannot be a
// valid Indian mobile number.
func canonicalPhone(s string) (string, bool) {
	digits := digitsOnlyRe.ReplaceAllString(s, "")
	if len(digits) == 12 && strings.HasPrefix(digits, "91") {
		digits = digits[2:]
	}
	if len(digits) != 10 || digits[0] < '6' || digits[0] > '9' {
		return "", false
	}
	return "+91" + digits, true
}
