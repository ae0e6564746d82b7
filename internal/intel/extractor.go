package intel

import (
	"regexp"
	"strings"
)

// upiProviders is the closed allow-list of payment-handle suffixes. A handle
// only counts when its provider part is on this list.
var upiProviders = []string{
	"upi", "paytm", "ybl", "okaxis", "okicici", "okhdfcbank", "axl", "ibl",
	"oksbi", "fbl", "apl", "barodampay", "cnrb", "fam", "hdfcbank", "icici",
	"indus", "idfcbank", "jupiteraxis", "kotak", "myairtel", "pockets", "sbi",
	"hsbc",
}

// keywordCategories fixes the iteration order over the taxonomy so repeated
// extractions of the same text produce identical output.
var keywordCategories = []string{
	"urgency", "threat", "verify", "financial", "credential", "action",
	"reward", "authority",
}

// keywordTaxonomy maps signal categories to the tokens that trigger them.
// Extraction emits the matched tokens, not the category names.
var keywordTaxonomy = map[string][]string{
	"urgency":    {"urgent", "urgently", "immediately", "now", "asap", "expire"},
	"threat":     {"blocked", "suspended", "locked", "freeze"},
	"verify":     {"verify", "confirm", "validate", "authenticate"},
	"financial":  {"bank", "account", "payment", "transaction", "transfer"},
	"credential": {"otp", "pin", "password", "cvv"},
	"action":     {"click", "link", "update", "share"},
	"reward":     {"prize", "winner", "refund", "cashback"},
	"authority":  {"rbi", "customer care", "support team"},
}

var (
	phoneIntlRe   = regexp.MustCompile(`\+91[\s\-]?([6-9]\d{9})`)
	phonePrefixRe = regexp.MustCompile(`\b91[\s\-]?([6-9]\d{9})\b`)
	phoneBareRe   = regexp.MustCompile(`\b([6-9]\d{9})\b`)

	upiRe = regexp.MustCompile(`(?i)\b([\w.\-]{3,}@(?:` + strings.Join(upiProviders, "|") + `))\b`)

	urlSchemeRe    = regexp.MustCompile("https?://[^\\s<>\"'\\[\\]{}\\\\^`|]+")
	urlShortenerRe = regexp.MustCompile(`\b(?:bit\.ly|tinyurl\.com|goo\.gl|ow\.ly)/\w+`)
	urlBareRe      = regexp.MustCompile(`(?i)\b(?:www\.)?[\w\-]+\.(?:tk|ml|ga|cf|gq|xyz|top|club|site|online)\b`)

	accountRe = regexp.MustCompile(`\b(\d{11,18})\b`)

	keywordRes = compileKeywords()
)

func compileKeywords() map[string]*regexp.Regexp {
	res := make(map[string]*regexp.Regexp)
	for _, tokens := range keywordTaxonomy {
		for _, tok := range tokens {
			res[tok] = regexp.MustCompile(`\b` + regexp.QuoteMeta(tok) + `\b`)
		}
	}
	return res
}

// Extract converts raw message text into a structured indicator record.
// It is a pure function of its input and never fails: categories with no
// matches come back as empty sets.
func Extract(text string) Record {
	phones := extractPhones(text)
	return Record{
		BankAccounts:       extractBankAccounts(text),
		UPIIDs:             extractUPIIDs(text),
		PhishingLinks:      extractURLs(text),
		PhoneNumbers:       phones,
		SuspiciousKeywords: extractKeywords(text),
	}
}

// extractPhones matches Indian mobile numbers in national and country-code
// prefixed forms, canonicalizing every hit to +91XXXXXXXXXX so that
// differently-formatted representations of one number dedupe to one entry.
func extractPhones(text string) []string {
	var raw []string
	for _, re := range []*regexp.Regexp{phoneIntlRe, phonePrefixRe, phoneBareRe} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			raw = append(raw, m[1])
		}
	}

	var out []string
	seen := make(map[string]struct{})
	for _, p := range raw {
		clean := strings.NewReplacer(" ", "", "-", "").Replace(p)
		if len(clean) != 10 || clean[0] < '6' || clean[0] > '9' {
			continue
		}
		canonical := "+91" + clean
		if _, ok := seen[canonical]; ok {
			continue
		}
		seen[canonical] = struct{}{}
		out = append(out, canonical)
	}
	return out
}

// extractBankAccounts matches standalone 11–18 digit runs. Candidates that
// are themselves valid phone matches (a 91-prefixed mobile number) are
// excluded here as an explicit rule, so a phone number is never
// double-counted as an account.
func extractBankAccounts(text string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, m := range accountRe.FindAllStringSubmatch(text, -1) {
		acc := m[1]
		if phoneShaped(acc) {
			continue
		}
		if _, ok := seen[acc]; ok {
			continue
		}
		seen[acc] = struct{}{}
		out = append(out, acc)
	}
	return out
}

// phoneShaped reports whether a digit run is a country-code prefixed mobile
// number rather than an account identifier.
func phoneShaped(digits string) bool {
	return len(digits) == 12 && strings.HasPrefix(digits, "91") &&
		digits[2] >= '6' && digits[2] <= '9'
}

func extractUPIIDs(text string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, m := range upiRe.FindAllStringSubmatch(text, -1) {
		id := strings.ToLower(m[1])
		local, _, ok := strings.Cut(id, "@")
		if !ok || len(local) < 3 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// extractURLs matches full scheme-prefixed URLs, known link shorteners, and
// bare domains on suspicious TLDs. Scheme-less matches get "http://"
// prefixed so downstream consumers always see a well-formed URL.
func extractURLs(text string) []string {
	var raw []string
	raw = append(raw, urlSchemeRe.FindAllString(text, -1)...)
	for _, u := range urlShortenerRe.FindAllString(text, -1) {
		raw = append(raw, "http://"+u)
	}
	for _, u := range urlBareRe.FindAllString(text, -1) {
		raw = append(raw, "http://"+u)
	}

	var out []string
	seen := make(map[string]struct{})
	for _, u := range raw {
		key := strings.ToLower(u)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, u)
	}
	return out
}

// extractKeywords runs a word-boundary membership test of the keyword
// taxonomy against the lowercased text and returns the matched tokens.
func extractKeywords(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	seen := make(map[string]struct{})
	for _, cat := range keywordCategories {
		for _, tok := range keywordTaxonomy[cat] {
			if _, ok := seen[tok]; ok {
				continue
			}
			if keywordRes[tok].MatchString(lower) {
				seen[tok] = struct{}{}
				out = append(out, tok)
			}
		}
	}
	return out
}

// UrgencyDensity counts urgency-taxonomy token occurrences in the text.
// The risk scorer compares densities across consecutive counterparty turns
// to detect an accelerating pressure pattern.
func UrgencyDensity(text string) int {
	lower := strings.ToLower(text)
	n := 0
	for _, tok := range keywordTaxonomy["urgency"] {
		n += len(keywordRes[tok].FindAllString(lower, -1))
	}
	return n
}
