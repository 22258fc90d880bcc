// Package errtaxonomy classifies raw error strings surfaced by a tool call
// into a structured analysis: HTTP status, category, root cause,
// remediation, related parameters, transience, and severity.
package errtaxonomy

import (
	"regexp"
	"strconv"
	"strings"
)

// Category is the fixed error-category enum.
type Category string

const (
	CategoryValidation Category = "client_error_validation"
	CategoryAuth       Category = "auth"
	CategoryNotFound   Category = "not_found"
	CategoryConflict   Category = "conflict"
	CategoryRateLimit  Category = "client_error_rate_limit"
	CategoryServer     Category = "server_error"
	CategoryUnknown    Category = "unknown"
)

// Severity is the fixed severity enum.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Analysis is the result of classifying one raw error string.
type Analysis struct {
	HTTPStatus       int      `json:"httpStatus,omitempty"`
	Category         Category `json:"category"`
	RootCause        string   `json:"rootCause"`
	Remediation      string   `json:"remediation"`
	RelatedParams    []string `json:"relatedParams,omitempty"`
	Transient        bool     `json:"transient"`
	Severity         Severity `json:"severity"`
}

// statusPatterns is the fixed pattern list tried in order to extract an
// embedded HTTP status from a raw error message. The capture group always
// yields the 3-digit candidate.
var statusPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)status\s*(?:code)?\s*[:\-]?\s*(\d{3})`),
	regexp.MustCompile(`(?i)\bhttp\s*(\d{3})\b`),
	regexp.MustCompile(`(?i)\berror\s*(\d{3})\b`),
	regexp.MustCompile(`\[(\d{3})\]`),
	regexp.MustCompile(`\((\d{3})\)`),
	regexp.MustCompile(`(?i)\b([45]\d{2})\b\s*(?:error|bad|not|forbidden|unauthorized|internal)`),
}

// ExtractHTTPStatus returns the first 3-digit HTTP status matched by any
// pattern in statusPatterns, validated to 100..599. Zero means no match.
//
// Open question (a) from the source: the last pattern can still match
// unrelated digit runs embedded in URLs (e.g. a port number followed by a
// status word coincidentally nearby); this implementation keeps the
// narrower trailing-keyword requirement rather than a bare \b(\d{3})\b to
// reduce false positives, but does not fully eliminate adversarial cases.
func ExtractHTTPStatus(msg string) int {
	for _, pat := range statusPatterns {
		m := pat.FindStringSubmatch(msg)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n >= 100 && n < 600 {
			return n
		}
	}
	return 0
}

// classifyStatus maps an HTTP status code to a category.
func classifyStatus(status int) Category {
	switch {
	case status == 401 || status == 403:
		return CategoryAuth
	case status == 404:
		return CategoryNotFound
	case status == 409:
		return CategoryConflict
	case status == 429:
		return CategoryRateLimit
	case status >= 400 && status < 500:
		return CategoryValidation
	case status >= 500 && status < 600:
		return CategoryServer
	default:
		return CategoryUnknown
	}
}

var keywordCategories = []struct {
	re  *regexp.Regexp
	cat Category
}{
	{regexp.MustCompile(`(?i)\b(unauthoriz|forbidden|permission denied|access denied)\b`), CategoryAuth},
	{regexp.MustCompile(`(?i)\b(not found|no such|does not exist|missing resource)\b`), CategoryNotFound},
	{regexp.MustCompile(`(?i)\b(conflict|already exists|duplicate)\b`), CategoryConflict},
	{regexp.MustCompile(`(?i)\b(rate limit|too many requests|throttl)\b`), CategoryRateLimit},
	{regexp.MustCompile(`(?i)\b(invalid|validation|malformed|required field|must be)\b`), CategoryValidation},
	{regexp.MustCompile(`(?i)\b(internal server error|panic|unhandled exception)\b`), CategoryServer},
}

// Classify categorizes msg, preferring an HTTP status when one is present.
func Classify(msg string, status int) Category {
	if status != 0 {
		if cat := classifyStatus(status); cat != CategoryUnknown {
			return cat
		}
	}
	for _, kc := range keywordCategories {
		if kc.re.MatchString(msg) {
			return kc.cat
		}
	}
	return CategoryUnknown
}

var remediationByKeyword = []struct {
	re   *regexp.Regexp
	text string
}{
	{regexp.MustCompile(`(?i)rate limit|too many requests`), "apply exponential backoff and retry after the indicated delay"},
	{regexp.MustCompile(`(?i)unauthoriz|invalid (api )?key|invalid token`), "verify the credential is current and has the required scope"},
	{regexp.MustCompile(`(?i)required field|missing (parameter|field)`), "supply the missing required field before retrying"},
	{regexp.MustCompile(`(?i)timeout|timed out`), "retry with a longer timeout or smaller payload"},
}

var remediationByCategory = map[Category]string{
	CategoryValidation: "check the request arguments against the tool's input schema",
	CategoryAuth:       "verify the credential is current and has the required scope",
	CategoryNotFound:   "confirm the referenced resource identifier exists",
	CategoryConflict:   "resolve the conflicting state before retrying",
	CategoryRateLimit:  "apply exponential backoff and retry after the indicated delay",
	CategoryServer:     "retry later; this is likely a transient server-side fault",
	CategoryUnknown:    "inspect the raw error for more detail",
}

var rootCauseByCategory = map[Category]string{
	CategoryValidation: "the request failed input validation",
	CategoryAuth:       "the caller lacks permission or valid credentials",
	CategoryNotFound:   "the referenced resource does not exist",
	CategoryConflict:   "the request conflicts with existing server state",
	CategoryRateLimit:  "the caller exceeded an allowed request rate",
	CategoryServer:     "the server encountered an internal fault",
	CategoryUnknown:    "the cause could not be determined from the message",
}

func deriveRemediation(msg string, cat Category) string {
	for _, rk := range remediationByKeyword {
		if rk.re.MatchString(msg) {
			return rk.text
		}
	}
	return remediationByCategory[cat]
}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "was": true, "for": true,
	"to": true, "of": true, "and": true, "or": true, "in": true, "on": true,
	"must": true, "be": true, "this": true, "that": true,
}

var quotedRe = regexp.MustCompile(`["'` + "`" + `]([A-Za-z_][A-Za-z0-9_]*)["'` + "`" + `]`)
var paramPhraseRe = regexp.MustCompile(`(?i)parameter\s+([A-Za-z_][A-Za-z0-9_]*)`)

// ExtractParams pulls candidate parameter names out of quoted identifiers
// and "parameter X" phrases, filtering a short stop-word list.
func ExtractParams(msg string) []string {
	seen := map[string]bool{}
	var out []string

	add := func(name string) {
		lower := strings.ToLower(name)
		if name == "" || stopWords[lower] || seen[lower] {
			return
		}
		seen[lower] = true
		out = append(out, name)
	}

	for _, m := range quotedRe.FindAllStringSubmatch(msg, -1) {
		add(m[1])
	}
	for _, m := range paramPhraseRe.FindAllStringSubmatch(msg, -1) {
		add(m[1])
	}
	return out
}

var transientKeywords = []string{
	"timeout", "temporarily", "retry", "unavailable", "connection",
	"network", "too many requests", "try again", "overloaded", "busy",
	"maintenance",
}

// IsTransient reports whether the category or message implies a retry is
// likely to succeed.
func IsTransient(msg string, cat Category) bool {
	if cat == CategoryRateLimit || cat == CategoryServer {
		return true
	}
	lower := strings.ToLower(msg)
	for _, kw := range transientKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

var criticalRe = regexp.MustCompile(`(?i)\b(fatal|crash|corrupt)\b`)

func severityFor(msg string, cat Category) Severity {
	if criticalRe.MatchString(msg) {
		return SeverityCritical
	}
	switch cat {
	case CategoryServer, CategoryAuth:
		return SeverityHigh
	case CategoryValidation, CategoryConflict:
		return SeverityMedium
	case CategoryNotFound, CategoryRateLimit:
		return SeverityLow
	default:
		return SeverityInfo
	}
}

// Analyze runs the full classification pipeline over one raw error string.
func Analyze(msg string) Analysis {
	status := ExtractHTTPStatus(msg)
	cat := Classify(msg, status)
	return Analysis{
		HTTPStatus:    status,
		Category:      cat,
		RootCause:     rootCauseByCategory[cat],
		Remediation:   deriveRemediation(msg, cat),
		RelatedParams: ExtractParams(msg),
		Transient:     IsTransient(msg, cat),
		Severity:      severityFor(msg, cat),
	}
}
