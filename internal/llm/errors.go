package llm

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrKind is the distinguishable failure kind for LLM calls.
type ErrKind string

const (
	ErrRateLimit ErrKind = "llm.rate_limit"
	ErrAuth      ErrKind = "llm.auth"
	ErrConnection ErrKind = "llm.connection"
	ErrRefused   ErrKind = "llm.refused"
	ErrBudget    ErrKind = "budget.exceeded"
)

// CallError is the typed error every provider call returns on failure.
type CallError struct {
	Kind     ErrKind
	Provider string
	Message  string
	Cause    error
}

func (e *CallError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %v", e.Message, e.Provider, e.Cause)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Provider)
}

func (e *CallError) Unwrap() error { return e.Cause }

// Retryable reports whether the fallback client should try this provider
// again later (health tracking) vs. treat the failure as permanent for it.
func (e *CallError) Retryable() bool {
	switch e.Kind {
	case ErrRateLimit, ErrAuth, ErrConnection:
		return true
	default:
		return false
	}
}

// AsCallError extracts a *CallError from err, if any.
func AsCallError(err error) (*CallError, bool) {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

var (
	rateLimitRe  = regexp.MustCompile(`(?i)rate.?limit|too many requests|429`)
	authRe       = regexp.MustCompile(`(?i)unauthorized|invalid api key|forbidden|401|403`)
	connectionRe = regexp.MustCompile(`(?i)connection refused|timeout|no such host|dial tcp|5\d{2}\b`)
)

// classifyProviderErr infers an ErrKind from a raw provider error when the
// provider doesn't already return a typed *CallError.
func classifyProviderErr(provider string, err error) *CallError {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case rateLimitRe.MatchString(msg):
		return &CallError{Kind: ErrRateLimit, Provider: provider, Message: "rate limited", Cause: err}
	case authRe.MatchString(msg):
		return &CallError{Kind: ErrAuth, Provider: provider, Message: "authentication failed", Cause: err}
	case connectionRe.MatchString(msg):
		return &CallError{Kind: ErrConnection, Provider: provider, Message: "connection failure", Cause: err}
	default:
		return &CallError{Kind: ErrConnection, Provider: provider, Message: "request failed", Cause: err}
	}
}

// refusalPhrases is the compiled set of phrases checked against a
// completion's body to detect a provider refusal.
var refusalPhrases = []string{
	"i cannot assist with that",
	"i can't help with that",
	"i'm not able to help with that",
	"i cannot provide",
	"as an ai language model, i cannot",
	"this request violates",
}

// DetectRefusal inspects the stop-reason and body, returning a non-nil
// *CallError with Kind ErrRefused when either indicates a refusal.
func DetectRefusal(provider string, c Completion) *CallError {
	if c.StopReason == StopContentFilter || c.StopReason == StopSafety {
		return &CallError{Kind: ErrRefused, Provider: provider, Message: "completion stopped by safety filter"}
	}
	lower := strings.ToLower(c.Text)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return &CallError{Kind: ErrRefused, Provider: provider, Message: "completion text matched a refusal phrase"}
		}
	}
	return nil
}
