package llm

import (
	"context"
	"fmt"
	"math"
	"sync"
)

// chatClient is the subset of FallbackClient (or a raw Provider) the
// budget wrapper needs; kept as an interface so tests can supply a stub.
type chatClient interface {
	Chat(ctx context.Context, messages []Message, opts CompletionOptions) (string, error)
}

// BudgetWarningFunc is invoked once when usage first crosses WarnFraction.
type BudgetWarningFunc func(totalUsed, budget int)

// TokenBudget wraps a chatClient, tracking a running totalUsed of
// input+output tokens and enforcing a budget.
type TokenBudget struct {
	client      chatClient
	budget      int
	strict      bool
	minMessages int
	warnFrac    float64
	onWarn      BudgetWarningFunc

	mu        sync.Mutex
	totalUsed int
	warned    bool
}

// NewTokenBudget wraps client with a budget of maxTokens. In strict mode a
// call that would overshoot fails with ErrBudget; otherwise history is
// truncated to fit, preserving the system message and newest messages down
// to a minimum of minMessages.
func NewTokenBudget(client chatClient, maxTokens int, strict bool, minMessages int) *TokenBudget {
	if minMessages <= 0 {
		minMessages = 1
	}
	return &TokenBudget{client: client, budget: maxTokens, strict: strict, minMessages: minMessages, warnFrac: 0.8}
}

// WithWarning sets the callback fired once usage crosses warnFraction of
// budget (e.g. 0.8 for 80%).
func (b *TokenBudget) WithWarning(warnFraction float64, fn BudgetWarningFunc) *TokenBudget {
	b.warnFrac = warnFraction
	b.onWarn = fn
	return b
}

// EstimateTokens applies a conservative heuristic: ceil(chars/4) plus a
// fixed per-message overhead, widened 20% for punctuation-dense text.
func EstimateTokens(messages []Message) int {
	var total float64
	for _, m := range messages {
		chars := float64(len(m.Content))
		base := math.Ceil(chars / 4)
		overhead := 4.0 // per-message role/formatting overhead
		punctRatio := punctuationDensity(m.Content)
		factor := 1.0
		if punctRatio > 0.1 {
			factor = 1.2
		}
		total += (base + overhead) * factor
	}
	return int(math.Ceil(total))
}

func punctuationDensity(s string) float64 {
	if len(s) == 0 {
		return 0
	}
	var punct int
	for _, r := range s {
		switch r {
		case '.', ',', ';', ':', '!', '?', '-', '(', ')', '"', '\'':
			punct++
		}
	}
	return float64(punct) / float64(len(s))
}

func (b *TokenBudget) checkWarning() {
	if b.onWarn == nil || b.warned {
		return
	}
	if float64(b.totalUsed) >= b.warnFrac*float64(b.budget) {
		b.warned = true
		b.onWarn(b.totalUsed, b.budget)
	}
}

// truncate preserves the system message (if any, always first) and the
// newest messages, dropping from just after the system message until the
// estimate fits or minMessages remain.
func (b *TokenBudget) truncate(messages []Message) []Message {
	if len(messages) <= b.minMessages {
		return messages
	}

	var system *Message
	rest := messages
	if len(messages) > 0 && messages[0].Role == "system" {
		system = &messages[0]
		rest = messages[1:]
	}

	for len(rest)+boolToInt(system != nil) > b.minMessages {
		candidate := buildCandidate(system, rest)
		if EstimateTokens(candidate) <= b.budget || len(rest) <= 1 {
			break
		}
		rest = rest[1:] // drop oldest-of-the-remaining first
	}
	return buildCandidate(system, rest)
}

func buildCandidate(system *Message, rest []Message) []Message {
	if system == nil {
		return rest
	}
	out := make([]Message, 0, len(rest)+1)
	out = append(out, *system)
	out = append(out, rest...)
	return out
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Chat estimates the request's token cost, enforces or applies truncation
// per mode, then delegates to the wrapped client and accounts for both
// input and output tokens in totalUsed.
func (b *TokenBudget) Chat(ctx context.Context, messages []Message, opts CompletionOptions) (string, error) {
	b.mu.Lock()
	remaining := b.budget - b.totalUsed
	b.mu.Unlock()

	estimate := EstimateTokens(messages)

	if estimate > remaining {
		if b.strict {
			return "", &CallError{Kind: ErrBudget, Provider: "budget", Message: fmt.Sprintf("estimated %d tokens exceeds remaining budget %d", estimate, remaining)}
		}
		messages = b.truncate(messages)
		estimate = EstimateTokens(messages)
	}

	text, err := b.client.Chat(ctx, messages, opts)
	if err != nil {
		return "", err
	}

	outputEstimate := EstimateTokens([]Message{{Content: text}})

	b.mu.Lock()
	b.totalUsed += estimate + outputEstimate
	b.checkWarning()
	b.mu.Unlock()

	return text, nil
}

// TotalUsed reports the running total of tokens consumed so far.
func (b *TokenBudget) TotalUsed() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.totalUsed
}
