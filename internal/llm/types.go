// Package llm provides a unified chat/complete/stream/parseJSON interface
// over multiple LLM providers, an ordered-list fallback client with health
// tracking, refusal detection, and a token-budget wrapper.
package llm

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
)

// Message is one turn in a chat-style conversation. Role is one of
// "system", "user", "assistant".
type Message struct {
	Role    string
	Content string
}

// StreamCallback receives one chunk of streamed text.
type StreamCallback func(chunk string)

// CompletionOptions configures a single call.
type CompletionOptions struct {
	MaxOutputTokens int
	Temperature     float64
}

// StopReason classifies why a completion ended, used by refusal detection.
type StopReason string

const (
	StopNormal        StopReason = "stop"
	StopContentFilter StopReason = "content_filter"
	StopSafety        StopReason = "safety"
)

// Completion is a provider's raw reply before refusal detection runs.
type Completion struct {
	Text       string
	StopReason StopReason
	InputTokens  int
	OutputTokens int
}

// Provider is the contract every backend (Gemini, and any future provider)
// implements: Chat, Complete and Stream. ParseJSON is a package-level helper
// for decoding a provider's text reply, not a Provider method.
type Provider interface {
	Name() string
	Chat(ctx context.Context, messages []Message, opts CompletionOptions) (string, error)
	Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error)
	Stream(ctx context.Context, prompt string, opts CompletionOptions, cb StreamCallback) (string, error)
}

// ParseJSON strips Markdown code fences from text and unmarshals the
// remainder into v.
func ParseJSON(text string, v any) error {
	cleaned := stripCodeFences(text)
	return json.Unmarshal([]byte(cleaned), v)
}

var fenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return text
}
