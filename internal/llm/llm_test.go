package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name string
	fn   func(ctx context.Context, messages []Message, opts CompletionOptions) (string, error)
}

func (s *stubProvider) Name() string { return s.name }
func (s *stubProvider) Chat(ctx context.Context, messages []Message, opts CompletionOptions) (string, error) {
	return s.fn(ctx, messages, opts)
}
func (s *stubProvider) Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error) {
	return s.fn(ctx, []Message{{Role: "user", Content: prompt}}, opts)
}
func (s *stubProvider) Stream(ctx context.Context, prompt string, opts CompletionOptions, cb StreamCallback) (string, error) {
	return s.fn(ctx, []Message{{Role: "user", Content: prompt}}, opts)
}

// TestFallback_S3Scenario mirrors spec scenario S3: openai throws
// llm.connection, anthropic returns "hello", ollama is never contacted.
func TestFallback_S3Scenario(t *testing.T) {
	var ollamaContacted bool

	openai := &stubProvider{name: "openai", fn: func(ctx context.Context, m []Message, o CompletionOptions) (string, error) {
		return "", &CallError{Kind: ErrConnection, Provider: "openai", Message: "connection refused"}
	}}
	anthropic := &stubProvider{name: "anthropic", fn: func(ctx context.Context, m []Message, o CompletionOptions) (string, error) {
		return "hello", nil
	}}
	ollama := &stubProvider{name: "ollama", fn: func(ctx context.Context, m []Message, o CompletionOptions) (string, error) {
		ollamaContacted = true
		return "unused", nil
	}}

	client := NewFallbackClient([]Provider{openai, anthropic, ollama}, 3)
	out, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}, CompletionOptions{})

	require.NoError(t, err)
	assert.Equal(t, "hello", out)
	assert.False(t, ollamaContacted)
	assert.Equal(t, 1, client.ProviderHealth(0))
	assert.Equal(t, 0, client.ProviderHealth(1))
}

func TestFallback_SkipsUnhealthyProvider(t *testing.T) {
	var calls int
	failing := &stubProvider{name: "failing", fn: func(ctx context.Context, m []Message, o CompletionOptions) (string, error) {
		calls++
		return "", &CallError{Kind: ErrConnection, Provider: "failing", Message: "down"}
	}}
	healthy := &stubProvider{name: "healthy", fn: func(ctx context.Context, m []Message, o CompletionOptions) (string, error) {
		return "ok", nil
	}}

	client := NewFallbackClient([]Provider{failing, healthy}, 2)
	for i := 0; i < 2; i++ {
		_, _ = client.Chat(context.Background(), nil, CompletionOptions{})
	}
	assert.Equal(t, 2, calls)

	// Third call: failing provider is now unhealthy and should be skipped.
	out, err := client.Chat(context.Background(), nil, CompletionOptions{})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 2, calls, "unhealthy provider must not be contacted again")
}

func TestFallback_RefusalTriesNextProviderButNotSameOneAgain(t *testing.T) {
	refusing := &stubProvider{name: "refusing", fn: func(ctx context.Context, m []Message, o CompletionOptions) (string, error) {
		return "", &CallError{Kind: ErrRefused, Provider: "refusing", Message: "refused"}
	}}
	fallback := &stubProvider{name: "fallback", fn: func(ctx context.Context, m []Message, o CompletionOptions) (string, error) {
		return "answer", nil
	}}

	client := NewFallbackClient([]Provider{refusing, fallback}, 3)
	out, err := client.Chat(context.Background(), nil, CompletionOptions{})
	require.NoError(t, err)
	assert.Equal(t, "answer", out)
	// Refusal is non-retryable but must not mark provider health.
	assert.Equal(t, 0, client.ProviderHealth(0))
}

func TestParseJSON_StripsCodeFences(t *testing.T) {
	var out map[string]any
	err := ParseJSON("```json\n{\"a\": 1}\n```", &out)
	require.NoError(t, err)
	assert.Equal(t, float64(1), out["a"])
}

func TestDetectRefusal_MatchesPhrase(t *testing.T) {
	ce := DetectRefusal("p", Completion{Text: "I cannot assist with that request."})
	require.NotNil(t, ce)
	assert.Equal(t, ErrRefused, ce.Kind)
}

type stubChat struct {
	fn func(ctx context.Context, messages []Message, opts CompletionOptions) (string, error)
}

func (s *stubChat) Chat(ctx context.Context, messages []Message, opts CompletionOptions) (string, error) {
	return s.fn(ctx, messages, opts)
}

func TestTokenBudget_StrictModeRejectsOverBudget(t *testing.T) {
	stub := &stubChat{fn: func(ctx context.Context, m []Message, o CompletionOptions) (string, error) {
		return "reply", nil
	}}
	budget := NewTokenBudget(stub, 1, true, 1)

	_, err := budget.Chat(context.Background(), []Message{{Role: "user", Content: "a very long message indeed"}}, CompletionOptions{})
	require.Error(t, err)
	ce, ok := AsCallError(err)
	require.True(t, ok)
	assert.Equal(t, ErrBudget, ce.Kind)
}

func TestTokenBudget_NonStrictTruncatesPreservingSystemAndNewest(t *testing.T) {
	stub := &stubChat{fn: func(ctx context.Context, m []Message, o CompletionOptions) (string, error) {
		// assert system message survived truncation
		assert.Equal(t, "system", m[0].Role)
		return "ok", nil
	}}
	budget := NewTokenBudget(stub, 20, false, 2)

	messages := []Message{
		{Role: "system", Content: "sys"},
		{Role: "user", Content: "first very long message padding padding padding"},
		{Role: "user", Content: "second very long message padding padding padding"},
		{Role: "user", Content: "newest"},
	}
	_, err := budget.Chat(context.Background(), messages, CompletionOptions{})
	require.NoError(t, err)
}
