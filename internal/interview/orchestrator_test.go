package interview

import (
	"context"
	"testing"
	"time"

	"github.com/blackcoderx/mcpwatch/internal/cache"
	"github.com/blackcoderx/mcpwatch/internal/logging"
	"github.com/blackcoderx/mcpwatch/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	questions []Question
}

func (s *stubGenerator) GenerateQuestions(ctx context.Context, tool transport.ToolDescriptor, persona Persona) ([]Question, error) {
	return s.questions, nil
}

type stubTransportClient struct {
	result *transport.CallToolResult
	err    error
	calls  int
}

func (s *stubTransportClient) Initialize(ctx context.Context) (*transport.InitializeResult, error) {
	return nil, nil
}
func (s *stubTransportClient) ListTools(ctx context.Context) ([]transport.ToolDescriptor, error) {
	return nil, nil
}
func (s *stubTransportClient) ListPrompts(ctx context.Context) ([]transport.PromptDescriptor, error) {
	return nil, nil
}
func (s *stubTransportClient) ListResources(ctx context.Context) ([]transport.ResourceDescriptor, error) {
	return nil, nil
}
func (s *stubTransportClient) CallTool(ctx context.Context, name string, args map[string]any, timeoutMs int) (*transport.CallToolResult, error) {
	s.calls++
	return s.result, s.err
}
func (s *stubTransportClient) Errors() []transport.TransportError { return nil }
func (s *stubTransportClient) Close() error                       { return nil }

func TestOrchestrator_RecordsCorrectOutcomeAssessment(t *testing.T) {
	client := &stubTransportClient{result: &transport.CallToolResult{Content: []transport.ContentBlock{{Type: "text", Text: "ok"}}}}
	gen := &stubGenerator{questions: []Question{
		{Description: "basic call", Category: CategoryHappyPath, Args: map[string]any{"x": 1}, ExpectedOutcome: ExpectSuccess, SequenceIndex: 0},
	}}
	c := cache.New(cache.Options{MaxEntries: 10, MaxSizeBytes: 10000, TTL: time.Hour})
	orch := New(client, c, gen, logging.Nop(), Config{ToolTimeoutMs: 5000})

	tools := []transport.ToolDescriptor{{Name: "greet"}}
	personas := []Persona{{ID: "p1"}}

	profiles, err := orch.Run(context.Background(), tools, personas)
	require.NoError(t, err)

	profile := profiles["greet"]
	require.Len(t, profile.Interactions, 1)
	assert.True(t, profile.Interactions[0].OutcomeAssessment.Correct)
	assert.Equal(t, 1, client.calls)
}

func TestOrchestrator_CacheHitAvoidsSecondTransportCall(t *testing.T) {
	client := &stubTransportClient{result: &transport.CallToolResult{Content: []transport.ContentBlock{{Type: "text", Text: "ok"}}}}
	q := Question{Description: "same call twice", Category: CategoryHappyPath, Args: map[string]any{"x": 1}, ExpectedOutcome: ExpectSuccess}
	gen := &stubGenerator{questions: []Question{q, q}}
	c := cache.New(cache.Options{MaxEntries: 10, MaxSizeBytes: 10000, TTL: time.Hour})
	orch := New(client, c, gen, logging.Nop(), Config{ToolTimeoutMs: 5000})

	_, err := orch.Run(context.Background(), []transport.ToolDescriptor{{Name: "t"}}, []Persona{{ID: "p1"}})
	require.NoError(t, err)
	assert.Equal(t, 1, client.calls, "second identical call should hit the cache instead of the transport")
}

func TestOrchestrator_CancelledContextMarksPartialProfile(t *testing.T) {
	client := &stubTransportClient{result: &transport.CallToolResult{}}
	gen := &stubGenerator{questions: []Question{{ExpectedOutcome: ExpectSuccess}}}
	c := cache.New(cache.Options{MaxEntries: 10, MaxSizeBytes: 10000, TTL: time.Hour})
	orch := New(client, c, gen, logging.Nop(), Config{ToolTimeoutMs: 5000})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	profiles, err := orch.Run(ctx, []transport.ToolDescriptor{{Name: "t"}}, []Persona{{ID: "p1"}})
	require.NoError(t, err)
	assert.True(t, profiles["t"].Partial)
}

func TestToolProfile_MergeUnionsNotesAndConcatenatesInteractions(t *testing.T) {
	a := ToolProfile{BehavioralNotes: []string{"n1"}, Interactions: []ToolInteraction{{ToolName: "t"}}}
	b := ToolProfile{BehavioralNotes: []string{"n1", "n2"}, Interactions: []ToolInteraction{{ToolName: "t"}}}

	a.Merge(b)

	assert.ElementsMatch(t, []string{"n1", "n2"}, a.BehavioralNotes)
	assert.Len(t, a.Interactions, 2)
}
