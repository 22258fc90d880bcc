package engine

import (
	"context"
	"testing"

	"github.com/blackcoderx/mcpwatch/internal/baseline"
	"github.com/blackcoderx/mcpwatch/internal/cache"
	"github.com/blackcoderx/mcpwatch/internal/config"
	"github.com/blackcoderx/mcpwatch/internal/interview"
	"github.com/blackcoderx/mcpwatch/internal/llm"
	"github.com/blackcoderx/mcpwatch/internal/logging"
	"github.com/blackcoderx/mcpwatch/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubTransportClient is a minimal transport.Client fake, grounded on
// internal/interview's own orchestrator_test.go stub.
type stubTransportClient struct {
	tools  []transport.ToolDescriptor
	result *transport.CallToolResult
}

func (s *stubTransportClient) Initialize(ctx context.Context) (*transport.InitializeResult, error) {
	return &transport.InitializeResult{Server: transport.ServerInfo{Name: "stub-server", Version: "1.0.0", ProtocolVersion: "2025-01-01", Capabilities: []string{"tools"}}}, nil
}
func (s *stubTransportClient) ListTools(ctx context.Context) ([]transport.ToolDescriptor, error) {
	return s.tools, nil
}
func (s *stubTransportClient) ListPrompts(ctx context.Context) ([]transport.PromptDescriptor, error) {
	return nil, nil
}
func (s *stubTransportClient) ListResources(ctx context.Context) ([]transport.ResourceDescriptor, error) {
	return nil, nil
}
func (s *stubTransportClient) CallTool(ctx context.Context, name string, args map[string]any, timeoutMs int) (*transport.CallToolResult, error) {
	return s.result, nil
}
func (s *stubTransportClient) Errors() []transport.TransportError { return nil }
func (s *stubTransportClient) Close() error                       { return nil }

// stubChatClient always returns the same canned JSON question batch,
// satisfying interview's unexported chatClient interface structurally.
type stubChatClient struct{}

func (s *stubChatClient) Chat(ctx context.Context, messages []llm.Message, opts llm.CompletionOptions) (string, error) {
	return `[{"description":"basic call","category":"happy_path","args":{"x":1},"expectedOutcome":"success"}]`, nil
}

func testEngine(tools []transport.ToolDescriptor) *Engine {
	return &Engine{
		Config: config.Defaults(),
		Client: &stubTransportClient{
			tools:  tools,
			result: &transport.CallToolResult{Content: []transport.ContentBlock{{Type: "text", Text: "ok"}}},
		},
		Cache:  cache.New(cache.Options{}),
		LLM:    llm.NewTokenBudget(&stubChatClient{}, 100_000, false, 1),
		Logger: logging.Nop(),
	}
}

func TestEngine_DiscoverReportsServerAndTools(t *testing.T) {
	eng := testEngine([]transport.ToolDescriptor{{Name: "greet"}})

	disc, err := eng.Discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "stub-server", disc.Server.Name)
	require.Len(t, disc.Tools, 1)
}

func TestEngine_InterviewWithoutExplicitPersonasUsesDefaults(t *testing.T) {
	eng := testEngine([]transport.ToolDescriptor{{Name: "greet"}})
	disc, err := eng.Discover(context.Background())
	require.NoError(t, err)

	profiles, err := eng.Interview(context.Background(), disc, nil)
	require.NoError(t, err)

	profile := profiles["greet"]
	require.NotNil(t, profile)
	assert.NotEmpty(t, profile.Interactions)
}

func TestEngine_BuildBaselineProducesSealedBaseline(t *testing.T) {
	eng := testEngine([]transport.ToolDescriptor{{Name: "greet"}})
	disc, err := eng.Discover(context.Background())
	require.NoError(t, err)

	profiles, err := eng.Interview(context.Background(), disc, []interview.Persona{{ID: "p1"}})
	require.NoError(t, err)

	b, err := eng.BuildBaseline("stub-command", disc, profiles)
	require.NoError(t, err)

	ok, err := baseline.Verify(b)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEngine_CheckWithNoPriorBaselineReturnsFreshWithNilDiff(t *testing.T) {
	eng := testEngine([]transport.ToolDescriptor{{Name: "greet"}})

	fresh, diff, err := eng.Check(context.Background(), "stub-command", t.TempDir()+"/does-not-exist.json", nil)
	require.NoError(t, err)
	assert.Nil(t, diff)
	require.NotNil(t, fresh)
	assert.Len(t, fresh.Tools, 1)
}

func TestEngine_CheckDiffsAgainstASavedBaseline(t *testing.T) {
	eng := testEngine([]transport.ToolDescriptor{{Name: "greet"}})
	path := t.TempDir() + "/baseline.json"

	disc, err := eng.Discover(context.Background())
	require.NoError(t, err)
	profiles, err := eng.Interview(context.Background(), disc, []interview.Persona{{ID: "p1"}})
	require.NoError(t, err)
	first, err := eng.BuildBaseline("stub-command", disc, profiles)
	require.NoError(t, err)
	require.NoError(t, baseline.Save(path, first))

	_, diff, err := eng.Check(context.Background(), "stub-command", path, []interview.Persona{{ID: "p1"}})
	require.NoError(t, err)
	require.NotNil(t, diff)
	assert.Equal(t, "none", string(diff.Severity))
}
