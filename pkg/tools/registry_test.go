package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/blackcoderx/mcpwatch/internal/cache"
	"github.com/blackcoderx/mcpwatch/internal/config"
	"github.com/blackcoderx/mcpwatch/internal/engine"
	"github.com/blackcoderx/mcpwatch/internal/llm"
	"github.com/blackcoderx/mcpwatch/internal/logging"
	"github.com/blackcoderx/mcpwatch/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTransportClient struct{}

func (s *stubTransportClient) Initialize(ctx context.Context) (*transport.InitializeResult, error) {
	return &transport.InitializeResult{Server: transport.ServerInfo{Name: "greeter", Version: "1.0.0", Capabilities: []string{"tools"}}}, nil
}
func (s *stubTransportClient) ListTools(ctx context.Context) ([]transport.ToolDescriptor, error) {
	return []transport.ToolDescriptor{{Name: "greet", Description: "says hello"}}, nil
}
func (s *stubTransportClient) ListPrompts(ctx context.Context) ([]transport.PromptDescriptor, error) {
	return nil, nil
}
func (s *stubTransportClient) ListResources(ctx context.Context) ([]transport.ResourceDescriptor, error) {
	return nil, nil
}
func (s *stubTransportClient) CallTool(ctx context.Context, name string, args map[string]any, timeoutMs int) (*transport.CallToolResult, error) {
	return &transport.CallToolResult{Content: []transport.ContentBlock{{Type: "text", Text: "hello there"}}}, nil
}
func (s *stubTransportClient) Errors() []transport.TransportError { return nil }
func (s *stubTransportClient) Close() error                       { return nil }

type stubChatClient struct{}

func (s *stubChatClient) Chat(ctx context.Context, messages []llm.Message, opts llm.CompletionOptions) (string, error) {
	return `[{"description":"say hello","category":"happy_path","args":{"name":"ada"},"expectedOutcome":"success"}]`, nil
}

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	eng := &engine.Engine{
		Config: config.Defaults(),
		Client: &stubTransportClient{},
		Cache:  cache.New(cache.Options{}),
		LLM:    llm.NewTokenBudget(&stubChatClient{}, 100_000, false, 1),
		Logger: logging.Nop(),
	}
	r := NewRegistry(eng, "stub-command")
	r.RegisterAllTools()
	return r
}

func TestRegistry_ListsEveryRegisteredTool(t *testing.T) {
	r := testRegistry(t)
	names := make([]string, 0)
	for _, tl := range r.List() {
		names = append(names, tl.Name())
	}
	assert.ElementsMatch(t, []string{"discover_server", "interview_tools", "build_baseline", "check_against_baseline"}, names)
}

func TestRegistry_ExecuteUnknownToolErrors(t *testing.T) {
	r := testRegistry(t)
	_, err := r.Execute("does_not_exist", "{}")
	assert.Error(t, err)
}

func TestDiscoverTool_ReportsServerAndTools(t *testing.T) {
	r := testRegistry(t)
	out, err := r.Execute("discover_server", "{}")
	require.NoError(t, err)
	assert.Contains(t, out, "greeter")
	assert.Contains(t, out, "greet: says hello")
}

func TestBuildBaselineTool_RequiresOutputPath(t *testing.T) {
	r := testRegistry(t)
	_, err := r.Execute("build_baseline", "{}")
	assert.Error(t, err)
}

func TestBuildBaselineTool_SavesAndReportsIntegrityHash(t *testing.T) {
	r := testRegistry(t)
	path := t.TempDir() + "/baseline.json"
	args, err := json.Marshal(BuildBaselineParams{OutputPath: path})
	require.NoError(t, err)

	out, err := r.Execute("build_baseline", string(args))
	require.NoError(t, err)
	assert.Contains(t, out, "Integrity hash")
}

func TestCheckTool_NoPriorBaselineSavesFreshOne(t *testing.T) {
	r := testRegistry(t)
	path := t.TempDir() + "/baseline.json"
	args, err := json.Marshal(CheckParams{BaselinePath: path})
	require.NoError(t, err)

	out, err := r.Execute("check_against_baseline", string(args))
	require.NoError(t, err)
	assert.Contains(t, out, "No prior baseline")
}
