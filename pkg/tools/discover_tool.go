package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/blackcoderx/mcpwatch/internal/discovery"
	"github.com/blackcoderx/mcpwatch/internal/engine"
)

// DiscoverTool runs capability discovery against the connected server and
// reports the tools/prompts/resources it advertised, plus any anomaly
// warnings.
type DiscoverTool struct {
	eng *engine.Engine
}

// NewDiscoverTool builds a DiscoverTool bound to eng's connected server.
func NewDiscoverTool(eng *engine.Engine) *DiscoverTool {
	return &DiscoverTool{eng: eng}
}

// DiscoverParams takes no required fields; it exists so Execute has a
// stable, self-documenting args shape even though discovery needs nothing
// beyond the connection the engine already holds.
type DiscoverParams struct{}

func (t *DiscoverTool) Name() string { return "discover_server" }

func (t *DiscoverTool) Description() string {
	return "Enumerate a connected MCP server's capabilities: initialize, then list its tools, prompts, and resources, flagging any capability advertised but empty."
}

func (t *DiscoverTool) Parameters() string {
	return `{}`
}

func (t *DiscoverTool) Execute(args string) (string, error) {
	if strings.TrimSpace(args) != "" && strings.TrimSpace(args) != "{}" {
		var params DiscoverParams
		if err := json.Unmarshal([]byte(args), &params); err != nil {
			return "", fmt.Errorf("failed to parse parameters: %w", err)
		}
	}

	result, err := t.eng.Discover(context.Background())
	if err != nil {
		return "", fmt.Errorf("discovery failed: %w", err)
	}

	return formatDiscovery(result), nil
}

func formatDiscovery(r *discovery.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Server: %s %s (protocol %s)\n", r.Server.Name, r.Server.Version, r.Server.ProtocolVersion)
	fmt.Fprintf(&b, "Tools: %d | Prompts: %d | Resources: %d\n", len(r.Tools), len(r.Prompts), len(r.Resources))

	if len(r.Tools) > 0 {
		b.WriteString("\nTools:\n")
		for _, tl := range r.Tools {
			fmt.Fprintf(&b, "  - %s: %s\n", tl.Name, tl.Description)
		}
	}

	if len(r.Warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "  ! %s (%s)\n", w.Message, w.Recommendation)
		}
	}

	return b.String()
}
