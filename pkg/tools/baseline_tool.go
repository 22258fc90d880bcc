package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/blackcoderx/mcpwatch/internal/baseline"
	"github.com/blackcoderx/mcpwatch/internal/engine"
)

// BuildBaselineTool runs a full discover+interview pass and saves the
// resulting BehavioralBaseline to disk, sealed with its integrity hash.
type BuildBaselineTool struct {
	eng           *engine.Engine
	serverCommand string
}

// NewBuildBaselineTool builds a BuildBaselineTool bound to eng. serverCommand
// labels the baseline with the command/URL used to reach the server.
func NewBuildBaselineTool(eng *engine.Engine, serverCommand string) *BuildBaselineTool {
	return &BuildBaselineTool{eng: eng, serverCommand: serverCommand}
}

// BuildBaselineParams names the output file and optionally restricts the
// persona set, matching InterviewParams.
type BuildBaselineParams struct {
	OutputPath string   `json:"output_path"`
	Personas   []string `json:"personas,omitempty"`
}

func (t *BuildBaselineTool) Name() string { return "build_baseline" }

func (t *BuildBaselineTool) Description() string {
	return "Discover a server's tools, interview them, assemble a BehavioralBaseline (schemas, response shapes, error patterns, latency percentiles, assertions), and save it to disk."
}

func (t *BuildBaselineTool) Parameters() string {
	return `{
  "output_path": "baselines/my-server.json",
  "personas": ["diligent-integrator", "adversarial-tester", "boundary-explorer"]
}`
}

func (t *BuildBaselineTool) Execute(args string) (string, error) {
	var params BuildBaselineParams
	if err := json.Unmarshal([]byte(args), &params); err != nil {
		return "", fmt.Errorf("failed to parse parameters: %w", err)
	}
	if params.OutputPath == "" {
		return "", fmt.Errorf("output_path is required")
	}

	ctx := context.Background()
	disc, err := t.eng.Discover(ctx)
	if err != nil {
		return "", fmt.Errorf("discovery failed: %w", err)
	}

	profiles, err := t.eng.Interview(ctx, disc, selectPersonas(params.Personas))
	if err != nil {
		return "", fmt.Errorf("interview failed: %w", err)
	}

	b, err := t.eng.BuildBaseline(t.serverCommand, disc, profiles)
	if err != nil {
		return "", fmt.Errorf("baseline assembly failed: %w", err)
	}

	if err := baseline.Save(params.OutputPath, b); err != nil {
		return "", fmt.Errorf("failed to save baseline: %w", err)
	}

	return formatBaseline(params.OutputPath, b), nil
}

func formatBaseline(path string, b baseline.BehavioralBaseline) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Saved baseline to %s\n", path)
	fmt.Fprintf(&sb, "Server: %s %s\n", b.Server.Name, b.Server.Version)
	fmt.Fprintf(&sb, "Tools fingerprinted: %d\n", len(b.Tools))
	fmt.Fprintf(&sb, "Assertions extracted: %d\n", len(b.Assertions))
	fmt.Fprintf(&sb, "Integrity hash: %s\n", b.IntegrityHash)
	return sb.String()
}
