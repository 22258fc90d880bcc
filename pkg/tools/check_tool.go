package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/blackcoderx/mcpwatch/internal/baseline"
	"github.com/blackcoderx/mcpwatch/internal/comparator"
	"github.com/blackcoderx/mcpwatch/internal/engine"
)

// CheckTool runs the full discover+interview+build+diff pipeline against a
// stored baseline, reporting a classified BehavioralDiff.
type CheckTool struct {
	eng           *engine.Engine
	serverCommand string
}

// NewCheckTool builds a CheckTool bound to eng.
func NewCheckTool(eng *engine.Engine, serverCommand string) *CheckTool {
	return &CheckTool{eng: eng, serverCommand: serverCommand}
}

// CheckParams names the stored baseline to diff the fresh run against.
type CheckParams struct {
	BaselinePath string   `json:"baseline_path"`
	Personas     []string `json:"personas,omitempty"`
}

func (t *CheckTool) Name() string { return "check_against_baseline" }

func (t *CheckTool) Description() string {
	return "Re-interview a server and diff its fresh behavioral baseline against a previously saved one, classifying every change as breaking, warning, or info."
}

func (t *CheckTool) Parameters() string {
	return `{
  "baseline_path": "baselines/my-server.json"
}`
}

func (t *CheckTool) Execute(args string) (string, error) {
	var params CheckParams
	if err := json.Unmarshal([]byte(args), &params); err != nil {
		return "", fmt.Errorf("failed to parse parameters: %w", err)
	}
	if params.BaselinePath == "" {
		return "", fmt.Errorf("baseline_path is required")
	}

	fresh, diff, err := t.eng.Check(context.Background(), t.serverCommand, params.BaselinePath, selectPersonas(params.Personas))
	if err != nil {
		return "", fmt.Errorf("check failed: %w", err)
	}

	if diff == nil {
		if err := baseline.Save(params.BaselinePath, *fresh); err != nil {
			return "", fmt.Errorf("no prior baseline found; failed to save the new one: %w", err)
		}
		return fmt.Sprintf("No prior baseline at %s; saved a fresh one with %d tool(s).", params.BaselinePath, len(fresh.Tools)), nil
	}

	return formatDiff(*diff), nil
}

func formatDiff(d comparator.BehavioralDiff) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Severity: %s (breaking=%d warning=%d info=%d)\n", d.Severity, d.BreakingCount, d.WarningCount, d.InfoCount)

	if len(d.ToolsAdded) > 0 {
		fmt.Fprintf(&b, "\nTools added: %s\n", strings.Join(d.ToolsAdded, ", "))
	}
	if len(d.ToolsRemoved) > 0 {
		fmt.Fprintf(&b, "Tools removed: %s\n", strings.Join(d.ToolsRemoved, ", "))
	}

	for _, tc := range d.ToolsModified {
		fmt.Fprintf(&b, "\n%s:\n", tc.Tool)
		for _, c := range tc.Changes {
			fmt.Fprintf(&b, "  [%s] %s: %s\n", c.Severity, c.Field, c.Detail)
		}
	}

	if len(d.AssertionsAdded) > 0 {
		fmt.Fprintf(&b, "\nNew assertions: %d\n", len(d.AssertionsAdded))
	}
	if len(d.AssertionsRemoved) > 0 {
		fmt.Fprintf(&b, "Dropped assertions: %d\n", len(d.AssertionsRemoved))
	}

	return b.String()
}
