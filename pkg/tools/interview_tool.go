package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/blackcoderx/mcpwatch/internal/engine"
	"github.com/blackcoderx/mcpwatch/internal/interview"
)

// InterviewTool runs the full persona-scheduled interview against a
// discovered server's tools and reports a per-tool behavioral summary.
type InterviewTool struct {
	eng *engine.Engine
}

// NewInterviewTool builds an InterviewTool bound to eng.
func NewInterviewTool(eng *engine.Engine) *InterviewTool {
	return &InterviewTool{eng: eng}
}

// InterviewParams optionally narrows the persona set; an empty Personas
// list runs engine.DefaultPersonas.
type InterviewParams struct {
	Personas []string `json:"personas,omitempty"`
}

func (t *InterviewTool) Name() string { return "interview_tools" }

func (t *InterviewTool) Description() string {
	return "Drive an LLM-guided interview across a server's discovered tools using one or more personas, collecting question/answer interactions for later baseline assembly."
}

func (t *InterviewTool) Parameters() string {
	return `{
  "personas": ["diligent-integrator", "adversarial-tester"]
}`
}

func (t *InterviewTool) Execute(args string) (string, error) {
	var params InterviewParams
	if strings.TrimSpace(args) != "" {
		if err := json.Unmarshal([]byte(args), &params); err != nil {
			return "", fmt.Errorf("failed to parse parameters: %w", err)
		}
	}

	ctx := context.Background()
	disc, err := t.eng.Discover(ctx)
	if err != nil {
		return "", fmt.Errorf("discovery failed: %w", err)
	}

	personas := selectPersonas(params.Personas)
	profiles, err := t.eng.Interview(ctx, disc, personas)
	if err != nil {
		return "", fmt.Errorf("interview failed: %w", err)
	}

	return formatInterview(profiles), nil
}

func selectPersonas(ids []string) []interview.Persona {
	if len(ids) == 0 {
		return nil // engine.Interview falls back to DefaultPersonas
	}
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var selected []interview.Persona
	for _, p := range engine.DefaultPersonas() {
		if wanted[p.ID] {
			selected = append(selected, p)
		}
	}
	return selected
}

func formatInterview(profiles map[string]*interview.ToolProfile) string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "Interviewed %d tool(s)\n", len(names))
	for _, name := range names {
		p := profiles[name]
		fmt.Fprintf(&b, "\n%s: %d interaction(s)\n", name, len(p.Interactions))
		if len(p.BehavioralNotes) > 0 {
			fmt.Fprintf(&b, "  notes: %s\n", strings.Join(p.BehavioralNotes, "; "))
		}
		if len(p.Limitations) > 0 {
			fmt.Fprintf(&b, "  limitations: %s\n", strings.Join(p.Limitations, "; "))
		}
		if len(p.SecurityNotes) > 0 {
			fmt.Fprintf(&b, "  security: %s\n", strings.Join(p.SecurityNotes, "; "))
		}
	}
	return b.String()
}
