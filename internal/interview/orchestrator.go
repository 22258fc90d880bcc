package interview

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/blackcoderx/mcpwatch/internal/cache"
	"github.com/blackcoderx/mcpwatch/internal/transport"
	"github.com/rs/zerolog"
)

// QuestionGenerator produces a batch of persona-biased questions for one
// tool, backed by internal/llm in production.
type QuestionGenerator interface {
	GenerateQuestions(ctx context.Context, tool transport.ToolDescriptor, persona Persona) ([]Question, error)
}

// Config bounds the orchestrator's behavior.
type Config struct {
	// ToolTimeoutMs is the per-call deadline passed to transport.CallTool.
	ToolTimeoutMs int
	// MaxConcurrentPersonas bounds how many persona passes run at once.
	// Defaults to the number of personas, capped at the number of tools.
	MaxConcurrentPersonas int
}

// Orchestrator runs interview passes over a set of tools.
type Orchestrator struct {
	client    transport.Client
	cache     *cache.Cache
	generator QuestionGenerator
	logger    zerolog.Logger
	cfg       Config
}

// New builds an Orchestrator.
func New(client transport.Client, respCache *cache.Cache, generator QuestionGenerator, logger zerolog.Logger, cfg Config) *Orchestrator {
	return &Orchestrator{client: client, cache: respCache, generator: generator, logger: logger, cfg: cfg}
}

// Run drives one interview across tools and personas, returning a merged
// ToolProfile per tool name, deterministically ordered by (persona.id,
// question.sequenceIndex) within each tool.
func (o *Orchestrator) Run(ctx context.Context, tools []transport.ToolDescriptor, personas []Persona) (map[string]*ToolProfile, error) {
	concurrency := o.cfg.MaxConcurrentPersonas
	if concurrency <= 0 {
		concurrency = len(personas)
	}
	if concurrency > len(tools) && len(tools) > 0 {
		concurrency = len(tools)
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	type passResult struct {
		persona  Persona
		profiles map[string]*ToolProfile
	}

	results := make([]passResult, len(personas))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, persona := range personas {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, persona Persona) {
			defer wg.Done()
			defer func() { <-sem }()
			profiles := o.runPersonaPass(ctx, tools, persona)
			results[i] = passResult{persona: persona, profiles: profiles}
		}(i, persona)
	}
	wg.Wait()

	merged := make(map[string]*ToolProfile)
	for _, tool := range tools {
		acc := &ToolProfile{Name: tool.Name, Description: tool.Description}
		merged[tool.Name] = acc
	}

	// Merge in a deterministic order: personas sorted by id.
	sortedResults := make([]passResult, len(results))
	copy(sortedResults, results)
	sort.Slice(sortedResults, func(i, j int) bool {
		return sortedResults[i].persona.ID < sortedResults[j].persona.ID
	})

	for _, r := range sortedResults {
		for name, profile := range r.profiles {
			sortInteractionsBySequence(profile)
			if acc, ok := merged[name]; ok {
				acc.Merge(*profile)
			} else {
				merged[name] = profile
			}
		}
	}

	return merged, nil
}

func sortInteractionsBySequence(p *ToolProfile) {
	sort.SliceStable(p.Interactions, func(i, j int) bool {
		return p.Interactions[i].Question.SequenceIndex < p.Interactions[j].Question.SequenceIndex
	})
}

// runPersonaPass drives one persona's [discovered]->[questioning]->[invoke]
// ->[record/assess]->[profileReady] state machine across all tools.
func (o *Orchestrator) runPersonaPass(ctx context.Context, tools []transport.ToolDescriptor, persona Persona) map[string]*ToolProfile {
	profiles := make(map[string]*ToolProfile, len(tools))

	for _, tool := range tools {
		profile := &ToolProfile{Name: tool.Name, Description: tool.Description}

		select {
		case <-ctx.Done():
			profile.Partial = true
			profile.Limitations = append(profile.Limitations, "interview cancelled before this tool's questions were generated")
			profiles[tool.Name] = profile
			continue
		default:
		}

		questions, err := o.generator.GenerateQuestions(ctx, tool, persona)
		if err != nil {
			o.logger.Warn().Err(err).Str("tool", tool.Name).Str("persona", persona.ID).Msg("question generation failed")
			profile.Partial = true
			profile.Limitations = append(profile.Limitations, fmt.Sprintf("question generation failed: %v", err))
			profiles[tool.Name] = profile
			continue
		}

		for _, q := range questions {
			if ctx.Err() != nil {
				profile.Partial = true
				profile.Limitations = append(profile.Limitations, "interview cancelled mid-pass; remaining questions were not asked")
				break
			}
			interaction := o.invokeOne(ctx, tool.Name, q, persona.ID)
			profile.Interactions = append(profile.Interactions, interaction)
		}

		profiles[tool.Name] = profile
	}

	return profiles
}

// invokeOne resolves q's args into a concrete invocation, reusing a cached
// response when the (toolName, args) fingerprint hits, otherwise calling
// the transport with the configured per-tool timeout.
func (o *Orchestrator) invokeOne(ctx context.Context, toolName string, q Question, personaID string) ToolInteraction {
	interaction := ToolInteraction{
		ToolName:  toolName,
		Question:  q,
		PersonaID: personaID,
		Timestamp: time.Now().UTC(),
	}

	start := time.Now()

	var result *transport.CallToolResult
	var callErr error

	key := cache.ToolKey(toolName, q.Args)
	if cached, ok := o.cache.Get(key); ok {
		if cr, ok := cached.(*transport.CallToolResult); ok {
			result = cr
		}
	}

	if result == nil {
		result, callErr = o.client.CallTool(ctx, toolName, q.Args, o.cfg.ToolTimeoutMs)
		if callErr == nil && result != nil {
			_ = o.cache.Set(key, result)
		}
	}

	interaction.DurationMs = float64(time.Since(start).Microseconds()) / 1000.0
	interaction.ToolExecutionMs = interaction.DurationMs

	actual := ActualSuccess
	if callErr != nil {
		actual = ActualError
		interaction.Error = callErr.Error()
	} else if result != nil {
		interaction.Response = result.Content
		if result.IsError {
			actual = ActualError
			interaction.Error = extractErrorText(result)
		}
	}

	interaction.OutcomeAssessment = OutcomeAssessment{
		Expected: q.ExpectedOutcome,
		Actual:   actual,
		Correct:  q.ExpectedOutcome == ExpectEither || string(q.ExpectedOutcome) == string(actual),
	}

	return interaction
}

func extractErrorText(result *transport.CallToolResult) string {
	var parts []string
	for _, block := range result.Content {
		if block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	if len(parts) == 0 {
		return "tool call reported isError with no content"
	}
	return strings.Join(parts, "\n")
}
