package interview

import (
	"context"
	"fmt"

	"github.com/blackcoderx/mcpwatch/internal/llm"
	"github.com/blackcoderx/mcpwatch/internal/transport"
)

// chatClient is the minimal surface LLMQuestionGenerator needs; satisfied
// by *llm.FallbackClient, *llm.TokenBudget, or any bare llm.Provider
// wrapped to match.
type chatClient interface {
	Chat(ctx context.Context, messages []llm.Message, opts llm.CompletionOptions) (string, error)
}

// LLMQuestionGenerator implements QuestionGenerator by asking an LLM to
// produce a batch of questions biased by the persona's weights, grounded
// in the tool's advertised schema.
type LLMQuestionGenerator struct {
	client       chatClient
	perToolCount int
}

// NewLLMQuestionGenerator builds a generator asking for perToolCount
// questions per tool (default 5 when <= 0).
func NewLLMQuestionGenerator(client chatClient, perToolCount int) *LLMQuestionGenerator {
	if perToolCount <= 0 {
		perToolCount = 5
	}
	return &LLMQuestionGenerator{client: client, perToolCount: perToolCount}
}

type generatedQuestion struct {
	Description     string         `json:"description"`
	Category        string         `json:"category"`
	Args            map[string]any `json:"args"`
	ExpectedOutcome string         `json:"expectedOutcome"`
}

func (g *LLMQuestionGenerator) GenerateQuestions(ctx context.Context, tool transport.ToolDescriptor, persona Persona) ([]Question, error) {
	prompt := fmt.Sprintf(
		"%s\n\nGenerate %d JSON test questions for the tool %q (description: %s, inputSchema: %s). "+
			"Bias category selection by these weights: happy_path=%.2f edge_case=%.2f error_handling=%.2f boundary=%.2f security=%.2f. "+
			"Respond with a JSON array of objects: {description, category, args, expectedOutcome}.",
		persona.SystemPrompt, g.perToolCount, tool.Name, tool.Description, string(tool.InputSchema),
		persona.QuestionBias.HappyPath, persona.QuestionBias.EdgeCase, persona.QuestionBias.ErrorHandling,
		persona.QuestionBias.Boundary, persona.QuestionBias.Security,
	)

	messages := []llm.Message{
		{Role: "system", Content: persona.SystemPrompt},
		{Role: "user", Content: prompt},
	}

	text, err := g.client.Chat(ctx, messages, llm.CompletionOptions{})
	if err != nil {
		return nil, fmt.Errorf("question generation failed for tool %s: %w", tool.Name, err)
	}

	var raw []generatedQuestion
	if err := llm.ParseJSON(text, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse generated questions for tool %s: %w", tool.Name, err)
	}

	questions := make([]Question, 0, len(raw))
	for i, rq := range raw {
		questions = append(questions, Question{
			Description:     rq.Description,
			Category:        QuestionCategory(rq.Category),
			Args:            rq.Args,
			ExpectedOutcome: ExpectedOutcome(rq.ExpectedOutcome),
			SequenceIndex:   i,
		})
	}
	return questions, nil
}
