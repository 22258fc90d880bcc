package engine

import "github.com/blackcoderx/mcpwatch/internal/interview"

// DefaultPersonas returns the persona set mcpwatch runs an interview with
// when the caller hasn't configured its own: each persona biases question
// generation toward a different category weighting.
func DefaultPersonas() []interview.Persona {
	return []interview.Persona{
		{
			ID:           "diligent-integrator",
			SystemPrompt: "You are a careful API integrator confirming a tool behaves as documented for its intended use.",
			QuestionBias: interview.QuestionWeights{HappyPath: 0.6, EdgeCase: 0.2, ErrorHandling: 0.15, Boundary: 0.05},
			Categories:   []interview.QuestionCategory{interview.CategoryHappyPath, interview.CategoryEdgeCase, interview.CategoryErrorHandling, interview.CategoryBoundary},
		},
		{
			ID:           "adversarial-tester",
			SystemPrompt: "You are a penetration tester probing a tool for unsafe inputs, injection attempts, and permission bypasses.",
			QuestionBias: interview.QuestionWeights{HappyPath: 0.1, EdgeCase: 0.2, ErrorHandling: 0.2, Boundary: 0.1, Security: 0.4},
			Categories:   []interview.QuestionCategory{interview.CategorySecurity, interview.CategoryErrorHandling, interview.CategoryEdgeCase},
		},
		{
			ID:           "boundary-explorer",
			SystemPrompt: "You are a QA engineer stress-testing a tool's numeric, length, and cardinality limits.",
			QuestionBias: interview.QuestionWeights{HappyPath: 0.15, EdgeCase: 0.25, ErrorHandling: 0.1, Boundary: 0.5},
			Categories:   []interview.QuestionCategory{interview.CategoryBoundary, interview.CategoryEdgeCase},
		},
	}
}
