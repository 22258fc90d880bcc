// Package interview drives the per-tool state machine that generates
// questions via an LLM, invokes tools through the transport (with cache
// reuse), assesses outcomes, and accumulates ToolProfiles, optionally
// across multiple personas run in parallel.
package interview

import "time"

// QuestionCategory is the fixed category enum questions are biased toward.
type QuestionCategory string

const (
	CategoryHappyPath     QuestionCategory = "happy_path"
	CategoryEdgeCase      QuestionCategory = "edge_case"
	CategoryErrorHandling QuestionCategory = "error_handling"
	CategoryBoundary      QuestionCategory = "boundary"
	CategorySecurity      QuestionCategory = "security"
)

// ExpectedOutcome is what the question's author predicted the call would do.
type ExpectedOutcome string

const (
	ExpectSuccess ExpectedOutcome = "success"
	ExpectError   ExpectedOutcome = "error"
	ExpectEither  ExpectedOutcome = "either"
)

// ActualOutcome is what actually happened.
type ActualOutcome string

const (
	ActualSuccess ActualOutcome = "success"
	ActualError   ActualOutcome = "error"
)

// Question is one LLM-generated tool-call prompt, biased by persona.
type Question struct {
	Description     string           `json:"description"`
	Category        QuestionCategory `json:"category"`
	Args            map[string]any   `json:"args"`
	ExpectedOutcome ExpectedOutcome  `json:"expectedOutcome"`
	SequenceIndex   int              `json:"sequenceIndex"`
}

// OutcomeAssessment compares expected against actual outcome for one call.
type OutcomeAssessment struct {
	Expected ExpectedOutcome `json:"expected"`
	Actual   ActualOutcome   `json:"actual"`
	Correct  bool            `json:"correct"`
}

// ToolInteraction is one invocation record, created once and never
// mutated.
type ToolInteraction struct {
	ToolName          string             `json:"toolName"`
	Question          Question           `json:"question"`
	Response          any                `json:"response,omitempty"`
	Error             string             `json:"error,omitempty"`
	DurationMs        float64            `json:"durationMs"`
	ToolExecutionMs    float64           `json:"toolExecutionMs"`
	OutcomeAssessment OutcomeAssessment  `json:"outcomeAssessment"`
	PersonaID         string             `json:"personaId"`
	Timestamp         time.Time          `json:"timestamp"`
}

// ToolProfile accumulates interactions for one tool across one (or,
// post-merge, several) persona passes.
type ToolProfile struct {
	Name             string            `json:"name"`
	Description      string            `json:"description"`
	Interactions     []ToolInteraction `json:"interactions"`
	BehavioralNotes  []string          `json:"behavioralNotes"`
	Limitations      []string          `json:"limitations"`
	SecurityNotes    []string          `json:"securityNotes"`
	Partial          bool              `json:"partial,omitempty"`
}

// Merge combines other into p: set-union of notes, concatenation of
// interactions.
func (p *ToolProfile) Merge(other ToolProfile) {
	p.Interactions = append(p.Interactions, other.Interactions...)
	p.BehavioralNotes = unionStrings(p.BehavioralNotes, other.BehavioralNotes)
	p.Limitations = unionStrings(p.Limitations, other.Limitations)
	p.SecurityNotes = unionStrings(p.SecurityNotes, other.SecurityNotes)
	p.Partial = p.Partial || other.Partial
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range a {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// QuestionWeights biases the question generator toward particular
// categories; weights are expected to sum to 1.
type QuestionWeights struct {
	HappyPath     float64 `json:"happyPath"`
	EdgeCase      float64 `json:"edgeCase"`
	ErrorHandling float64 `json:"errorHandling"`
	Boundary      float64 `json:"boundary"`
	Security      float64 `json:"security"`
}

// Persona shapes LLM-generated questions for one interview pass.
type Persona struct {
	ID            string             `json:"id"`
	SystemPrompt  string             `json:"systemPrompt"`
	QuestionBias  QuestionWeights    `json:"questionBias"`
	Categories    []QuestionCategory `json:"categories"`
}
