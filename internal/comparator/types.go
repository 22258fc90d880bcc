// Package comparator diffs two BehavioralBaselines tool-by-tool and
// assertion-by-assertion, classifying the result as none/info/warning/
// breaking.
package comparator

import "github.com/blackcoderx/mcpwatch/internal/baseline"

// Severity is the fixed diff-severity enum, ordered none < info < warning
// < breaking.
type Severity string

const (
	SeverityNone    Severity = "none"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityBreaking Severity = "breaking"
)

// Change is one detected difference within a tool present in both
// baselines.
type Change struct {
	Field      string   `json:"field"`
	Previous   any      `json:"previous,omitempty"`
	Current    any      `json:"current,omitempty"`
	Severity   Severity `json:"severity"`
	Detail     string   `json:"detail"`
	Confidence float64  `json:"confidence,omitempty"`
}

// ToolChange bundles every Change found for one tool present in both
// baselines.
type ToolChange struct {
	Tool    string   `json:"tool"`
	Changes []Change `json:"changes"`
}

// AssertionChange is one added or removed assertion. A polarity flip on a
// matched pair is reported as a Change in ToolsModified instead.
type AssertionChange struct {
	Assertion  baseline.BehavioralAssertion `json:"assertion"`
	Kind       string                       `json:"kind"` // "added", "removed"
	Confidence float64                      `json:"confidence,omitempty"`
}

// BehavioralDiff is the full three-phase comparison result.
type BehavioralDiff struct {
	ToolsAdded        []string          `json:"toolsAdded"`
	ToolsRemoved      []string          `json:"toolsRemoved"`
	ToolsModified     []ToolChange      `json:"toolsModified"`
	AssertionsAdded   []AssertionChange `json:"assertionsAdded"`
	AssertionsRemoved []AssertionChange `json:"assertionsRemoved"`
	Severity          Severity          `json:"severity"`
	BreakingCount     int               `json:"breakingCount"`
	WarningCount      int               `json:"warningCount"`
	InfoCount         int               `json:"infoCount"`
}
