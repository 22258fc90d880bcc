package comparator

import (
	"testing"

	"github.com/blackcoderx/mcpwatch/internal/baseline"
	"github.com/blackcoderx/mcpwatch/internal/fingerprint"
	"github.com/blackcoderx/mcpwatch/internal/perfstats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBaseline() baseline.BehavioralBaseline {
	return baseline.BehavioralBaseline{
		Version: baseline.CurrentVersion,
		Tools: []baseline.ToolFingerprint{
			{
				Name:       "delete_user",
				SchemaHash: "abc123",
				ResponseFingerprint: &fingerprintStub,
			},
			{
				Name:                "greet",
				SchemaHash:          "def456",
				ResponseFingerprint: &fingerprintStub,
				BaselineP95Ms:       100,
				BaselineSuccessRate: 0.98,
				PerformanceConfidence: &perfstats.Stats{ConfidenceLevel: perfstats.ConfidenceHigh},
			},
		},
		Assertions: []baseline.BehavioralAssertion{
			{Tool: "greet", Aspect: baseline.AspectResponseFormat, Assertion: "always returns a greeting message", IsPositive: true},
		},
	}
}

var fingerprintStub = baseline.ResponseFingerprint{}

func TestDiff_S5_RemovedToolIsBreaking(t *testing.T) {
	prev := sampleBaseline()
	cur := sampleBaseline()
	cur.Tools = cur.Tools[1:] // drop delete_user

	d := Diff(prev, cur)

	assert.Equal(t, []string{"delete_user"}, d.ToolsRemoved)
	assert.Equal(t, 1, d.BreakingCount)
	assert.Equal(t, SeverityBreaking, d.Severity)
}

func TestDiff_S6_WhitespaceOnlyAssertionEditIsSeverityNone(t *testing.T) {
	prev := sampleBaseline()
	cur := sampleBaseline()
	cur.Assertions = []baseline.BehavioralAssertion{
		{Tool: "greet", Aspect: baseline.AspectResponseFormat, Assertion: "always  returns a greeting message", IsPositive: true},
	}

	d := Diff(prev, cur)
	assert.Equal(t, SeverityNone, d.Severity)
}

func TestDiff_Idempotence_NoOpDiffIsSeverityNone(t *testing.T) {
	b := sampleBaseline()
	d := Diff(b, b)
	assert.Equal(t, SeverityNone, d.Severity)
	assert.Empty(t, d.ToolsAdded)
	assert.Empty(t, d.ToolsRemoved)
	assert.Empty(t, d.ToolsModified)
}

func TestDiff_SchemaHashChangeIsWarningUnlessNewRequiredParam(t *testing.T) {
	prev := sampleBaseline()
	cur := sampleBaseline()
	cur.Tools[1].SchemaHash = "changed"

	d := Diff(prev, cur)
	require.Len(t, d.ToolsModified, 1)
	assert.Equal(t, SeverityWarning, d.ToolsModified[0].Changes[0].Severity)
}

func TestDiff_NewRequiredParamWithoutDefaultIsBreaking(t *testing.T) {
	prev := sampleBaseline()
	cur := sampleBaseline()
	cur.Tools[1].SchemaHash = "changed"
	cur.Tools[1].InputSchema = &fingerprint.InferredSchema{
		Type:     fingerprint.TypeObject,
		Required: []string{"apiKey"},
		Properties: map[string]*fingerprint.InferredSchema{
			"apiKey": {Type: fingerprint.TypeString},
		},
	}

	d := Diff(prev, cur)
	require.Len(t, d.ToolsModified, 1)
	assert.Equal(t, SeverityBreaking, d.ToolsModified[0].Changes[0].Severity)
}

func TestDiff_SuccessRateDropClassification(t *testing.T) {
	prev := sampleBaseline()
	curWarn := sampleBaseline()
	curWarn.Tools[1].BaselineSuccessRate = 0.87 // 11pp drop

	d := Diff(prev, curWarn)
	require.NotEmpty(t, d.ToolsModified)
	assert.Equal(t, SeverityWarning, lastChangeSeverity(d, "greet"))

	curBreak := sampleBaseline()
	curBreak.Tools[1].BaselineSuccessRate = 0.70 // 28pp drop
	d2 := Diff(prev, curBreak)
	assert.Equal(t, SeverityBreaking, lastChangeSeverity(d2, "greet"))
}

func lastChangeSeverity(d BehavioralDiff, tool string) Severity {
	for _, tc := range d.ToolsModified {
		if tc.Tool == tool {
			return tc.Changes[len(tc.Changes)-1].Severity
		}
	}
	return SeverityNone
}

func TestFingerprint_MatchesAcrossWhitespaceButNotAcrossAspect(t *testing.T) {
	a := baseline.BehavioralAssertion{Tool: "greet", Aspect: baseline.AspectResponseFormat, Assertion: "always returns json"}
	b := baseline.BehavioralAssertion{Tool: "greet", Aspect: baseline.AspectResponseFormat, Assertion: "always  returns   json"}
	c := baseline.BehavioralAssertion{Tool: "greet", Aspect: baseline.AspectSecurity, Assertion: "always returns json"}

	assert.Equal(t, Fingerprint(a), Fingerprint(b))
	assert.NotEqual(t, Fingerprint(a), Fingerprint(c))
}
