package baseline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/blackcoderx/mcpwatch/internal/interview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleProfile() map[string]*interview.ToolProfile {
	return map[string]*interview.ToolProfile{
		"greet": {
			Name:            "greet",
			Description:     "says hello",
			BehavioralNotes: []string{"always returns a text greeting"},
			Limitations:     []string{"rejects empty names with a validation error"},
			SecurityNotes:   []string{"escapes HTML in the name field"},
			Interactions: []interview.ToolInteraction{
				{
					ToolName:          "greet",
					Question:          interview.Question{Args: map[string]any{"name": "Ada"}, ExpectedOutcome: interview.ExpectSuccess},
					Response:          map[string]any{"message": "hello Ada"},
					ToolExecutionMs:   12,
					OutcomeAssessment: interview.OutcomeAssessment{Expected: interview.ExpectSuccess, Actual: interview.ActualSuccess, Correct: true},
				},
				{
					ToolName:          "greet",
					Question:          interview.Question{Args: map[string]any{"name": "Grace"}, ExpectedOutcome: interview.ExpectSuccess},
					Response:          map[string]any{"message": "hello Grace"},
					ToolExecutionMs:   18,
					OutcomeAssessment: interview.OutcomeAssessment{Expected: interview.ExpectSuccess, Actual: interview.ActualSuccess, Correct: true},
				},
			},
		},
	}
}

func TestBuild_ProducesSealedBaselineThatVerifies(t *testing.T) {
	profiles := sampleProfile()
	b, err := Build("./server", nil, profiles, "interview complete")
	require.NoError(t, err)

	require.Len(t, b.Tools, 1)
	assert.Equal(t, "greet", b.Tools[0].Name)
	assert.NotEmpty(t, b.Tools[0].SchemaHash)
	assert.NotEmpty(t, b.IntegrityHash)

	ok, err := Verify(b)
	require.NoError(t, err)
	assert.True(t, ok, "freshly built baseline must verify against its own hash")
}

func TestBuild_ExtractsAssertionsByFixedMapping(t *testing.T) {
	profiles := sampleProfile()
	b, err := Build("./server", nil, profiles, "")
	require.NoError(t, err)

	var gotFormat, gotErrorHandling, gotSecurity bool
	for _, a := range b.Assertions {
		switch a.Aspect {
		case AspectResponseFormat:
			gotFormat = true
			assert.True(t, a.IsPositive)
		case AspectErrorHandling:
			gotErrorHandling = true
			assert.False(t, a.IsPositive)
		case AspectSecurity:
			gotSecurity = true
			assert.True(t, a.IsPositive, "security note without risk keywords stays positive")
		}
	}
	assert.True(t, gotFormat)
	assert.True(t, gotErrorHandling)
	assert.True(t, gotSecurity)
}

func TestExtractAssertions_SecurityNoteWithRiskKeywordFlipsNegative(t *testing.T) {
	profile := &interview.ToolProfile{Name: "t", SecurityNotes: []string{"this endpoint has a known vulnerability with unescaped input"}}
	assertions := extractAssertions(profile)
	require.Len(t, assertions, 1)
	assert.False(t, assertions[0].IsPositive)
}

func TestIntegrityHash_MutationInvalidatesHash(t *testing.T) {
	profiles := sampleProfile()
	b, err := Build("./server", nil, profiles, "")
	require.NoError(t, err)

	ok, err := Verify(b)
	require.NoError(t, err)
	require.True(t, ok)

	b.Summary = "mutated after sealing"
	ok, err = Verify(b)
	require.NoError(t, err)
	assert.False(t, ok, "mutating any field must invalidate the integrity hash")
}

func TestCanonicalize_IsIdempotent(t *testing.T) {
	profiles := sampleProfile()
	b, err := Build("./server", nil, profiles, "")
	require.NoError(t, err)

	m, err := toGenericMap(b)
	require.NoError(t, err)
	once := canonicalize(m)
	var reparsed any
	require.NoError(t, json.Unmarshal(once, &reparsed))
	twice := canonicalize(reparsed)
	assert.Equal(t, once, twice)
}

func TestSaveLoad_RoundTripsStructurallyAndByHash(t *testing.T) {
	profiles := sampleProfile()
	b, err := Build("./server", nil, profiles, "roundtrip check")
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "baseline.json")
	require.NoError(t, Save(path, b))

	loaded, err := Load(path, LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, b.IntegrityHash, loaded.IntegrityHash)
	assert.Equal(t, b.Tools[0].Name, loaded.Tools[0].Name)
	assert.Equal(t, b.Tools[0].SchemaHash, loaded.Tools[0].SchemaHash)
	assert.WithinDuration(t, b.CreatedAt, loaded.CreatedAt, time.Second)
}

func TestLoad_RejectsIntegrityMismatchUnlessOptedOut(t *testing.T) {
	profiles := sampleProfile()
	b, err := Build("./server", nil, profiles, "pre-tamper")
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "baseline.json")
	require.NoError(t, Save(path, b))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	corrupted := strings.Replace(string(raw), b.Summary, b.Summary+" tampered", 1)
	require.NoError(t, os.WriteFile(path, []byte(corrupted), 0o644))

	_, err = Load(path, LoadOptions{})
	assert.Error(t, err)

	loaded, err := Load(path, LoadOptions{AllowIntegrityMismatch: true})
	require.NoError(t, err)
	assert.Equal(t, b.Summary+" tampered", loaded.Summary)
}

func TestApplyMigrations_UpgradesPre1_0Shape(t *testing.T) {
	raw := map[string]any{
		"version":       "0.1.0",
		"createdAt":     time.Now().UTC().Format(time.RFC3339),
		"serverCommand": "./server",
		"server": map[string]any{
			"name":     "demo",
			"protocol": "2024-01-01",
		},
		"tools":      []any{},
		"assertions": []any{},
	}

	migrated, changed, err := applyMigrations(raw)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, CurrentVersion, migrated["version"])

	server := migrated["server"].(map[string]any)
	assert.Equal(t, "2024-01-01", server["protocolVersion"])
	_, hasOld := server["protocol"]
	assert.False(t, hasOld)
	assert.NotNil(t, migrated["workflowSignatures"])
}
