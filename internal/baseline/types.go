// Package baseline assembles ToolProfiles and discovery data into a
// versioned, content-addressed BehavioralBaseline with an integrity hash,
// and handles load/verify/migrate of the on-disk format.
package baseline

import (
	"time"

	"github.com/blackcoderx/mcpwatch/internal/fingerprint"
	"github.com/blackcoderx/mcpwatch/internal/perfstats"
)

// ResponseFingerprint, ErrorPattern and ErrorCategory are the fingerprint
// package's types as stored in a baseline's ToolFingerprint.
type (
	ResponseFingerprint = fingerprint.ResponseFingerprint
	ErrorPattern        = fingerprint.ErrorPattern
	ErrorCategory       = fingerprint.ErrorCategory
)

// AssertionAspect is the fixed aspect enum a BehavioralAssertion targets.
type AssertionAspect string

const (
	AspectResponseFormat    AssertionAspect = "response_format"
	AspectResponseStructure AssertionAspect = "response_structure"
	AspectErrorHandling     AssertionAspect = "error_handling"
	AspectErrorPattern      AssertionAspect = "error_pattern"
	AspectSecurity          AssertionAspect = "security"
	AspectPerformance       AssertionAspect = "performance"
	AspectSchema            AssertionAspect = "schema"
	AspectDescription       AssertionAspect = "description"
)

// BehavioralAssertion is one free-text claim about a tool's behavior.
type BehavioralAssertion struct {
	Tool       string          `json:"tool"`
	Aspect     AssertionAspect `json:"aspect"`
	Assertion  string          `json:"assertion"`
	Evidence   string          `json:"evidence,omitempty"`
	IsPositive bool            `json:"isPositive"`
}

// ToolFingerprint is the packaged per-tool summary stored in a baseline.
type ToolFingerprint struct {
	Name                  string                          `json:"name"`
	Description           string                          `json:"description"`
	InputSchema           *fingerprint.InferredSchema      `json:"inputSchema,omitempty"`
	SchemaHash            string                          `json:"schemaHash"`
	Assertions            []BehavioralAssertion           `json:"assertions"`
	SecurityNotes         []string                        `json:"securityNotes"`
	Limitations           []string                        `json:"limitations"`
	ResponseFingerprint   *fingerprint.ResponseFingerprint `json:"responseFingerprint,omitempty"`
	InferredOutputSchema  *fingerprint.InferredSchema      `json:"inferredOutputSchema,omitempty"`
	ErrorPatterns         []fingerprint.ErrorPattern       `json:"errorPatterns,omitempty"`
	BaselineP50Ms         float64                         `json:"baselineP50Ms,omitempty"`
	BaselineP95Ms         float64                         `json:"baselineP95Ms,omitempty"`
	BaselineP99Ms         float64                         `json:"baselineP99Ms,omitempty"`
	BaselineSuccessRate   float64                         `json:"baselineSuccessRate,omitempty"`
	PerformanceConfidence *perfstats.Stats                `json:"performanceConfidence,omitempty"`
}

// ServerInfo is the discovery-derived server identity stored in a baseline.
type ServerInfo struct {
	Name            string   `json:"name"`
	Version         string   `json:"version"`
	ProtocolVersion string   `json:"protocolVersion"`
	Capabilities    []string `json:"capabilities"`
}

// Acceptance records a human sign-off on a previously-flagged diff.
type Acceptance struct {
	AcceptedAt   time.Time `json:"acceptedAt"`
	AcceptedBy   string    `json:"acceptedBy,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	AcceptedDiff string    `json:"acceptedDiff,omitempty"`
}

// CurrentVersion is the semver baseline-format version this package
// produces; Load migrates older versions up to it before verification.
const CurrentVersion = "1.0.0"

// BehavioralBaseline is the write-once, hash-sealed snapshot of one
// interview.
type BehavioralBaseline struct {
	Version           string                `json:"version"`
	CreatedAt         time.Time             `json:"createdAt"`
	ServerCommand     string                `json:"serverCommand"`
	Server            ServerInfo            `json:"server"`
	Tools             []ToolFingerprint     `json:"tools"`
	Summary           string                `json:"summary"`
	Assertions        []BehavioralAssertion `json:"assertions"`
	WorkflowSignatures []string             `json:"workflowSignatures,omitempty"`
	Acceptance        *Acceptance           `json:"acceptance,omitempty"`
	IntegrityHash     string                `json:"integrityHash"`
}
