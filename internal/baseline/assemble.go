package baseline

import (
	"regexp"
	"sort"
	"time"

	"github.com/blackcoderx/mcpwatch/internal/discovery"
	"github.com/blackcoderx/mcpwatch/internal/fingerprint"
	"github.com/blackcoderx/mcpwatch/internal/interview"
	"github.com/blackcoderx/mcpwatch/internal/perfstats"
)

// riskyNoteRe matches the keywords that flip a securityNotes assertion's
// polarity to negative.
var riskyNoteRe = regexp.MustCompile(`(?i)risk|vulnerab|dangerous`)

// Build assembles a BehavioralBaseline from one interview run's
// ToolProfiles plus the discovery result that preceded it.
func Build(serverCommand string, disc *discovery.Result, profiles map[string]*interview.ToolProfile, summary string) (BehavioralBaseline, error) {
	b := BehavioralBaseline{
		Version:       CurrentVersion,
		CreatedAt:     time.Now().UTC(),
		ServerCommand: serverCommand,
		Summary:       summary,
	}

	if disc != nil {
		b.Server = ServerInfo{
			Name:            disc.Server.Name,
			Version:         disc.Server.Version,
			ProtocolVersion: disc.Server.ProtocolVersion,
			Capabilities:    disc.Server.Capabilities,
		}
	}

	var tools []string
	for name := range profiles {
		tools = append(tools, name)
	}
	sort.Strings(tools)

	for _, name := range tools {
		profile := profiles[name]
		tf := buildToolFingerprint(profile)
		b.Tools = append(b.Tools, tf)
		b.Assertions = append(b.Assertions, tf.Assertions...)
	}

	return sealed(b)
}

// buildToolFingerprint assembles one tool's ToolFingerprint: consensus
// input schema over observed args, a response/error fingerprint, latency
// percentiles, then assertion extraction from the profile's free-text
// notes.
func buildToolFingerprint(profile *interview.ToolProfile) ToolFingerprint {
	tf := ToolFingerprint{
		Name:           profile.Name,
		Description:    profile.Description,
		SecurityNotes:  append([]string{}, profile.SecurityNotes...),
		Limitations:    append([]string{}, profile.Limitations...),
	}

	var argSamples []any
	var respSamples []fingerprint.Sample
	var perfSamples []perfstats.Sample

	for _, in := range profile.Interactions {
		if in.Question.Args != nil {
			argSamples = append(argSamples, in.Question.Args)
		}

		if in.Error != "" {
			respSamples = append(respSamples, fingerprint.Sample{Error: in.Error})
		} else {
			respSamples = append(respSamples, fingerprint.Sample{Response: in.Response})
		}

		if in.Question.Category == interview.CategoryHappyPath {
			perfSamples = append(perfSamples, perfstats.Sample{
				ToolName:   in.ToolName,
				DurationMs: in.ToolExecutionMs,
				Success:    in.OutcomeAssessment.Actual == interview.ActualSuccess,
			})
		}
	}

	if len(argSamples) > 0 {
		schema := fingerprint.FoldSchemas(argSamples)
		tf.InputSchema = schema
		if h, err := hashValue(schema); err == nil {
			tf.SchemaHash = h
		}
	}

	analysis := fingerprint.Analyze(respSamples)
	tf.ResponseFingerprint = &analysis.ResponseFingerprint
	tf.InferredOutputSchema = analysis.InferredOutputSchema
	tf.ErrorPatterns = analysis.ErrorPatterns

	perf := perfstats.Compute(perfSamples)
	tf.BaselineP50Ms = perf.P50Ms
	tf.BaselineP95Ms = perf.P95Ms
	tf.BaselineP99Ms = perf.P99Ms
	tf.BaselineSuccessRate = perf.SuccessRate
	tf.PerformanceConfidence = &perf

	tf.Assertions = extractAssertions(profile)

	return tf
}

// extractAssertions maps a ToolProfile's free-text notes onto
// BehavioralAssertions using a fixed mapping: behavioralNotes ->
// response_format positive; limitations ->
// error_handling negative; securityNotes -> security, positive unless the
// note mentions risk/vulnerability/danger.
func extractAssertions(profile *interview.ToolProfile) []BehavioralAssertion {
	var out []BehavioralAssertion

	for _, note := range profile.BehavioralNotes {
		out = append(out, BehavioralAssertion{
			Tool:       profile.Name,
			Aspect:     AspectResponseFormat,
			Assertion:  note,
			IsPositive: true,
		})
	}

	for _, note := range profile.Limitations {
		out = append(out, BehavioralAssertion{
			Tool:       profile.Name,
			Aspect:     AspectErrorHandling,
			Assertion:  note,
			IsPositive: false,
		})
	}

	for _, note := range profile.SecurityNotes {
		out = append(out, BehavioralAssertion{
			Tool:       profile.Name,
			Aspect:     AspectSecurity,
			Assertion:  note,
			IsPositive: !riskyNoteRe.MatchString(note),
		})
	}

	return out
}
