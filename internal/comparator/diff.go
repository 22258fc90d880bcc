package comparator

import (
	"sort"

	"github.com/blackcoderx/mcpwatch/internal/baseline"
	"github.com/blackcoderx/mcpwatch/internal/perfstats"
)

// descriptionSimilarityThreshold is a Jaccard cutoff for assertion free
// text. Assertion matching does not consult it: diffAssertions pairs
// assertions by fingerprint alone.
const descriptionSimilarityThreshold = 0.5

// p95RegressionThreshold and successRate*DropThreshold are the second
// diff phase's performance-change cutoffs.
const (
	p95RegressionThreshold          = 0.5
	successRateWarningDropThreshold = 0.10
	successRateBreakingDropThreshold = 0.25
)

// confidenceWeights are the third phase's match-confidence factors.
const (
	weightFingerprintMatch     = 0.4
	weightToolAspectMatch      = 0.25
	weightPolarityMatch        = 0.15
	weightDescriptionSimilarity = 0.2
)

// Diff compares previous against current in three phases, returning a
// fully classified BehavioralDiff.
func Diff(previous, current baseline.BehavioralBaseline) BehavioralDiff {
	d := BehavioralDiff{}

	prevTools := indexTools(previous.Tools)
	curTools := indexTools(current.Tools)

	diffToolSets(&d, prevTools, curTools)
	diffSharedTools(&d, prevTools, curTools)
	diffAssertions(&d, previous.Assertions, current.Assertions)

	finalizeSeverity(&d)
	return d
}

func indexTools(tools []baseline.ToolFingerprint) map[string]baseline.ToolFingerprint {
	m := make(map[string]baseline.ToolFingerprint, len(tools))
	for _, t := range tools {
		m[t.Name] = t
	}
	return m
}

// diffToolSets implements Phase 1: set diff of tool names. Removed tools
// are breaking; added tools are info.
func diffToolSets(d *BehavioralDiff, prev, cur map[string]baseline.ToolFingerprint) {
	var added, removed []string
	for name := range cur {
		if _, ok := prev[name]; !ok {
			added = append(added, name)
		}
	}
	for name := range prev {
		if _, ok := cur[name]; !ok {
			removed = append(removed, name)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)

	d.ToolsAdded = added
	d.ToolsRemoved = removed
	d.BreakingCount += len(removed)
	d.InfoCount += len(added)
}

// diffSharedTools implements Phase 2 for every tool present in both
// baselines.
func diffSharedTools(d *BehavioralDiff, prev, cur map[string]baseline.ToolFingerprint) {
	var names []string
	for name := range cur {
		if _, ok := prev[name]; ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		tc := ToolChange{Tool: name}
		diffOneTool(&tc, prev[name], cur[name])
		if len(tc.Changes) > 0 {
			d.ToolsModified = append(d.ToolsModified, tc)
			for _, c := range tc.Changes {
				tallySeverity(d, c.Severity)
			}
		}
	}
}

func tallySeverity(d *BehavioralDiff, s Severity) {
	switch s {
	case SeverityBreaking:
		d.BreakingCount++
	case SeverityWarning:
		d.WarningCount++
	case SeverityInfo:
		d.InfoCount++
	}
}

func diffOneTool(tc *ToolChange, prev, cur baseline.ToolFingerprint) {
	if prev.SchemaHash != cur.SchemaHash {
		sev := SeverityWarning
		detail := "input schema changed"
		if addedRequiredParamWithoutDefault(prev, cur) {
			sev = SeverityBreaking
			detail = "a required parameter was added with no apparent default"
		}
		tc.Changes = append(tc.Changes, Change{
			Field: "schemaHash", Previous: prev.SchemaHash, Current: cur.SchemaHash,
			Severity: sev, Detail: detail,
		})
	}

	diffResponseFingerprint(tc, prev.ResponseFingerprint, cur.ResponseFingerprint)
	diffErrorPatterns(tc, prev.ErrorPatterns, cur.ErrorPatterns)
	diffPerformance(tc, prev, cur)
}

// addedRequiredParamWithoutDefault reports whether cur's input schema
// requires a top-level property that prev's schema did not require and
// that has no enum-derivable default (a single-valued enum acts as an
// implicit default).
func addedRequiredParamWithoutDefault(prev, cur baseline.ToolFingerprint) bool {
	if cur.InputSchema == nil {
		return false
	}
	prevRequired := map[string]bool{}
	if prev.InputSchema != nil {
		for _, r := range prev.InputSchema.Required {
			prevRequired[r] = true
		}
	}
	for _, r := range cur.InputSchema.Required {
		if prevRequired[r] {
			continue
		}
		prop := cur.InputSchema.Properties[r]
		if prop != nil && len(prop.Enum) == 1 {
			continue // effectively defaulted
		}
		return true
	}
	return false
}

func diffResponseFingerprint(tc *ToolChange, prev, cur *baseline.ResponseFingerprint) {
	if prev == nil || cur == nil {
		return
	}
	if prev.ContentType != cur.ContentType {
		tc.Changes = append(tc.Changes, Change{
			Field: "responseFingerprint.contentType", Previous: prev.ContentType, Current: cur.ContentType,
			Severity: SeverityWarning, Detail: "response content type changed",
		})
	}

	prevFields := map[string]bool{}
	for _, f := range prev.Fields {
		prevFields[f] = true
	}
	curFields := map[string]bool{}
	for _, f := range cur.Fields {
		curFields[f] = true
	}

	var lost, gained []string
	for f := range prevFields {
		if !curFields[f] {
			lost = append(lost, f)
		}
	}
	for f := range curFields {
		if !prevFields[f] {
			gained = append(gained, f)
		}
	}
	sort.Strings(lost)
	sort.Strings(gained)

	if len(lost) > 0 {
		tc.Changes = append(tc.Changes, Change{
			Field: "responseFingerprint.fields", Previous: lost,
			Severity: SeverityBreaking, Detail: "response fields were removed",
		})
	}
	if len(gained) > 0 {
		tc.Changes = append(tc.Changes, Change{
			Field: "responseFingerprint.fields", Current: gained,
			Severity: SeverityInfo, Detail: "response fields were added",
		})
	}
}

func diffErrorPatterns(tc *ToolChange, prev, cur []baseline.ErrorPattern) {
	prevCats := map[baseline.ErrorCategory]bool{}
	for _, p := range prev {
		prevCats[p.Category] = true
	}
	curCats := map[baseline.ErrorCategory]bool{}
	for _, p := range cur {
		curCats[p.Category] = true
	}

	var newCats, goneCats []string
	for c := range curCats {
		if !prevCats[c] {
			newCats = append(newCats, string(c))
		}
	}
	for c := range prevCats {
		if !curCats[c] {
			goneCats = append(goneCats, string(c))
		}
	}
	sort.Strings(newCats)
	sort.Strings(goneCats)

	if len(newCats) > 0 {
		tc.Changes = append(tc.Changes, Change{
			Field: "errorPatterns.categories", Current: newCats,
			Severity: SeverityWarning, Detail: "new error categories observed",
		})
	}
	if len(goneCats) > 0 {
		tc.Changes = append(tc.Changes, Change{
			Field: "errorPatterns.categories", Previous: goneCats,
			Severity: SeverityInfo, Detail: "previously observed error categories disappeared",
		})
	}
}

func diffPerformance(tc *ToolChange, prev, cur baseline.ToolFingerprint) {
	if prev.BaselineP95Ms > 0 && cur.BaselineP95Ms > 0 {
		regression := (cur.BaselineP95Ms - prev.BaselineP95Ms) / prev.BaselineP95Ms
		bothMedium := confidenceAtLeastMedium(prev.PerformanceConfidence) && confidenceAtLeastMedium(cur.PerformanceConfidence)
		if regression >= p95RegressionThreshold && bothMedium {
			tc.Changes = append(tc.Changes, Change{
				Field: "baselineP95Ms", Previous: prev.BaselineP95Ms, Current: cur.BaselineP95Ms,
				Severity: SeverityWarning, Detail: "p95 latency regressed by 50% or more",
			})
		}
	}

	drop := prev.BaselineSuccessRate - cur.BaselineSuccessRate
	switch {
	case drop >= successRateBreakingDropThreshold:
		tc.Changes = append(tc.Changes, Change{
			Field: "baselineSuccessRate", Previous: prev.BaselineSuccessRate, Current: cur.BaselineSuccessRate,
			Severity: SeverityBreaking, Detail: "success rate dropped 25 points or more",
		})
	case drop >= successRateWarningDropThreshold:
		tc.Changes = append(tc.Changes, Change{
			Field: "baselineSuccessRate", Previous: prev.BaselineSuccessRate, Current: cur.BaselineSuccessRate,
			Severity: SeverityWarning, Detail: "success rate dropped 10 points or more",
		})
	}
}

func confidenceAtLeastMedium(p *perfstats.Stats) bool {
	if p == nil {
		return false
	}
	return p.ConfidenceLevel == perfstats.ConfidenceMedium || p.ConfidenceLevel == perfstats.ConfidenceHigh
}
