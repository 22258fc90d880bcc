package comparator

import "github.com/blackcoderx/mcpwatch/internal/baseline"

// diffAssertions implements the third diff phase: assertions are matched
// by fingerprint, not raw text. Matched pairs with a flipped polarity
// contribute a warning change on their tool; unmatched previous
// assertions are "removed" (info), unmatched current are "added" (info).
func diffAssertions(d *BehavioralDiff, prev, cur []baseline.BehavioralAssertion) {
	prevByFP := make(map[string]baseline.BehavioralAssertion, len(prev))
	for _, a := range prev {
		prevByFP[Fingerprint(a)] = a
	}
	curByFP := make(map[string]baseline.BehavioralAssertion, len(cur))
	for _, a := range cur {
		curByFP[Fingerprint(a)] = a
	}

	findOrCreate := func(tool string) *ToolChange {
		for i := range d.ToolsModified {
			if d.ToolsModified[i].Tool == tool {
				return &d.ToolsModified[i]
			}
		}
		d.ToolsModified = append(d.ToolsModified, ToolChange{Tool: tool})
		return &d.ToolsModified[len(d.ToolsModified)-1]
	}

	for fp, curA := range curByFP {
		prevA, ok := prevByFP[fp]
		if !ok {
			d.AssertionsAdded = append(d.AssertionsAdded, AssertionChange{Assertion: curA, Kind: "added"})
			d.InfoCount++
			continue
		}

		if prevA.IsPositive != curA.IsPositive {
			tc := findOrCreate(curA.Tool)
			tc.Changes = append(tc.Changes, Change{
				Field:      "assertion.polarity",
				Previous:   prevA.Assertion,
				Current:    curA.Assertion,
				Severity:   SeverityWarning,
				Detail:     "a previously held assertion's polarity flipped",
				Confidence: matchConfidence(prevA, curA),
			})
			d.WarningCount++
		}
	}

	for fp, prevA := range prevByFP {
		if _, ok := curByFP[fp]; !ok {
			d.AssertionsRemoved = append(d.AssertionsRemoved, AssertionChange{Assertion: prevA, Kind: "removed"})
			d.InfoCount++
		}
	}
}

// matchConfidence scores a matched (prev, cur) assertion pair using four
// weighted factors. fingerprintMatch and toolAspectMatch are both 1 here
// since the pair was matched by fingerprint (which already encodes
// tool+aspect), kept as separate terms to mirror the full factor table.
func matchConfidence(prev, cur baseline.BehavioralAssertion) float64 {
	fingerprintMatch := 1.0
	toolAspectMatch := 0.0
	if prev.Tool == cur.Tool && prev.Aspect == cur.Aspect {
		toolAspectMatch = 1.0
	}
	polarityMatch := 0.0
	if prev.IsPositive == cur.IsPositive {
		polarityMatch = 1.0
	}
	descriptionSimilarity := jaccardSimilarity(prev.Assertion, cur.Assertion)

	return weightFingerprintMatch*fingerprintMatch +
		weightToolAspectMatch*toolAspectMatch +
		weightPolarityMatch*polarityMatch +
		weightDescriptionSimilarity*descriptionSimilarity
}

// finalizeSeverity derives d.Severity from the accumulated counts:
// breaking iff breakingCount>0; warning iff breakingCount=0 ∧
// warningCount>0; info iff only infoCount>0; else none.
func finalizeSeverity(d *BehavioralDiff) {
	switch {
	case d.BreakingCount > 0:
		d.Severity = SeverityBreaking
	case d.WarningCount > 0:
		d.Severity = SeverityWarning
	case d.InfoCount > 0:
		d.Severity = SeverityInfo
	default:
		d.Severity = SeverityNone
	}
}
