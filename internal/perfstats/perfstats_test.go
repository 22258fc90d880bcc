package perfstats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompute_PercentilesAndConfidence(t *testing.T) {
	var samples []Sample
	for i := 1; i <= 10; i++ {
		samples = append(samples, Sample{ToolName: "t", DurationMs: float64(i * 10), Success: true})
	}

	stats := Compute(samples)

	assert.Equal(t, 10, stats.SampleCount)
	assert.Equal(t, float64(1), stats.SuccessRate)
	assert.InDelta(t, 50, stats.P50Ms, 0.01)
	assert.InDelta(t, 100, stats.P95Ms, 0.01)
	assert.InDelta(t, 100, stats.P99Ms, 0.01)
}

func TestCompute_FailuresCountTowardSuccessRateOnly(t *testing.T) {
	samples := []Sample{
		{DurationMs: 10, Success: true},
		{DurationMs: 20, Success: true},
		{DurationMs: 999, Success: false},
	}
	stats := Compute(samples)

	assert.Equal(t, 2, stats.SampleCount)
	assert.InDelta(t, 2.0/3.0, stats.SuccessRate, 0.0001)
	assert.LessOrEqual(t, stats.P95Ms, 20.0)
}

func TestCompute_ZeroMeanYieldsZeroCV(t *testing.T) {
	samples := []Sample{{DurationMs: 0, Success: true}, {DurationMs: 0, Success: true}}
	stats := Compute(samples)
	assert.Equal(t, float64(0), stats.CoefficientOfVariation)
}

func TestCompute_NoSamplesIsLowConfidence(t *testing.T) {
	stats := Compute(nil)
	assert.Equal(t, ConfidenceLow, stats.ConfidenceLevel)
}
