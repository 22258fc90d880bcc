package errtaxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze_RateLimitScenario(t *testing.T) {
	a := Analyze("Error 429: Too Many Requests - retry after 5s")

	require.Equal(t, 429, a.HTTPStatus)
	assert.Equal(t, CategoryRateLimit, a.Category)
	assert.True(t, a.Transient)
	assert.Equal(t, SeverityLow, a.Severity)
	assert.Contains(t, a.Remediation, "exponential backoff")
}

func TestExtractHTTPStatus(t *testing.T) {
	cases := []struct {
		msg  string
		want int
	}{
		{"status code: 404 not found", 404},
		{"HTTP 503 unavailable", 503},
		{"[400] bad request", 400},
		{"(500) internal error", 500},
		{"request to port 399 failed, unrelated", 0},
		{"399 is not a recognized status", 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ExtractHTTPStatus(c.msg), c.msg)
	}
}

func TestClassify_UnknownStatusFallsBackToKeyword(t *testing.T) {
	cat := Classify("the request timed out waiting for a response", 0)
	assert.Equal(t, CategoryUnknown, cat)
}

func TestExtractParams(t *testing.T) {
	params := ExtractParams(`parameter "userId" is required, field 'email' invalid`)
	assert.Contains(t, params, "userId")
	assert.Contains(t, params, "email")
}

func TestSeverity_CriticalOverridesCategory(t *testing.T) {
	a := Analyze("fatal: database corrupted during write")
	assert.Equal(t, SeverityCritical, a.Severity)
}

func TestIsTransient_ServerErrorAlwaysTransient(t *testing.T) {
	assert.True(t, IsTransient("internal server error occurred", CategoryServer))
}
