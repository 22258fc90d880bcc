package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_S2_EvictsLRUAfterPromotion(t *testing.T) {
	c := New(Options{MaxEntries: 2, MaxSizeBytes: 1000, TTL: time.Hour})

	require.NoError(t, c.Set("a", "small"))
	require.NoError(t, c.Set("b", "small"))
	_, ok := c.Get("a")
	require.True(t, ok)
	require.NoError(t, c.Set("c", "small"))

	_, bOK := c.Get("b")
	assert.False(t, bOK, "b should have been evicted as LRU")

	_, aOK := c.Get("a")
	assert.True(t, aOK)
	_, cOK := c.Get("c")
	assert.True(t, cOK)
}

func TestCache_RefusesOversizeEntry(t *testing.T) {
	c := New(Options{MaxEntries: 10, MaxSizeBytes: 8, TTL: time.Hour})
	err := c.Set("big", "this value is far larger than 8 bytes")
	assert.Error(t, err)
}

func TestCache_ExpiredEntryIsMiss(t *testing.T) {
	c := New(Options{MaxEntries: 10, MaxSizeBytes: 1000, TTL: -time.Second})
	require.NoError(t, c.Set("x", "v"))
	_, ok := c.Get("x")
	assert.False(t, ok)
}

func TestFingerprint_DeterministicAcrossKeyOrder(t *testing.T) {
	a := map[string]any{"z": 1, "a": 2}
	b := map[string]any{"a": 2, "z": 1}
	assert.Equal(t, Fingerprint("tool", "t", a), Fingerprint("tool", "t", b))
}

func TestToolKey_DiffersByToolName(t *testing.T) {
	args := map[string]any{"x": 1}
	assert.NotEqual(t, ToolKey("a", args), ToolKey("b", args))
}
