package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute_NullOnlyResponsesAreEmptyWithHighConfidence(t *testing.T) {
	responses := []any{nil, nil, nil}
	fp := Compute(responses)

	assert.Equal(t, ContentEmpty, fp.ContentType)
	assert.True(t, fp.IsEmpty)
	assert.GreaterOrEqual(t, fp.Confidence, 0.6)
}

func TestCompute_IdenticalStructuresYieldIdenticalHash(t *testing.T) {
	a := map[string]any{"id": float64(1), "name": "a"}
	b := map[string]any{"id": float64(2), "name": "b"}
	fp1 := Compute([]any{a})
	fp2 := Compute([]any{b})
	assert.Equal(t, fp1.StructureHash, fp2.StructureHash)
}

func TestMajorityContentType_AllObjectsIsObject(t *testing.T) {
	responses := []any{
		map[string]any{"a": 1},
		map[string]any{"a": 2},
	}
	assert.Equal(t, ContentObject, MajorityContentType(responses))
}

func TestSizeBucketFor(t *testing.T) {
	assert.Equal(t, SizeTiny, SizeBucketFor(128))
	assert.Equal(t, SizeSmall, SizeBucketFor(129))
	assert.Equal(t, SizeMedium, SizeBucketFor(2049))
	assert.Equal(t, SizeLarge, SizeBucketFor(65537))
}

func TestJoin_RequiredIsIntersectionAcrossSamples(t *testing.T) {
	a := InferFromValue(map[string]any{"id": "1", "name": "a"})
	b := InferFromValue(map[string]any{"id": "2"})

	joined := Join(a, b)
	require.Equal(t, TypeObject, joined.Type)
	assert.ElementsMatch(t, []string{"id"}, joined.Required)
	assert.Contains(t, joined.Properties, "name")
}

func TestJoin_WidensIntToNumber(t *testing.T) {
	a := &InferredSchema{Type: TypeInt}
	b := &InferredSchema{Type: TypeNumber}
	joined := Join(a, b)
	assert.Equal(t, TypeNumber, joined.Type)
}

func TestFoldSchemas_EnumBoundary(t *testing.T) {
	twelve := make([]any, 12)
	for i := range twelve {
		twelve[i] = string(rune('a' + i))
	}
	schema := FoldSchemas(twelve)
	assert.Len(t, schema.Enum, 12)

	thirteen := append(twelve, "m")
	schema13 := FoldSchemas(thirteen)
	assert.Nil(t, schema13.Enum)

	fourteen := append(append([]any{}, thirteen...), "a")
	schema14 := FoldSchemas(fourteen)
	assert.Nil(t, schema14.Enum, "a domain that has overflowed must stay unbounded even when a later sample repeats a prior value")
}

func TestGroupErrors_GroupsByCategoryAndNormalizedPattern(t *testing.T) {
	patterns := GroupErrors([]string{
		`user "abc123" not found`,
		`user "xyz789" not found`,
		`Error 500: internal failure`,
	})

	var total int
	for _, p := range patterns {
		total += p.Count
	}
	assert.Equal(t, 3, total)

	found := false
	for _, p := range patterns {
		if p.Category == ErrCategoryNotFound && p.Count == 2 {
			found = true
		}
	}
	assert.True(t, found, "expected the two not-found errors to group together")
}
