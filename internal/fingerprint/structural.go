package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// leafTag walks v, replacing leaves with a type tag (s, n, b, null),
// arrays with [t] where t is the join of item tags, and objects with
// {k1:t1,...} using sorted keys.
func leafTag(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return "s"
	case bool:
		return "b"
	case float64, int, int64:
		return "n"
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := "{"
		for i, k := range keys {
			if i > 0 {
				out += ","
			}
			out += k + ":" + leafTag(val[k])
		}
		return out + "}"
	case []any:
		if len(val) == 0 {
			return "[]"
		}
		joined := leafTag(val[0])
		for _, item := range val[1:] {
			joined = joinTag(joined, leafTag(item))
		}
		return "[" + joined + "]"
	default:
		return "u" // unknown/unrepresentable leaf
	}
}

// joinTag combines two leaf tags for array-item consistency; identical
// tags pass through, divergent tags widen to a generic marker.
func joinTag(a, b string) string {
	if a == b {
		return a
	}
	return "mixed"
}

// StructureHash concatenates each sample's leaf tag and hashes the result.
// Identical structures across samples yield identical hashes.
func StructureHash(responses []any) string {
	h := sha256.New()
	for _, r := range responses {
		h.Write([]byte(leafTag(r)))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

var contentTypeOrder = map[ContentType]int{
	ContentObject:    0,
	ContentArray:     1,
	ContentText:      2,
	ContentPrimitive: 3,
	ContentBinary:    4,
	ContentEmpty:     5,
	ContentError:     6,
	ContentMixed:     7,
}

func kindOf(v any) ContentType {
	switch val := v.(type) {
	case nil:
		return ContentEmpty
	case map[string]any:
		return ContentObject
	case []any:
		return ContentArray
	case string:
		if val == "" {
			return ContentEmpty
		}
		return ContentText
	case bool, float64, int, int64:
		return ContentPrimitive
	default:
		return ContentBinary
	}
}

// MajorityContentType takes a majority vote across sample roots' kinds: the
// kind held by strictly more than half of the samples wins, and `mixed` is
// returned when no kind holds such a majority.
func MajorityContentType(responses []any) ContentType {
	if len(responses) == 0 {
		return ContentEmpty
	}
	counts := map[ContentType]int{}
	for _, r := range responses {
		counts[kindOf(r)]++
	}
	if len(counts) > 1 {
		// Samples disagree in kind: the most frequent kind (ties broken by
		// contentTypeOrder) is returned only when it outnumbers all other
		// kinds combined; otherwise the result is mixed.
		best, bestCount := ContentType(""), 0
		total := len(responses)
		for ct, c := range counts {
			if c > bestCount || (c == bestCount && contentTypeOrder[ct] < contentTypeOrder[best]) {
				best, bestCount = ct, c
			}
		}
		if bestCount*2 > total {
			return best
		}
		return ContentMixed
	}
	for ct := range counts {
		return ct
	}
	return ContentEmpty
}

// SizeBucketFor classifies serialized byte length into a fixed bucket.
func SizeBucketFor(n int) SizeBucket {
	switch {
	case n <= 128:
		return SizeTiny
	case n <= 2048:
		return SizeSmall
	case n <= 65536:
		return SizeMedium
	default:
		return SizeLarge
	}
}

func serializedLen(v any) int {
	b, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return len(b)
}

// fieldsOf returns the sorted top-level keys of v when it is an object.
func fieldsOf(v any) []string {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Compute derives a ResponseFingerprint from non-error samples.
func Compute(responses []any) ResponseFingerprint {
	fp := ResponseFingerprint{SampleCount: len(responses)}
	if len(responses) == 0 {
		fp.ContentType = ContentEmpty
		fp.IsEmpty = true
		fp.Size = SizeTiny
		return fp
	}

	fp.ContentType = MajorityContentType(responses)
	fp.StructureHash = StructureHash(responses)

	allNull := true
	var totalLen int
	tagCounts := map[string]int{}
	for _, r := range responses {
		if r != nil {
			allNull = false
		}
		totalLen += serializedLen(r)
		tagCounts[leafTag(r)]++
	}
	fp.IsEmpty = allNull
	fp.Size = SizeBucketFor(totalLen / len(responses))

	if fp.ContentType == ContentObject {
		fp.Fields = fieldsOf(responses[0])
	}
	if fp.ContentType == ContentArray {
		if arr, ok := responses[0].([]any); ok && len(arr) > 0 {
			fp.ArrayItemStructure = leafTag(arr[0])
		}
	}

	var modeCount int
	for _, c := range tagCounts {
		if c > modeCount {
			modeCount = c
		}
	}
	consistencyScore := float64(modeCount) / float64(len(responses))
	fp.Confidence = confidenceFromSamples(len(responses), consistencyScore)

	return fp
}

// confidenceFromSamples applies the fingerprint confidence formula:
// min(1, 0.2 + 0.1*sampleCount + 0.4*consistencyScore).
func confidenceFromSamples(sampleCount int, consistencyScore float64) float64 {
	v := 0.2 + 0.1*float64(sampleCount) + 0.4*consistencyScore
	if v > 1 {
		v = 1
	}
	return v
}
