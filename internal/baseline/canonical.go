package baseline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// canonicalize renders v (expected to be the result of marshaling a
// BehavioralBaseline to a generic map) into a byte sequence with object
// keys sorted lexicographically at every level, for hashing. Dates are
// already ISO-8601 UTC strings by the time they reach here, since
// json.Marshal on time.Time produces RFC3339.
func canonicalize(v any) []byte {
	var buf []byte
	buf = appendCanonical(buf, v)
	return buf
}

func appendCanonical(buf []byte, v any) []byte {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf = append(buf, '{')
		for i, k := range keys {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = appendCanonical(buf, k)
			buf = append(buf, ':')
			buf = appendCanonical(buf, val[k])
		}
		buf = append(buf, '}')
	case []any:
		buf = append(buf, '[')
		for i, item := range val {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = appendCanonical(buf, item)
		}
		buf = append(buf, ']')
	default:
		enc, _ := json.Marshal(val)
		buf = append(buf, enc...)
	}
	return buf
}

// toGenericMap round-trips v through JSON to get a map[string]any /
// []any tree, so object keys can be reordered by canonicalize.
func toGenericMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("baseline: failed to marshal for canonicalization: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("baseline: failed to unmarshal for canonicalization: %w", err)
	}
	return m, nil
}

// toGenericValue is toGenericMap's non-map-only counterpart, used for
// hashing values (like an InferredSchema) that aren't themselves a
// BehavioralBaseline.
func toGenericValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("baseline: failed to marshal for canonicalization: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("baseline: failed to unmarshal for canonicalization: %w", err)
	}
	return out, nil
}

// hashValue computes the SHA-256 hex digest of v's canonical JSON encoding.
func hashValue(v any) (string, error) {
	generic, err := toGenericValue(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonicalize(generic))
	return hex.EncodeToString(sum[:]), nil
}

// integrityHash computes the SHA-256 hex digest over the canonical JSON
// encoding of b with the integrityHash field itself removed:
// integrityHash(B) = H(canonicalize(B \ {integrityHash})).
func integrityHash(b BehavioralBaseline) (string, error) {
	b.IntegrityHash = ""
	m, err := toGenericMap(b)
	if err != nil {
		return "", err
	}
	delete(m, "integrityHash")

	sum := sha256.Sum256(canonicalize(m))
	return hex.EncodeToString(sum[:]), nil
}

// sealed returns a copy of b with IntegrityHash recomputed and set.
func sealed(b BehavioralBaseline) (BehavioralBaseline, error) {
	h, err := integrityHash(b)
	if err != nil {
		return b, err
	}
	b.IntegrityHash = h
	return b, nil
}

// Verify reports whether b's stored IntegrityHash matches a freshly
// computed hash over its current contents; any field mutation invalidates
// it (spec invariant 1).
func Verify(b BehavioralBaseline) (bool, error) {
	want, err := integrityHash(b)
	if err != nil {
		return false, err
	}
	return want == b.IntegrityHash, nil
}
