package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"reflect"
	"sort"
	"time"
)

// Fingerprint computes the content-addressed cache key for parts: a hex
// prefix of SHA-256 over a deterministic serialization. Object keys are
// sorted at every nesting level; dates become ISO-8601; cycles become the
// literal "[Circular]"; functions/other unrepresentable values are coerced
// via fmt.Sprintf("%v", ...).
func Fingerprint(parts ...any) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte{0}) // part separator
		writeCanonical(h, p, map[uintptr]bool{})
	}
	sum := h.Sum(nil)
	return hex.EncodeToString(sum)[:32] // 128 bits
}

// ToolKey derives the specialized key for a tool invocation.
func ToolKey(toolName string, args map[string]any) string {
	return Fingerprint("tool", toolName, args)
}

// AnalysisKey derives the specialized key for an LLM-derived analysis.
func AnalysisKey(toolName string, args map[string]any, responseHash string) string {
	return Fingerprint("analysis", toolName, args, responseHash)
}

func writeCanonical(h interface{ Write([]byte) (int, error) }, v any, active map[uintptr]bool) {
	switch v.(type) {
	case map[string]any, []any:
		if ptr := reflect.ValueOf(v).Pointer(); ptr != 0 {
			if active[ptr] {
				h.Write([]byte("[Circular]"))
				return
			}
			active[ptr] = true
			defer delete(active, ptr)
		}
	}
	switch val := v.(type) {
	case nil:
		h.Write([]byte("null"))
	case string:
		h.Write([]byte(val))
	case bool:
		fmt.Fprintf(h, "%v", val)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		fmt.Fprintf(h, "%v", val)
	case float32, float64:
		fmt.Fprintf(h, "%v", val)
	case time.Time:
		h.Write([]byte(val.UTC().Format(time.RFC3339Nano)))
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		h.Write([]byte("{"))
		for _, k := range keys {
			h.Write([]byte(k))
			h.Write([]byte(":"))
			writeCanonical(h, val[k], active)
			h.Write([]byte(","))
		}
		h.Write([]byte("}"))
	case []any:
		h.Write([]byte("["))
		for _, item := range val {
			writeCanonical(h, item, active)
			h.Write([]byte(","))
		}
		h.Write([]byte("]"))
	default:
		// Functions and anything not otherwise representable are coerced to
		// their string form as a fallback.
		h.Write([]byte(fmt.Sprintf("%v", val)))
	}
}
