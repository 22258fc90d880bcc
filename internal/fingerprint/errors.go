package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"

	"github.com/blackcoderx/mcpwatch/internal/errtaxonomy"
)

// toErrorCategory maps the richer errtaxonomy analysis category onto the
// simpler grouping enum ErrorPattern uses.
func toErrorCategory(c errtaxonomy.Category) ErrorCategory {
	switch c {
	case errtaxonomy.CategoryValidation:
		return ErrCategoryValidation
	case errtaxonomy.CategoryNotFound:
		return ErrCategoryNotFound
	case errtaxonomy.CategoryAuth:
		return ErrCategoryPermission
	case errtaxonomy.CategoryServer:
		return ErrCategoryInternal
	default:
		return ErrCategoryUnknown
	}
}

var (
	digitsRe  = regexp.MustCompile(`\d+`)
	uuidRe    = regexp.MustCompile(`(?i)[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)
	quotedStr = regexp.MustCompile(`"[^"]*"|'[^']*'`)
)

// normalizeMessage replaces digit runs with N, UUID-like spans with U, and
// quoted strings with "" so otherwise-identical errors group together.
func normalizeMessage(msg string) string {
	msg = uuidRe.ReplaceAllString(msg, "U")
	msg = digitsRe.ReplaceAllString(msg, "N")
	msg = quotedStr.ReplaceAllString(msg, `""`)
	return msg
}

func patternHash(category ErrorCategory, normalized string) string {
	h := sha256.Sum256([]byte(string(category) + "|" + normalized))
	return hex.EncodeToString(h[:])[:16]
}

// GroupErrors runs errtaxonomy's analysis over each raw error string, groups by
// (category, patternHash), and returns patterns ordered by descending
// count then by patternHash for determinism.
func GroupErrors(errs []string) []ErrorPattern {
	type key struct {
		cat  ErrorCategory
		hash string
	}
	groups := map[key]*ErrorPattern{}
	var order []key

	for _, raw := range errs {
		analysis := errtaxonomy.Analyze(raw)
		cat := toErrorCategory(analysis.Category)
		normalized := normalizeMessage(raw)
		hash := patternHash(cat, normalized)
		k := key{cat, hash}
		if p, ok := groups[k]; ok {
			p.Count++
		} else {
			groups[k] = &ErrorPattern{Category: cat, PatternHash: hash, Example: raw, Count: 1}
			order = append(order, k)
		}
	}

	out := make([]ErrorPattern, 0, len(order))
	for _, k := range order {
		out = append(out, *groups[k])
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].PatternHash < out[j].PatternHash
	})
	return out
}
