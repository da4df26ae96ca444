package validator

import (
	"encoding/json"
	"regexp"
)

// checkSafety applies spec §4.3/§6's bounds to an untrusted schema. It never
// errors — it reports whether the schema exceeded a bound, and why, so the
// caller can record a skipped (null) registry entry instead of rejecting the
// schema outright.
func (r *Registry) checkSafety(schema map[string]any) (reason string, unsafe bool) {
	data, err := json.Marshal(schema)
	if err != nil {
		return "schema is not serializable", true
	}
	if len(data) > r.limits.MaxSchemaSize {
		return "schema exceeds maxSchemaSize", true
	}
	if depth := schemaDepth(schema, 0); depth > r.limits.MaxSchemaDepth {
		return "schema exceeds maxSchemaDepth", true
	}
	if why, bad := checkPatterns(schema, r.limits.MaxPatternLength); bad {
		return why, true
	}
	return "", false
}

func schemaDepth(v any, depth int) int {
	switch t := v.(type) {
	case map[string]any:
		max := depth
		for _, child := range t {
			if d := schemaDepth(child, depth+1); d > max {
				max = d
			}
		}
		return max
	case []any:
		max := depth
		for _, child := range t {
			if d := schemaDepth(child, depth+1); d > max {
				max = d
			}
		}
		return max
	default:
		return depth
	}
}

// checkPatterns walks the schema tree looking for "pattern" keywords,
// rejecting ones that are too long or syntactically prone to catastrophic
// backtracking.
func checkPatterns(v any, maxLen int) (string, bool) {
	switch t := v.(type) {
	case map[string]any:
		if p, ok := t["pattern"].(string); ok {
			if len(p) > maxLen {
				return "pattern exceeds maxPatternLength", true
			}
			if isCatastrophicPattern(p) {
				return "pattern admits catastrophic backtracking", true
			}
		}
		for _, child := range t {
			if why, bad := checkPatterns(child, maxLen); bad {
				return why, true
			}
		}
	case []any:
		for _, child := range t {
			if why, bad := checkPatterns(child, maxLen); bad {
				return why, true
			}
		}
	}
	return "", false
}

// nestedQuantifier is a conservative syntactic detector for the classic ReDoS
// shapes called out in spec §4.3: (x+)+, (x*)*, and similar nested unbounded
// quantifiers over a common capture group. It is not a full NFA analyzer
// (spec §9 explicitly defers that) — it flags the common textual patterns.
var nestedQuantifier = regexp.MustCompile(`\([^()]*[+*]\)[+*]`)

// isCatastrophicPattern applies the conservative syntactic check of spec
// §4.3 to a single regex pattern string.
func isCatastrophicPattern(pattern string) bool {
	if nestedQuantifier.MatchString(pattern) {
		return true
	}
	// Also catch alternation groups followed directly by two or more
	// unbounded quantifier characters, e.g. (a|aa)+*.
	return regexp.MustCompile(`\([^()]*\|[^()]*\)[+*]{2,}`).MatchString(pattern)
}
