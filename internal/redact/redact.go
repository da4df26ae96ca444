// Package redact scrubs sensitive values out of daemon event-log payloads
// before they hit disk, adapted from the teacher's internal/security/patterns
// builder idiom (Pattern{regex, category} + fluent construction) but scoped
// to the key-name and value patterns spec §6 enumerates.
package redact

import "regexp"

const maskedValue = "[REDACTED]"

// keyPattern matches field names whose values must always be redacted
// regardless of their own shape (spec §6).
var keyPattern = regexp.MustCompile(`(?i)(token|secret|password|authorization|api[_-]?key)`)

// valuePatterns matches value shapes redacted even under an innocuous key
// name (spec §6): a bearer credential, an inline "key: <8+ chars>" literal,
// or a well-known vendor token prefix.
var valuePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)bearer\s+\S+`),
	regexp.MustCompile(`(?i)(api[_-]?key|token|secret|password|authorization)\s*[:=]\s*\S{8,}`),
	regexp.MustCompile(`\bsk-[A-Za-z0-9_-]{8,}\b`),
	regexp.MustCompile(`\bghp_[A-Za-z0-9]{8,}\b`),
}

// Value redacts s if it matches any of the well-known sensitive value
// shapes, leaving innocuous values untouched.
func Value(s string) string {
	for _, p := range valuePatterns {
		if p.MatchString(s) {
			return maskedValue
		}
	}
	return s
}

// IsSensitiveKey reports whether key's name marks its value as always
// sensitive (spec §6), independent of the value's own shape.
func IsSensitiveKey(key string) bool {
	return keyPattern.MatchString(key)
}

// Map walks data — the shape of an events.log payload (spec
// §6: "{at, type, data}") — redacting values whose key matches the sensitive
// key pattern, and scanning string values for sensitive shapes regardless of
// key name. Nested maps/slices are walked recursively.
func Map(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = field(k, v)
	}
	return out
}

func field(key string, v any) any {
	if IsSensitiveKey(key) {
		return maskedValue
	}
	return walk(v)
}

func walk(v any) any {
	switch t := v.(type) {
	case string:
		return Value(t)
	case map[string]any:
		return Map(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = walk(e)
		}
		return out
	default:
		return v
	}
}
