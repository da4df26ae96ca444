// Package hash provides the content-hashing helpers the gateway uses to
// detect configuration drift, adapted from the teacher's tool-change-
// detection hashing (sha256 over a JSON-serialized subject).
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// StringHash computes a SHA-256 hex digest of input.
func StringHash(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// BytesHash computes a SHA-256 hex digest of input.
func BytesHash(input []byte) string {
	sum := sha256.Sum256(input)
	return hex.EncodeToString(sum[:])
}

// JSONHash marshals v to JSON and hashes the result. Used for the daemon's
// per-session configHash (spec §3), which the registry records on each
// entry; reopening a session by name does not compare it against the new
// ServerSpec. An unmarshalable v hashes to "".
func JSONHash(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return BytesHash(data)
}
