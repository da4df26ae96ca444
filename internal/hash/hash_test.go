package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringHash(t *testing.T) {
	hash1 := StringHash("hello")
	hash2 := StringHash("hello")
	hash3 := StringHash("world")

	assert.Equal(t, hash1, hash2, "Same input should produce same hash")
	assert.NotEqual(t, hash1, hash3, "Different input should produce different hash")
	assert.Len(t, hash1, 64, "SHA-256 hex string should be 64 characters")
}

func TestBytesHash(t *testing.T) {
	hash1 := BytesHash([]byte("hello"))
	hash2 := BytesHash([]byte("hello"))
	hash3 := BytesHash([]byte("world"))

	assert.Equal(t, hash1, hash2, "Same input should produce same hash")
	assert.NotEqual(t, hash1, hash3, "Different input should produce different hash")
	assert.Len(t, hash1, 64, "SHA-256 hex string should be 64 characters")
}

func TestJSONHash(t *testing.T) {
	type spec struct {
		Command string
		Args    []string
	}

	hash1 := JSONHash(spec{Command: "foo", Args: []string{"a"}})
	hash2 := JSONHash(spec{Command: "foo", Args: []string{"a"}})
	hash3 := JSONHash(spec{Command: "foo", Args: []string{"b"}})

	assert.Equal(t, hash1, hash2)
	assert.NotEqual(t, hash1, hash3)

	hash4 := JSONHash(make(chan int))
	assert.Empty(t, hash4, "unmarshalable value hashes to empty string")
}
