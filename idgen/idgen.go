// Package idgen provides identifier generation for canvas sessions.
//
// Random identifiers (element ids, batch ids) are UUIDv7 so they sort by
// creation time. Stable ids injected into markup are derived from the
// document id and the node's structural path, so re-ingesting the same
// markup yields the same ids.
package idgen

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator that produces RFC 9562 UUID v7 strings.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed wraps a Generator and prepends a fixed prefix to every ID
// (e.g. "el-", "batch-").
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Sequence returns a Generator yielding prefix1, prefix2, ... It is
// deterministic and meant for tests and fixtures.
func Sequence(prefix string) Generator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

// Default is UUIDv7.
var Default Generator = UUIDv7()

// New produces an ID using the Default generator.
func New() string {
	return Default()
}

// StableIDLen is the number of hex characters kept from the digest.
const StableIDLen = 12

// StableID derives the stable identifier of the node at path within
// documentID. The same inputs always produce the same id.
func StableID(documentID, path string) string {
	h := sha256.Sum256([]byte(documentID + "\x00" + path))
	return "s-" + hex.EncodeToString(h[:])[:StableIDLen]
}

// Parse validates a UUID string and returns its canonical form.
func Parse(s string) (string, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("idgen: invalid UUID: %w", err)
	}
	return u.String(), nil
}
