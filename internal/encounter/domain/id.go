package domain

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strings"
)

// localIDPrefix marks identifiers minted locally before the first
// successful save. The service skips remote loads for them.
const localIDPrefix = "local-"

// NewID generates a URL-safe identifier using UUIDv4 bytes encoded as base32.
// The identifier is 26 characters long, lowercase, and contains no padding.
func NewID() (string, error) {
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	// RFC 4122 variant and version bits for a v4 UUID.
	raw[6] = (raw[6] & 0x0f) | 0x40
	raw[8] = (raw[8] & 0x3f) | 0x80

	encoded := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw[:])
	return strings.ToLower(encoded), nil
}

// NewLocalID generates a temporary identifier for an encounter that has not
// been persisted yet.
func NewLocalID() (string, error) {
	id, err := NewID()
	if err != nil {
		return "", err
	}
	return localIDPrefix + id, nil
}

// IsLocalID reports whether id is a temporary, not-yet-persisted identifier.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, localIDPrefix)
}
