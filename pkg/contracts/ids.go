// Package contracts defines the wire/data-model types shared by every
// subsystem of the chain-of-custody ledger: identities, artifacts, events,
// traces, and verification reports. Nothing in this package touches the
// filesystem or the network — it is the vocabulary the rest of the module
// speaks.
package contracts

import (
	"crypto/rand"
	"fmt"
	"regexp"

	"github.com/oklog/ulid/v2"
)

// NewULID mints a fresh, lexicographically sortable identifier using a
// cryptographically random entropy source. Callers needing a specific
// timestamp (tests, replay) should use NewULIDAt instead.
func NewULID() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// NewULIDAt mints a ULID for a caller-supplied millisecond timestamp. Only
// the timestamp part is fixed; the entropy part is still random.
func NewULIDAt(unixMilli uint64) string {
	return ulid.MustNew(unixMilli, rand.Reader).String()
}

var hex64Pattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

// IsHex64 reports whether s is exactly 64 lowercase hexadecimal characters —
// the shape of every SHA-256 digest in this system. Per spec.md §9, uppercase
// hex is rejected rather than normalized.
func IsHex64(s string) bool {
	return hex64Pattern.MatchString(s)
}

var ulidPattern = regexp.MustCompile(`^[0-9A-HJKMNP-TV-Z]{26}$`)

// IsULID reports whether s has the Crockford base32, 26-character shape of a
// ULID.
func IsULID(s string) bool {
	return ulidPattern.MatchString(s)
}

// ValidateHex64 returns a descriptive error if s is not a lowercase 64-char
// hex digest.
func ValidateHex64(field, s string) error {
	if !IsHex64(s) {
		return fmt.Errorf("%s: expected 64 lowercase hex chars, got %q", field, s)
	}
	return nil
}
