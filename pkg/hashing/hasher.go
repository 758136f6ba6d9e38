// Package hashing provides the SHA-256 digest helpers used throughout the
// ledger: raw-byte hashing, canonical-value hashing, and streaming file
// hashing, grounded on the teacher's core/pkg/crypto/hasher.go split between
// a Hasher interface and a concrete canonical implementation.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/Adjoshi06/chainofCommand/pkg/canonicalize"
)

// Sha256Hex returns the lowercase hex SHA-256 digest of data.
func Sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashCanonical canonicalizes v and returns the hex SHA-256 digest of the
// resulting bytes.
func HashCanonical(v interface{}) (string, error) {
	b, err := canonicalize.JCS(v)
	if err != nil {
		return "", fmt.Errorf("hashing: canonicalize failed: %w", err)
	}
	return Sha256Hex(b), nil
}

// HashFile streams path through SHA-256 without loading it fully into
// memory, producing the same digest as Sha256Hex over the file's bytes.
func HashFile(path string) (string, error) {
	f, err := os.Open(path) //nolint:gosec // caller-controlled path within COC_HOME
	if err != nil {
		return "", fmt.Errorf("hashing: open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing: read %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
