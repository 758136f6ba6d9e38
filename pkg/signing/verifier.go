package signing

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"

	"github.com/Adjoshi06/chainofCommand/pkg/canonicalize"
	"github.com/Adjoshi06/chainofCommand/pkg/contracts"
	"github.com/Adjoshi06/chainofCommand/pkg/hashing"
)

// VerifyEvent recomputes the canonical bytes of e's signed subset and
// checks them against both the recorded signed_bytes_hash and the Ed25519
// signature. A mismatch on either axis is a failure, per spec.md §4.4.
func VerifyEvent(pub ed25519.PublicKey, e contracts.ProtocolEvent) (bool, error) {
	if e.Signature.IsZero() {
		return false, fmt.Errorf("signing: event %s has no signature", e.EventID)
	}

	signedBytes, err := canonicalize.JCS(e.SignedSubset())
	if err != nil {
		return false, fmt.Errorf("signing: canonicalize signed subset: %w", err)
	}

	if hashing.Sha256Hex(signedBytes) != e.Signature.SignedBytesHash {
		return false, nil
	}

	sig, err := base64.StdEncoding.DecodeString(e.Signature.SignatureB64)
	if err != nil {
		return false, fmt.Errorf("signing: decode signature: %w", err)
	}
	if len(pub) != ed25519.PublicKeySize {
		return false, fmt.Errorf("signing: invalid public key size %d", len(pub))
	}

	return ed25519.Verify(pub, signedBytes, sig), nil
}

// VerifyEventHash recomputes the event hash and compares it to e.EventHash.
func VerifyEventHash(e contracts.ProtocolEvent) (bool, string, error) {
	without := e.WithoutEventHash()
	computed, err := hashing.HashCanonical(without)
	if err != nil {
		return false, "", fmt.Errorf("signing: hash event: %w", err)
	}
	return computed == e.EventHash, computed, nil
}
