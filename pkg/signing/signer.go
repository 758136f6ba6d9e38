// Package signing implements the signer/verifier of spec.md §4.4: Ed25519
// signatures over the canonical bytes of an event's signed-field subset, plus
// the event-hash rule that binds a signature to its position in the chain.
//
// Grounded on the teacher's core/pkg/crypto/{signer,verifier}.go, adapted
// from hex-encoded ad hoc payload strings to base64 signatures over
// canonicalize.JCS bytes of a struct-typed signed subset.
package signing

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"

	"github.com/Adjoshi06/chainofCommand/pkg/canonicalize"
	"github.com/Adjoshi06/chainofCommand/pkg/contracts"
	"github.com/Adjoshi06/chainofCommand/pkg/hashing"
)

// Signer signs events with a single Ed25519 private key.
type Signer struct {
	priv ed25519.PrivateKey
}

// NewSigner wraps an existing Ed25519 private key.
func NewSigner(priv ed25519.PrivateKey) *Signer {
	return &Signer{priv: priv}
}

// Computing payload_hash is the caller's responsibility; SignEvent does not
// set it. SignEvent signs the event's current signed-field subset and fills in
// e.Signature, then recomputes and fills in e.EventHash per the event-hash
// rule: sha256(canonicalize(event \ {event_hash})), computed AFTER the
// signature is attached, so the signature is included in the hash and thus
// bound to the event's position in the chain.
func (s *Signer) SignEvent(e *contracts.ProtocolEvent) error {
	signedBytes, err := canonicalize.JCS(e.SignedSubset())
	if err != nil {
		return fmt.Errorf("signing: canonicalize signed subset: %w", err)
	}

	sig := ed25519.Sign(s.priv, signedBytes)

	e.Signature = contracts.Signature{
		Algorithm:       "ed25519",
		SignatureB64:    base64.StdEncoding.EncodeToString(sig),
		SignedBytesHash: hashing.Sha256Hex(signedBytes),
	}

	return RecomputeEventHash(e)
}

// RecomputeEventHash sets e.EventHash to
// sha256(canonicalize(event without event_hash)).
func RecomputeEventHash(e *contracts.ProtocolEvent) error {
	without := e.WithoutEventHash()
	h, err := hashing.HashCanonical(without)
	if err != nil {
		return fmt.Errorf("signing: hash event: %w", err)
	}
	e.EventHash = h
	return nil
}

// PublicKey returns the hex-free raw public key bytes for this signer.
func (s *Signer) PublicKey() ed25519.PublicKey {
	return s.priv.Public().(ed25519.PublicKey)
}
