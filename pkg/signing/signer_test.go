package signing

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/Adjoshi06/chainofCommand/pkg/contracts"
	"github.com/stretchr/testify/require"
)

func sampleEvent() contracts.ProtocolEvent {
	return contracts.ProtocolEvent{
		SchemaVersion: contracts.SchemaVersion,
		TraceID:       "01J8Z3KZXG00000000000000TR",
		EventID:       "01J8Z3KZXG00000000000000EV",
		EventType:     contracts.EventProposalCreated,
		CreatedAt:     contracts.NowISO(),
		Actor: contracts.Actor{
			AgentID: "agent.planner",
			Role:    contracts.RolePlanner,
			KeyID:   "key_abc0000000000",
		},
		PayloadHash:   "deadbeef",
		PrevEventHash: contracts.GenesisPrevHash,
		PayloadType:   "application/json",
		Payload:       map[string]interface{}{"goal": "ship feature"},
	}
}

func TestSignEvent_VerifyRoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	e := sampleEvent()
	signer := NewSigner(priv)
	require.NoError(t, signer.SignEvent(&e))

	require.Equal(t, pub, signer.PublicKey())
	require.False(t, e.Signature.IsZero())
	require.NotEmpty(t, e.EventHash)

	ok, err := VerifyEvent(pub, e)
	require.NoError(t, err)
	require.True(t, ok)

	hashOK, _, err := VerifyEventHash(e)
	require.NoError(t, err)
	require.True(t, hashOK)
}

func TestVerifyEvent_DetectsPayloadTamper(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	e := sampleEvent()
	signer := NewSigner(priv)
	require.NoError(t, signer.SignEvent(&e))

	// payload itself is outside the signed subset; the signature commits to
	// it through payload_hash.
	e.PayloadHash = "deadbeee"

	ok, err := VerifyEvent(pub, e)
	require.NoError(t, err)
	require.False(t, ok, "a single-byte payload_hash change must invalidate the signed_bytes_hash check")
}

func TestVerifyEventHash_DetectsFieldTamper(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	e := sampleEvent()
	signer := NewSigner(priv)
	require.NoError(t, signer.SignEvent(&e))

	sigOK, err := VerifyEvent(pub, e)
	require.NoError(t, err)
	require.True(t, sigOK)

	e.PrevEventHash = contracts.GenesisPrevHash[:63] + "1"

	hashOK, computed, err := VerifyEventHash(e)
	require.NoError(t, err)
	require.False(t, hashOK)
	require.NotEqual(t, e.EventHash, computed)
}

func TestVerifyEvent_RejectsMissingSignature(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	e := sampleEvent()
	_, err = VerifyEvent(pub, e)
	require.Error(t, err)
}
