package contracts

import "fmt"

// Actor identifies who authored an event.
type Actor struct {
	AgentID string `json:"agent_id"`
	Role    Role   `json:"role"`
	KeyID   string `json:"key_id"`
}

// Signature carries an Ed25519 signature over the canonical bytes of an
// event's signed-field subset (see pkg/signing).
type Signature struct {
	Algorithm      string `json:"algorithm"`
	SignatureB64   string `json:"signature_b64"`
	SignedBytesHash string `json:"signed_bytes_hash"`
}

// IsZero reports whether no signature is present.
func (s Signature) IsZero() bool {
	return s.SignatureB64 == ""
}

// ProtocolEvent is the atomic, append-only ledger record.
//
// Field ordering in this struct is irrelevant to wire format: canonicalize.JCS
// sorts object keys independently of struct field order. What matters is
// json tag spelling, which is what SignedSubset and WithoutEventHash
// key off of.
type ProtocolEvent struct {
	SchemaVersion string      `json:"schema_version"`
	TraceID       string      `json:"trace_id"`
	EventID       string      `json:"event_id"`
	EventType     EventType   `json:"event_type"`
	CreatedAt     string      `json:"created_at"`

	Actor Actor `json:"actor"`

	PayloadHash   string    `json:"payload_hash"`
	PrevEventHash string    `json:"prev_event_hash"`
	EventHash     string    `json:"event_hash"`
	Signature     Signature `json:"signature"`

	PayloadType string                 `json:"payload_type"`
	Payload     map[string]interface{} `json:"payload"`
	Claims      []string               `json:"claims,omitempty"`
	Artifacts   []ArtifactDescriptor   `json:"artifacts,omitempty"`
}

// Validate checks the event's own shape — not chain position, not
// signatures, not role policy; those are verifier concerns.
func (e ProtocolEvent) Validate() error {
	if e.SchemaVersion == "" {
		return fmt.Errorf("schema_version is required")
	}
	if !IsULID(e.EventID) {
		return fmt.Errorf("event_id %q is not a valid ULID", e.EventID)
	}
	if !IsULID(e.TraceID) {
		return fmt.Errorf("trace_id %q is not a valid ULID", e.TraceID)
	}
	if err := e.EventType.Validate(); err != nil {
		return err
	}
	if err := e.Actor.Role.Validate(); err != nil {
		return fmt.Errorf("actor.role: %w", err)
	}
	if e.Actor.AgentID == "" || e.Actor.KeyID == "" {
		return fmt.Errorf("actor.agent_id and actor.key_id are required")
	}
	for _, c := range e.Claims {
		if len(c) < 6 || c[:6] != "claim_" {
			return fmt.Errorf("claim id %q must be prefixed claim_<ULID>", c)
		}
	}
	for i, a := range e.Artifacts {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("artifacts[%d]: %w", i, err)
		}
	}
	return nil
}

// WithoutEventHash returns a shallow copy of e with EventHash cleared, for
// computing the event hash (which must exclude itself from its own input).
func (e ProtocolEvent) WithoutEventHash() ProtocolEvent {
	cp := e
	cp.EventHash = ""
	return cp
}

// signedSubset is the exact, ordered field set that pkg/signing canonicalizes
// and signs — spec.md §4.4. Field order here is documentation only; the
// canonicalizer sorts keys regardless.
type signedSubset struct {
	SchemaVersion string                 `json:"schema_version"`
	TraceID       string                 `json:"trace_id"`
	EventID       string                 `json:"event_id"`
	EventType     EventType              `json:"event_type"`
	CreatedAt     string                 `json:"created_at"`
	Actor         Actor                  `json:"actor"`
	PayloadHash   string                 `json:"payload_hash"`
	PayloadType   string                 `json:"payload_type"`
	Claims        []string               `json:"claims,omitempty"`
	Artifacts     []ArtifactDescriptor   `json:"artifacts,omitempty"`
	PrevEventHash string                 `json:"prev_event_hash"`
}

// SignedSubset projects e onto the fields that are signed, per spec.md §4.4.
// event_hash and signature itself are never part of this projection.
func (e ProtocolEvent) SignedSubset() interface{} {
	return signedSubset{
		SchemaVersion: e.SchemaVersion,
		TraceID:       e.TraceID,
		EventID:       e.EventID,
		EventType:     e.EventType,
		CreatedAt:     e.CreatedAt,
		Actor:         e.Actor,
		PayloadHash:   e.PayloadHash,
		PayloadType:   e.PayloadType,
		Claims:        e.Claims,
		Artifacts:     e.Artifacts,
		PrevEventHash: e.PrevEventHash,
	}
}
