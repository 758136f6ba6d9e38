package contracts

import (
	"fmt"
	"regexp"
	"time"
)

var agentIDPattern = regexp.MustCompile(`^[a-z0-9._-]+$`)
var keyIDPattern = regexp.MustCompile(`^[a-z0-9._-]+$`)

// AgentIdentity is the durable record binding an agent to its signing key.
//
// Invariant: (AgentID, KeyID) is immutable once referenced in any trace; a
// revoked key is invalid for signatures dated at or after RevokedAt but
// remains valid for earlier events.
type AgentIdentity struct {
	AgentID          string         `json:"agent_id"`
	DisplayName      string         `json:"display_name"`
	RoleCapabilities []Role         `json:"role_capabilities"`
	KeyID            string         `json:"key_id"`
	PublicKey        string         `json:"public_key"` // PEM SPKI
	KeyAlgorithm     string         `json:"key_algorithm"`
	Status           IdentityStatus `json:"status"`
	CreatedAt        string         `json:"created_at"`
	UpdatedAt        string         `json:"updated_at"`
	RevokedAt        string         `json:"revoked_at,omitempty"`
	RevokedReason    string         `json:"revoked_reason,omitempty"`
}

// Validate checks structural invariants that do not require registry state.
func (a AgentIdentity) Validate() error {
	if !agentIDPattern.MatchString(a.AgentID) {
		return fmt.Errorf("agent_id %q does not match [a-z0-9._-]+", a.AgentID)
	}
	if !keyIDPattern.MatchString(a.KeyID) {
		return fmt.Errorf("key_id %q does not match [a-z0-9._-]+", a.KeyID)
	}
	if a.KeyAlgorithm != "ed25519" {
		return fmt.Errorf("unsupported key_algorithm %q", a.KeyAlgorithm)
	}
	for _, r := range a.RoleCapabilities {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("role_capabilities: %w", err)
		}
	}
	switch a.Status {
	case IdentityActive, IdentityRotated, IdentityRevoked:
	default:
		return fmt.Errorf("invalid status %q", a.Status)
	}
	return nil
}

// RevokedBefore reports whether a signature dated at ts should be rejected
// because the key was revoked at or before ts.
func (a AgentIdentity) RevokedBefore(ts string) bool {
	if a.Status != IdentityRevoked || a.RevokedAt == "" {
		return false
	}
	// ISO-8601 ms UTC timestamps compare correctly lexicographically.
	return ts >= a.RevokedAt
}

// NowISO returns the current time as an ISO-8601 UTC string with
// millisecond precision, the timestamp format mandated by spec.md §3.
func NowISO() string {
	return FormatISO(time.Now().UTC())
}

// FormatISO renders t as an ISO-8601 UTC string with millisecond precision.
func FormatISO(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
