package contracts

import "fmt"

// ArtifactReference is a single back-reference recorded in an artifact's
// sidecar, by value — never a pointer — so the store and the ledger never
// form a cycle. See DESIGN.md "Cyclic data" note.
type ArtifactReference struct {
	TraceID         string `json:"trace_id"`
	ProducerEventID string `json:"producer_event_id"`
	CreatedAt       string `json:"created_at"`
}

// ArtifactDescriptor is the metadata recorded for a content-addressed blob.
type ArtifactDescriptor struct {
	ArtifactHash         string              `json:"artifact_hash"`
	HashAlgorithm        string              `json:"hash_algorithm"`
	MediaType            string              `json:"media_type"`
	Encoding             string              `json:"encoding,omitempty"`
	ByteSize             int64               `json:"byte_size"`
	CreatedAt            string              `json:"created_at"`
	ProducerEventID      string              `json:"producer_event_id"`
	StorageURI           string              `json:"storage_uri"`
	RedactionStatus      RedactionStatus     `json:"redaction_status"`
	TraceID              string              `json:"trace_id,omitempty"`
	IntegrityVerifiedAt  string              `json:"integrity_verified_at,omitempty"`
	References           []ArtifactReference `json:"references,omitempty"`
}

// Validate checks the descriptor's own fields (not filesystem state).
func (d ArtifactDescriptor) Validate() error {
	if err := ValidateHex64("artifact_hash", d.ArtifactHash); err != nil {
		return err
	}
	if d.HashAlgorithm != "sha256" {
		return fmt.Errorf("unsupported hash_algorithm %q", d.HashAlgorithm)
	}
	if d.ByteSize < 0 {
		return fmt.Errorf("byte_size must be >= 0, got %d", d.ByteSize)
	}
	switch d.RedactionStatus {
	case RedactionNone, RedactionRedacted, RedactionRedactedWithPointer:
	default:
		return fmt.Errorf("invalid redaction_status %q", d.RedactionStatus)
	}
	return nil
}

// Shard returns the two-level sharding prefix (p1, p2) used to lay the blob
// out under artifacts/sha256/<p1>/<p2>/.
func Shard(hash string) (p1, p2 string) {
	if len(hash) < 4 {
		return hash, hash
	}
	return hash[0:2], hash[2:4]
}
