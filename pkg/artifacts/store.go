// Package artifacts implements the Artifact Store (C5): a sharded,
// content-addressed blob store with dedup via a back-reference sidecar.
//
// Grounded on the teacher's core/pkg/artifacts/store.go (atomic
// write-to-temp-then-rename, Exists-short-circuit idempotent writes),
// extended with the two-level sha256/<p1>/<p2> sharding and the
// .meta.json reference-list sidecar spec.md §4.5 requires.
package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Adjoshi06/chainofCommand/pkg/contracts"
	"github.com/Adjoshi06/chainofCommand/pkg/hashing"
)

// ErrNotFound is returned when a hash has no corresponding blob.
var ErrNotFound = errors.New("artifacts: not found")

// Store is a sharded, content-addressed blob store rooted at baseDir
// (conventionally <COC_HOME>/artifacts).
type Store struct {
	baseDir string
}

// Open opens (creating if absent) an artifact store rooted at baseDir.
func Open(baseDir string) (*Store, error) {
	//nolint:gosec // G301: artifact directory tree is not secret
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("artifacts: mkdir %s: %w", baseDir, err)
	}
	return &Store{baseDir: baseDir}, nil
}

func (s *Store) shardDir(hash string) string {
	p1, p2 := contracts.Shard(hash)
	return filepath.Join(s.baseDir, "sha256", p1, p2)
}

func (s *Store) blobPath(hash string) string {
	return filepath.Join(s.shardDir(hash), hash+".blob")
}

func (s *Store) metaPath(hash string) string {
	return filepath.Join(s.shardDir(hash), hash+".meta.json")
}

// Write stores data under its SHA-256 hash, appending a reference for
// (traceID, producerEventID) to the artifact's sidecar. If the blob
// already exists, the bytes are not rewritten — only the reference list is
// extended — implementing dedup across independent writers of the same
// content. Returns the resulting descriptor.
func (s *Store) Write(traceID, producerEventID string, data []byte, mediaType, encoding string, redaction contracts.RedactionStatus) (contracts.ArtifactDescriptor, error) {
	hash := hashing.Sha256Hex(data)
	dir := s.shardDir(hash)
	//nolint:gosec // G301: shard directories are not secret
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return contracts.ArtifactDescriptor{}, fmt.Errorf("artifacts: mkdir %s: %w", dir, err)
	}

	blobPath := s.blobPath(hash)
	if _, err := os.Stat(blobPath); errors.Is(err, os.ErrNotExist) {
		if err := writeAtomic(blobPath, data); err != nil {
			return contracts.ArtifactDescriptor{}, err
		}
	} else if err != nil {
		return contracts.ArtifactDescriptor{}, fmt.Errorf("artifacts: stat %s: %w", blobPath, err)
	}

	desc, err := s.readDescriptorOrNew(hash, int64(len(data)), mediaType, encoding, redaction, producerEventID, traceID)
	if err != nil {
		return contracts.ArtifactDescriptor{}, err
	}

	ref := contracts.ArtifactReference{
		TraceID:         traceID,
		ProducerEventID: producerEventID,
		CreatedAt:       contracts.NowISO(),
	}
	desc.References = appendReferenceDeduped(desc.References, ref)

	if err := s.writeDescriptor(hash, desc); err != nil {
		return contracts.ArtifactDescriptor{}, err
	}
	return desc, nil
}

func appendReferenceDeduped(refs []contracts.ArtifactReference, ref contracts.ArtifactReference) []contracts.ArtifactReference {
	for _, r := range refs {
		if r.TraceID == ref.TraceID && r.ProducerEventID == ref.ProducerEventID {
			return refs
		}
	}
	return append(refs, ref)
}

func (s *Store) readDescriptorOrNew(hash string, size int64, mediaType, encoding string, redaction contracts.RedactionStatus, producerEventID, traceID string) (contracts.ArtifactDescriptor, error) {
	existing, err := s.ReadDescriptor(hash)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return contracts.ArtifactDescriptor{}, err
	}
	return contracts.ArtifactDescriptor{
		ArtifactHash:    hash,
		HashAlgorithm:   "sha256",
		MediaType:       mediaType,
		Encoding:        encoding,
		ByteSize:        size,
		CreatedAt:       contracts.NowISO(),
		ProducerEventID: producerEventID,
		StorageURI:      "sha256:" + hash,
		RedactionStatus: redaction,
		TraceID:         traceID,
	}, nil
}

func (s *Store) writeDescriptor(hash string, desc contracts.ArtifactDescriptor) error {
	data, err := json.MarshalIndent(desc, "", "  ")
	if err != nil {
		return fmt.Errorf("artifacts: marshal descriptor: %w", err)
	}
	return writeAtomic(s.metaPath(hash), data)
}

// ReadDescriptor returns the sidecar metadata for hash.
func (s *Store) ReadDescriptor(hash string) (contracts.ArtifactDescriptor, error) {
	data, err := os.ReadFile(s.metaPath(hash))
	if errors.Is(err, os.ErrNotExist) {
		return contracts.ArtifactDescriptor{}, ErrNotFound
	}
	if err != nil {
		return contracts.ArtifactDescriptor{}, fmt.Errorf("artifacts: read descriptor %s: %w", hash, err)
	}
	var desc contracts.ArtifactDescriptor
	if err := json.Unmarshal(data, &desc); err != nil {
		return contracts.ArtifactDescriptor{}, fmt.Errorf("artifacts: parse descriptor %s: %w", hash, err)
	}
	return desc, nil
}

// Read returns the raw bytes stored under hash.
func (s *Store) Read(hash string) ([]byte, error) {
	data, err := os.ReadFile(s.blobPath(hash)) //nolint:gosec // hash is validated hex64 by callers
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("artifacts: read blob %s: %w", hash, err)
	}
	return data, nil
}

// Has reports whether a blob exists for hash.
func (s *Store) Has(hash string) bool {
	_, err := os.Stat(s.blobPath(hash))
	return err == nil
}

// VerifyIntegrity recomputes the blob's SHA-256 digest and compares it to
// hash, without loading the whole file into memory. Used by
// CHK_ARTIFACT_HASH_MATCH.
func (s *Store) VerifyIntegrity(hash string) (bool, error) {
	if !s.Has(hash) {
		return false, ErrNotFound
	}
	computed, err := hashing.HashFile(s.blobPath(hash))
	if err != nil {
		return false, err
	}
	return computed == hash, nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	//nolint:gosec // G306: artifact bytes are not secret material
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("artifacts: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("artifacts: rename %s -> %s: %w", tmp, path, err)
	}
	return nil
}
