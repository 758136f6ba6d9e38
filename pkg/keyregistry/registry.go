// Package keyregistry implements the Key Registry (C3): a durable mapping
// from key-id to agent identity and public key, with private-key material on
// disk under owner-only permissions.
//
// Grounded on the teacher's core/pkg/crypto/keyring.go (map of keyID ->
// signer, guarded by a mutex, deterministic selection by sorted key)
// generalized from an in-memory keyring to a file-backed registry, and on
// core/pkg/identity/keyset.go's rotate-without-downtime shape.
package keyregistry

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/Adjoshi06/chainofCommand/pkg/contracts"
	"github.com/Adjoshi06/chainofCommand/pkg/hashing"
)

// KeyMaterial is what ensure_key hands back to a caller that wants to sign:
// the identity record plus the raw private key bytes (never persisted in
// any report or log).
type KeyMaterial struct {
	Identity contracts.AgentIdentity
	Private  ed25519.PrivateKey
}

// Registry is a durable, file-backed key registry rooted at a directory
// (conventionally <COC_HOME>/keys).
type Registry struct {
	mu      sync.Mutex
	dir     string
	logger  *slog.Logger
}

type registryFile struct {
	Identities []contracts.AgentIdentity `json:"identities"`
}

// Open opens (creating if absent) a registry rooted at dir.
func Open(dir string, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	//nolint:gosec // G301: registry directory is not secret, only its key files are
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("keyregistry: mkdir %s: %w", dir, err)
	}
	return &Registry{dir: dir, logger: logger.With("component", "keyregistry")}, nil
}

func (r *Registry) registryPath() string {
	return filepath.Join(r.dir, "registry.json")
}

func (r *Registry) load() (registryFile, error) {
	data, err := os.ReadFile(r.registryPath())
	if os.IsNotExist(err) {
		return registryFile{}, nil
	}
	if err != nil {
		return registryFile{}, fmt.Errorf("keyregistry: read registry: %w", err)
	}
	var rf registryFile
	if err := json.Unmarshal(data, &rf); err != nil {
		return registryFile{}, fmt.Errorf("keyregistry: parse registry: %w", err)
	}
	return rf, nil
}

func (r *Registry) save(rf registryFile) error {
	data, err := json.MarshalIndent(rf, "", "  ")
	if err != nil {
		return fmt.Errorf("keyregistry: marshal registry: %w", err)
	}
	tmp := r.registryPath() + ".tmp"
	//nolint:gosec // G306: registry metadata (no private key material) is readable
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("keyregistry: write registry: %w", err)
	}
	return os.Rename(tmp, r.registryPath())
}

func privateKeyPath(dir, agentID, keyID string) string {
	return filepath.Join(dir, fmt.Sprintf("%s.%s.private.pem", agentID, keyID))
}

func publicKeyPath(dir, agentID, keyID string) string {
	return filepath.Join(dir, fmt.Sprintf("%s.%s.public.pem", agentID, keyID))
}

// EnsureKey returns key material for agentID: loads the existing active
// identity if one exists, otherwise generates a fresh Ed25519 keypair,
// derives key_id from the public key's DER digest, persists PEM files with
// owner-only permissions on the private key, and records the identity.
func (r *Registry) EnsureKey(agentID, displayName string, roles []contracts.Role) (KeyMaterial, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rf, err := r.load()
	if err != nil {
		return KeyMaterial{}, err
	}

	for _, id := range rf.Identities {
		if id.AgentID == agentID && id.Status != contracts.IdentityRevoked {
			priv, err := r.loadPrivateKey(agentID, id.KeyID)
			if err != nil {
				return KeyMaterial{}, err
			}
			return KeyMaterial{Identity: id, Private: priv}, nil
		}
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyMaterial{}, fmt.Errorf("keyregistry: generate key: %w", err)
	}

	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return KeyMaterial{}, fmt.Errorf("keyregistry: marshal public key: %w", err)
	}
	keyID := "key_" + hashing.Sha256Hex(der)[:16]

	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return KeyMaterial{}, fmt.Errorf("keyregistry: marshal private key: %w", err)
	}
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})

	if err := writePrivateKeyFile(privateKeyPath(r.dir, agentID, keyID), privPEM); err != nil {
		return KeyMaterial{}, err
	}
	//nolint:gosec // G306: public key is not secret
	if err := os.WriteFile(publicKeyPath(r.dir, agentID, keyID), pubPEM, 0o644); err != nil {
		return KeyMaterial{}, fmt.Errorf("keyregistry: write public key: %w", err)
	}

	now := contracts.NowISO()
	identity := contracts.AgentIdentity{
		AgentID:          agentID,
		DisplayName:      displayName,
		RoleCapabilities: roles,
		KeyID:            keyID,
		PublicKey:        string(pubPEM),
		KeyAlgorithm:     "ed25519",
		Status:           contracts.IdentityActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	rf.Identities = append(rf.Identities, identity)
	if err := r.save(rf); err != nil {
		return KeyMaterial{}, err
	}

	r.logger.Info("minted signing key", "agent_id", agentID, "key_id", keyID)
	return KeyMaterial{Identity: identity, Private: priv}, nil
}

// writePrivateKeyFile writes data to path, restricting permissions to
// owner-only read/write on non-Windows hosts per spec.md §4.3.
func writePrivateKeyFile(path string, data []byte) error {
	mode := os.FileMode(0o600)
	if runtime.GOOS == "windows" {
		mode = 0o644
	}
	if err := os.WriteFile(path, data, mode); err != nil {
		return fmt.Errorf("keyregistry: write private key: %w", err)
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(path, mode); err != nil {
			return fmt.Errorf("keyregistry: chmod private key: %w", err)
		}
	}
	return nil
}

func (r *Registry) loadPrivateKey(agentID, keyID string) (ed25519.PrivateKey, error) {
	data, err := os.ReadFile(privateKeyPath(r.dir, agentID, keyID))
	if err != nil {
		return nil, fmt.Errorf("keyregistry: read private key: %w", err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("keyregistry: malformed private key PEM for %s/%s", agentID, keyID)
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("keyregistry: parse private key: %w", err)
	}
	priv, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("keyregistry: key for %s/%s is not ed25519", agentID, keyID)
	}
	return priv, nil
}

// ResolveIdentity returns the identity with the given key_id, if any.
func (r *Registry) ResolveIdentity(keyID string) (contracts.AgentIdentity, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rf, err := r.load()
	if err != nil {
		return contracts.AgentIdentity{}, false, err
	}
	for _, id := range rf.Identities {
		if id.KeyID == keyID {
			return id, true, nil
		}
	}
	return contracts.AgentIdentity{}, false, nil
}

// ResolvePublicKey returns the raw Ed25519 public key bytes for key_id.
func (r *Registry) ResolvePublicKey(keyID string) (ed25519.PublicKey, bool, error) {
	id, ok, err := r.ResolveIdentity(keyID)
	if err != nil || !ok {
		return nil, ok, err
	}
	block, _ := pem.Decode([]byte(id.PublicKey))
	if block == nil {
		return nil, false, fmt.Errorf("keyregistry: malformed public key PEM for key_id %s", keyID)
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, false, fmt.Errorf("keyregistry: parse public key: %w", err)
	}
	edPub, ok := pub.(ed25519.PublicKey)
	if !ok {
		return nil, false, fmt.Errorf("keyregistry: key_id %s is not ed25519", keyID)
	}
	return edPub, true, nil
}

// Revoke marks the identity with key_id as revoked as of now, recording the
// reason. It updates the identity's record in the registry file in place
// (status, revoked_at, revoked_reason, updated_at); nothing is written to
// any trace's ledger.
func (r *Registry) Revoke(keyID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rf, err := r.load()
	if err != nil {
		return err
	}
	found := false
	now := contracts.NowISO()
	for i := range rf.Identities {
		if rf.Identities[i].KeyID == keyID {
			rf.Identities[i].Status = contracts.IdentityRevoked
			rf.Identities[i].RevokedAt = now
			rf.Identities[i].RevokedReason = reason
			rf.Identities[i].UpdatedAt = now
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("keyregistry: unknown key_id %s", keyID)
	}
	return r.save(rf)
}

// List returns every identity in the registry, in stored order.
func (r *Registry) List() ([]contracts.AgentIdentity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rf, err := r.load()
	if err != nil {
		return nil, err
	}
	return rf.Identities, nil
}
