package artifacts

import (
	"os"
	"testing"

	"github.com/Adjoshi06/chainofCommand/pkg/contracts"
	"github.com/Adjoshi06/chainofCommand/pkg/hashing"
	"github.com/stretchr/testify/require"
)

func TestWrite_NewBlobCreatesFilesAndDescriptor(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	data := []byte("plan approved")
	desc, err := store.Write("01TRACE00000000000000000A", "01EVENT00000000000000000A", data, "text/plain", "", contracts.RedactionNone)
	require.NoError(t, err)

	require.Equal(t, hashing.Sha256Hex(data), desc.ArtifactHash)
	require.Equal(t, int64(len(data)), desc.ByteSize)
	require.Len(t, desc.References, 1)
	require.True(t, store.Has(desc.ArtifactHash))

	got, err := store.Read(desc.ArtifactHash)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestWrite_DedupsIdenticalContentAcrossEvents(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	data := []byte("shared artifact bytes")
	d1, err := store.Write("01TRACE00000000000000000A", "01EVENT00000000000000000A", data, "text/plain", "", contracts.RedactionNone)
	require.NoError(t, err)
	d2, err := store.Write("01TRACE00000000000000000A", "01EVENT00000000000000000B", data, "text/plain", "", contracts.RedactionNone)
	require.NoError(t, err)
	d3, err := store.Write("01TRACE00000000000000000Z", "01EVENT00000000000000000C", data, "text/plain", "", contracts.RedactionNone)
	require.NoError(t, err)

	require.Equal(t, d1.ArtifactHash, d2.ArtifactHash)
	require.Equal(t, d1.ArtifactHash, d3.ArtifactHash)

	final, err := store.ReadDescriptor(d1.ArtifactHash)
	require.NoError(t, err)
	require.Len(t, final.References, 3)
}

func TestWrite_SameEventWriteIsIdempotent(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	data := []byte("idempotent write")
	_, err = store.Write("01TRACE00000000000000000A", "01EVENT00000000000000000A", data, "text/plain", "", contracts.RedactionNone)
	require.NoError(t, err)
	_, err = store.Write("01TRACE00000000000000000A", "01EVENT00000000000000000A", data, "text/plain", "", contracts.RedactionNone)
	require.NoError(t, err)

	desc, err := store.ReadDescriptor(hashing.Sha256Hex(data))
	require.NoError(t, err)
	require.Len(t, desc.References, 1)
}

func TestRead_MissingBlobReturnsErrNotFound(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	_, err = store.Read("0000000000000000000000000000000000000000000000000000000000000000000000000000" /* too long, irrelevant for miss */[:64])
	require.ErrorIs(t, err, ErrNotFound)
}

func TestVerifyIntegrity_DetectsCorruption(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	data := []byte("integrity check target")
	desc, err := store.Write("01TRACE00000000000000000A", "01EVENT00000000000000000A", data, "application/octet-stream", "", contracts.RedactionNone)
	require.NoError(t, err)

	ok, err := store.VerifyIntegrity(desc.ArtifactHash)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, os.WriteFile(store.blobPath(desc.ArtifactHash), []byte("tampered"), 0o644))
	ok, err = store.VerifyIntegrity(desc.ArtifactHash)
	require.NoError(t, err)
	require.False(t, ok)
}
