package storage

import (
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenPutGetRoundTrip(t *testing.T) {
	t.Setenv("MEDLEDGER_DEK", "")

	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Put("records:PAT-001", []byte(`["k1"]`)))

	got, err := store.Get("records:PAT-001")
	require.NoError(t, err)
	require.Equal(t, []byte(`["k1"]`), got)

	ok, err := store.Has("records:PAT-001")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestGetMissingKeyReturnsErrNotFound(t *testing.T) {
	t.Setenv("MEDLEDGER_DEK", "")

	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Get("records:nobody")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEncryptedRoundTrip(t *testing.T) {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	t.Setenv("MEDLEDGER_DEK", base64.StdEncoding.EncodeToString(key))

	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	plain := []byte(`{"patientId":"PAT-001"}`)
	require.NoError(t, store.Put("meta:contract:0xabc", plain))

	got, err := store.Get("meta:contract:0xabc")
	require.NoError(t, err)
	require.Equal(t, plain, got)

	// The at-rest bytes must not equal the plaintext.
	raw, err := store.db.Get([]byte("meta:contract:0xabc"), nil)
	require.NoError(t, err)
	require.NotEqual(t, plain, raw)
}

func TestOpenRejectsMalformedDEK(t *testing.T) {
	t.Setenv("MEDLEDGER_DEK", "not-base64!!")

	_, err := Open(t.TempDir())
	require.Error(t, err)
}

func TestOpenRejectsWrongSizeDEK(t *testing.T) {
	t.Setenv("MEDLEDGER_DEK", base64.StdEncoding.EncodeToString([]byte("short")))

	_, err := Open(t.TempDir())
	require.Error(t, err)
}
