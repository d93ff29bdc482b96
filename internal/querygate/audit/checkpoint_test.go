package audit

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeKeyPair(t *testing.T, dir, name string) (priv, pub string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	der, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)
	priv = filepath.Join(dir, name+".pem")
	require.NoError(t, os.WriteFile(priv, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}), 0o600))

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pub = filepath.Join(dir, name+".pub.pem")
	require.NoError(t, os.WriteFile(pub, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}), 0o644))
	return priv, pub
}

func TestCheckpoint_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	priv, pub := writeKeyPair(t, dir, "signer")
	_, otherPub := writeKeyPair(t, dir, "other")

	l := New(10, WithEmitter(func(Event) {}))
	l.Record(NewEvent(QueryExecution, "10.0.0.1", "SELECT 1", "query"))
	l.Record(NewEvent(SQLError, "10.0.0.1", "SELECT nope", "query").WithSuccess(false))
	head := l.Head()

	path, err := WriteCheckpoint(filepath.Join(dir, "cps"), head, priv)
	require.NoError(t, err)
	assert.FileExists(t, path)

	ok, err := VerifyCheckpoint(path, pub, head.LastHeadHash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyCheckpoint(path, pub, ZeroHash)
	require.NoError(t, err)
	assert.False(t, ok, "head mismatch")

	ok, err = VerifyCheckpoint(path, otherPub, head.LastHeadHash)
	require.NoError(t, err)
	assert.False(t, ok, "wrong key")
}

func TestCheckpoint_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := WriteCheckpoint("", ChainState{}, "k.pem")
	assert.Error(t, err)

	_, err = WriteCheckpoint(dir, ChainState{}, filepath.Join(dir, "missing.pem"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.pem")
	require.NoError(t, os.WriteFile(bad, []byte("not pem"), 0o600))
	_, err = WriteCheckpoint(dir, ChainState{}, bad)
	assert.Error(t, err)
}
