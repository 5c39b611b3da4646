package keys

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solopub/solopub/internal/store"
	"github.com/solopub/solopub/internal/store/sqlite"
)

func openStore(t *testing.T, name string) *sqlite.Store {
	t.Helper()
	st, err := sqlite.Open("file:" + name + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestGenerateAndStoreOnce(t *testing.T) {
	st := openStore(t, "keys_generate_test")
	m := NewManager(st)
	ctx := context.Background()

	require.NoError(t, m.GenerateAndStore(ctx, "admin"))

	err := m.GenerateAndStore(ctx, "admin")
	assert.ErrorIs(t, err, store.ErrKeyExists)

	row, err := st.GetAccountKey(ctx, "admin")
	require.NoError(t, err)
	assert.Contains(t, row.PublicJWK, `"kty":"RSA"`)
	assert.Contains(t, row.PrivateJWK, `"d":`)
}

func TestPublicKeyPEMRoundTrip(t *testing.T) {
	st := openStore(t, "keys_pem_test")
	m := NewManager(st)
	ctx := context.Background()

	require.NoError(t, m.GenerateAndStore(ctx, "admin"))

	pemKey, err := m.PublicKeyPEM(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(pemKey, "-----BEGIN PUBLIC KEY-----"))
	assert.Contains(t, pemKey, "-----END PUBLIC KEY-----")

	block, _ := pem.Decode([]byte(pemKey))
	require.NotNil(t, block)
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	require.NoError(t, err)
	pub, ok := parsed.(*rsa.PublicKey)
	require.True(t, ok)
	assert.Equal(t, rsaKeyBits, pub.N.BitLen())

	signKey, err := m.SigningKey(ctx, "admin")
	require.NoError(t, err)

	payload := []byte("any payload at all")
	hashed := sha256.Sum256(payload)
	sig, err := signKey.Sign(rand.Reader, hashed[:], crypto.SHA256)
	require.NoError(t, err)
	assert.NoError(t, rsa.VerifyPKCS1v15(pub, crypto.SHA256, hashed[:], sig))
}

func TestLookupUnprovisionedOwner(t *testing.T) {
	st := openStore(t, "keys_missing_test")
	m := NewManager(st)
	ctx := context.Background()

	_, err := m.PublicKeyPEM(ctx, "ghost")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = m.SigningKey(ctx, "ghost")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
