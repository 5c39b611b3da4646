// Package keys owns the RSA keypair lifecycle for the account: one-time
// generation, JWK storage, and lookup as either an SPKI PEM string or a
// signing handle.
package keys

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/solopub/solopub/internal/model"
	"github.com/solopub/solopub/internal/store"
)

const rsaKeyBits = 2048

type Manager struct {
	store store.KeyStore
}

func NewManager(st store.KeyStore) *Manager {
	return &Manager{store: st}
}

// GenerateAndStore creates a 2048-bit RSA keypair for ownerID and persists
// both halves as JWKs. A second call for the same owner returns
// store.ErrKeyExists; the unique index on owner is the only guard against
// concurrent provisioning.
func (m *Manager) GenerateAndStore(ctx context.Context, ownerID string) error {
	priv, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return fmt.Errorf("generate keypair: %w", err)
	}

	privJWK, err := jwk.FromRaw(priv)
	if err != nil {
		return fmt.Errorf("encode private jwk: %w", err)
	}
	pubJWK, err := jwk.FromRaw(priv.Public())
	if err != nil {
		return fmt.Errorf("encode public jwk: %w", err)
	}

	privJSON, err := json.Marshal(privJWK)
	if err != nil {
		return err
	}
	pubJSON, err := json.Marshal(pubJWK)
	if err != nil {
		return err
	}

	return m.store.CreateAccountKey(ctx, &model.AccountKey{
		OwnerID:    ownerID,
		PublicJWK:  string(pubJSON),
		PrivateJWK: string(privJSON),
		CreatedAt:  time.Now(),
	})
}

// PublicKeyPEM loads the stored public JWK and converts it to an
// SPKI-encoded PEM block. Returns store.ErrNotFound when the owner was
// never provisioned.
func (m *Manager) PublicKeyPEM(ctx context.Context, ownerID string) (string, error) {
	row, err := m.store.GetAccountKey(ctx, ownerID)
	if err != nil {
		return "", err
	}

	key, err := jwk.ParseKey([]byte(row.PublicJWK))
	if err != nil {
		return "", fmt.Errorf("parse public jwk: %w", err)
	}
	var pub rsa.PublicKey
	if err := key.Raw(&pub); err != nil {
		return "", fmt.Errorf("materialize public key: %w", err)
	}

	der, err := x509.MarshalPKIXPublicKey(&pub)
	if err != nil {
		return "", err
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: der,
	})
	return string(pemBytes), nil
}

// SigningKey loads the stored private JWK and returns it as a signing-only
// handle for RSASSA-PKCS1-v1_5/SHA-256. Returns store.ErrNotFound when the
// owner was never provisioned.
func (m *Manager) SigningKey(ctx context.Context, ownerID string) (crypto.Signer, error) {
	row, err := m.store.GetAccountKey(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	key, err := jwk.ParseKey([]byte(row.PrivateJWK))
	if err != nil {
		return nil, fmt.Errorf("parse private jwk: %w", err)
	}
	var priv rsa.PrivateKey
	if err := key.Raw(&priv); err != nil {
		return nil, fmt.Errorf("materialize private key: %w", err)
	}
	return &priv, nil
}
