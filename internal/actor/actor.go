// Package actor assembles the account's public identity document.
package actor

import (
	"context"
	"errors"
	"fmt"

	"github.com/solopub/solopub/internal/ap"
	"github.com/solopub/solopub/internal/config"
	"github.com/solopub/solopub/internal/keys"
	"github.com/solopub/solopub/internal/store"
)

// ErrNotProvisioned means the account has no stored key material. The
// account is misconfigured, not absent: callers should answer with a
// server error, never a 404.
var ErrNotProvisioned = errors.New("account key not provisioned")

type Directory struct {
	cfg  config.Config
	keys *keys.Manager
}

func NewDirectory(cfg config.Config, km *keys.Manager) *Directory {
	return &Directory{cfg: cfg, keys: km}
}

// ActorDocument builds the identity document, embedding the PEM-encoded
// public key under <actor>#main-key.
func (d *Directory) ActorDocument(ctx context.Context) (ap.Actor, error) {
	pemKey, err := d.keys.PublicKeyPEM(ctx, d.cfg.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ap.Actor{}, ErrNotProvisioned
		}
		return ap.Actor{}, fmt.Errorf("load public key: %w", err)
	}

	actorURL := d.cfg.ActorURL()
	return ap.Actor{
		Context:           ap.ActivityContext,
		ID:                actorURL,
		Type:              "Person",
		PreferredUsername: d.cfg.Username,
		Name:              d.cfg.Username,
		URL:               d.cfg.BaseURL,
		Inbox:             d.cfg.InboxURL(),
		Outbox:            d.cfg.OutboxURL(),
		Followers:         d.cfg.FollowersURL(),
		Following:         d.cfg.FollowingURL(),
		Featured:          d.cfg.FeaturedURL(),
		PublicKey: ap.PublicKey{
			ID:           d.cfg.KeyID(),
			Owner:        actorURL,
			PublicKeyPem: pemKey,
		},
	}, nil
}
