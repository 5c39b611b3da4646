package store

import (
	"context"
	"errors"

	"github.com/solopub/solopub/internal/model"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrKeyExists = errors.New("key already exists")
)

// KeyStore persists exactly one AccountKey per owner. Uniqueness is
// enforced by the storage layer, so two concurrent provisioning calls
// race down to one winner and one ErrKeyExists.
type KeyStore interface {
	CreateAccountKey(ctx context.Context, key *model.AccountKey) error
	GetAccountKey(ctx context.Context, ownerID string) (model.AccountKey, error)
}

// PostStore is the read-only source of published posts. Listings are
// ordered by creation time descending.
type PostStore interface {
	ListPosts(ctx context.Context) ([]model.Post, error)
	ListRecentPosts(ctx context.Context, limit int) ([]model.Post, error)
	GetPost(ctx context.Context, id int64) (model.Post, error)
	CountPosts(ctx context.Context) (int, error)
}

type Store interface {
	KeyStore
	PostStore
	Close() error
}
