package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/solopub/solopub/internal/model"
	"github.com/solopub/solopub/internal/store"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := applySchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// migrations is an ordered list of SQL migrations. Each migration runs
// exactly once, tracked by the schema_version table.
var migrations = []string{
	// Migration 1: Initial schema
	`
CREATE TABLE IF NOT EXISTS account_keys (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id TEXT NOT NULL,
	public_jwk TEXT NOT NULL,
	private_jwk TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_account_keys_owner ON account_keys(owner_id);

CREATE TABLE IF NOT EXISTS posts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	content TEXT NOT NULL,
	created_at TEXT NOT NULL,
	image_url TEXT
);
CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at DESC);
`,
	// Future migrations go here.
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		)
	`); err != nil {
		return err
	}

	var currentVersion int
	row := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	if err := row.Scan(&currentVersion); err != nil {
		return err
	}

	for i := currentVersion; i < len(migrations); i++ {
		if _, err := db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		if _, err := db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, i+1); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", i+1, err)
		}
	}

	return nil
}

func (s *Store) CreateAccountKey(ctx context.Context, key *model.AccountKey) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO account_keys (owner_id, public_jwk, private_jwk, created_at)
VALUES (?, ?, ?, ?)
`, key.OwnerID, key.PublicJWK, key.PrivateJWK, key.CreatedAt.Unix())
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrKeyExists
		}
		return err
	}
	return nil
}

func (s *Store) GetAccountKey(ctx context.Context, ownerID string) (model.AccountKey, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT owner_id, public_jwk, private_jwk, created_at
FROM account_keys
WHERE owner_id = ?
LIMIT 1
`, ownerID)

	var k model.AccountKey
	var created int64
	if err := row.Scan(&k.OwnerID, &k.PublicJWK, &k.PrivateJWK, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.AccountKey{}, store.ErrNotFound
		}
		return model.AccountKey{}, err
	}
	k.CreatedAt = time.Unix(created, 0)
	return k, nil
}

func (s *Store) CreatePost(ctx context.Context, post *model.Post) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
INSERT INTO posts (content, created_at, image_url)
VALUES (?, ?, ?)
`, post.Content, post.CreatedAt, nullIfEmpty(post.ImageURL))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) ListPosts(ctx context.Context) ([]model.Post, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, content, created_at, image_url
FROM posts
ORDER BY created_at DESC, id DESC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPosts(rows)
}

func (s *Store) ListRecentPosts(ctx context.Context, limit int) ([]model.Post, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, content, created_at, image_url
FROM posts
ORDER BY created_at DESC, id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPosts(rows)
}

func (s *Store) GetPost(ctx context.Context, id int64) (model.Post, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, content, created_at, image_url
FROM posts
WHERE id = ?
LIMIT 1
`, id)
	return scanPost(row)
}

func (s *Store) CountPosts(ctx context.Context) (int, error) {
	var n int
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`)
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func scanPost(scanner interface{ Scan(dest ...any) error }) (model.Post, error) {
	var p model.Post
	var imageURL sql.NullString
	if err := scanner.Scan(&p.ID, &p.Content, &p.CreatedAt, &imageURL); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Post{}, store.ErrNotFound
		}
		return model.Post{}, err
	}
	if imageURL.Valid {
		p.ImageURL = imageURL.String
	}
	return p, nil
}

func collectPosts(rows *sql.Rows) ([]model.Post, error) {
	var posts []model.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY")
}
