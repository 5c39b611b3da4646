package model

import "time"

// AccountKey holds the stored keypair for one account owner. Both halves
// are serialized as JSON Web Keys; the private half never leaves the
// keys package in raw form.
type AccountKey struct {
	OwnerID    string
	PublicJWK  string
	PrivateJWK string
	CreatedAt  time.Time
}

// Post is a published entry as supplied by the post store. CreatedAt is
// kept as the source system's raw text timestamp and normalized to strict
// ISO-8601 UTC only when rendered into a protocol document.
type Post struct {
	ID        int64
	Content   string
	CreatedAt string
	ImageURL  string
}
