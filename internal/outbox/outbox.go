// Package outbox publishes the account's posts as paginated activity and
// collection documents.
package outbox

import (
	"context"
	"strings"

	"github.com/solopub/solopub/internal/ap"
	"github.com/solopub/solopub/internal/config"
	"github.com/solopub/solopub/internal/model"
	"github.com/solopub/solopub/internal/store"
)

type Publisher struct {
	cfg   config.Config
	posts store.PostStore
}

func NewPublisher(cfg config.Config, posts store.PostStore) *Publisher {
	return &Publisher{cfg: cfg, posts: posts}
}

// Collection is the bare outbox: a summary with the item count and a link
// to the single page, no inline items.
func (p *Publisher) Collection(ctx context.Context) (ap.Collection, error) {
	count, err := p.posts.CountPosts(ctx)
	if err != nil {
		return ap.Collection{}, err
	}
	return ap.Collection{
		Context:    ap.ActivityContext,
		ID:         p.cfg.OutboxURL(),
		Type:       "OrderedCollection",
		TotalItems: count,
		First:      p.cfg.OutboxURL() + "?page=true",
	}, nil
}

// Page is the paged outbox: every post as a Create activity wrapping a
// Note, newest first, in one page.
func (p *Publisher) Page(ctx context.Context) (ap.CollectionPage, error) {
	posts, err := p.posts.ListPosts(ctx)
	if err != nil {
		return ap.CollectionPage{}, err
	}

	items := make([]any, 0, len(posts))
	for _, post := range posts {
		note := p.note(post)
		items = append(items, ap.Activity{
			ID:        note.ID + "/activity",
			Type:      "Create",
			Actor:     p.cfg.ActorURL(),
			Published: note.Published,
			To:        note.To,
			Cc:        note.Cc,
			Object:    note,
		})
	}

	return ap.CollectionPage{
		Context:      ap.ActivityContext,
		ID:           p.cfg.OutboxURL() + "?page=true",
		Type:         "OrderedCollectionPage",
		PartOf:       p.cfg.OutboxURL(),
		OrderedItems: items,
	}, nil
}

// Followers and Following are permanently empty: the server accepts
// follows but never records membership.
func (p *Publisher) Followers() ap.CollectionPage {
	return emptyCollection(p.cfg.FollowersURL())
}

func (p *Publisher) Following() ap.CollectionPage {
	return emptyCollection(p.cfg.FollowingURL())
}

// Featured lists the most recent posts as bare Notes for remote
// pinned-post display.
func (p *Publisher) Featured(ctx context.Context) (ap.CollectionPage, error) {
	posts, err := p.posts.ListRecentPosts(ctx, p.cfg.FeaturedCount)
	if err != nil {
		return ap.CollectionPage{}, err
	}

	items := make([]any, 0, len(posts))
	for _, post := range posts {
		items = append(items, p.note(post))
	}
	total := len(items)

	return ap.CollectionPage{
		Context:      ap.ActivityContext,
		ID:           p.cfg.FeaturedURL(),
		Type:         "OrderedCollection",
		TotalItems:   &total,
		OrderedItems: items,
	}, nil
}

// Note returns the protocol rendering of a single post, for direct
// dereferencing. Unknown ids surface store.ErrNotFound.
func (p *Publisher) Note(ctx context.Context, id int64) (ap.Note, error) {
	post, err := p.posts.GetPost(ctx, id)
	if err != nil {
		return ap.Note{}, err
	}
	note := p.note(post)
	note.Context = ap.ActivityContext
	return note, nil
}

func (p *Publisher) note(post model.Post) ap.Note {
	note := ap.Note{
		ID:           p.cfg.PostURL(post.ID),
		Type:         "Note",
		AttributedTo: p.cfg.ActorURL(),
		Content:      renderContent(post.Content),
		Published:    NormalizeTimestamp(post.CreatedAt),
		To:           []string{ap.PublicCollection},
		Cc:           []string{p.cfg.FollowersURL()},
		URL:          p.cfg.PostURL(post.ID),
	}
	if post.ImageURL != "" {
		note.Attachment = []ap.Attachment{{Type: "Image", URL: post.ImageURL}}
	}
	return note
}

func emptyCollection(id string) ap.CollectionPage {
	zero := 0
	return ap.CollectionPage{
		Context:      ap.ActivityContext,
		ID:           id,
		Type:         "OrderedCollection",
		TotalItems:   &zero,
		OrderedItems: []any{},
	}
}

// renderContent converts literal newlines to line breaks. No other markup
// is applied in the protocol document.
func renderContent(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.ReplaceAll(content, "\n", "<br>")
}

// NormalizeTimestamp coerces a source timestamp to strict ISO-8601 UTC:
// the space separator becomes "T" and a "Z" suffix is appended when no
// timezone is present. Already-normalized values pass through unchanged.
func NormalizeTimestamp(ts string) string {
	ts = strings.Replace(ts, " ", "T", 1)
	if ts == "" || strings.HasSuffix(ts, "Z") || hasOffset(ts) {
		return ts
	}
	return ts + "Z"
}

// hasOffset reports whether the timestamp already carries a +hh:mm or
// -hh:mm suffix after its time part.
func hasOffset(ts string) bool {
	t := strings.IndexByte(ts, 'T')
	if t < 0 {
		return false
	}
	rest := ts[t+1:]
	return strings.ContainsAny(rest, "+-")
}
