// Package ap defines the wire documents exchanged over the ActivityPub
// and WebFinger protocols.
package ap

const (
	// ContentType is the media type for all ActivityPub documents.
	ContentType = "application/activity+json"
	// JRDContentType is the media type of a WebFinger response.
	JRDContentType = "application/jrd+json"
	// XRDContentType is the media type of a host-meta response.
	XRDContentType = "application/xrd+xml"

	// PublicCollection addresses an activity to the world.
	PublicCollection = "https://www.w3.org/ns/activitystreams#Public"
)

// ActivityContext is the @context carried by every emitted document.
var ActivityContext = []string{
	"https://www.w3.org/ns/activitystreams",
	"https://w3id.org/security/v1",
}

type Actor struct {
	Context           []string  `json:"@context"`
	ID                string    `json:"id"`
	Type              string    `json:"type"`
	PreferredUsername string    `json:"preferredUsername"`
	Name              string    `json:"name,omitempty"`
	URL               string    `json:"url,omitempty"`
	Inbox             string    `json:"inbox"`
	Outbox            string    `json:"outbox"`
	Followers         string    `json:"followers"`
	Following         string    `json:"following"`
	Featured          string    `json:"featured,omitempty"`
	PublicKey         PublicKey `json:"publicKey"`
}

type PublicKey struct {
	ID           string `json:"id"`
	Owner        string `json:"owner"`
	PublicKeyPem string `json:"publicKeyPem"`
}

// Activity is the tagged union of the activity types this server emits and
// understands. Object stays raw JSON so a received Follow can be echoed
// back verbatim inside the Accept.
type Activity struct {
	Context   any      `json:"@context,omitempty"`
	ID        string   `json:"id"`
	Type      string   `json:"type"`
	Actor     string   `json:"actor,omitempty"`
	Published string   `json:"published,omitempty"`
	To        []string `json:"to,omitempty"`
	Cc        []string `json:"cc,omitempty"`
	Object    any      `json:"object,omitempty"`
}

type Note struct {
	Context      any          `json:"@context,omitempty"`
	ID           string       `json:"id"`
	Type         string       `json:"type"`
	AttributedTo string       `json:"attributedTo"`
	Content      string       `json:"content"`
	Published    string       `json:"published"`
	To           []string     `json:"to"`
	Cc           []string     `json:"cc"`
	URL          string       `json:"url,omitempty"`
	Attachment   []Attachment `json:"attachment,omitempty"`
}

type Attachment struct {
	Type      string `json:"type"`
	MediaType string `json:"mediaType,omitempty"`
	URL       string `json:"url"`
}

// Collection is the summary form of an OrderedCollection: a count and a
// pointer to the first page, no inline items.
type Collection struct {
	Context    any    `json:"@context,omitempty"`
	ID         string `json:"id"`
	Type       string `json:"type"`
	TotalItems int    `json:"totalItems"`
	First      string `json:"first,omitempty"`
}

// CollectionPage carries items inline, either as an OrderedCollectionPage
// belonging to a parent collection or as a self-contained OrderedCollection
// (followers, following, featured).
type CollectionPage struct {
	Context      any    `json:"@context,omitempty"`
	ID           string `json:"id"`
	Type         string `json:"type"`
	TotalItems   *int   `json:"totalItems,omitempty"`
	PartOf       string `json:"partOf,omitempty"`
	OrderedItems []any  `json:"orderedItems"`
}

// JRD is the JSON Resource Descriptor returned by WebFinger.
type JRD struct {
	Subject string `json:"subject"`
	Links   []Link `json:"links"`
}

type Link struct {
	Rel  string `json:"rel"`
	Type string `json:"type,omitempty"`
	Href string `json:"href,omitempty"`
}
