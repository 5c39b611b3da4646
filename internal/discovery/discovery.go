// Package discovery answers WebFinger handle lookups and serves the legacy
// host-meta discovery document.
package discovery

import (
	"errors"
	"fmt"
	"strings"

	"github.com/solopub/solopub/internal/ap"
	"github.com/solopub/solopub/internal/config"
)

var (
	ErrInvalidResource = errors.New("invalid resource")
	ErrUnknownAccount  = errors.New("unknown account")
)

type Resolver struct {
	cfg config.Config
}

func NewResolver(cfg config.Config) *Resolver {
	return &Resolver{cfg: cfg}
}

// ResolveHandle maps an acct:user@domain resource to a JRD pointing at the
// actor document. Any domain from the configured alias list is accepted;
// the subject is always canonicalized onto the primary domain.
func (r *Resolver) ResolveHandle(resource string) (ap.JRD, error) {
	handle, ok := strings.CutPrefix(resource, "acct:")
	if !ok {
		return ap.JRD{}, ErrInvalidResource
	}
	user, domain, ok := strings.Cut(handle, "@")
	if !ok || user == "" || domain == "" {
		return ap.JRD{}, ErrInvalidResource
	}

	if user != r.cfg.Username || !r.knownDomain(domain) {
		return ap.JRD{}, ErrUnknownAccount
	}

	return ap.JRD{
		Subject: fmt.Sprintf("acct:%s@%s", r.cfg.Username, r.cfg.Domain),
		Links: []ap.Link{
			{
				Rel:  "self",
				Type: ap.ContentType,
				Href: r.cfg.ActorURL(),
			},
			{
				Rel:  "http://webfinger.net/rel/profile-page",
				Type: "text/html",
				Href: r.cfg.BaseURL,
			},
		},
	}, nil
}

// HostMeta returns the static XRD document pointing legacy clients at the
// WebFinger query template.
func (r *Resolver) HostMeta() string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<XRD xmlns="http://docs.oasis-open.org/ns/xri/xrd-1.0">
  <Link rel="lrdd" template="%s/.well-known/webfinger?resource={uri}"/>
</XRD>
`, r.cfg.BaseURL)
}

func (r *Resolver) knownDomain(domain string) bool {
	for _, d := range r.cfg.Domains() {
		if domain == d {
			return true
		}
	}
	return false
}
