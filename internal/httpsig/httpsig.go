// Package httpsig builds draft-cavage HTTP signature headers for outbound
// activity deliveries. The signed-header order is part of the wire
// contract: verifiers rebuild the exact canonical string from it.
package httpsig

import (
	"crypto"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/solopub/solopub/internal/ap"
)

const Algorithm = "rsa-sha256"

// Headers is the set of HTTP headers to attach to a signed POST.
type Headers struct {
	Host        string
	Date        string
	ContentType string
	Digest      string
	Signature   string
}

type Signer struct {
	now func() time.Time
}

func New() *Signer {
	return &Signer{now: time.Now}
}

// Sign produces the signed header set for delivering body to targetURL.
// The canonical string covers, in order: (request-target), host, date,
// digest. key must implement RSASSA-PKCS1-v1_5/SHA-256.
func (s *Signer) Sign(targetURL string, body []byte, key crypto.Signer, keyID string) (Headers, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return Headers{}, fmt.Errorf("parse target: %w", err)
	}
	if u.Host == "" {
		return Headers{}, fmt.Errorf("target %q has no host", targetURL)
	}

	h := Headers{
		Host:        u.Host,
		Date:        s.now().UTC().Format(http.TimeFormat),
		ContentType: ap.ContentType,
		Digest:      digest(body),
	}

	signing := canonicalString(requestPath(u), h)
	hashed := sha256.Sum256([]byte(signing))
	sig, err := key.Sign(rand.Reader, hashed[:], crypto.SHA256)
	if err != nil {
		return Headers{}, fmt.Errorf("sign request: %w", err)
	}

	h.Signature = fmt.Sprintf(
		`keyId="%s",algorithm="%s",headers="(request-target) host date digest",signature="%s"`,
		keyID, Algorithm, base64.StdEncoding.EncodeToString(sig),
	)
	return h, nil
}

func digest(body []byte) string {
	sum := sha256.Sum256(body)
	return "SHA-256=" + base64.StdEncoding.EncodeToString(sum[:])
}

func canonicalString(path string, h Headers) string {
	lines := []string{
		"(request-target): post " + path,
		"host: " + h.Host,
		"date: " + h.Date,
		"digest: " + h.Digest,
	}
	return strings.Join(lines, "\n")
}

func requestPath(u *url.URL) string {
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return path
}
