package inbox

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/solopub/solopub/internal/config"
	"github.com/solopub/solopub/internal/httpsig"
	"github.com/solopub/solopub/internal/keys"
	"github.com/solopub/solopub/internal/store/sqlite"
)

func testConfig() config.Config {
	return config.Config{
		Username:        "admin",
		Domain:          "social.example",
		BaseURL:         "https://social.example",
		DeliveryTimeout: 5 * time.Second,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newProcessor(t *testing.T, dbName string, provision bool) *Processor {
	t.Helper()
	st, err := sqlite.Open("file:" + dbName + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	km := keys.NewManager(st)
	if provision {
		if err := km.GenerateAndStore(context.Background(), "admin"); err != nil {
			t.Fatalf("provision: %v", err)
		}
	}
	return NewProcessor(testConfig(), km, httpsig.New(), discardLogger())
}

func TestMalformedBodyIsRejected(t *testing.T) {
	p := newProcessor(t, "inbox_malformed_test", true)

	status, err := p.Process(context.Background(), []byte(`{"type":`))
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
	if err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestUnknownActivityTypeIsAcknowledged(t *testing.T) {
	var fetches atomic.Int64
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
	}))
	defer remote.Close()

	p := newProcessor(t, "inbox_like_test", true)

	body := `{"type":"Like","id":"` + remote.URL + `/likes/1","actor":"` + remote.URL + `/users/bob"}`
	status, err := p.Process(context.Background(), []byte(body))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if status != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", status)
	}
	if n := fetches.Load(); n != 0 {
		t.Fatalf("expected no outbound requests, saw %d", n)
	}
}

func TestFollowWithUnreachableActorStillAccepted(t *testing.T) {
	p := newProcessor(t, "inbox_unreachable_test", true)

	// Nothing listens here; the actor fetch fails fast.
	body := `{"type":"Follow","id":"https://remote.example/follows/1","actor":"http://127.0.0.1:1/users/bob","object":"https://social.example/activitypub/actor"}`
	status, err := p.Process(context.Background(), []byte(body))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if status != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", status)
	}
}

func TestFollowWithoutLocalKeyIsServerError(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/activity+json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":    "http://" + r.Host + "/users/bob",
			"inbox": "http://" + r.Host + "/users/bob/inbox",
		})
	}))
	defer remote.Close()

	p := newProcessor(t, "inbox_nokey_test", false)

	body := `{"type":"Follow","id":"https://remote.example/follows/2","actor":"` + remote.URL + `/users/bob","object":"https://social.example/activitypub/actor"}`
	status, err := p.Process(context.Background(), []byte(body))
	if status != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", status)
	}
	if err == nil {
		t.Fatal("expected a provisioning error")
	}
}

func TestFollowDeliversSignedAccept(t *testing.T) {
	type delivery struct {
		signature   string
		digest      string
		date        string
		contentType string
		body        []byte
	}
	got := make(chan delivery, 1)

	mux := http.NewServeMux()
	var remote *httptest.Server
	mux.HandleFunc("/users/bob", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/activity+json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":    remote.URL + "/users/bob",
			"inbox": remote.URL + "/users/bob/inbox",
		})
	})
	mux.HandleFunc("/users/bob/inbox", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got <- delivery{
			signature:   r.Header.Get("Signature"),
			digest:      r.Header.Get("Digest"),
			date:        r.Header.Get("Date"),
			contentType: r.Header.Get("Content-Type"),
			body:        body,
		}
		w.WriteHeader(http.StatusAccepted)
	})
	remote = httptest.NewServer(mux)
	defer remote.Close()

	p := newProcessor(t, "inbox_deliver_test", true)

	follow := `{"@context":"https://www.w3.org/ns/activitystreams","type":"Follow","id":"` +
		remote.URL + `/follows/3","actor":"` + remote.URL + `/users/bob","object":"https://social.example/activitypub/actor"}`
	status, err := p.Process(context.Background(), []byte(follow))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if status != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", status)
	}

	var d delivery
	select {
	case d = <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("no delivery arrived")
	}

	if d.contentType != "application/activity+json" {
		t.Fatalf("content type %q", d.contentType)
	}
	if d.date == "" || d.digest == "" {
		t.Fatal("missing date or digest header")
	}
	for _, want := range []string{
		`keyId="https://social.example/activitypub/actor#main-key"`,
		`algorithm="rsa-sha256"`,
		`headers="(request-target) host date digest"`,
	} {
		if !strings.Contains(d.signature, want) {
			t.Fatalf("signature header missing %s: %s", want, d.signature)
		}
	}

	var accept struct {
		ID     string          `json:"id"`
		Type   string          `json:"type"`
		Actor  string          `json:"actor"`
		Object json.RawMessage `json:"object"`
	}
	if err := json.Unmarshal(d.body, &accept); err != nil {
		t.Fatalf("parse accept: %v", err)
	}
	if accept.Type != "Accept" {
		t.Fatalf("expected Accept, got %q", accept.Type)
	}
	if accept.Actor != "https://social.example/activitypub/actor" {
		t.Fatalf("accept actor %q", accept.Actor)
	}
	if !strings.HasPrefix(accept.ID, "https://social.example/activitypub/actor#accepts/") {
		t.Fatalf("accept id %q", accept.ID)
	}

	// The original Follow travels inside the Accept verbatim.
	var echoed map[string]any
	if err := json.Unmarshal(accept.Object, &echoed); err != nil {
		t.Fatalf("parse embedded follow: %v", err)
	}
	if echoed["type"] != "Follow" || echoed["actor"] != remote.URL+"/users/bob" {
		t.Fatalf("embedded follow mismatch: %v", echoed)
	}
}
