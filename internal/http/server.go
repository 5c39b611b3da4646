package httpapp

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/solopub/solopub/internal/actor"
	"github.com/solopub/solopub/internal/ap"
	"github.com/solopub/solopub/internal/config"
	"github.com/solopub/solopub/internal/discovery"
	"github.com/solopub/solopub/internal/inbox"
	"github.com/solopub/solopub/internal/outbox"
	"github.com/solopub/solopub/internal/rate"
	"github.com/solopub/solopub/internal/store"
)

// Cache lifetimes in seconds. Identity documents barely change; feeds do.
const (
	cacheIdentity   = 3600
	cacheFeed       = 60
	cacheMembership = 300
)

const maxInboxBody = 1 << 20

type Server struct {
	cfg       config.Config
	resolver  *discovery.Resolver
	directory *actor.Directory
	publisher *outbox.Publisher
	processor *inbox.Processor
	limiter   rate.Limiter
	log       *slog.Logger
}

func NewServer(
	cfg config.Config,
	resolver *discovery.Resolver,
	directory *actor.Directory,
	publisher *outbox.Publisher,
	processor *inbox.Processor,
	limiter rate.Limiter,
	log *slog.Logger,
) *Server {
	return &Server{
		cfg:       cfg,
		resolver:  resolver,
		directory: directory,
		publisher: publisher,
		processor: processor,
		limiter:   limiter,
		log:       log,
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if path == "/.well-known/webfinger" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		s.handleWebFinger(w, r)
		return
	}
	if path == "/.well-known/host-meta" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		s.handleHostMeta(w, r)
		return
	}
	if path == "/activitypub/inbox" {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		s.handleInbox(w, r)
		return
	}
	if strings.HasPrefix(path, "/activitypub/posts/") {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		s.handlePost(w, r)
		return
	}

	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	switch path {
	case "/activitypub/actor":
		s.handleActor(w, r)
	case "/activitypub/outbox":
		s.handleOutbox(w, r)
	case "/activitypub/followers":
		s.writeActivity(w, http.StatusOK, s.publisher.Followers(), cacheMembership)
	case "/activitypub/following":
		s.writeActivity(w, http.StatusOK, s.publisher.Following(), cacheMembership)
	case "/activitypub/featured":
		s.handleFeatured(w, r)
	default:
		notFound(w)
	}
}

func (s *Server) handleWebFinger(w http.ResponseWriter, r *http.Request) {
	resource := r.URL.Query().Get("resource")
	if resource == "" {
		writeError(w, http.StatusBadRequest, errors.New("resource query parameter required"))
		return
	}

	jrd, err := s.resolver.ResolveHandle(resource)
	if err != nil {
		switch {
		case errors.Is(err, discovery.ErrInvalidResource):
			writeError(w, http.StatusBadRequest, err)
		case errors.Is(err, discovery.ErrUnknownAccount):
			writeError(w, http.StatusNotFound, err)
		default:
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	w.Header().Set("Content-Type", ap.JRDContentType)
	cacheControl(w, cacheIdentity)
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(jrd)
}

func (s *Server) handleHostMeta(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", ap.XRDContentType)
	cacheControl(w, cacheIdentity)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, s.resolver.HostMeta())
}

func (s *Server) handleActor(w http.ResponseWriter, r *http.Request) {
	doc, err := s.directory.ActorDocument(r.Context())
	if err != nil {
		// Never a 404: a missing key means the deployment is broken.
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeActivity(w, http.StatusOK, doc, cacheIdentity)
}

func (s *Server) handleOutbox(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("page") == "true" {
		page, err := s.publisher.Page(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		s.writeActivity(w, http.StatusOK, page, cacheFeed)
		return
	}

	coll, err := s.publisher.Collection(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeActivity(w, http.StatusOK, coll, cacheFeed)
}

func (s *Server) handleFeatured(w http.ResponseWriter, r *http.Request) {
	coll, err := s.publisher.Featured(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeActivity(w, http.StatusOK, coll, cacheFeed)
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/activitypub/posts/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid post id"))
		return
	}

	note, err := s.publisher.Note(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			notFound(w)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeActivity(w, http.StatusOK, note, cacheFeed)
}

func (s *Server) handleInbox(w http.ResponseWriter, r *http.Request) {
	if ok, retry := s.limiter.Allow("inbox:" + s.clientIP(r)); !ok {
		writeRateLimit(w, retry)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxInboxBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("unreadable body"))
		return
	}

	status, err := s.processor.Process(r.Context(), body)
	if err != nil {
		writeError(w, status, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, status, map[string]any{"ok": true})
}

func (s *Server) writeActivity(w http.ResponseWriter, status int, payload any, maxAge int) {
	w.Header().Set("Content-Type", ap.ContentType)
	cacheControl(w, maxAge)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func cacheControl(w http.ResponseWriter, maxAge int) {
	w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(maxAge))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeRateLimit(w http.ResponseWriter, retry time.Duration) {
	w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())))
	writeJSON(w, http.StatusTooManyRequests, map[string]any{
		"error":       "rate limit exceeded",
		"retry_after": int(retry.Seconds()),
	})
}

func notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, errors.New("not found"))
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}
