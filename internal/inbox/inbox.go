// Package inbox processes inbound activities. Follow requests are
// acknowledged by resolving the sender's actor document and delivering a
// signed Accept back to their inbox; everything else is a no-op.
package inbox

import (
	"context"
	"crypto"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/solopub/solopub/internal/ap"
	"github.com/solopub/solopub/internal/config"
	"github.com/solopub/solopub/internal/httpsig"
	"github.com/solopub/solopub/internal/keys"
	"github.com/solopub/solopub/internal/store"
)

// Result is the outcome of one outbound delivery attempt. It is logged
// and then dropped: delivery never changes the response owed to the
// original inbound caller.
type Result struct {
	Delivered bool
	Err       error
}

type handler func(ctx context.Context, raw []byte, act ap.Activity) error

type Processor struct {
	cfg      config.Config
	keys     *keys.Manager
	signer   *httpsig.Signer
	client   *resty.Client
	log      *slog.Logger
	handlers map[string]handler
}

func NewProcessor(cfg config.Config, km *keys.Manager, signer *httpsig.Signer, log *slog.Logger) *Processor {
	p := &Processor{
		cfg:    cfg,
		keys:   km,
		signer: signer,
		client: resty.New().
			SetTimeout(cfg.DeliveryTimeout).
			SetHeader("User-Agent", "solopub"),
		log: log,
	}
	// Dispatch by activity type; anything not listed here is acknowledged
	// and dropped.
	p.handlers = map[string]handler{
		"Follow": p.handleFollow,
	}
	return p
}

// Process handles one inbound activity body and returns the HTTP status
// owed to the caller: 400 for unparseable input, 500 when the local
// signing key is missing, 202 for every other terminal state.
func (p *Processor) Process(ctx context.Context, body []byte) (int, error) {
	var act ap.Activity
	if err := json.Unmarshal(body, &act); err != nil {
		return http.StatusBadRequest, fmt.Errorf("malformed activity: %w", err)
	}

	h, ok := p.handlers[act.Type]
	if !ok {
		p.log.Info("ignoring activity", "type", act.Type)
		return http.StatusAccepted, nil
	}

	if err := h(ctx, body, act); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return http.StatusInternalServerError, errors.New("account signing key not provisioned")
		}
		return http.StatusInternalServerError, err
	}
	return http.StatusAccepted, nil
}

// remoteActor is the slice of a fetched actor document this processor
// cares about.
type remoteActor struct {
	ID    string `json:"id"`
	Inbox string `json:"inbox"`
}

func (p *Processor) handleFollow(ctx context.Context, raw []byte, act ap.Activity) error {
	if act.Actor == "" {
		p.log.Warn("follow without actor, ignoring", "id", act.ID)
		return nil
	}

	remote, err := p.fetchActor(ctx, act.Actor)
	if err != nil {
		// Best effort only: the follower never hears about this.
		p.log.Warn("resolve remote actor failed", "actor", act.Actor, "err", err)
		return nil
	}

	signKey, err := p.keys.SigningKey(ctx, p.cfg.Username)
	if err != nil {
		return err
	}

	accept := ap.Activity{
		Context: ap.ActivityContext,
		ID:      fmt.Sprintf("%s#accepts/%s", p.cfg.ActorURL(), uuid.NewString()),
		Type:    "Accept",
		Actor:   p.cfg.ActorURL(),
		Object:  json.RawMessage(raw),
	}
	payload, err := json.Marshal(accept)
	if err != nil {
		return err
	}

	res := p.deliver(ctx, remote.Inbox, payload, signKey)
	if res.Delivered {
		p.log.Info("accept delivered", "actor", act.Actor, "inbox", remote.Inbox)
	} else {
		p.log.Warn("accept delivery failed", "actor", act.Actor, "inbox", remote.Inbox, "err", res.Err)
	}
	return nil
}

func (p *Processor) fetchActor(ctx context.Context, actorURL string) (remoteActor, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Accept", ap.ContentType).
		Get(actorURL)
	if err != nil {
		return remoteActor{}, fmt.Errorf("fetch actor: %w", err)
	}
	if !resp.IsSuccess() {
		return remoteActor{}, fmt.Errorf("fetch actor: remote returned %s", resp.Status())
	}

	var remote remoteActor
	if err := json.Unmarshal(resp.Body(), &remote); err != nil {
		return remoteActor{}, fmt.Errorf("parse actor document: %w", err)
	}
	if remote.Inbox == "" {
		return remoteActor{}, errors.New("actor document has no inbox")
	}
	return remote, nil
}

// deliver signs payload for inboxURL and posts it. At most once, no
// retries.
func (p *Processor) deliver(ctx context.Context, inboxURL string, payload []byte, key crypto.Signer) Result {
	hdrs, err := p.signer.Sign(inboxURL, payload, key, p.cfg.KeyID())
	if err != nil {
		return Result{Err: err}
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", hdrs.ContentType).
		SetHeader("Date", hdrs.Date).
		SetHeader("Digest", hdrs.Digest).
		SetHeader("Signature", hdrs.Signature).
		SetBody(payload).
		Post(inboxURL)
	if err != nil {
		return Result{Err: fmt.Errorf("post accept: %w", err)}
	}
	if !resp.IsSuccess() {
		return Result{Err: fmt.Errorf("remote inbox returned %s", resp.Status())}
	}
	return Result{Delivered: true}
}
