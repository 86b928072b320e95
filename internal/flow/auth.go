package flow

import (
	"authbot/internal/metrics"
	"authbot/internal/ports"
	"authbot/internal/types"
	"context"
	"strings"
	"time"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

// Outcome is what the chat front-end needs to render one auth interaction.
// Err is for logs only and is never shown to the user.
type Outcome struct {
	Action    Action
	Link      string
	ExpiresAt int64
	// Now is the instant the decision was taken, unix seconds.
	Now int64
	Err error
}

// ExpiresIn is the remaining validity of the returned link at decision time.
func (o Outcome) ExpiresIn() time.Duration {
	if o.ExpiresAt <= o.Now {
		return 0
	}
	return time.Duration(o.ExpiresAt-o.Now) * time.Second
}

// Orchestrator decides, per user request, between reusing a cached link,
// issuing one with a cached phone, and asking for a phone. It keeps no state
// of its own beyond what the cache holds.
type Orchestrator struct {
	cache     ports.AuthCache
	client    ports.AuthClient
	linkTTL   time.Duration
	now       func() time.Time
	publisher ports.Publisher
	topicArn  string
}

type Option func(*Orchestrator)

// WithClock replaces the package clock (see SetTimNowFn) for this orchestrator.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// WithPublisher announces every newly issued link on topicArn.
func WithPublisher(p ports.Publisher, topicArn string) Option {
	return func(o *Orchestrator) {
		o.publisher = p
		o.topicArn = topicArn
	}
}

func NewOrchestrator(cache ports.AuthCache, client ports.AuthClient, linkTTL time.Duration, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cache:   cache,
		client:  client,
		linkTTL: linkTTL,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start handles an auth request. A valid cached link always wins, so repeated
// requests inside the validity window never reach the remote service.
func (o *Orchestrator) Start(ctx context.Context, user types.User) Outcome {
	now := o.clock().Unix()
	logger := log.WithField("userID", user.ID)

	if al, ok := o.cache.GetAuthLink(ctx, user.ID); ok {
		if al.ValidAt(now) {
			logger.WithField("expiresAt", al.ExpiresAt).Info("Returning cached auth link")
			return o.finish(Outcome{Action: ReturnCachedLink, Link: al.Link, ExpiresAt: al.ExpiresAt, Now: now})
		}
		logger.Debug("Cached auth link expired")
	}

	if phone, ok := o.cache.GetPhone(ctx, user.ID); ok {
		return o.issue(ctx, user, phone, now)
	}

	logger.Info("No cached phone, requesting contact")
	return o.finish(Outcome{Action: RequestPhone, Now: now})
}

// SubmitPhone handles a phone shared by the user: it is cached first, then a
// link is issued with it. A blank phone asks again.
func (o *Orchestrator) SubmitPhone(ctx context.Context, user types.User, phone string) Outcome {
	now := o.clock().Unix()
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return o.finish(Outcome{Action: RequestPhone, Now: now})
	}
	o.cache.SetPhone(ctx, user.ID, phone)
	return o.issue(ctx, user, phone, now)
}

// ForgetPhone drops the cached phone so the next request asks for it again.
func (o *Orchestrator) ForgetPhone(ctx context.Context, user types.User) {
	o.cache.DeletePhone(ctx, user.ID)
}

// issue calls the remote service once. On success the link is cached before
// the outcome is returned; on failure the cache is left as it was.
func (o *Orchestrator) issue(ctx context.Context, user types.User, phone string, now int64) Outcome {
	link, err := o.client.IssueAuthLink(ctx, user.ID, user.Username, phone)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"userID": user.ID,
			"op":     "issue_auth_link",
		}).Error("Auth link generation failed")
		return o.finish(Outcome{Action: ReportError, Now: now, Err: err})
	}

	expiresAt := now + int64(o.linkTTL/time.Second)
	o.cache.SetAuthLink(ctx, user.ID, link, expiresAt)
	o.announce(ctx, user.ID, expiresAt)

	return o.finish(Outcome{Action: ReturnNewLink, Link: link, ExpiresAt: expiresAt, Now: now})
}

// announce is best effort; a failed publish does not affect the outcome.
func (o *Orchestrator) announce(ctx context.Context, userID, expiresAt int64) {
	if o.publisher == nil || o.topicArn == "" {
		return
	}
	b, err := json.Marshal(types.AuthEvent{
		Event:     types.AuthEventLinkIssued,
		UserID:    userID,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		log.WithError(err).Warn("failed to encode auth event")
		return
	}
	if err := o.publisher.PublishRaw(ctx, o.topicArn, b); err != nil {
		log.WithError(err).WithField("userID", userID).Warn("failed to publish auth event")
	}
}

func (o *Orchestrator) clock() time.Time {
	if o.now != nil {
		return o.now()
	}
	return timeNow()
}

func (o *Orchestrator) finish(out Outcome) Outcome {
	metrics.Outcome(out.Action.String())
	return out
}
