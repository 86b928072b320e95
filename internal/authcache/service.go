package authcache

import (
	"authbot/internal/metrics"
	"authbot/internal/ports"
	"authbot/internal/types"
	"context"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

// Service maps phone numbers and auth links onto the TTL store.
// It is the boundary where store failures stop: every backend error is logged,
// counted and turned into "not cached".
type Service struct {
	store       ports.KVStore
	phoneTTL    time.Duration
	authLinkTTL time.Duration
	now         func() time.Time
}

type Option func(*Service)

// WithClock sets the clock used to turn an absolute expires_at into a storage TTL.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(store ports.KVStore, phoneTTL, authLinkTTL time.Duration, opts ...Option) *Service {
	s := &Service{
		store:       store,
		phoneTTL:    phoneTTL,
		authLinkTTL: authLinkTTL,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AuthLinkTTL is the lifetime of a freshly issued link.
func (s *Service) AuthLinkTTL() time.Duration {
	return s.authLinkTTL
}

func (s *Service) SetPhone(ctx context.Context, userID int64, phone string) {
	err := s.store.Set(ctx, types.NamespacePhone, userKey(userID), []byte(phone), s.phoneTTL)
	if err != nil {
		s.failed(err, types.NamespacePhone, "set", userID)
		return
	}
	metrics.CacheOp(string(types.NamespacePhone), "set", metrics.ResultOK)
	log.WithField("userID", userID).Info("Phone number cached")
}

func (s *Service) GetPhone(ctx context.Context, userID int64) (string, bool) {
	val, found, err := s.store.Get(ctx, types.NamespacePhone, userKey(userID))
	if err != nil {
		s.failed(err, types.NamespacePhone, "get", userID)
		return "", false
	}
	if !found || len(val) == 0 {
		metrics.CacheOp(string(types.NamespacePhone), "get", metrics.ResultMiss)
		return "", false
	}
	metrics.CacheOp(string(types.NamespacePhone), "get", metrics.ResultHit)
	log.WithField("userID", userID).Debug("Phone number found in cache")
	return string(val), true
}

func (s *Service) DeletePhone(ctx context.Context, userID int64) {
	if err := s.store.Delete(ctx, types.NamespacePhone, userKey(userID)); err != nil {
		s.failed(err, types.NamespacePhone, "delete", userID)
		return
	}
	metrics.CacheOp(string(types.NamespacePhone), "delete", metrics.ResultOK)
	log.WithField("userID", userID).Info("Phone number removed from cache")
}

// SetAuthLink stores {link, expires_at}. The record is evicted at expiresAt,
// whenever the write happens, and never kept longer than the auth-link TTL.
func (s *Service) SetAuthLink(ctx context.Context, userID int64, link string, expiresAt int64) {
	b, err := json.Marshal(types.AuthLink{Link: link, ExpiresAt: expiresAt})
	if err != nil {
		s.failed(err, types.NamespaceAuthLink, "set", userID)
		return
	}
	ttl := s.linkStorageTTL(expiresAt)
	if err := s.store.Set(ctx, types.NamespaceAuthLink, userKey(userID), b, ttl); err != nil {
		s.failed(err, types.NamespaceAuthLink, "set", userID)
		return
	}
	metrics.CacheOp(string(types.NamespaceAuthLink), "set", metrics.ResultOK)
	log.WithFields(log.Fields{
		"userID":    userID,
		"expiresAt": expiresAt,
	}).Info("Auth link cached")
}

// GetAuthLink returns the stored record as is. Whether it is still valid is
// up to the caller, see types.AuthLink.ValidAt.
func (s *Service) GetAuthLink(ctx context.Context, userID int64) (types.AuthLink, bool) {
	val, found, err := s.store.Get(ctx, types.NamespaceAuthLink, userKey(userID))
	if err != nil {
		s.failed(err, types.NamespaceAuthLink, "get", userID)
		return types.AuthLink{}, false
	}
	if !found {
		metrics.CacheOp(string(types.NamespaceAuthLink), "get", metrics.ResultMiss)
		return types.AuthLink{}, false
	}
	var al types.AuthLink
	if err := json.Unmarshal(val, &al); err != nil || al.Link == "" {
		log.WithError(err).WithField("userID", userID).Warn("Discarding undecodable auth link record")
		metrics.CacheOp(string(types.NamespaceAuthLink), "get", metrics.ResultMiss)
		return types.AuthLink{}, false
	}
	metrics.CacheOp(string(types.NamespaceAuthLink), "get", metrics.ResultHit)
	return al, true
}

func (s *Service) failed(err error, ns types.Namespace, op string, userID int64) {
	metrics.CacheOp(string(ns), op, metrics.ResultError)
	log.WithError(err).WithFields(log.Fields{
		"userID":    userID,
		"namespace": ns,
		"op":        op,
	}).Error("Cache operation failed, treating as not cached")
}

// linkStorageTTL is the time left until expiresAt, capped at the auth-link TTL.
// The floor of one second keeps a non-positive TTL from meaning "no expiry".
func (s *Service) linkStorageTTL(expiresAt int64) time.Duration {
	ttl := time.Unix(expiresAt, 0).Sub(s.now())
	if ttl > s.authLinkTTL {
		ttl = s.authLinkTTL
	}
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}

func userKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
