package memory

import (
	"authbot/internal/types"
	"context"
	"sync/atomic"
	"time"
)

type nsKey struct {
	ns  types.Namespace
	key string
}

// Store is an in-process ports.KVStore for local runs and tests.
// Values are copied on the way in and out.
type Store struct {
	ttl     *TTL[nsKey, []byte]
	closed  atomic.Bool
	failing atomic.Bool
}

func NewStore(now func() time.Time) *Store {
	return &Store{ttl: NewTTL[nsKey, []byte](now)}
}

// SetFailing makes every call return types.ErrCacheUnavailable, as an
// unreachable backend would.
func (s *Store) SetFailing(failing bool) {
	s.failing.Store(failing)
}

func (s *Store) Set(_ context.Context, ns types.Namespace, key string, value []byte, ttl time.Duration) error {
	if err := s.check(); err != nil {
		return err
	}
	s.ttl.Set(nsKey{ns, key}, append([]byte(nil), value...), ttl)
	return nil
}

func (s *Store) Get(_ context.Context, ns types.Namespace, key string) ([]byte, bool, error) {
	if err := s.check(); err != nil {
		return nil, false, err
	}
	v, ok := s.ttl.Get(nsKey{ns, key})
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *Store) Delete(_ context.Context, ns types.Namespace, key string) error {
	if err := s.check(); err != nil {
		return err
	}
	s.ttl.Delete(nsKey{ns, key})
	return nil
}

func (s *Store) Close() error {
	s.closed.Store(true)
	return nil
}

func (s *Store) check() error {
	if s.closed.Load() {
		return types.Err(types.ErrCacheUnavailable, nil, "memory store closed")
	}
	if s.failing.Load() {
		return types.Err(types.ErrCacheUnavailable, nil, "memory store failing")
	}
	return nil
}
