package redis

import (
	"authbot/internal/types"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyNameTemplate = "%s%s:%s" // prefix, namespace, key

	DefaultOpTimeout = 2 * time.Second
)

// Store implements ports.KVStore with one plain string key per entry and
// native key expiry (SET ... EX).
type Store struct {
	cli       *redis.Client
	prefix    string
	opTimeout time.Duration
}

// NewStore wraps an existing client. prefix is prepended to every key and may be empty.
// Each call is bounded by opTimeout; zero means DefaultOpTimeout.
func NewStore(cli *redis.Client, prefix string, opTimeout time.Duration) *Store {
	if opTimeout <= 0 {
		opTimeout = DefaultOpTimeout
	}
	return &Store{cli: cli, prefix: prefix, opTimeout: opTimeout}
}

// Set writes value with the given ttl. A non-positive ttl stores without expiry.
func (s *Store) Set(ctx context.Context, ns types.Namespace, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	if ttl < 0 {
		ttl = 0
	}
	k := s.keyName(ns, key)
	out := s.cli.Set(ctx, k, value, ttl)
	if out.Err() != nil {
		return types.Err(types.ErrCacheUnavailable, out.Err(), "redis set %s", k)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, ns types.Namespace, key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	k := s.keyName(ns, key)
	val, err := s.cli.Get(ctx, k).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, types.Err(types.ErrCacheUnavailable, err, "redis get %s", k)
	}
	return val, true, nil
}

func (s *Store) Delete(ctx context.Context, ns types.Namespace, key string) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	k := s.keyName(ns, key)
	if err := s.cli.Del(ctx, k).Err(); err != nil {
		return types.Err(types.ErrCacheUnavailable, err, "redis del %s", k)
	}
	return nil
}

func (s *Store) Close() error {
	return s.cli.Close()
}

func (s *Store) keyName(ns types.Namespace, key string) string {
	return fmt.Sprintf(keyNameTemplate, s.prefix, ns, key)
}
