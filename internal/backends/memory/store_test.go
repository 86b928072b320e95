package memory

import (
	"authbot/internal/types"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type MemoryStoreTestSuite struct {
	suite.Suite

	clock *fakeClock
	store *Store
}

func TestMemoryStoreTestSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreTestSuite))
}

func (s *MemoryStoreTestSuite) SetupTest() {
	s.clock = &fakeClock{t: time.Unix(1_700_000_000, 0)}
	s.store = NewStore(s.clock.Now)
}

func (s *MemoryStoreTestSuite) TestSetGetExpire() {
	ctx := context.Background()
	s.NoError(s.store.Set(ctx, types.NamespacePhone, "1", []byte("+10000000000"), time.Minute))

	v, ok, err := s.store.Get(ctx, types.NamespacePhone, "1")
	s.NoError(err)
	s.True(ok)
	s.Equal("+10000000000", string(v))

	s.clock.Advance(59 * time.Second)
	_, ok, _ = s.store.Get(ctx, types.NamespacePhone, "1")
	s.True(ok)

	s.clock.Advance(time.Second)
	v, ok, err = s.store.Get(ctx, types.NamespacePhone, "1")
	s.NoError(err)
	s.False(ok)
	s.Nil(v)
	s.Equal(0, s.store.ttl.Len())
}

func (s *MemoryStoreTestSuite) TestNamespacesAreIndependent() {
	ctx := context.Background()
	s.NoError(s.store.Set(ctx, types.NamespacePhone, "7", []byte("phone"), time.Minute))
	s.NoError(s.store.Set(ctx, types.NamespaceAuthLink, "7", []byte("link"), time.Minute))

	s.NoError(s.store.Delete(ctx, types.NamespacePhone, "7"))

	_, ok, _ := s.store.Get(ctx, types.NamespacePhone, "7")
	s.False(ok)
	v, ok, _ := s.store.Get(ctx, types.NamespaceAuthLink, "7")
	s.True(ok)
	s.Equal("link", string(v))
}

func (s *MemoryStoreTestSuite) TestOverwriteResetsTTL() {
	ctx := context.Background()
	s.NoError(s.store.Set(ctx, types.NamespacePhone, "1", []byte("a"), time.Minute))
	s.clock.Advance(50 * time.Second)
	s.NoError(s.store.Set(ctx, types.NamespacePhone, "1", []byte("b"), time.Minute))
	s.clock.Advance(50 * time.Second)

	v, ok, _ := s.store.Get(ctx, types.NamespacePhone, "1")
	s.True(ok)
	s.Equal("b", string(v))
}

func (s *MemoryStoreTestSuite) TestValuesAreCopied() {
	ctx := context.Background()
	buf := []byte("abc")
	s.NoError(s.store.Set(ctx, types.NamespacePhone, "1", buf, 0))
	buf[0] = 'x'

	v, _, _ := s.store.Get(ctx, types.NamespacePhone, "1")
	s.Equal("abc", string(v))
}

func (s *MemoryStoreTestSuite) TestFailingAndClosed() {
	ctx := context.Background()
	s.store.SetFailing(true)
	_, ok, err := s.store.Get(ctx, types.NamespacePhone, "1")
	s.False(ok)
	s.True(errors.Is(err, types.ErrCacheUnavailable))
	s.True(errors.Is(s.store.Set(ctx, types.NamespacePhone, "1", nil, 0), types.ErrCacheUnavailable))

	s.store.SetFailing(false)
	s.NoError(s.store.Close())
	s.True(errors.Is(s.store.Delete(ctx, types.NamespacePhone, "1"), types.ErrCacheUnavailable))
}
