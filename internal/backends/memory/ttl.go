package memory

import (
	"sync"
	"time"
)

// TTL is a minimal in-process TTL map with lazy expiration on Get.
// The clock is injectable so expiry can be tested without sleeping.
type TTL[K comparable, V any] struct {
	mu   sync.RWMutex
	data map[K]entry[V]
	now  func() time.Time
}

type entry[V any] struct {
	val V
	exp time.Time // zero means no expiry
}

func NewTTL[K comparable, V any](now func() time.Time) *TTL[K, V] {
	if now == nil {
		now = time.Now
	}
	return &TTL[K, V]{data: make(map[K]entry[V]), now: now}
}

// Get returns the value and true if found and not expired; otherwise zero value and false.
// Expired entries are dropped on the way out.
func (t *TTL[K, V]) Get(k K) (V, bool) {
	t.mu.RLock()
	e, ok := t.data[k]
	t.mu.RUnlock()
	if ok && (e.exp.IsZero() || t.now().Before(e.exp)) {
		return e.val, true
	}
	if ok {
		t.mu.Lock()
		if cur, still := t.data[k]; still && cur.exp.Equal(e.exp) {
			delete(t.data, k)
		}
		t.mu.Unlock()
	}
	var zero V
	return zero, false
}

// Set stores v for ttl. A non-positive ttl keeps the entry until deleted.
func (t *TTL[K, V]) Set(k K, v V, ttl time.Duration) {
	var exp time.Time
	if ttl > 0 {
		exp = t.now().Add(ttl)
	}
	t.mu.Lock()
	t.data[k] = entry[V]{val: v, exp: exp}
	t.mu.Unlock()
}

func (t *TTL[K, V]) Delete(k K) {
	t.mu.Lock()
	delete(t.data, k)
	t.mu.Unlock()
}

// Len counts stored entries, expired or not.
func (t *TTL[K, V]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.data)
}
