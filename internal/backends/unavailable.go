package backends

import (
	"authbot/internal/types"
	"context"
	"time"
)

// Unavailable is the store used when no backend could be set up.
// Every call fails with types.ErrCacheUnavailable.
type Unavailable struct {
	cause error
}

func NewUnavailable(cause error) *Unavailable {
	return &Unavailable{cause: cause}
}

func (u *Unavailable) Set(context.Context, types.Namespace, string, []byte, time.Duration) error {
	return types.Err(types.ErrCacheUnavailable, u.cause, "")
}

func (u *Unavailable) Get(context.Context, types.Namespace, string) ([]byte, bool, error) {
	return nil, false, types.Err(types.ErrCacheUnavailable, u.cause, "")
}

func (u *Unavailable) Delete(context.Context, types.Namespace, string) error {
	return types.Err(types.ErrCacheUnavailable, u.cause, "")
}

func (u *Unavailable) Close() error { return nil }
