package types

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrCacheUnavailable marks a failed or unreachable TTL store. It never
	// crosses the authcache boundary.
	ErrCacheUnavailable = errors.New("cache unavailable")

	// ErrAuth is the single failure kind of the remote account service:
	// transport, timeout, bad status and malformed bodies all map to it.
	ErrAuth = errors.New("could not obtain authorization link")

	ErrInvalidBackend = errors.New("invalid backend")
	ErrInvalidConfig  = errors.New("invalid config")
)

func Err(typedError error, innerErr error, msgTemplate string, args ...any) error {
	if msgTemplate == "" {
		return errors.Join(typedError, innerErr)
	} else {
		return errors.Join(typedError, innerErr, fmt.Errorf(msgTemplate, args...))
	}
}
