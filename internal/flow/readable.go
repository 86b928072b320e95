package flow

import "fmt"

// ReadableExpiry renders the time left until expiresAt, e.g. "9 min 5 sec".
// Minutes are omitted under one minute; an expired link reads "0 sec".
func ReadableExpiry(expiresAt, now int64) string {
	remaining := expiresAt - now
	if remaining < 0 {
		remaining = 0
	}
	minutes := remaining / 60
	seconds := remaining % 60
	if minutes > 0 {
		return fmt.Sprintf("%d min %d sec", minutes, seconds)
	}
	return fmt.Sprintf("%d sec", seconds)
}
