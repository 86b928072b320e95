package types

// Namespace is a logical partition of the TTL store, realized as a key prefix.
type Namespace string

const (
	NamespacePhone    Namespace = "phone"
	NamespaceAuthLink Namespace = "auth_link"
)

// User is what the chat front-end knows about the person behind an event.
// Username is nil when the chat account has none.
type User struct {
	ID       int64   `json:"user_id"`
	Username *string `json:"username,omitempty"`
}

// AuthLink is the cached record of the most recently issued authorization link.
// ExpiresAt is unix seconds; the link is valid while now < ExpiresAt.
type AuthLink struct {
	Link      string `json:"link"`
	ExpiresAt int64  `json:"expires_at"`
}

// ValidAt reports whether the link is still usable at the unix time now.
func (a AuthLink) ValidAt(now int64) bool {
	return now < a.ExpiresAt
}

// LoginRequest is the body sent to the remote account service.
type LoginRequest struct {
	TelegramUserID   string  `json:"telegram_user_id"`
	TelegramUsername *string `json:"telegram_username"`
	Phone            string  `json:"phone"`
}

// AuthEvent is published after a new link has been cached. It never carries
// the link or the phone number.
type AuthEvent struct {
	Event     string `json:"event"`
	UserID    int64  `json:"user_id"`
	ExpiresAt int64  `json:"expires_at"`
}

const AuthEventLinkIssued = "auth_link_issued"
