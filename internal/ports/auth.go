package ports

import (
	"authbot/internal/types"
	"context"
)

// AuthCache is the typed view of the store used by the orchestrator.
// None of its methods fail: backend errors surface as "not cached".
type AuthCache interface {
	SetPhone(ctx context.Context, userID int64, phone string)
	GetPhone(ctx context.Context, userID int64) (string, bool)
	DeletePhone(ctx context.Context, userID int64)
	SetAuthLink(ctx context.Context, userID int64, link string, expiresAt int64)
	GetAuthLink(ctx context.Context, userID int64) (types.AuthLink, bool)
}

// AuthClient exchanges a chat identity and phone number for an authorization link.
// Every failure MUST wrap types.ErrAuth.
type AuthClient interface {
	IssueAuthLink(ctx context.Context, userID int64, username *string, phone string) (string, error)
}
