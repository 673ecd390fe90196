package core

import (
	"context"
	"time"
)

// SessionStore keeps revoked token ids until the tokens expire.
type SessionStore interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
