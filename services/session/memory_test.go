package sessionsvc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_memoryStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	store := &memoryStore{revoked: make(map[string]time.Time), now: func() time.Time { return now }}

	require.NoError(t, store.Revoke(ctx, "live", now.Add(time.Hour)))
	require.NoError(t, store.Revoke(ctx, "expired", now.Add(-time.Minute)))
	require.NoError(t, store.Revoke(ctx, "live", now.Add(time.Hour))) // idempotent

	revoked, err := store.IsRevoked(ctx, "live")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = store.IsRevoked(ctx, "expired")
	require.NoError(t, err)
	assert.False(t, revoked, "expired tokens are not tracked")

	revoked, err = store.IsRevoked(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, revoked)

	// the revocation lapses with the token
	now = now.Add(2 * time.Hour)
	revoked, err = store.IsRevoked(ctx, "live")
	require.NoError(t, err)
	assert.False(t, revoked)
}
