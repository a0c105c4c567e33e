package admintools

import (
	"bytes"
	"context"
	"testing"
	"time"

	"git.carhub.se/carhub/carhub/src/auth"
	"git.carhub.se/carhub/carhub/src/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Hides the Count method of the wrapped store.
type uncountableStore struct {
	auth.SessionStore
}

func TestSessionCommands(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	store := auth.NewMemoryStore(7 * 24 * time.Hour)
	store.SetClock(func() time.Time { return now })

	_, err := store.Create(ctx)
	require.NoError(t, err)
	sess, err := store.Create(ctx)
	require.NoError(t, err)
	_, err = store.SetUser(ctx, sess.ID, &models.SessionUser{Username: "admin", IsAdmin: true})
	require.NoError(t, err)

	t.Run("count", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, countSessions(ctx, store, &out))
		assert.Contains(t, out.String(), "Anonymous sessions:     1")
		assert.Contains(t, out.String(), "Authenticated sessions: 1")
		assert.Contains(t, out.String(), "Total:                  2")
	})

	t.Run("count unsupported", func(t *testing.T) {
		var out bytes.Buffer
		err := countSessions(ctx, uncountableStore{store}, &out)
		assert.Error(t, err)
		assert.Empty(t, out.String())
	})

	t.Run("purge", func(t *testing.T) {
		_, err := store.Create(ctx)
		require.NoError(t, err)

		now = now.Add(8 * 24 * time.Hour)

		var out bytes.Buffer
		require.NoError(t, purgeSessions(ctx, store, &out))
		assert.Equal(t, "Deleted 3 expired sessions\n", out.String())
		assert.Equal(t, 0, store.Len())
	})
}
