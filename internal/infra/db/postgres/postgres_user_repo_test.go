//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-affiliate-bot/internal/domain"
	"telegram-affiliate-bot/internal/domain/model"
)

func TestUserRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgresUserRepo(testPool)

	t.Run("upsert keeps first seen and refreshes profile", func(t *testing.T) {
		cleanup(t)
		first := time.Now().Add(-48 * time.Hour).UTC().Truncate(time.Second)
		u := &model.User{TelegramID: 42, Username: "alice", FirstName: "Alice", FirstSeenAt: first, LastSeenAt: first}
		require.NoError(t, repo.Upsert(ctx, nil, u))

		later := time.Now().UTC().Truncate(time.Second)
		u2 := &model.User{TelegramID: 42, Username: "alice_sg", FirstName: "Alice", FirstSeenAt: later, LastSeenAt: later}
		require.NoError(t, repo.Upsert(ctx, nil, u2))

		got, err := repo.FindByTelegramID(ctx, nil, 42)
		require.NoError(t, err)
		assert.Equal(t, "alice_sg", got.Username)
		assert.True(t, got.FirstSeenAt.Equal(first), "first_seen_at changed to %s", got.FirstSeenAt)
		assert.True(t, got.LastSeenAt.Equal(later))
	})

	t.Run("count seen since", func(t *testing.T) {
		cleanup(t)
		old := time.Now().Add(-30 * 24 * time.Hour)
		require.NoError(t, repo.Upsert(ctx, nil, &model.User{TelegramID: 1, FirstSeenAt: old, LastSeenAt: old}))
		require.NoError(t, repo.Upsert(ctx, nil, &model.User{TelegramID: 2}))
		require.NoError(t, repo.Upsert(ctx, nil, &model.User{TelegramID: 3}))

		n, err := repo.CountSeenSince(ctx, nil, time.Now().Add(-7*24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("unknown user", func(t *testing.T) {
		cleanup(t)
		_, err := repo.FindByTelegramID(ctx, nil, 999)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
