package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultmail/backend/internal/storage/storetest"
)

func TestAdminService_Stats(t *testing.T) {
	ctx := context.Background()

	t.Run("空存储", func(t *testing.T) {
		clock := newFakeClock()
		stats, err := NewAdminService(newMemoryStore(clock)).Stats(ctx)
		require.NoError(t, err)
		assert.Zero(t, stats.InboxCount)
		assert.Zero(t, stats.MessageCount)
		assert.Nil(t, stats.LatestReceivedAt)
	})

	t.Run("统计未过期邮件", func(t *testing.T) {
		clock := newFakeClock()
		store := newMemoryStore(clock)
		latest := clock.Now().Add(-time.Minute)
		require.NoError(t, store.SaveEmail(ctx, storetest.NewEmail("a@vault.test", clock.Now().Add(-time.Hour), 2*time.Hour)))
		require.NoError(t, store.SaveEmail(ctx, storetest.NewEmail("a@vault.test", latest, 2*time.Hour)))
		require.NoError(t, store.SaveEmail(ctx, storetest.NewEmail("b@vault.test", clock.Now().Add(-30*time.Minute), 2*time.Hour)))
		require.NoError(t, store.SaveEmail(ctx, storetest.NewEmail("c@vault.test", clock.Now().Add(-3*time.Hour), time.Hour)))

		stats, err := NewAdminService(store).Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), stats.InboxCount)
		assert.Equal(t, int64(3), stats.MessageCount)
		require.NotNil(t, stats.LatestReceivedAt)
		assert.Equal(t, "2026-03-01T11:59:00.000Z", *stats.LatestReceivedAt)
	})

	t.Run("存储故障", func(t *testing.T) {
		_, err := NewAdminService(failingStore{}).Stats(ctx)
		assert.ErrorIs(t, err, errStoreDown)
	})
}
