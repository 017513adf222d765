package postgres

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultmail/backend/internal/domain"
	"vaultmail/backend/internal/storage"
	"vaultmail/backend/internal/storage/storetest"
)

func newSQLiteStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vaultmail.db")
	store, err := NewSQLiteStore(fmt.Sprintf("file:%s?_busy_timeout=5000", path), DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storage.Store {
		return newSQLiteStore(t)
	})
}

func TestSQLiteStore_ExpiredEmailsHidden(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	expired := storetest.NewEmail("a@vaultmail.test", time.Now().Add(-2*time.Hour), time.Hour)
	forever := storetest.NewEmail("a@vaultmail.test", time.Now().Add(-time.Minute), time.Hour)
	forever.ExpireAt = time.Time{}
	require.NoError(t, store.SaveEmail(ctx, expired))
	require.NoError(t, store.SaveEmail(ctx, forever))

	emails, err := store.ListEmailsByAddress(ctx, "a@vaultmail.test")
	require.NoError(t, err)
	require.Len(t, emails, 1)
	assert.Equal(t, forever.ID, emails[0].ID)

	stats, err := store.GetInboxStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.MessageCount)
	assert.Equal(t, int64(1), stats.InboxCount)

	removed, err := store.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

func TestSQLiteStore_SettingUpsertKeepsSingleRow(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	for i := 1; i <= 3; i++ {
		require.NoError(t, store.SaveSetting(ctx, &domain.Setting{
			Key:   domain.SettingKeyBranding,
			Value: fmt.Sprintf(`{"appName":"Mail %d"}`, i),
		}))
	}

	var count int64
	require.NoError(t, store.DB().Model(&domain.Setting{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	got, err := store.GetSetting(ctx, domain.SettingKeyBranding)
	require.NoError(t, err)
	assert.JSONEq(t, `{"appName":"Mail 3"}`, got.Value)
}

func TestSQLiteStore_ExpiredSessionNotReturned(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	require.NoError(t, store.SaveAdminSession(ctx, &domain.AdminSession{
		Token:     "expired",
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
		CreatedAt: time.Now().UTC().Add(-time.Hour),
	}))

	_, err := store.GetAdminSession(ctx, "expired")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
