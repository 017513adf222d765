package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultmail/backend/internal/domain"
	"vaultmail/backend/internal/storage/storetest"
)

func TestInboxService_ListForAddress(t *testing.T) {
	ctx := context.Background()

	t.Run("按接收时间倒序且地址不区分大小写", func(t *testing.T) {
		clock := newFakeClock()
		store := newMemoryStore(clock)
		older := storetest.NewEmail("box@vault.test", clock.Now().Add(-2*time.Minute), time.Hour)
		newer := storetest.NewEmail("box@vault.test", clock.Now().Add(-time.Minute), time.Hour)
		newer.Attachments = []domain.Attachment{{Filename: "a.txt", ContentType: "text/plain", Size: 3}}
		require.NoError(t, store.SaveEmail(ctx, older))
		require.NoError(t, store.SaveEmail(ctx, newer))

		svc := NewInboxService(store, nil, nil)
		result := svc.ListForAddress(ctx, "  BOX@Vault.Test ")

		assert.Equal(t, InboxOK, result.Status)
		assert.NoError(t, result.Err)
		assert.Equal(t, "box@vault.test", result.Address)
		require.Len(t, result.Emails, 2)
		assert.Equal(t, newer.ID, result.Emails[0].ID)
		assert.Equal(t, older.ID, result.Emails[1].ID)
		assert.Equal(t, domain.FormatISO(newer.ReceivedAt), result.Emails[0].ReceivedAt)
		assert.Len(t, result.Emails[0].Attachments, 1)
		assert.NotNil(t, result.Emails[1].Attachments)
		assert.Empty(t, result.Emails[1].Attachments)
	})

	t.Run("过期邮件不返回", func(t *testing.T) {
		clock := newFakeClock()
		store := newMemoryStore(clock)
		require.NoError(t, store.SaveEmail(ctx, storetest.NewEmail("box@vault.test", clock.Now().Add(-2*time.Hour), time.Hour)))

		result := NewInboxService(store, nil, nil).ListForAddress(ctx, "box@vault.test")
		assert.Equal(t, InboxEmpty, result.Status)
		assert.NotNil(t, result.Emails)
		assert.Empty(t, result.Emails)
	})

	t.Run("未知地址返回空列表", func(t *testing.T) {
		clock := newFakeClock()
		result := NewInboxService(newMemoryStore(clock), nil, nil).ListForAddress(ctx, "nobody@vault.test")
		assert.Equal(t, InboxEmpty, result.Status)
		assert.Empty(t, result.Emails)
	})

	t.Run("存储故障返回 unavailable", func(t *testing.T) {
		result := NewInboxService(failingStore{}, nil, nil).ListForAddress(ctx, "box@vault.test")
		assert.Equal(t, InboxUnavailable, result.Status)
		assert.ErrorIs(t, result.Err, errStoreDown)
		assert.NotNil(t, result.Emails)
		assert.Empty(t, result.Emails)
	})
}
