// Package storetest 提供所有 storage.Store 实现共用的行为测试。
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultmail/backend/internal/domain"
	"vaultmail/backend/internal/storage"
)

// Factory 为每个子测试创建一个空的存储实例
type Factory func(t *testing.T) storage.Store

// NewEmail 构造测试邮件
func NewEmail(address string, receivedAt time.Time, ttl time.Duration) *domain.Email {
	return &domain.Email{
		ID:         uuid.NewString(),
		Address:    address,
		From:       "sender@example.com",
		To:         address,
		Subject:    "hello",
		Text:       "body",
		HTML:       "<p>body</p>",
		ReceivedAt: receivedAt.UTC().Truncate(time.Millisecond),
		ExpireAt:   receivedAt.Add(ttl).UTC().Truncate(time.Millisecond),
	}
}

// Run 执行存储契约测试
func Run(t *testing.T, newStore Factory) {
	ctx := context.Background()

	t.Run("设置不存在返回 ErrNotFound", func(t *testing.T) {
		store := newStore(t)
		_, err := store.GetSetting(ctx, domain.SettingKeyRetention)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("设置 upsert 覆盖旧值", func(t *testing.T) {
		store := newStore(t)
		now := time.Now().UTC().Truncate(time.Second)

		require.NoError(t, store.SaveSetting(ctx, &domain.Setting{
			Key: domain.SettingKeyRetention, Value: `{"seconds":60}`, UpdatedAt: now,
		}))
		require.NoError(t, store.SaveSetting(ctx, &domain.Setting{
			Key: domain.SettingKeyRetention, Value: `{"seconds":120}`, UpdatedAt: now,
		}))

		got, err := store.GetSetting(ctx, domain.SettingKeyRetention)
		require.NoError(t, err)

		var retention domain.RetentionSettings
		require.NoError(t, storage.DecodeSettingValue(got, &retention))
		assert.Equal(t, 120, retention.Seconds)
	})

	t.Run("按地址倒序列出邮件", func(t *testing.T) {
		store := newStore(t)
		base := time.Now().UTC().Add(-time.Hour)

		older := NewEmail("a@vaultmail.test", base, 24*time.Hour)
		newer := NewEmail("a@vaultmail.test", base.Add(10*time.Minute), 24*time.Hour)
		newer.Attachments = []domain.Attachment{{Filename: "a.txt", ContentType: "text/plain", Size: 3, ContentBase64: "YWJj"}}
		other := NewEmail("b@vaultmail.test", base.Add(5*time.Minute), 24*time.Hour)

		for _, e := range []*domain.Email{older, newer, other} {
			require.NoError(t, store.SaveEmail(ctx, e))
		}

		emails, err := store.ListEmailsByAddress(ctx, "a@vaultmail.test")
		require.NoError(t, err)
		require.Len(t, emails, 2)
		assert.Equal(t, newer.ID, emails[0].ID)
		assert.Equal(t, older.ID, emails[1].ID)
		require.Len(t, emails[0].Attachments, 1)
		assert.Equal(t, "a.txt", emails[0].Attachments[0].Filename)
		assert.True(t, newer.ReceivedAt.Equal(emails[0].ReceivedAt))
	})

	t.Run("未知地址返回空列表", func(t *testing.T) {
		store := newStore(t)
		emails, err := store.ListEmailsByAddress(ctx, "nobody@vaultmail.test")
		require.NoError(t, err)
		assert.Empty(t, emails)
	})

	t.Run("统计收件箱与邮件数", func(t *testing.T) {
		store := newStore(t)

		stats, err := store.GetInboxStatistics(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), stats.InboxCount)
		assert.Equal(t, int64(0), stats.MessageCount)
		assert.Nil(t, stats.LatestReceivedAt)

		base := time.Now().UTC().Add(-time.Hour).Truncate(time.Millisecond)
		require.NoError(t, store.SaveEmail(ctx, NewEmail("a@vaultmail.test", base, 24*time.Hour)))
		require.NoError(t, store.SaveEmail(ctx, NewEmail("a@vaultmail.test", base.Add(time.Minute), 24*time.Hour)))
		latest := NewEmail("b@vaultmail.test", base.Add(2*time.Minute), 24*time.Hour)
		require.NoError(t, store.SaveEmail(ctx, latest))

		stats, err = store.GetInboxStatistics(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), stats.InboxCount)
		assert.Equal(t, int64(3), stats.MessageCount)
		require.NotNil(t, stats.LatestReceivedAt)
		assert.True(t, latest.ReceivedAt.Equal(*stats.LatestReceivedAt))
	})

	t.Run("会话读写与删除", func(t *testing.T) {
		store := newStore(t)
		now := time.Now().UTC().Truncate(time.Second)
		session := &domain.AdminSession{
			Token:     uuid.NewString(),
			ExpiresAt: now.Add(domain.AdminSessionTTL),
			CreatedAt: now,
		}
		require.NoError(t, store.SaveAdminSession(ctx, session))

		got, err := store.GetAdminSession(ctx, session.Token)
		require.NoError(t, err)
		assert.True(t, session.ExpiresAt.Equal(got.ExpiresAt))

		require.NoError(t, store.DeleteAdminSession(ctx, session.Token))
		_, err = store.GetAdminSession(ctx, session.Token)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		// 重复删除不报错
		assert.NoError(t, store.DeleteAdminSession(ctx, session.Token))
	})

	t.Run("域名到期缓存读写", func(t *testing.T) {
		store := newStore(t)
		now := time.Now().UTC().Truncate(time.Second)
		expiresAt := now.AddDate(1, 0, 0)

		record := &domain.DomainExpiration{
			Domain:         "vaultmail.test",
			ExpiresAt:      &expiresAt,
			CheckedAt:      now,
			CacheExpiresAt: now.Add(domain.DomainExpirationCacheTTL),
		}
		require.NoError(t, store.SaveDomainExpiration(ctx, record))

		got, err := store.GetDomainExpiration(ctx, "vaultmail.test")
		require.NoError(t, err)
		require.NotNil(t, got.ExpiresAt)
		assert.True(t, expiresAt.Equal(*got.ExpiresAt))

		// 未知到期时间也需要缓存
		record.ExpiresAt = nil
		require.NoError(t, store.SaveDomainExpiration(ctx, record))
		got, err = store.GetDomainExpiration(ctx, "vaultmail.test")
		require.NoError(t, err)
		assert.Nil(t, got.ExpiresAt)

		require.NoError(t, store.DeleteDomainExpiration(ctx, "vaultmail.test"))
		_, err = store.GetDomainExpiration(ctx, "vaultmail.test")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("清理过期数据", func(t *testing.T) {
		store := newStore(t)
		if storage.HasNativeExpiry(store) {
			t.Skip("store expires records natively")
		}
		now := time.Now().UTC().Truncate(time.Second)

		expired := NewEmail("a@vaultmail.test", now.Add(-2*time.Hour), time.Hour)
		alive := NewEmail("a@vaultmail.test", now.Add(-time.Minute), time.Hour)
		require.NoError(t, store.SaveEmail(ctx, expired))
		require.NoError(t, store.SaveEmail(ctx, alive))
		require.NoError(t, store.SaveAdminSession(ctx, &domain.AdminSession{
			Token: "stale", ExpiresAt: now.Add(-time.Second), CreatedAt: now.Add(-time.Hour),
		}))
		require.NoError(t, store.SaveDomainExpiration(ctx, &domain.DomainExpiration{
			Domain: "old.test", CheckedAt: now.Add(-48 * time.Hour), CacheExpiresAt: now.Add(-24 * time.Hour),
		}))

		removed, err := store.DeleteExpired(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, int64(3), removed)

		emails, err := store.ListEmailsByAddress(ctx, "a@vaultmail.test")
		require.NoError(t, err)
		require.Len(t, emails, 1)
		assert.Equal(t, alive.ID, emails[0].ID)

		_, err = store.GetDomainExpiration(ctx, "old.test")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("健康检查", func(t *testing.T) {
		store := newStore(t)
		assert.NoError(t, store.Health(ctx))
	})
}
