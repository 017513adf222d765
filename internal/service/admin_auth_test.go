package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultmail/backend/internal/auth"
	"vaultmail/backend/internal/config"
	"vaultmail/backend/internal/domain"
	"vaultmail/backend/internal/storage"
)

// countingSessions 统计会话写入次数
type countingSessions struct {
	storage.AdminSessionRepository
	saved int
}

func (c *countingSessions) SaveAdminSession(ctx context.Context, session *domain.AdminSession) error {
	c.saved++
	return c.AdminSessionRepository.SaveAdminSession(ctx, session)
}

func newAuthService(t *testing.T, sessions storage.AdminSessionRepository, cfg config.AdminConfig, limiter *auth.AttemptLimiter, clock *fakeClock) *AdminAuthService {
	t.Helper()
	verifier, err := auth.NewVerifier(cfg)
	require.NoError(t, err)
	svc := NewAdminAuthService(sessions, verifier, limiter, 0, nil, nil)
	svc.SetClock(clock.Now)
	return svc
}

func TestAdminAuthService_Authenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("密码正确创建 7 天会话", func(t *testing.T) {
		clock := newFakeClock()
		store := newMemoryStore(clock)
		svc := newAuthService(t, store, config.AdminConfig{Password: "s3cret"}, nil, clock)

		session, err := svc.Authenticate(ctx, "s3cret", "10.0.0.1")
		require.NoError(t, err)
		assert.NotEmpty(t, session.Token)
		assert.Equal(t, clock.Now().Add(domain.AdminSessionTTL), session.ExpiresAt)

		stored, err := store.GetAdminSession(ctx, session.Token)
		require.NoError(t, err)
		assert.Equal(t, session.ExpiresAt, stored.ExpiresAt)
	})

	t.Run("每次登录生成不同令牌", func(t *testing.T) {
		clock := newFakeClock()
		svc := newAuthService(t, newMemoryStore(clock), config.AdminConfig{Password: "s3cret"}, nil, clock)

		first, err := svc.Authenticate(ctx, "s3cret", "10.0.0.1")
		require.NoError(t, err)
		second, err := svc.Authenticate(ctx, "s3cret", "10.0.0.1")
		require.NoError(t, err)
		assert.NotEqual(t, first.Token, second.Token)
	})

	t.Run("bcrypt 哈希校验", func(t *testing.T) {
		hash, err := auth.HashPassword("hashed-pass")
		require.NoError(t, err)

		clock := newFakeClock()
		svc := newAuthService(t, newMemoryStore(clock), config.AdminConfig{PasswordHash: hash}, nil, clock)

		_, err = svc.Authenticate(ctx, "hashed-pass", "10.0.0.1")
		assert.NoError(t, err)
		_, err = svc.Authenticate(ctx, "wrong", "10.0.0.1")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	failures := []struct {
		name     string
		cfg      config.AdminConfig
		password string
	}{
		{"密码错误", config.AdminConfig{Password: "s3cret"}, "nope"},
		{"密码为空", config.AdminConfig{Password: "s3cret"}, ""},
		{"未配置管理密码", config.AdminConfig{}, "anything"},
		{"未配置管理密码且输入为空", config.AdminConfig{}, ""},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			sessions := &countingSessions{AdminSessionRepository: newMemoryStore(clock)}
			svc := newAuthService(t, sessions, tt.cfg, nil, clock)

			session, err := svc.Authenticate(ctx, tt.password, "10.0.0.1")
			assert.ErrorIs(t, err, ErrUnauthorized)
			assert.Nil(t, session)
			assert.Zero(t, sessions.saved)
		})
	}

	t.Run("失败次数过多被限流", func(t *testing.T) {
		clock := newFakeClock()
		limiter := auth.NewAttemptLimiter(5, 2)
		svc := newAuthService(t, newMemoryStore(clock), config.AdminConfig{Password: "s3cret"}, limiter, clock)

		for i := 0; i < 2; i++ {
			_, err := svc.Authenticate(ctx, "wrong", "10.0.0.9")
			assert.ErrorIs(t, err, ErrUnauthorized)
		}
		_, err := svc.Authenticate(ctx, "s3cret", "10.0.0.9")
		assert.ErrorIs(t, err, ErrTooManyAttempts)

		_, err = svc.Authenticate(ctx, "s3cret", "10.0.0.10")
		assert.NoError(t, err)
	})

	t.Run("存储失败返回错误", func(t *testing.T) {
		clock := newFakeClock()
		svc := newAuthService(t, failingStore{}, config.AdminConfig{Password: "s3cret"}, nil, clock)

		_, err := svc.Authenticate(ctx, "s3cret", "10.0.0.1")
		assert.ErrorIs(t, err, errStoreDown)
	})
}

func TestAdminAuthService_IsSessionValid(t *testing.T) {
	ctx := context.Background()

	t.Run("会话有效期边界", func(t *testing.T) {
		clock := newFakeClock()
		store := newMemoryStore(clock)
		svc := newAuthService(t, store, config.AdminConfig{Password: "s3cret"}, nil, clock)

		session, err := svc.Authenticate(ctx, "s3cret", "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, svc.IsSessionValid(ctx, session.Token))

		clock.Advance(domain.AdminSessionTTL - time.Second)
		assert.True(t, svc.IsSessionValid(ctx, session.Token))

		clock.Advance(time.Second)
		assert.False(t, svc.IsSessionValid(ctx, session.Token))
	})

	t.Run("未知令牌与空令牌无效", func(t *testing.T) {
		clock := newFakeClock()
		svc := newAuthService(t, newMemoryStore(clock), config.AdminConfig{Password: "s3cret"}, nil, clock)

		assert.False(t, svc.IsSessionValid(ctx, ""))
		assert.False(t, svc.IsSessionValid(ctx, "unknown-token"))
	})

	t.Run("存储错误视为无效", func(t *testing.T) {
		clock := newFakeClock()
		svc := newAuthService(t, failingStore{}, config.AdminConfig{Password: "s3cret"}, nil, clock)
		assert.False(t, svc.IsSessionValid(ctx, "token"))
	})
}

func TestAdminAuthService_Logout(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	svc := newAuthService(t, newMemoryStore(clock), config.AdminConfig{Password: "s3cret"}, nil, clock)

	session, err := svc.Authenticate(ctx, "s3cret", "10.0.0.1")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, session.Token))
	assert.False(t, svc.IsSessionValid(ctx, session.Token))

	assert.NoError(t, svc.Logout(ctx, session.Token))
	assert.NoError(t, svc.Logout(ctx, ""))
}
