package hybrid

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"vaultmail/backend/internal/domain"
	"vaultmail/backend/internal/storage"
	"vaultmail/backend/internal/storage/redis"
)

// Cache 写穿缓存需要的操作，由 redis.Cache 实现
type Cache interface {
	SetSetting(ctx context.Context, setting *domain.Setting) error
	GetSetting(ctx context.Context, key string) (*domain.Setting, error)
	DeleteSetting(ctx context.Context, key string) error

	SetAdminSession(ctx context.Context, session *domain.AdminSession) error
	GetAdminSession(ctx context.Context, token string) (*domain.AdminSession, error)
	DeleteAdminSession(ctx context.Context, token string) error

	SetDomainExpiration(ctx context.Context, record *domain.DomainExpiration) error
	GetDomainExpiration(ctx context.Context, domainName string) (*domain.DomainExpiration, error)
	DeleteDomainExpiration(ctx context.Context, domainName string) error

	Ping(ctx context.Context) error
	Close() error
}

// Store 混合存储实现，主存储负责持久化，Redis 缓存设置、会话与域名到期记录。
//
// 邮件与统计查询直接访问主存储。
type Store struct {
	primary storage.Store
	cache   Cache
	log     *zap.Logger
	now     func() time.Time
}

// NewStore 创建混合存储实例
func NewStore(primary storage.Store, cache Cache, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{primary: primary, cache: cache, log: log, now: time.Now}
}

// NativeExpiry 与主存储一致
func (s *Store) NativeExpiry() bool {
	return storage.HasNativeExpiry(s.primary)
}

// ========== Email Repository ==========

// SaveEmail 写入主存储
func (s *Store) SaveEmail(ctx context.Context, email *domain.Email) error {
	return s.primary.SaveEmail(ctx, email)
}

// ListEmailsByAddress 直接从主存储读取（列表变化频繁，不缓存）
func (s *Store) ListEmailsByAddress(ctx context.Context, address string) ([]domain.Email, error) {
	return s.primary.ListEmailsByAddress(ctx, address)
}

// GetInboxStatistics 直接从主存储统计
func (s *Store) GetInboxStatistics(ctx context.Context) (*domain.AdminStats, error) {
	return s.primary.GetInboxStatistics(ctx)
}

// ========== Setting Repository ==========

// GetSetting 先查缓存，未命中时回源并回填
func (s *Store) GetSetting(ctx context.Context, key string) (*domain.Setting, error) {
	if setting, err := s.cache.GetSetting(ctx, key); err == nil {
		return setting, nil
	} else if !errors.Is(err, redis.ErrCacheMiss) {
		s.log.Warn("failed to read setting from cache", zap.String("key", key), zap.Error(err))
	}

	setting, err := s.primary.GetSetting(ctx, key)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetSetting(ctx, setting); err != nil {
		s.log.Warn("failed to cache setting", zap.String("key", key), zap.Error(err))
	}
	return setting, nil
}

// SaveSetting 写入主存储后刷新缓存
func (s *Store) SaveSetting(ctx context.Context, setting *domain.Setting) error {
	if err := s.primary.SaveSetting(ctx, setting); err != nil {
		return err
	}
	if err := s.cache.SetSetting(ctx, setting); err != nil {
		s.log.Warn("failed to cache setting, invalidating", zap.String("key", setting.Key), zap.Error(err))
		s.invalidate("setting", setting.Key, s.cache.DeleteSetting)
	}
	return nil
}

// ========== AdminSession Repository ==========

// SaveAdminSession 写入主存储后缓存
func (s *Store) SaveAdminSession(ctx context.Context, session *domain.AdminSession) error {
	if err := s.primary.SaveAdminSession(ctx, session); err != nil {
		return err
	}
	if err := s.cache.SetAdminSession(ctx, session); err != nil {
		s.log.Warn("failed to cache admin session", zap.Error(err))
		s.invalidate("admin_session", session.Token, s.cache.DeleteAdminSession)
	}
	return nil
}

// GetAdminSession 先查缓存，缓存中的过期会话视为不存在
func (s *Store) GetAdminSession(ctx context.Context, token string) (*domain.AdminSession, error) {
	if session, err := s.cache.GetAdminSession(ctx, token); err == nil {
		if !session.IsActive(s.now()) {
			return nil, storage.ErrNotFound
		}
		return session, nil
	} else if !errors.Is(err, redis.ErrCacheMiss) {
		s.log.Warn("failed to read admin session from cache", zap.Error(err))
	}

	session, err := s.primary.GetAdminSession(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetAdminSession(ctx, session); err != nil {
		s.log.Warn("failed to cache admin session", zap.Error(err))
	}
	return session, nil
}

// DeleteAdminSession 删除主存储记录与缓存
func (s *Store) DeleteAdminSession(ctx context.Context, token string) error {
	if err := s.primary.DeleteAdminSession(ctx, token); err != nil {
		return err
	}
	s.invalidate("admin_session", token, s.cache.DeleteAdminSession)
	return nil
}

// ========== DomainExpiration Repository ==========

// GetDomainExpiration 先查缓存，未命中时回源并回填
func (s *Store) GetDomainExpiration(ctx context.Context, domainName string) (*domain.DomainExpiration, error) {
	if record, err := s.cache.GetDomainExpiration(ctx, domainName); err == nil {
		return record, nil
	} else if !errors.Is(err, redis.ErrCacheMiss) {
		s.log.Warn("failed to read domain expiration from cache", zap.String("domain", domainName), zap.Error(err))
	}

	record, err := s.primary.GetDomainExpiration(ctx, domainName)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetDomainExpiration(ctx, record); err != nil {
		s.log.Warn("failed to cache domain expiration", zap.String("domain", domainName), zap.Error(err))
	}
	return record, nil
}

// SaveDomainExpiration 写入主存储后刷新缓存
func (s *Store) SaveDomainExpiration(ctx context.Context, record *domain.DomainExpiration) error {
	if err := s.primary.SaveDomainExpiration(ctx, record); err != nil {
		return err
	}
	if err := s.cache.SetDomainExpiration(ctx, record); err != nil {
		s.log.Warn("failed to cache domain expiration", zap.String("domain", record.Domain), zap.Error(err))
		s.invalidate("domain_expiration", record.Domain, s.cache.DeleteDomainExpiration)
	}
	return nil
}

// DeleteDomainExpiration 删除主存储记录与缓存
func (s *Store) DeleteDomainExpiration(ctx context.Context, domainName string) error {
	if err := s.primary.DeleteDomainExpiration(ctx, domainName); err != nil {
		return err
	}
	s.invalidate("domain_expiration", domainName, s.cache.DeleteDomainExpiration)
	return nil
}

// ========== 工具方法 ==========

// DeleteExpired 清理主存储，缓存条目依靠 Redis TTL 过期
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return s.primary.DeleteExpired(ctx, now)
}

// Close 关闭主存储与缓存连接
func (s *Store) Close() error {
	return errors.Join(s.primary.Close(), s.cache.Close())
}

// Health 检查主存储与缓存
func (s *Store) Health(ctx context.Context) error {
	if err := s.primary.Health(ctx); err != nil {
		return fmt.Errorf("primary store: %w", err)
	}
	if err := s.cache.Ping(ctx); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}

// invalidate 删除缓存条目；使用独立的超时 context，请求取消后仍要清掉脏数据
func (s *Store) invalidate(kind, key string, del func(context.Context, string) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := del(ctx, key); err != nil {
		s.log.Error("failed to invalidate cache entry",
			zap.String("kind", kind),
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

var _ storage.Store = (*Store)(nil)
