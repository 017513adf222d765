package storage

import (
	"context"
	"time"

	"vaultmail/backend/internal/domain"
)

// EmailRepository 定义邮件数据存取操作。
type EmailRepository interface {
	// SaveEmail 写入一封邮件（收信管道与测试使用）
	SaveEmail(ctx context.Context, email *domain.Email) error
	// ListEmailsByAddress 按接收时间倒序返回指定地址的邮件，address 需已规范化
	ListEmailsByAddress(ctx context.Context, address string) ([]domain.Email, error)
	GetInboxStatistics(ctx context.Context) (*domain.AdminStats, error)
}

// SettingRepository 定义键值设置存取操作。
type SettingRepository interface {
	// GetSetting 不存在时返回 ErrNotFound
	GetSetting(ctx context.Context, key string) (*domain.Setting, error)
	// SaveSetting 按 key 原子 upsert
	SaveSetting(ctx context.Context, setting *domain.Setting) error
}

// AdminSessionRepository 定义管理员会话存取操作。
type AdminSessionRepository interface {
	SaveAdminSession(ctx context.Context, session *domain.AdminSession) error
	GetAdminSession(ctx context.Context, token string) (*domain.AdminSession, error)
	DeleteAdminSession(ctx context.Context, token string) error
}

// DomainExpirationRepository 定义域名到期缓存存取操作。
type DomainExpirationRepository interface {
	GetDomainExpiration(ctx context.Context, domainName string) (*domain.DomainExpiration, error)
	SaveDomainExpiration(ctx context.Context, record *domain.DomainExpiration) error
	DeleteDomainExpiration(ctx context.Context, domainName string) error
}

// Store 定义完整的存储接口。
type Store interface {
	EmailRepository
	SettingRepository
	AdminSessionRepository
	DomainExpirationRepository

	// DeleteExpired 删除 now 时刻已过期的邮件、会话与域名缓存，返回删除数量
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)

	// 工具方法
	Close() error
	Health(ctx context.Context) error
}

// NativeExpiry 由自带 TTL 淘汰机制（如 MongoDB TTL 索引）的存储实现，
// 此类存储无需启动后台清理任务。
type NativeExpiry interface {
	NativeExpiry() bool
}

// HasNativeExpiry 判断存储是否自带过期淘汰
func HasNativeExpiry(store Store) bool {
	if n, ok := store.(NativeExpiry); ok {
		return n.NativeExpiry()
	}
	return false
}
