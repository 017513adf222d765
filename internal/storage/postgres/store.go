package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"vaultmail/backend/internal/domain"
	"vaultmail/backend/internal/storage"
)

// Options 连接池与迁移参数
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

// DefaultOptions 默认连接池参数
func DefaultOptions() Options {
	return Options{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		AutoMigrate:     true,
	}
}

// Store 基于 GORM 的关系型存储实现（PostgreSQL / MySQL / SQLite）
type Store struct {
	db *gorm.DB
}

// NewStore 创建 PostgreSQL 存储实例
func NewStore(dsn string, opts Options) (*Store, error) {
	return NewStoreWithDialector(postgres.Open(dsn), opts)
}

// NewMySQLStore 创建 MySQL 存储实例，强制开启 parseTime
func NewMySQLStore(dsn string, opts Options) (*Store, error) {
	cfg, err := mysqldriver.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return NewStoreWithDialector(mysql.Open(cfg.FormatDSN()), opts)
}

// NewSQLiteStore 创建 SQLite 存储实例（单连接）
func NewSQLiteStore(path string, opts Options) (*Store, error) {
	opts.MaxOpenConns = 1
	opts.MaxIdleConns = 1
	return NewStoreWithDialector(sqlite.Open(path), opts)
}

// NewStoreWithDialector 使用指定的GORM dialector创建存储实例
func NewStoreWithDialector(dialector gorm.Dialector, opts Options) (*Store, error) {
	config := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(dialector, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	store := &Store{db: db}

	if opts.AutoMigrate {
		if err := store.Migrate(); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	return store, nil
}

// Migrate 自动迁移数据库表结构
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(
		&domain.Email{},
		&domain.Setting{},
		&domain.AdminSession{},
		&domain.DomainExpiration{},
	)
}

// DB 返回底层 GORM 实例
func (s *Store) DB() *gorm.DB {
	return s.db
}

// SaveEmail 写入邮件，ID 冲突时覆盖
func (s *Store) SaveEmail(ctx context.Context, email *domain.Email) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}).
		Create(email).Error
	if err != nil {
		return fmt.Errorf("save email: %w", err)
	}
	return nil
}

// ListEmailsByAddress 按接收时间倒序列出未过期邮件
func (s *Store) ListEmailsByAddress(ctx context.Context, address string) ([]domain.Email, error) {
	var emails []domain.Email
	err := s.notExpired(s.db.WithContext(ctx), time.Now().UTC()).
		Where("address = ?", address).
		Order("received_at DESC").
		Order("id DESC").
		Find(&emails).Error
	if err != nil {
		return nil, fmt.Errorf("list emails: %w", err)
	}
	if emails == nil {
		emails = []domain.Email{}
	}
	return emails, nil
}

// GetInboxStatistics 统计未过期邮件
func (s *Store) GetInboxStatistics(ctx context.Context) (*domain.AdminStats, error) {
	now := time.Now().UTC()
	db := s.db.WithContext(ctx)
	stats := &domain.AdminStats{}

	if err := s.notExpired(db.Model(&domain.Email{}), now).Count(&stats.MessageCount).Error; err != nil {
		return nil, fmt.Errorf("count emails: %w", err)
	}
	if stats.MessageCount == 0 {
		return stats, nil
	}
	if err := s.notExpired(db.Model(&domain.Email{}), now).Distinct("address").Count(&stats.InboxCount).Error; err != nil {
		return nil, fmt.Errorf("count inboxes: %w", err)
	}

	// 按列取值，避免 MAX() 聚合在 SQLite 下丢失时间类型
	var latest domain.Email
	err := s.notExpired(db.Select("received_at"), now).
		Order("received_at DESC").
		Limit(1).
		Take(&latest).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("latest email: %w", err)
	}
	if err == nil {
		receivedAt := latest.ReceivedAt.UTC()
		stats.LatestReceivedAt = &receivedAt
	}
	return stats, nil
}

// GetSetting 获取设置项
func (s *Store) GetSetting(ctx context.Context, key string) (*domain.Setting, error) {
	var setting domain.Setting
	// key 在 MySQL 中是保留字，使用 clause 以获得正确的引号
	err := s.db.WithContext(ctx).
		Where(clause.Eq{Column: clause.Column{Name: "key"}, Value: key}).
		Take(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get setting: %w", err)
	}
	return &setting, nil
}

// SaveSetting 按 key upsert 设置项
func (s *Store) SaveSetting(ctx context.Context, setting *domain.Setting) error {
	if setting.UpdatedAt.IsZero() {
		setting.UpdatedAt = time.Now().UTC()
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(setting).Error
	if err != nil {
		return fmt.Errorf("save setting: %w", err)
	}
	return nil
}

// SaveAdminSession 保存管理员会话
func (s *Store) SaveAdminSession(ctx context.Context, session *domain.AdminSession) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "token"}}, UpdateAll: true}).
		Create(session).Error
	if err != nil {
		return fmt.Errorf("save admin session: %w", err)
	}
	return nil
}

// GetAdminSession 获取未过期的会话
func (s *Store) GetAdminSession(ctx context.Context, token string) (*domain.AdminSession, error) {
	var session domain.AdminSession
	err := s.db.WithContext(ctx).
		Where("token = ? AND expires_at > ?", token, time.Now().UTC()).
		Take(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get admin session: %w", err)
	}
	return &session, nil
}

// DeleteAdminSession 删除会话
func (s *Store) DeleteAdminSession(ctx context.Context, token string) error {
	err := s.db.WithContext(ctx).Where("token = ?", token).Delete(&domain.AdminSession{}).Error
	if err != nil {
		return fmt.Errorf("delete admin session: %w", err)
	}
	return nil
}

// GetDomainExpiration 获取域名到期缓存
func (s *Store) GetDomainExpiration(ctx context.Context, domainName string) (*domain.DomainExpiration, error) {
	var record domain.DomainExpiration
	err := s.db.WithContext(ctx).Where("domain = ?", domainName).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get domain expiration: %w", err)
	}
	return &record, nil
}

// SaveDomainExpiration 按域名 upsert 到期缓存
func (s *Store) SaveDomainExpiration(ctx context.Context, record *domain.DomainExpiration) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "domain"}},
			DoUpdates: clause.AssignmentColumns([]string{"expires_at", "checked_at", "cache_expires_at"}),
		}).
		Create(record).Error
	if err != nil {
		return fmt.Errorf("save domain expiration: %w", err)
	}
	return nil
}

// DeleteDomainExpiration 删除域名到期缓存
func (s *Store) DeleteDomainExpiration(ctx context.Context, domainName string) error {
	err := s.db.WithContext(ctx).Where("domain = ?", domainName).Delete(&domain.DomainExpiration{}).Error
	if err != nil {
		return fmt.Errorf("delete domain expiration: %w", err)
	}
	return nil
}

// DeleteExpired 在一个事务内删除过期邮件、会话与域名缓存
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	now = now.UTC()
	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("expire_at <= ? AND expire_at > ?", now, time.Time{}).Delete(&domain.Email{})
		if res.Error != nil {
			return res.Error
		}
		removed += res.RowsAffected

		res = tx.Where("expires_at <= ?", now).Delete(&domain.AdminSession{})
		if res.Error != nil {
			return res.Error
		}
		removed += res.RowsAffected

		res = tx.Where("cache_expires_at <= ?", now).Delete(&domain.DomainExpiration{})
		if res.Error != nil {
			return res.Error
		}
		removed += res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete expired: %w", err)
	}
	return removed, nil
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health 检查数据库连接
func (s *Store) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// notExpired 过滤已过保留期的邮件，零值 expire_at 表示永不过期
func (s *Store) notExpired(db *gorm.DB, now time.Time) *gorm.DB {
	return db.Where("(expire_at > ? OR expire_at = ?)", now, time.Time{})
}

var _ storage.Store = (*Store)(nil)
