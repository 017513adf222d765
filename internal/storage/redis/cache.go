package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"vaultmail/backend/internal/domain"
)

// ErrCacheMiss 缓存未命中
var ErrCacheMiss = errors.New("cache miss")

// 键前缀
const (
	settingKeyPrefix          = "setting:"
	adminSessionKeyPrefix     = "admin_session:"
	domainExpirationKeyPrefix = "domain_expiration:"
)

// Cache Redis 缓存实现
type Cache struct {
	client      *Client
	settingsTTL time.Duration
}

// NewCache 创建缓存实例，settingsTTL 为设置项缓存时长
func NewCache(client *Client, settingsTTL time.Duration) *Cache {
	return &Cache{client: client, settingsTTL: settingsTTL}
}

// Ping 测试缓存连接
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx)
}

// Close 关闭底层连接
func (c *Cache) Close() error {
	return c.client.Close()
}

// ========== 设置缓存 ==========

// SetSetting 缓存设置项
func (c *Cache) SetSetting(ctx context.Context, setting *domain.Setting) error {
	return c.setJSON(ctx, settingKeyPrefix+setting.Key, setting, c.settingsTTL)
}

// GetSetting 获取缓存的设置项
func (c *Cache) GetSetting(ctx context.Context, key string) (*domain.Setting, error) {
	var setting domain.Setting
	if err := c.getJSON(ctx, settingKeyPrefix+key, &setting); err != nil {
		return nil, err
	}
	return &setting, nil
}

// DeleteSetting 删除缓存的设置项
func (c *Cache) DeleteSetting(ctx context.Context, key string) error {
	return c.client.rdb.Del(ctx, settingKeyPrefix+key).Err()
}

// ========== 会话缓存 ==========

// SetAdminSession 缓存会话，TTL 与会话剩余有效期一致
func (c *Cache) SetAdminSession(ctx context.Context, session *domain.AdminSession) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return c.DeleteAdminSession(ctx, session.Token)
	}
	return c.setJSON(ctx, adminSessionKeyPrefix+session.Token, session, ttl)
}

// GetAdminSession 获取缓存的会话
func (c *Cache) GetAdminSession(ctx context.Context, token string) (*domain.AdminSession, error) {
	var session domain.AdminSession
	if err := c.getJSON(ctx, adminSessionKeyPrefix+token, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// DeleteAdminSession 删除缓存的会话
func (c *Cache) DeleteAdminSession(ctx context.Context, token string) error {
	return c.client.rdb.Del(ctx, adminSessionKeyPrefix+token).Err()
}

// ========== 域名到期缓存 ==========

// SetDomainExpiration 缓存域名到期记录，TTL 与 CacheExpiresAt 一致
func (c *Cache) SetDomainExpiration(ctx context.Context, record *domain.DomainExpiration) error {
	ttl := time.Until(record.CacheExpiresAt)
	if ttl <= 0 {
		return c.DeleteDomainExpiration(ctx, record.Domain)
	}
	return c.setJSON(ctx, domainExpirationKeyPrefix+record.Domain, record, ttl)
}

// GetDomainExpiration 获取缓存的域名到期记录
func (c *Cache) GetDomainExpiration(ctx context.Context, domainName string) (*domain.DomainExpiration, error) {
	var record domain.DomainExpiration
	if err := c.getJSON(ctx, domainExpirationKeyPrefix+domainName, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// DeleteDomainExpiration 删除缓存的域名到期记录
func (c *Cache) DeleteDomainExpiration(ctx context.Context, domainName string) error {
	return c.client.rdb.Del(ctx, domainExpirationKeyPrefix+domainName).Err()
}

func (c *Cache) setJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}
	return c.client.rdb.Set(ctx, key, data, ttl).Err()
}

func (c *Cache) getJSON(ctx context.Context, key string, out any) error {
	data, err := c.client.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return ErrCacheMiss
		}
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal cache value: %w", err)
	}
	return nil
}
