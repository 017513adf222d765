package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"vaultmail/backend/internal/domain"
	"vaultmail/backend/internal/monitoring"
	"vaultmail/backend/internal/storage"
	"vaultmail/backend/internal/whois"
)

// ExpirationLookup 查询域名注册到期时间，由 whois.Client 实现
type ExpirationLookup interface {
	LookupExpiration(ctx context.Context, domainName string) (*time.Time, error)
}

// DomainExpirationView 对外返回的域名到期信息
type DomainExpirationView struct {
	Domain    string  `json:"domain"`
	ExpiresAt *string `json:"expiresAt"`
	CheckedAt string  `json:"checkedAt"`
}

// DomainExpirationService 域名到期时间缓存
type DomainExpirationService struct {
	store    storage.DomainExpirationRepository
	lookup   ExpirationLookup
	cacheTTL time.Duration
	log      *zap.Logger
	metrics  *monitoring.Metrics
	now      func() time.Time
}

// NewDomainExpirationService 创建域名到期服务
func NewDomainExpirationService(
	store storage.DomainExpirationRepository,
	lookup ExpirationLookup,
	cacheTTL time.Duration,
	log *zap.Logger,
	metrics *monitoring.Metrics,
) *DomainExpirationService {
	if cacheTTL <= 0 {
		cacheTTL = domain.DomainExpirationCacheTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &DomainExpirationService{
		store:    store,
		lookup:   lookup,
		cacheTTL: cacheTTL,
		log:      log,
		metrics:  metrics,
		now:      time.Now,
	}
}

// SetClock 替换时间来源（测试使用）
func (s *DomainExpirationService) SetClock(now func() time.Time) {
	s.now = now
}

// GetCached 只读缓存，不触发查询；缓存过期或读取失败时返回 nil
func (s *DomainExpirationService) GetCached(ctx context.Context, domainName string) (*DomainExpirationView, error) {
	name, err := normalizeDomain(domainName)
	if err != nil {
		return nil, err
	}

	record, err := s.store.GetDomainExpiration(ctx, name)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Error("domain expiration cache read failed", zap.String("domain", name), zap.Error(err))
		}
		return nil, nil
	}
	if !record.IsFresh(s.now()) {
		return nil, nil
	}
	return toExpirationView(record), nil
}

// Refresh 实时查询 WHOIS 并更新缓存。
//
// 查到到期时间时写入缓存（有效期 cacheTTL），否则删除已有缓存并返回 expiresAt 为空的记录。
// 查询失败与缓存写入失败只记录日志。
func (s *DomainExpirationService) Refresh(ctx context.Context, domainName string) (*DomainExpirationView, error) {
	name, err := normalizeDomain(domainName)
	if err != nil {
		return nil, err
	}

	expiresAt, err := s.lookup.LookupExpiration(ctx, name)
	now := s.now().UTC()
	switch {
	case err == nil:
		s.metrics.RecordWhoisLookup(monitoring.ResultFound)
	case errors.Is(err, whois.ErrNoExpiration):
		s.metrics.RecordWhoisLookup(monitoring.ResultNotFound)
		s.log.Info("no expiration date found", zap.String("domain", name), zap.Error(err))
		expiresAt = nil
	default:
		s.metrics.RecordWhoisLookup(monitoring.ResultError)
		s.log.Warn("whois lookup failed", zap.String("domain", name), zap.Error(err))
		expiresAt = nil
	}

	record := &domain.DomainExpiration{
		Domain:    name,
		ExpiresAt: expiresAt,
		CheckedAt: now,
	}

	if expiresAt != nil {
		record.CacheExpiresAt = now.Add(s.cacheTTL)
		if err := s.store.SaveDomainExpiration(ctx, record); err != nil {
			s.log.Error("domain expiration cache write failed", zap.String("domain", name), zap.Error(err))
		}
	} else if err := s.store.DeleteDomainExpiration(ctx, name); err != nil {
		s.log.Error("domain expiration cache delete failed", zap.String("domain", name), zap.Error(err))
	}

	return toExpirationView(record), nil
}

// Lookup 优先返回有效缓存，未命中时刷新
func (s *DomainExpirationService) Lookup(ctx context.Context, domainName string) (*DomainExpirationView, error) {
	cached, err := s.GetCached(ctx, domainName)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		return cached, nil
	}
	return s.Refresh(ctx, domainName)
}

func normalizeDomain(domainName string) (string, error) {
	name := domain.NormalizeDomain(domainName)
	if err := domain.ValidateDomain(name); err != nil {
		return "", err
	}
	return name, nil
}

func toExpirationView(record *domain.DomainExpiration) *DomainExpirationView {
	return &DomainExpirationView{
		Domain:    record.Domain,
		ExpiresAt: domain.FormatISOPtr(record.ExpiresAt),
		CheckedAt: domain.FormatISO(record.CheckedAt),
	}
}
