package domain

import "time"

// DomainExpirationCacheTTL 域名到期信息缓存时长
const DomainExpirationCacheTTL = 24 * time.Hour

// DomainExpiration 域名注册到期时间的缓存记录（来自 WHOIS 查询）
type DomainExpiration struct {
	Domain         string     `json:"domain" gorm:"primaryKey;type:varchar(253)"` // 小写域名
	ExpiresAt      *time.Time `json:"expiresAt"`                                  // 注册到期时间，未知时为 nil
	CheckedAt      time.Time  `json:"checkedAt"`                                  // 最近一次查询时间
	CacheExpiresAt time.Time  `json:"cacheExpiresAt" gorm:"not null;index"`       // 缓存失效时间
}

// IsFresh 缓存记录在 now 时刻是否仍在有效期内
func (d *DomainExpiration) IsFresh(now time.Time) bool {
	return d.CacheExpiresAt.After(now)
}
