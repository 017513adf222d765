package domain

import "time"

// AdminSessionTTL 管理员会话有效期（7天）
const AdminSessionTTL = 7 * 24 * time.Hour

// AdminSession 管理员会话记录。
//
// 会话不绑定管理员身份：管理密码是来自环境配置的共享密钥，所有有效令牌等价。
type AdminSession struct {
	Token     string    `json:"token" gorm:"primaryKey;type:varchar(64)"`
	ExpiresAt time.Time `json:"expiresAt" gorm:"not null;index"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsActive 会话在 now 时刻是否仍然有效（ExpiresAt 严格晚于 now）
func (s *AdminSession) IsActive(now time.Time) bool {
	return s.ExpiresAt.After(now)
}
