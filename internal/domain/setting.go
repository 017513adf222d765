package domain

import "time"

// 设置项键名
const (
	SettingKeyTelegram  = "settings:telegram"
	SettingKeyRetention = "settings:retention"
	SettingKeyBranding  = "settings:branding"
)

// DefaultRetentionSeconds 默认邮件保留时长（1天）
const DefaultRetentionSeconds = 86400

// Setting 键值设置记录，Value 为规范化的 JSON 文本。
type Setting struct {
	Key       string    `json:"key" gorm:"primaryKey;type:varchar(128)"`
	Value     string    `json:"value" gorm:"type:text;not null"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RetentionSettings 邮件保留策略
type RetentionSettings struct {
	Seconds   int    `json:"seconds"`
	UpdatedAt string `json:"updatedAt"`
}

// BrandingSettings 站点品牌设置
type BrandingSettings struct {
	AppName   string `json:"appName"`
	UpdatedAt string `json:"updatedAt"`
}

// TelegramSettings Telegram 通知设置（由收信管道读取并推送）
type TelegramSettings struct {
	Enabled   bool   `json:"enabled"`
	BotToken  string `json:"botToken"`
	ChatID    string `json:"chatId"`
	UpdatedAt string `json:"updatedAt"`
}

// DefaultTelegramSettings 返回默认（关闭）的 Telegram 设置
func DefaultTelegramSettings(now time.Time) TelegramSettings {
	return TelegramSettings{
		Enabled:   false,
		BotToken:  "",
		ChatID:    "",
		UpdatedAt: FormatISO(now),
	}
}
