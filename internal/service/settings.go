package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"vaultmail/backend/internal/domain"
	"vaultmail/backend/internal/monitoring"
	"vaultmail/backend/internal/storage"
)

// SettingsDefaults 设置项缺省值
type SettingsDefaults struct {
	RetentionSeconds int
	AppName          string
}

// TelegramInput 更新 Telegram 设置的输入
type TelegramInput struct {
	Enabled  bool
	BotToken string
	ChatID   string
}

// SettingsService 读写保留策略、品牌与 Telegram 设置。
//
// Get* 方法在设置缺失时返回默认值，格式错误时返回 storage.ErrMalformedSetting，
// Public* 方法则在任何错误时记录日志并回退到默认值。
type SettingsService struct {
	store    storage.SettingRepository
	defaults SettingsDefaults
	log      *zap.Logger
	metrics  *monitoring.Metrics
	now      func() time.Time
}

// NewSettingsService 创建设置服务
func NewSettingsService(store storage.SettingRepository, defaults SettingsDefaults, log *zap.Logger, metrics *monitoring.Metrics) *SettingsService {
	if defaults.RetentionSeconds <= 0 {
		defaults.RetentionSeconds = domain.DefaultRetentionSeconds
	}
	if name, ok := domain.NormalizeAppName(defaults.AppName); ok {
		defaults.AppName = name
	} else {
		defaults.AppName = domain.DefaultAppName
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SettingsService{
		store:    store,
		defaults: defaults,
		log:      log,
		metrics:  metrics,
		now:      time.Now,
	}
}

// SetClock 替换时间来源（测试使用）
func (s *SettingsService) SetClock(now func() time.Time) {
	s.now = now
}

// ========== 保留策略 ==========

// GetRetention 获取保留策略，未设置时返回默认值
func (s *SettingsService) GetRetention(ctx context.Context) (domain.RetentionSettings, error) {
	var retention domain.RetentionSettings
	found, err := s.load(ctx, domain.SettingKeyRetention, &retention)
	if err != nil {
		return domain.RetentionSettings{}, err
	}
	if !found {
		return s.defaultRetention(), nil
	}
	return retention, nil
}

// PublicRetention 公开接口使用，任何错误都回退到默认值
func (s *SettingsService) PublicRetention(ctx context.Context) domain.RetentionSettings {
	retention, err := s.GetRetention(ctx)
	if err != nil {
		s.log.Warn("falling back to default retention", zap.Error(err))
		return s.defaultRetention()
	}
	return retention
}

// SetRetention 更新保留秒数
func (s *SettingsService) SetRetention(ctx context.Context, seconds int) (domain.RetentionSettings, error) {
	if seconds <= 0 {
		return domain.RetentionSettings{}, ErrInvalidRetention
	}
	now := s.now().UTC()
	retention := domain.RetentionSettings{Seconds: seconds, UpdatedAt: domain.FormatISO(now)}
	if err := s.save(ctx, domain.SettingKeyRetention, retention, now); err != nil {
		return domain.RetentionSettings{}, err
	}
	return retention, nil
}

func (s *SettingsService) defaultRetention() domain.RetentionSettings {
	return domain.RetentionSettings{
		Seconds:   s.defaults.RetentionSeconds,
		UpdatedAt: domain.FormatISO(s.now()),
	}
}

// ========== 品牌 ==========

// GetBranding 获取品牌设置，未设置或名称无效时使用默认名称
func (s *SettingsService) GetBranding(ctx context.Context) (domain.BrandingSettings, error) {
	var branding domain.BrandingSettings
	found, err := s.load(ctx, domain.SettingKeyBranding, &branding)
	if err != nil {
		return domain.BrandingSettings{}, err
	}
	if !found {
		return domain.BrandingSettings{AppName: s.defaults.AppName, UpdatedAt: domain.FormatISO(s.now())}, nil
	}
	if name, ok := domain.NormalizeAppName(branding.AppName); ok {
		branding.AppName = name
	} else {
		branding.AppName = s.defaults.AppName
	}
	return branding, nil
}

// GetAppName 返回公开显示的站点名称，任何错误都回退到默认名称
func (s *SettingsService) GetAppName(ctx context.Context) string {
	branding, err := s.GetBranding(ctx)
	if err != nil {
		s.log.Warn("falling back to default app name", zap.Error(err))
		return s.defaults.AppName
	}
	return branding.AppName
}

// SetBranding 更新站点名称
func (s *SettingsService) SetBranding(ctx context.Context, appName string) (domain.BrandingSettings, error) {
	name, ok := domain.NormalizeAppName(appName)
	if !ok {
		return domain.BrandingSettings{}, ErrInvalidAppName
	}
	now := s.now().UTC()
	branding := domain.BrandingSettings{AppName: name, UpdatedAt: domain.FormatISO(now)}
	if err := s.save(ctx, domain.SettingKeyBranding, branding, now); err != nil {
		return domain.BrandingSettings{}, err
	}
	return branding, nil
}

// ========== Telegram ==========

// GetTelegram 获取 Telegram 设置，未设置时返回关闭状态
func (s *SettingsService) GetTelegram(ctx context.Context) (domain.TelegramSettings, error) {
	var telegram domain.TelegramSettings
	found, err := s.load(ctx, domain.SettingKeyTelegram, &telegram)
	if err != nil {
		return domain.TelegramSettings{}, err
	}
	if !found {
		return domain.DefaultTelegramSettings(s.now()), nil
	}
	return telegram, nil
}

// SetTelegram 更新 Telegram 设置，令牌与会话 ID 去除首尾空白
func (s *SettingsService) SetTelegram(ctx context.Context, input TelegramInput) (domain.TelegramSettings, error) {
	now := s.now().UTC()
	telegram := domain.TelegramSettings{
		Enabled:   input.Enabled,
		BotToken:  strings.TrimSpace(input.BotToken),
		ChatID:    strings.TrimSpace(input.ChatID),
		UpdatedAt: domain.FormatISO(now),
	}
	if err := s.save(ctx, domain.SettingKeyTelegram, telegram, now); err != nil {
		return domain.TelegramSettings{}, err
	}
	return telegram, nil
}

// load 读取并解码设置项，不存在时 found 为 false
func (s *SettingsService) load(ctx context.Context, key string, out any) (bool, error) {
	setting, err := s.store.GetSetting(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if err := storage.DecodeSettingValue(setting, out); err != nil {
		s.log.Warn("malformed setting value", zap.String("key", key), zap.Error(err))
		return false, err
	}
	return true, nil
}

func (s *SettingsService) save(ctx context.Context, key string, value any, now time.Time) error {
	encoded, err := storage.EncodeSettingValue(value)
	if err != nil {
		return err
	}
	if err := s.store.SaveSetting(ctx, &domain.Setting{Key: key, Value: encoded, UpdatedAt: now}); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	s.metrics.RecordSettingUpdate(key)
	s.log.Info("setting updated", zap.String("key", key))
	return nil
}
