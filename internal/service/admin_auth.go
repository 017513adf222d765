package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"vaultmail/backend/internal/auth"
	"vaultmail/backend/internal/domain"
	"vaultmail/backend/internal/monitoring"
	"vaultmail/backend/internal/storage"
)

// AdminAuthService 管理后台认证：共享管理密码换取匿名会话令牌。
type AdminAuthService struct {
	sessions   storage.AdminSessionRepository
	verifier   *auth.Verifier
	limiter    *auth.AttemptLimiter
	sessionTTL time.Duration
	log        *zap.Logger
	metrics    *monitoring.Metrics
	now        func() time.Time
}

// NewAdminAuthService 创建认证服务；limiter 为 nil 时不限制登录频率
func NewAdminAuthService(
	sessions storage.AdminSessionRepository,
	verifier *auth.Verifier,
	limiter *auth.AttemptLimiter,
	sessionTTL time.Duration,
	log *zap.Logger,
	metrics *monitoring.Metrics,
) *AdminAuthService {
	if sessionTTL <= 0 {
		sessionTTL = domain.AdminSessionTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminAuthService{
		sessions:   sessions,
		verifier:   verifier,
		limiter:    limiter,
		sessionTTL: sessionTTL,
		log:        log,
		metrics:    metrics,
		now:        time.Now,
	}
}

// SetClock 替换时间来源（测试使用）
func (s *AdminAuthService) SetClock(now func() time.Time) {
	s.now = now
}

// SessionTTL 会话有效期
func (s *AdminAuthService) SessionTTL() time.Duration {
	return s.sessionTTL
}

// Authenticate 校验管理密码并创建会话。
//
// 密码错误或未配置管理密码时返回 ErrUnauthorized，且不写入任何会话。
func (s *AdminAuthService) Authenticate(ctx context.Context, password, clientIP string) (*domain.AdminSession, error) {
	if s.limiter != nil && s.limiter.Blocked(clientIP) {
		s.metrics.RecordAdminLogin(monitoring.ResultThrottled)
		s.log.Warn("admin login throttled", zap.String("ip", clientIP))
		return nil, ErrTooManyAttempts
	}

	if !s.verifier.Verify(password) {
		if s.limiter != nil {
			s.limiter.Fail(clientIP)
		}
		s.metrics.RecordAdminLogin(monitoring.ResultFailure)
		if !s.verifier.Configured() {
			s.log.Warn("admin login rejected: no admin password configured", zap.String("ip", clientIP))
		} else {
			s.log.Info("admin login failed", zap.String("ip", clientIP))
		}
		return nil, ErrUnauthorized
	}

	now := s.now().UTC()
	session := &domain.AdminSession{
		Token:     auth.NewSessionToken(),
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
	}
	if err := s.sessions.SaveAdminSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create admin session: %w", err)
	}

	if s.limiter != nil {
		s.limiter.Reset(clientIP)
	}
	s.metrics.RecordAdminLogin(monitoring.ResultSuccess)
	s.log.Info("admin login succeeded", zap.String("ip", clientIP))
	return session, nil
}

// IsSessionValid 令牌存在且到期时间严格晚于当前时间时返回 true。
//
// 存储错误按无效处理并记录日志。
func (s *AdminAuthService) IsSessionValid(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}

	session, err := s.sessions.GetAdminSession(ctx, token)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Error("failed to load admin session", zap.Error(err))
		}
		return false
	}
	return session.IsActive(s.now())
}

// Logout 删除会话，令牌为空或不存在时不报错
func (s *AdminAuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.DeleteAdminSession(ctx, token); err != nil {
		return fmt.Errorf("delete admin session: %w", err)
	}
	return nil
}
