package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"vaultmail/backend/internal/config"
)

var (
	// ErrEmptyPassword 密码为空
	ErrEmptyPassword = errors.New("password must not be empty")
	// ErrInvalidHash bcrypt 哈希格式无效
	ErrInvalidHash = errors.New("invalid bcrypt hash")
)

// HashPassword 对密码进行哈希
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword 检查密码是否与哈希匹配
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// Verifier 校验管理密码。配置了哈希时使用 bcrypt，否则以常量时间比较明文。
type Verifier struct {
	plain string
	hash  string
}

// NewVerifier 根据管理配置创建校验器
func NewVerifier(cfg config.AdminConfig) (*Verifier, error) {
	if cfg.PasswordHash != "" {
		if _, err := bcrypt.Cost([]byte(cfg.PasswordHash)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidHash, err)
		}
	}
	return &Verifier{plain: cfg.Password, hash: cfg.PasswordHash}, nil
}

// Configured 是否配置了管理密码
func (v *Verifier) Configured() bool {
	return v.plain != "" || v.hash != ""
}

// Verify 校验密码；未配置管理密码时始终失败
func (v *Verifier) Verify(password string) bool {
	if password == "" {
		return false
	}
	if v.hash != "" {
		return CheckPassword(password, v.hash)
	}
	if v.plain == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(v.plain)) == 1
}

// NewSessionToken 生成随机会话令牌（UUID v4）
func NewSessionToken() string {
	return uuid.NewString()
}
