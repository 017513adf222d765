package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// SessionCookieName 管理员会话 Cookie 名称
const SessionCookieName = "vaultmail_admin_session"

// SessionValidator 校验管理员会话令牌，由 service.AdminAuthService 实现
type SessionValidator interface {
	IsSessionValid(ctx context.Context, token string) bool
}

// AdminAuth 管理员会话中间件
type AdminAuth struct {
	sessions SessionValidator
}

// NewAdminAuth 创建管理员会话中间件
func NewAdminAuth(sessions SessionValidator) *AdminAuth {
	return &AdminAuth{sessions: sessions}
}

// RequireAdmin 要求有效会话，否则返回纯文本 401
func (a *AdminAuth) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.authorized(c) {
			c.String(http.StatusUnauthorized, "Unauthorized")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAdminJSON 同 RequireAdmin，但以 JSON 返回 401
func (a *AdminAuth) RequireAdminJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.authorized(c) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func (a *AdminAuth) authorized(c *gin.Context) bool {
	token, err := c.Cookie(SessionCookieName)
	if err != nil || token == "" {
		return false
	}
	return a.sessions.IsSessionValid(c.Request.Context(), token)
}
