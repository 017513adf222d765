package httptransport

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vaultmail/backend/internal/middleware"
	"vaultmail/backend/internal/service"
)

// AdminAuthHandler 管理员登录相关接口
type AdminAuthHandler struct {
	auth         *service.AdminAuthService
	cookieSecure bool
	log          *zap.Logger
}

// NewAdminAuthHandler 创建登录处理器
func NewAdminAuthHandler(auth *service.AdminAuthService, cookieSecure bool, log *zap.Logger) *AdminAuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminAuthHandler{auth: auth, cookieSecure: cookieSecure, log: log}
}

// LoginRequest 登录请求
type LoginRequest struct {
	Password string `json:"password"`
}

// SessionStatus 会话状态
type SessionStatus struct {
	Authenticated bool `json:"authenticated"`
}

// Login godoc
// @Summary 管理员登录
// @Description 校验管理密码，成功后通过 HTTP-only Cookie 下发 7 天有效的会话令牌
// @Tags Admin - Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "管理密码"
// @Success 200 {object} SuccessResponse
// @Failure 401 {string} string "Unauthorized"
// @Failure 429 {object} ErrorResponse
// @Router /api/admin/auth [post]
func (h *AdminAuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		req.Password = ""
	}

	session, err := h.auth.Authenticate(c.Request.Context(), req.Password, c.ClientIP())
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		writeUnauthorizedText(c)
		return
	case err != nil:
		writeServiceError(c, err)
		return
	}

	h.setSessionCookie(c, session.Token, int(h.auth.SessionTTL().Seconds()))
	writeSuccess(c)
}

// Logout godoc
// @Summary 管理员退出
// @Description 删除当前会话并清除 Cookie
// @Tags Admin - Auth
// @Produce json
// @Success 200 {object} SuccessResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/admin/logout [post]
func (h *AdminAuthHandler) Logout(c *gin.Context) {
	token, _ := c.Cookie(middleware.SessionCookieName)
	if err := h.auth.Logout(c.Request.Context(), token); err != nil {
		h.log.Error("admin logout failed", zap.Error(err))
		writeServiceError(c, err)
		return
	}

	h.setSessionCookie(c, "", -1)
	writeSuccess(c)
}

// Session godoc
// @Summary 查询会话状态
// @Tags Admin - Auth
// @Produce json
// @Success 200 {object} SessionStatus
// @Router /api/admin/session [get]
func (h *AdminAuthHandler) Session(c *gin.Context) {
	token, _ := c.Cookie(middleware.SessionCookieName)
	c.JSON(http.StatusOK, SessionStatus{
		Authenticated: h.auth.IsSessionValid(c.Request.Context(), token),
	})
}

func (h *AdminAuthHandler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookieName, value, maxAge, "/", "", h.cookieSecure, true)
}
