package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vaultmail/backend/internal/service"
)

// AdminHandler 管理后台接口（均需有效会话）
type AdminHandler struct {
	settings    *service.SettingsService
	admin       *service.AdminService
	expirations *service.DomainExpirationService
	log         *zap.Logger
}

// NewAdminHandler 创建管理处理器
func NewAdminHandler(
	settings *service.SettingsService,
	admin *service.AdminService,
	expirations *service.DomainExpirationService,
	log *zap.Logger,
) *AdminHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminHandler{settings: settings, admin: admin, expirations: expirations, log: log}
}

// RetentionRequest 更新保留时长请求
type RetentionRequest struct {
	Seconds strictSeconds `json:"seconds" swaggertype:"integer"`
}

// TelegramRequest 更新 Telegram 设置请求
type TelegramRequest struct {
	Enabled  looseBool   `json:"enabled" swaggertype:"boolean"`
	BotToken looseString `json:"botToken" swaggertype:"string"`
	ChatID   looseString `json:"chatId" swaggertype:"string"`
}

// BrandingRequest 更新品牌请求
type BrandingRequest struct {
	AppName looseString `json:"appName" swaggertype:"string"`
}

// LegacySettingsRequest 旧版设置接口请求
type LegacySettingsRequest struct {
	RetentionSeconds flexibleSeconds `json:"retentionSeconds" swaggertype:"integer"`
}

// GetRetention godoc
// @Summary 获取保留策略
// @Tags Admin - Settings
// @Produce json
// @Success 200 {object} domain.RetentionSettings
// @Failure 401 {string} string "Unauthorized"
// @Failure 500 {object} ErrorResponse
// @Router /api/admin/retention [get]
func (h *AdminHandler) GetRetention(c *gin.Context) {
	retention, err := h.settings.GetRetention(c.Request.Context())
	if err != nil {
		h.log.Error("failed to load retention settings", zap.Error(err))
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, retention)
}

// SetRetention godoc
// @Summary 更新保留策略
// @Tags Admin - Settings
// @Accept json
// @Produce json
// @Param request body RetentionRequest true "保留秒数"
// @Success 200 {object} domain.RetentionSettings
// @Failure 400 {object} ErrorResponse
// @Failure 401 {string} string "Unauthorized"
// @Failure 500 {object} ErrorResponse
// @Router /api/admin/retention [post]
func (h *AdminHandler) SetRetention(c *gin.Context) {
	var req RetentionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Seconds <= 0 {
		writeError(c, http.StatusBadRequest, MsgMissingFields)
		return
	}

	retention, err := h.settings.SetRetention(c.Request.Context(), int(req.Seconds))
	if err != nil {
		h.log.Error("failed to save retention settings", zap.Error(err))
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, retention)
}

// GetTelegram godoc
// @Summary 获取 Telegram 通知设置
// @Tags Admin - Settings
// @Produce json
// @Success 200 {object} domain.TelegramSettings
// @Failure 401 {string} string "Unauthorized"
// @Failure 500 {object} ErrorResponse
// @Router /api/admin/telegram [get]
func (h *AdminHandler) GetTelegram(c *gin.Context) {
	telegram, err := h.settings.GetTelegram(c.Request.Context())
	if err != nil {
		h.log.Error("failed to load telegram settings", zap.Error(err))
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, telegram)
}

// SetTelegram godoc
// @Summary 更新 Telegram 通知设置
// @Tags Admin - Settings
// @Accept json
// @Produce json
// @Param request body TelegramRequest true "Telegram 设置"
// @Success 200 {object} domain.TelegramSettings
// @Failure 400 {object} ErrorResponse
// @Failure 401 {string} string "Unauthorized"
// @Failure 500 {object} ErrorResponse
// @Router /api/admin/telegram [post]
func (h *AdminHandler) SetTelegram(c *gin.Context) {
	var req TelegramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, MsgMissingFields)
		return
	}

	telegram, err := h.settings.SetTelegram(c.Request.Context(), service.TelegramInput{
		Enabled:  bool(req.Enabled),
		BotToken: string(req.BotToken),
		ChatID:   string(req.ChatID),
	})
	if err != nil {
		h.log.Error("failed to save telegram settings", zap.Error(err))
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, telegram)
}

// GetBranding godoc
// @Summary 获取品牌设置
// @Tags Admin - Settings
// @Produce json
// @Success 200 {object} domain.BrandingSettings
// @Failure 401 {string} string "Unauthorized"
// @Failure 500 {object} ErrorResponse
// @Router /api/admin/branding [get]
func (h *AdminHandler) GetBranding(c *gin.Context) {
	branding, err := h.settings.GetBranding(c.Request.Context())
	if err != nil {
		h.log.Error("failed to load branding settings", zap.Error(err))
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, branding)
}

// SetBranding godoc
// @Summary 更新站点名称
// @Tags Admin - Settings
// @Accept json
// @Produce json
// @Param request body BrandingRequest true "站点名称"
// @Success 200 {object} domain.BrandingSettings
// @Failure 400 {object} ErrorResponse
// @Failure 401 {string} string "Unauthorized"
// @Failure 500 {object} ErrorResponse
// @Router /api/admin/branding [post]
func (h *AdminHandler) SetBranding(c *gin.Context) {
	var req BrandingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, MsgInvalidAppName)
		return
	}

	branding, err := h.settings.SetBranding(c.Request.Context(), string(req.AppName))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, branding)
}

// Stats godoc
// @Summary 获取收件统计
// @Tags Admin
// @Produce json
// @Success 200 {object} service.AdminStatsView
// @Failure 401 {string} string "Unauthorized"
// @Failure 500 {object} ErrorResponse
// @Router /api/admin/stats [get]
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.admin.Stats(c.Request.Context())
	if err != nil {
		h.log.Error("failed to load admin stats", zap.Error(err))
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// RefreshDomainExpiration godoc
// @Summary 强制刷新域名到期时间
// @Description 忽略缓存直接查询 WHOIS，结果写回缓存
// @Tags Admin
// @Produce json
// @Param domain path string true "域名"
// @Success 200 {object} service.DomainExpirationView
// @Failure 400 {object} ErrorResponse
// @Failure 401 {string} string "Unauthorized"
// @Router /api/admin/domains/{domain}/expiration/refresh [post]
func (h *AdminHandler) RefreshDomainExpiration(c *gin.Context) {
	view, err := h.expirations.Refresh(c.Request.Context(), c.Param("domain"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// LegacySettings godoc
// @Summary 更新保留时长（旧版接口）
// @Description retentionSeconds 接受数字或数字字符串
// @Tags Admin - Settings
// @Accept json
// @Produce json
// @Param request body LegacySettingsRequest true "保留秒数"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/settings [post]
func (h *AdminHandler) LegacySettings(c *gin.Context) {
	var req LegacySettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("settings request body rejected", zap.Error(err))
		writeError(c, http.StatusInternalServerError, MsgInternalError)
		return
	}
	if req.RetentionSeconds <= 0 {
		writeError(c, http.StatusBadRequest, MsgMissingFields)
		return
	}

	if _, err := h.settings.SetRetention(c.Request.Context(), int(req.RetentionSeconds)); err != nil {
		h.log.Error("failed to save retention settings", zap.Error(err))
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, MsgInternalError)
		return
	}
	writeSuccess(c)
}
