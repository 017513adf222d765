package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vaultmail/backend/internal/service"
)

// PublicHandler 公开API处理器（无需认证）
type PublicHandler struct {
	settings    *service.SettingsService
	inbox       *service.InboxService
	expirations *service.DomainExpirationService
	log         *zap.Logger
}

// NewPublicHandler 创建公开API处理器
func NewPublicHandler(
	settings *service.SettingsService,
	inbox *service.InboxService,
	expirations *service.DomainExpirationService,
	log *zap.Logger,
) *PublicHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &PublicHandler{settings: settings, inbox: inbox, expirations: expirations, log: log}
}

// BrandingResponse 公开品牌信息
type BrandingResponse struct {
	AppName string `json:"appName"`
}

// InboxResponse 收件箱响应
type InboxResponse struct {
	Emails []service.InboxEmail `json:"emails"`
}

// GetBranding godoc
// @Summary 获取站点名称
// @Tags Public
// @Produce json
// @Success 200 {object} BrandingResponse
// @Router /api/branding [get]
func (h *PublicHandler) GetBranding(c *gin.Context) {
	c.JSON(http.StatusOK, BrandingResponse{AppName: h.settings.GetAppName(c.Request.Context())})
}

// GetRetention godoc
// @Summary 获取邮件保留时长
// @Tags Public
// @Produce json
// @Success 200 {object} domain.RetentionSettings
// @Router /api/retention [get]
func (h *PublicHandler) GetRetention(c *gin.Context) {
	c.JSON(http.StatusOK, h.settings.PublicRetention(c.Request.Context()))
}

// GetInbox godoc
// @Summary 查询收件箱
// @Description 地址不区分大小写；查询失败时返回空列表
// @Tags Public
// @Produce json
// @Param address query string true "收件地址"
// @Success 200 {object} InboxResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/inbox [get]
func (h *PublicHandler) GetInbox(c *gin.Context) {
	address := c.Query("address")
	if address == "" {
		writeError(c, http.StatusBadRequest, MsgAddressRequired)
		return
	}

	c.Header("Cache-Control", "no-store")
	result := h.inbox.ListForAddress(c.Request.Context(), address)
	if result.Status == service.InboxUnavailable {
		_ = c.Error(result.Err)
	}
	c.JSON(http.StatusOK, InboxResponse{Emails: result.Emails})
}

// GetDomainExpiration godoc
// @Summary 获取域名到期时间
// @Description 优先返回 24 小时内的缓存，未命中时实时查询 WHOIS
// @Tags Public
// @Produce json
// @Param domain path string true "域名"
// @Success 200 {object} service.DomainExpirationView
// @Failure 400 {object} ErrorResponse
// @Router /api/domains/{domain}/expiration [get]
func (h *PublicHandler) GetDomainExpiration(c *gin.Context) {
	view, err := h.expirations.Lookup(c.Request.Context(), c.Param("domain"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
