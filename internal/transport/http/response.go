package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse 错误响应 {error: message}
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse 成功响应 {success: true}
type SuccessResponse struct {
	Success bool `json:"success"`
}

// writeError 以 JSON 返回错误
func writeError(c *gin.Context, status int, msg string) {
	c.JSON(status, ErrorResponse{Error: msg})
}

// writeServiceError 根据业务错误选择状态码；5xx 错误记录到 gin 上下文供请求日志输出
func writeServiceError(c *gin.Context, err error) {
	status, msg := statusForError(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	writeError(c, status, msg)
}

// writeSuccess 返回 {success: true}
func writeSuccess(c *gin.Context) {
	c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

// writeUnauthorizedText 返回纯文本 401
func writeUnauthorizedText(c *gin.Context) {
	c.String(http.StatusUnauthorized, MsgUnauthorized)
}
