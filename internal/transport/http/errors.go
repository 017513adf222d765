package httptransport

import (
	"errors"
	"net/http"

	"vaultmail/backend/internal/domain"
	"vaultmail/backend/internal/service"
)

// 客户端依赖的错误消息，保持原文
const (
	MsgUnauthorized    = "Unauthorized"
	MsgMissingFields   = "Missing fields"
	MsgInternalError   = "Internal Server Error"
	MsgAddressRequired = "Address required"
	MsgInvalidDomain   = "Invalid domain"
	MsgInvalidAppName  = "Invalid app name"
	MsgTooManyAttempts = "Too many attempts"
)

// errorStatus 业务错误 -> HTTP 状态码与消息
var errorStatus = []struct {
	err    error
	status int
	msg    string
}{
	{service.ErrUnauthorized, http.StatusUnauthorized, MsgUnauthorized},
	{service.ErrTooManyAttempts, http.StatusTooManyRequests, MsgTooManyAttempts},
	{service.ErrInvalidRetention, http.StatusBadRequest, MsgMissingFields},
	{service.ErrInvalidAppName, http.StatusBadRequest, MsgInvalidAppName},
	{domain.ErrInvalidDomain, http.StatusBadRequest, MsgInvalidDomain},
	{domain.ErrDomainTooLong, http.StatusBadRequest, MsgInvalidDomain},
}

// statusForError 未知错误一律按 500 处理
func statusForError(err error) (int, string) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status, e.msg
		}
	}
	return http.StatusInternalServerError, MsgInternalError
}
