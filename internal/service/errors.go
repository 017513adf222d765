package service

import "errors"

var (
	// ErrUnauthorized 管理密码错误或未配置
	ErrUnauthorized = errors.New("unauthorized access")
	// ErrTooManyAttempts 登录失败次数过多
	ErrTooManyAttempts = errors.New("too many login attempts")
	// ErrInvalidRetention 保留秒数必须为正整数
	ErrInvalidRetention = errors.New("retention seconds must be positive")
	// ErrInvalidAppName 站点名称为空或过长
	ErrInvalidAppName = errors.New("invalid app name")
)
