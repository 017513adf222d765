package domain

import (
	"errors"
	"strings"
	"time"
)

// ISOLayout 对外输出的时间格式（UTC，毫秒精度）
const ISOLayout = "2006-01-02T15:04:05.000Z"

// ErrInvalidTimestamp 时间字符串无法解析
var ErrInvalidTimestamp = errors.New("invalid timestamp")

// 可接受的时间格式，按常见程度排列
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	"02-Jan-2006",
	"2006.01.02",
}

// FormatISO 将时间格式化为 UTC ISO-8601 字符串
func FormatISO(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

// FormatISOPtr 同 FormatISO，nil 返回 nil
func FormatISOPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := FormatISO(*t)
	return &s
}

// ParseTimestamp 解析外部系统返回的时间字符串，统一转换为 UTC
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrInvalidTimestamp
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, ErrInvalidTimestamp
}
