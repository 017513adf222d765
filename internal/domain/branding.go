package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// DefaultAppName 未配置品牌时使用的站点名称
const DefaultAppName = "VaultMail"

// MaxAppNameLength 站点名称最大字符数
const MaxAppNameLength = 48

// NormalizeAppName 规范化站点名称
//
// 处理步骤：Unicode NFC 规范化、去除控制字符、折叠连续空白、去除首尾空白。
// 结果为空或超过 MaxAppNameLength 个字符时返回 false。
func NormalizeAppName(name string) (string, bool) {
	name = norm.NFC.String(name)

	var b strings.Builder
	b.Grow(len(name))
	lastSpace := false
	for _, r := range name {
		switch {
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
			}
			lastSpace = true
		case unicode.IsControl(r):
		default:
			b.WriteRune(r)
			lastSpace = false
		}
	}

	out := strings.TrimSpace(b.String())
	if out == "" || utf8.RuneCountInString(out) > MaxAppNameLength {
		return "", false
	}
	return out, true
}
