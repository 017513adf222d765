package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"vaultmail/backend/internal/domain"
)

var (
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("record not found")
	// ErrMalformedSetting 设置值无法解析
	ErrMalformedSetting = errors.New("malformed setting value")
)

// MalformedSettingError 描述某个设置项的存储值无法解码。
//
// errors.Is(err, ErrMalformedSetting) 对该类型返回 true。
type MalformedSettingError struct {
	Key string
	Err error
}

func (e *MalformedSettingError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("setting %q: %s", e.Key, ErrMalformedSetting)
	}
	return fmt.Sprintf("setting %q: %s: %v", e.Key, ErrMalformedSetting, e.Err)
}

func (e *MalformedSettingError) Unwrap() error { return e.Err }

// Is 使 errors.Is(err, ErrMalformedSetting) 成立
func (e *MalformedSettingError) Is(target error) bool {
	return target == ErrMalformedSetting
}

// EncodeSettingValue 将设置值序列化为规范 JSON 文本
func EncodeSettingValue(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("encode setting value: %w", err)
	}
	return string(data), nil
}

// DecodeSettingValue 将存储的设置值解码到 out（必须为结构体指针）。
//
// 值必须是 JSON 对象；空值、null、数组与标量都视为格式错误。
func DecodeSettingValue(setting *domain.Setting, out any) error {
	raw := bytes.TrimSpace([]byte(setting.Value))
	if len(raw) == 0 || raw[0] != '{' {
		return &MalformedSettingError{Key: setting.Key, Err: errors.New("value is not a JSON object")}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &MalformedSettingError{Key: setting.Key, Err: err}
	}
	return nil
}
