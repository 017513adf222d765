package httptransport

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// flexibleSeconds 接受数字或数字字符串（取前导整数部分），其他值视为 0
type flexibleSeconds int

// UnmarshalJSON 实现 json.Unmarshaler
func (s *flexibleSeconds) UnmarshalJSON(data []byte) error {
	*s = 0
	var raw any
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32 {
			return nil
		}
		*s = flexibleSeconds(math.Trunc(f))
	case string:
		*s = flexibleSeconds(leadingInt(v))
	}
	return nil
}

// strictSeconds 接受整数或完整的整数字符串（允许首尾空白），其他值视为 0
type strictSeconds int

// UnmarshalJSON 实现 json.Unmarshaler
func (s *strictSeconds) UnmarshalJSON(data []byte) error {
	*s = 0
	var raw any
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil {
		return err
	}

	var text string
	switch v := raw.(type) {
	case json.Number:
		text = v.String()
	case string:
		text = strings.TrimSpace(v)
	default:
		return nil
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return nil
	}
	*s = strictSeconds(f)
	return nil
}

// leadingInt 解析字符串开头的整数（可带符号），无法解析时返回 0
func leadingInt(v string) int {
	v = strings.TrimLeftFunc(v, unicode.IsSpace)
	end := 0
	if end < len(v) && (v[end] == '+' || v[end] == '-') {
		end++
	}
	digits := end
	for end < len(v) && v[end] >= '0' && v[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	n, err := strconv.ParseInt(v[:end], 10, 32)
	if err != nil {
		return 0
	}
	return int(n)
}

// looseBool 按 JavaScript 真值规则转换：false、0、空字符串与 null 为 false
type looseBool bool

// UnmarshalJSON 实现 json.Unmarshaler
func (b *looseBool) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case nil:
		*b = false
	case bool:
		*b = looseBool(v)
	case float64:
		*b = looseBool(v != 0 && !math.IsNaN(v))
	case string:
		*b = v != ""
	default:
		*b = true
	}
	return nil
}

// looseString 字符串原样保留，数字与 true 转为文本，其他值视为空字符串
type looseString string

// UnmarshalJSON 实现 json.Unmarshaler
func (s *looseString) UnmarshalJSON(data []byte) error {
	var raw any
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case string:
		*s = looseString(v)
	case json.Number:
		if v.String() == "0" {
			*s = ""
		} else {
			*s = looseString(v.String())
		}
	case bool:
		if v {
			*s = "true"
		} else {
			*s = ""
		}
	default:
		*s = ""
	}
	return nil
}
