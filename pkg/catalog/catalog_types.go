package catalog

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Text 远端标量字段
// 接口同一字段有时返回字符串、有时返回数字或 null，统一解码为字符串
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(strings.TrimSpace(s))
		return nil
	}

	// 数字 / 布尔：保留原始字面量
	*t = Text(string(data))
	return nil
}

func (t Text) String() string { return string(t) }

// Empty 空值或仅空白
func (t Text) Empty() bool { return strings.TrimSpace(string(t)) == "" }

// Version 远端 lastUpdated 逻辑版本
// 不同来源的格式不保证一致，只在同一商品的两次取值之间比较
type Version string

func (v *Version) UnmarshalJSON(data []byte) error {
	var t Text
	if err := t.UnmarshalJSON(data); err != nil {
		return err
	}
	*v = Version(t)
	return nil
}

func (v Version) String() string { return string(v) }

// Compare 比较两个版本：两者都是数字时按数值比较，否则按字典序
// 返回 -1 / 0 / 1
func (v Version) Compare(other Version) int {
	a, b := strings.TrimSpace(string(v)), strings.TrimSpace(string(other))

	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}

	return strings.Compare(a, b)
}

// After 严格大于
func (v Version) After(other Version) bool {
	return v.Compare(other) > 0
}
