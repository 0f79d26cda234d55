package textnorm

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// DateFormatError 表示紧凑日期（YYYYMMDD）无法解析。
type DateFormatError struct {
	Input  string
	Reason string
}

func (e *DateFormatError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("日期格式无效：%q", e.Input)
	}
	return fmt.Sprintf("日期格式无效：%q（%s）", e.Input, e.Reason)
}

// NumericFormatError 表示评分等数值字段不是合法浮点数。
type NumericFormatError struct {
	Input string
	Err   error
}

func (e *NumericFormatError) Error() string {
	return fmt.Sprintf("数值格式无效：%q", e.Input)
}

func (e *NumericFormatError) Unwrap() error { return e.Err }

// 与 `^"(.*)"$` 语义一致：'.' 不跨行，所以多行文本不会被剥引号。
var quotedRE = regexp.MustCompile(`^"(.*)"$`)

// StripQuotes 先做 HTML 反转义，再剥掉一层首尾双引号。
//
// 注意顺序：先 unescape，所以 `&quot;x&quot;` 也会被剥成 x。
func StripQuotes(s string) string {
	s = html.UnescapeString(s)
	return quotedRE.ReplaceAllString(s, "$1")
}

// SplitList 把 `"a, b, c"` 形式的字段拆成 ["a","b","c"]。
func SplitList(s string) []string {
	parts := strings.Split(StripQuotes(s), ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

// ParseCompactDate 解析 8 位 YYYYMMDD，返回 UTC 零点。
func ParseCompactDate(s string) (time.Time, error) {
	if len(s) != 8 {
		return time.Time{}, &DateFormatError{Input: s, Reason: "长度必须为 8"}
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return time.Time{}, &DateFormatError{Input: s, Reason: "包含非数字字符"}
		}
	}
	year, _ := strconv.Atoi(s[0:4])
	month, _ := strconv.Atoi(s[4:6])
	day, _ := strconv.Atoi(s[6:8])

	if month < 1 || month > 12 {
		return time.Time{}, &DateFormatError{Input: s, Reason: "月份越界"}
	}
	// time.Date 会把 2 月 30 日规范化成 3 月 2 日；这里要求原样往返。
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if day < 1 || t.Day() != day || int(t.Month()) != month {
		return time.Time{}, &DateFormatError{Input: s, Reason: "日期越界"}
	}
	return t, nil
}

// NormalizeScore 把 0–5 分制的评分字符串换算为 0.0–1.0。
func NormalizeScore(s string) (float64, error) {
	v, err := ParseScore(s)
	if err != nil {
		return 0, err
	}
	return v / 5.0, nil
}

// ParseScore 只做浮点解析（站点的 normalized_value 已经是 0–1）。
func ParseScore(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, &NumericFormatError{Input: s, Err: err}
	}
	return v, nil
}

// NFC 做 Unicode NFC 规范化（部分页面的韩文是分解形式）。
func NFC(s string) string { return norm.NFC.String(s) }
