package domain

import (
	"strings"

	"golang.org/x/text/language"
)

// languageNames 是常见语言名（含本地写法）到 ISO 639-2 代码的表。
var languageNames = map[string]string{
	"English":    "eng",
	"Englisch":   "eng",
	"French":     "fra",
	"Français":   "fra",
	"Italian":    "ita",
	"Italiano":   "ita",
	"Dutch":      "dut",
	"German":     "deu",
	"Deutsch":    "deu",
	"Spanish":    "spa",
	"Español":    "spa",
	"Espaniol":   "spa",
	"Japanese":   "jpn",
	"日本語":        "jpn",
	"Korean":     "kor",
	"한국어":        "kor",
	"Portuguese": "por",
	"Português":  "por",
}

// LanguageCode 把语言名换算为 ISO 639-2 代码。
// 表中没有时按 BCP 47 标签解析（如 "ko"、"ko-KR"）；都失败返回 false。
func LanguageCode(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if code, ok := languageNames[name]; ok {
		return code, true
	}
	tag, err := language.Parse(name)
	if err != nil {
		return "", false
	}
	base, conf := tag.Base()
	if conf == language.No {
		return "", false
	}
	return base.ISO3(), true
}

// KoreanCode 是记录 Language 字段的固定值。
var KoreanCode = func() string {
	base, _ := language.Korean.Base()
	return base.ISO3()
}()
