// Package series 从书名末尾的卷/话后缀识别系列信息。
package series

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/John-Robertt/RidiMeta/internal/textnorm"
)

// Info 是识别出的系列名与序号。
type Info struct {
	Name  string
	Index float64
}

const (
	volumeSuffix  = "권"
	episodeSuffix = "화"
)

var (
	volumeRE  = regexp.MustCompile(`^(.*?)\s*(\d+)` + volumeSuffix + `$`)
	episodeRE = regexp.MustCompile(`^(.*?)\s*(\d+)` + episodeSuffix)
)

// Detect 识别 "<系列名> <数字>권" 或 "<系列名> <数字>화"。
//
// 约束：
// - 书名以 권 结尾时用卷规则（只取末尾的 <数字>권），否则用话规则
// - 系列名去掉首尾空白；为空时不视为系列
func Detect(title string) (Info, bool) {
	title = strings.TrimSpace(textnorm.NFC(title))
	re := episodeRE
	if strings.HasSuffix(title, volumeSuffix) {
		re = volumeRE
	}
	m := re.FindStringSubmatch(title)
	if m == nil {
		return Info{}, false
	}
	name := strings.TrimSpace(m[1])
	if name == "" {
		return Info{}, false
	}
	idx, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return Info{}, false
	}
	return Info{Name: name, Index: idx}, true
}
