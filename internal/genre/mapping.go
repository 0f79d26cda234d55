// Package genre 把页面上的关键词与分类面包屑转换成规范标签。
package genre

import (
	"sort"
	"strings"
)

// Mapping 是“原始分类（小写）→ 规范标签列表”的只读快照。
//
// 约束：构造后不再修改；并发读安全。
type Mapping struct {
	m map[string][]string
}

// NewMapping 复制输入并把 key 统一转小写。
// 转小写后发生冲突时，按原始 key 排序取第一个，保证结果确定。
func NewMapping(raw map[string][]string) Mapping {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	m := make(map[string][]string, len(raw))
	for _, k := range keys {
		lk := strings.ToLower(k)
		if _, exists := m[lk]; exists {
			continue
		}
		m[lk] = append([]string(nil), raw[k]...)
	}
	return Mapping{m: m}
}

// Lookup 按小写 key 查找；返回值是副本。
func (m Mapping) Lookup(raw string) ([]string, bool) {
	v, ok := m.m[strings.ToLower(raw)]
	if !ok {
		return nil, false
	}
	return append([]string(nil), v...), true
}

func (m Mapping) Len() int { return len(m.m) }

// Keys 返回排序后的小写 key。
func (m Mapping) Keys() []string {
	out := make([]string, 0, len(m.m))
	for k := range m.m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Map 把原始标签映射为规范标签。
//
// 约束：
// - 查找大小写不敏感；命中且非空时追加映射出的各标签，否则原样追加原始标签
// - 结果去重并保持首次出现的顺序
// - 结果为空时返回 nil（调用方据此把 tags 视为“无值”）
func (m Mapping) Map(raw []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(raw))
	add := func(tag string) {
		if _, ok := seen[tag]; ok {
			return
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	for _, tag := range raw {
		if mapped := m.m[strings.ToLower(tag)]; len(mapped) > 0 {
			for _, t := range mapped {
				add(t)
			}
			continue
		}
		add(tag)
	}
	return out
}
