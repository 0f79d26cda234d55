package domain

import "time"

// SourceRidibooks 是 Identifier.Source 的固定取值。
const SourceRidibooks = "ridibooks"

// Identifier 是 (来源, 站点内 ID) 二元组。
type Identifier struct {
	Source string `json:"source"`
	ID     string `json:"id"`
}

// Series 是系列名与卷序号。
type Series struct {
	Name  string  `json:"name"`
	Index float64 `json:"index"`
}

// BookMetadata 是一次成功提取后输出的规范记录。
//
// 约束：
// - Title / Authors / Identifier 一定非空；其余必填字段缺失时整条记录不产生
// - Tags 为 nil 表示“无值”，与空切片区分对待
// - Language 固定为 ISO 639-2 代码（当前只有 "kor"）
type BookMetadata struct {
	Title      string     `json:"title"`
	Authors    []string   `json:"authors"`
	Identifier Identifier `json:"identifier"`

	CoverURL string `json:"cover_url"`
	HasCover bool   `json:"has_cover"`

	Publisher string    `json:"publisher"`
	PubDate   time.Time `json:"pubdate"`
	Comments  string    `json:"comments"`
	Rating    float64   `json:"rating"`
	Language  string    `json:"language"`
	Tags      []string  `json:"tags,omitempty"`
	Series    *Series   `json:"series,omitempty"`

	SourceRelevance int `json:"source_relevance"`
}

// Clone 返回深拷贝；发布到结果通道前使用，避免与缓存或后处理共享切片。
func (m BookMetadata) Clone() BookMetadata {
	out := m
	out.Authors = append([]string(nil), m.Authors...)
	if m.Tags != nil {
		out.Tags = append([]string(nil), m.Tags...)
	}
	if m.Series != nil {
		s := *m.Series
		out.Series = &s
	}
	return out
}
