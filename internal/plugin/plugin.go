// Package plugin 是 worker 看到的宿主上下文：标识符缓存、记录清理、分类映射。
package plugin

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/John-Robertt/RidiMeta/internal/domain"
	"github.com/John-Robertt/RidiMeta/internal/genre"
	"github.com/John-Robertt/RidiMeta/internal/infra/cache"
	"github.com/John-Robertt/RidiMeta/internal/textnorm"
)

// Context 实现 worker 需要的宿主能力。
//
// 约束：Mapping 在构造后只读；Cache 自身保证并发写安全。
type Context struct {
	Cache   cache.Store
	Mapping genre.Mapping
	Log     zerolog.Logger
}

func New(store cache.Store, mapping genre.Mapping, log zerolog.Logger) *Context {
	if store == nil {
		store = cache.NewMemory()
	}
	return &Context{Cache: store, Mapping: mapping, Log: log}
}

func (c *Context) CacheIsbnToIdentifier(ctx context.Context, isbn, id string) error {
	if err := c.Cache.PutISBN(ctx, isbn, id); err != nil {
		return err
	}
	c.Log.Debug().Str("isbn", isbn).Str("id", id).Msg("cached isbn")
	return nil
}

func (c *Context) CacheIdentifierToCoverURL(ctx context.Context, id, url string) error {
	if err := c.Cache.PutCoverURL(ctx, id, url); err != nil {
		return err
	}
	c.Log.Debug().Str("id", id).Str("cover_url", url).Msg("cached cover url")
	return nil
}

func (c *Context) GenreMapping() genre.Mapping { return c.Mapping }

// CleanDownloadedMetadata 是发布前的最后一道整理。
//
// 约束：
// - 文本字段做 NFC 与首尾空白整理
// - authors 去掉空项并去重（保持首次出现顺序）
// - tags 去掉空项；整理后为空则置 nil
func (c *Context) CleanDownloadedMetadata(m *domain.BookMetadata) {
	if m == nil {
		return
	}
	m.Title = clean(m.Title)
	m.Publisher = clean(m.Publisher)
	m.Authors = dedupe(m.Authors)
	if m.Tags != nil {
		m.Tags = dedupe(m.Tags)
		if len(m.Tags) == 0 {
			m.Tags = nil
		}
	}
	if m.Series != nil {
		m.Series.Name = clean(m.Series.Name)
	}
}

func clean(s string) string {
	return strings.Join(strings.Fields(textnorm.NFC(s)), " ")
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = clean(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
