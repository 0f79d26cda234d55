package provider

import (
	"context"
	"net/http"

	"github.com/John-Robertt/RidiMeta/internal/domain"
	"github.com/John-Robertt/RidiMeta/internal/genre"
)

// Parsed 是 Parse 的输出：规范记录加上只用于缓存的旁路数据。
type Parsed struct {
	Meta domain.BookMetadata
	// ISBN 只写入缓存，不出现在记录中。
	ISBN string
}

// Provider 把“站点变化”限制在 provider 包内部；worker 只依赖统一接口与稳定的 BookMetadata。
//
// 约束：
// - Fetch 不做缓存、不做重试（一次尽力而为）
// - Parse 必须是纯函数：相同输入 => 相同输出
// - pageURL 是详情页 URL，也是站点内 ID 的来源
type Provider interface {
	Name() string
	Fetch(ctx context.Context, pageURL string, c *http.Client) (html []byte, err error)
	Parse(html []byte, pageURL string, mapping genre.Mapping) (Parsed, error)
}
