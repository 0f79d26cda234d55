// Package cache 保存两类标识符关联：ISBN → 站点 ID，站点 ID → 封面 URL。
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Store 是标识符缓存的统一接口。
//
// 约束：
// - 并发写安全；同一 key 重复写入以最后一次为准
// - 这是尽力而为的缓存，不是权威数据；读不到不是错误
type Store interface {
	PutISBN(ctx context.Context, isbn, id string) error
	PutCoverURL(ctx context.Context, id, url string) error
	IdentifierForISBN(ctx context.Context, isbn string) (string, bool, error)
	CoverURLForIdentifier(ctx context.Context, id string) (string, bool, error)
	Close() error
}

var ErrReadOnly = errors.New("cache: read-only")

// Memory 是进程内缓存（未配置 cache_path 时使用）。
type Memory struct {
	mu     sync.RWMutex
	isbnID map[string]string
	idURL  map[string]string
}

func NewMemory() *Memory {
	return &Memory{
		isbnID: make(map[string]string),
		idURL:  make(map[string]string),
	}
}

func (m *Memory) PutISBN(_ context.Context, isbn, id string) error {
	isbn, id, err := cleanPair(isbn, id)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.isbnID[isbn] = id
	m.mu.Unlock()
	return nil
}

func (m *Memory) PutCoverURL(_ context.Context, id, url string) error {
	id, url, err := cleanPair(id, url)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.idURL[id] = url
	m.mu.Unlock()
	return nil
}

func (m *Memory) IdentifierForISBN(_ context.Context, isbn string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.isbnID[strings.TrimSpace(isbn)]
	return v, ok, nil
}

func (m *Memory) CoverURLForIdentifier(_ context.Context, id string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.idURL[strings.TrimSpace(id)]
	return v, ok, nil
}

func (m *Memory) Close() error { return nil }

func cleanPair(k, v string) (string, string, error) {
	k = strings.TrimSpace(k)
	v = strings.TrimSpace(v)
	if k == "" || v == "" {
		return "", "", fmt.Errorf("缓存 key/value 不能为空：%q=%q", k, v)
	}
	return k, v, nil
}
