package worker

import (
	"sync"

	"github.com/John-Robertt/RidiMeta/internal/domain"
)

// Sink 是结果通道：并发安全，无序。
type Sink interface {
	Put(m domain.BookMetadata)
}

// ChanSink 把记录写入通道；通道容量由调用方决定。
type ChanSink chan<- domain.BookMetadata

func (s ChanSink) Put(m domain.BookMetadata) { s <- m }

// Collector 在内存中收集记录。
type Collector struct {
	mu   sync.Mutex
	recs []domain.BookMetadata
}

func (c *Collector) Put(m domain.BookMetadata) {
	c.mu.Lock()
	c.recs = append(c.recs, m)
	c.mu.Unlock()
}

// Records 返回当前已收集记录的副本。
func (c *Collector) Records() []domain.BookMetadata {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.BookMetadata(nil), c.recs...)
}

func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.recs)
}
