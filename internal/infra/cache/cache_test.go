package cache

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
)

func testStores(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := OpenSQLite(filepath.Join(t.TempDir(), "cache", "ridimeta.db"), false)
	if err != nil {
		t.Fatalf("打开 SQLite 失败：%v", err)
	}
	t.Cleanup(func() { _ = sq.Close() })
	return map[string]Store{"memory": NewMemory(), "sqlite": sq}
}

func TestStore_PutAndLookup(t *testing.T) {
	ctx := context.Background()
	for name, s := range testStores(t) {
		if err := s.PutISBN(ctx, "9791190000001", "987654"); err != nil {
			t.Fatalf("[%s] PutISBN 失败：%v", name, err)
		}
		if err := s.PutCoverURL(ctx, "987654", "https://img.ridicdn.net/cover/987654/xxlarge"); err != nil {
			t.Fatalf("[%s] PutCoverURL 失败：%v", name, err)
		}

		id, ok, err := s.IdentifierForISBN(ctx, "9791190000001")
		if err != nil || !ok || id != "987654" {
			t.Fatalf("[%s] ISBN 查找不符：%q ok=%v err=%v", name, id, ok, err)
		}
		u, ok, err := s.CoverURLForIdentifier(ctx, "987654")
		if err != nil || !ok || u != "https://img.ridicdn.net/cover/987654/xxlarge" {
			t.Fatalf("[%s] 封面查找不符：%q ok=%v err=%v", name, u, ok, err)
		}
		if _, ok, err := s.IdentifierForISBN(ctx, "0000"); ok || err != nil {
			t.Fatalf("[%s] 未命中应返回 ok=false err=nil，实际 ok=%v err=%v", name, ok, err)
		}
	}
}

func TestStore_LastWriteWins(t *testing.T) {
	ctx := context.Background()
	for name, s := range testStores(t) {
		_ = s.PutISBN(ctx, "isbn-1", "a")
		_ = s.PutISBN(ctx, "isbn-1", "b")
		if id, _, _ := s.IdentifierForISBN(ctx, "isbn-1"); id != "b" {
			t.Fatalf("[%s] 期望最后一次写入生效，实际 %q", name, id)
		}
	}
}

func TestStore_RejectsEmpty(t *testing.T) {
	ctx := context.Background()
	for name, s := range testStores(t) {
		if err := s.PutISBN(ctx, "", "a"); err == nil {
			t.Fatalf("[%s] 空 ISBN 应返回错误", name)
		}
		if err := s.PutCoverURL(ctx, "a", " "); err == nil {
			t.Fatalf("[%s] 空 URL 应返回错误", name)
		}
	}
}

func TestStore_ConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	for name, s := range testStores(t) {
		var wg sync.WaitGroup
		errs := make(chan error, 64)
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				id := fmt.Sprintf("%d", 1000+i)
				if err := s.PutISBN(ctx, fmt.Sprintf("isbn-%d", i), id); err != nil {
					errs <- err
				}
				if err := s.PutCoverURL(ctx, id, "https://img.example/"+id); err != nil {
					errs <- err
				}
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Fatalf("[%s] 并发写入失败：%v", name, err)
		}
		for i := 0; i < 32; i++ {
			id, ok, err := s.IdentifierForISBN(ctx, fmt.Sprintf("isbn-%d", i))
			if err != nil || !ok || id != fmt.Sprintf("%d", 1000+i) {
				t.Fatalf("[%s] 第 %d 条数据损坏：%q ok=%v err=%v", name, i, id, ok, err)
			}
		}
	}
}

func TestSQLite_ReadOnly(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ridimeta.db")
	rw, err := OpenSQLite(path, false)
	if err != nil {
		t.Fatalf("打开失败：%v", err)
	}
	if err := rw.PutISBN(ctx, "isbn-1", "1"); err != nil {
		t.Fatalf("写入失败：%v", err)
	}
	_ = rw.Close()

	ro, err := OpenSQLite(path, true)
	if err != nil {
		t.Fatalf("只读打开失败：%v", err)
	}
	defer ro.Close()
	if err := ro.PutISBN(ctx, "isbn-2", "2"); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("期望 ErrReadOnly，实际 %v", err)
	}
	if id, ok, _ := ro.IdentifierForISBN(ctx, "isbn-1"); !ok || id != "1" {
		t.Fatalf("只读模式应能读取：%q ok=%v", id, ok)
	}

	if _, err := OpenSQLite(filepath.Join(t.TempDir(), "missing.db"), true); err == nil {
		t.Fatalf("只读打开不存在的库应返回错误")
	}
}
