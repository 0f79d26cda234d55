package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS isbn_identifier (
	isbn       TEXT PRIMARY KEY,
	identifier TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS identifier_cover (
	identifier TEXT PRIMARY KEY,
	cover_url  TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

// SQLite 是落盘的标识符缓存。
//
// 约束：
// - 单连接（SetMaxOpenConns(1)），所有写入串行，天然满足并发写不损坏
// - ReadOnly=true 时拒绝写入，并以只读模式打开数据库文件
type SQLite struct {
	db       *sql.DB
	ReadOnly bool
}

// OpenSQLite 打开（必要时创建）path 处的缓存库。
func OpenSQLite(path string, readOnly bool) (*SQLite, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("cache_path 不能为空")
	}

	dsn := path
	if path != ":memory:" {
		path = filepath.Clean(path)
		if readOnly {
			if _, err := os.Stat(path); err != nil {
				return nil, fmt.Errorf("缓存库不存在：%w", err)
			}
			dsn = "file:" + path + "?mode=ro"
		} else {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, fmt.Errorf("创建缓存目录失败：%w", err)
			}
			dsn = "file:" + path + "?_busy_timeout=5000"
		}
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if !readOnly {
		if _, err := db.Exec(schema); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("初始化缓存表失败：%w", err)
		}
	}
	return &SQLite{db: db, ReadOnly: readOnly}, nil
}

func (s *SQLite) PutISBN(ctx context.Context, isbn, id string) error {
	if s.ReadOnly {
		return ErrReadOnly
	}
	isbn, id, err := cleanPair(isbn, id)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO isbn_identifier (isbn, identifier, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(isbn) DO UPDATE SET identifier = excluded.identifier, updated_at = excluded.updated_at`, isbn, id)
	return err
}

func (s *SQLite) PutCoverURL(ctx context.Context, id, url string) error {
	if s.ReadOnly {
		return ErrReadOnly
	}
	id, url, err := cleanPair(id, url)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO identifier_cover (identifier, cover_url, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(identifier) DO UPDATE SET cover_url = excluded.cover_url, updated_at = excluded.updated_at`, id, url)
	return err
}

func (s *SQLite) IdentifierForISBN(ctx context.Context, isbn string) (string, bool, error) {
	return s.lookup(ctx, `SELECT identifier FROM isbn_identifier WHERE isbn = ?`, isbn)
}

func (s *SQLite) CoverURLForIdentifier(ctx context.Context, id string) (string, bool, error) {
	return s.lookup(ctx, `SELECT cover_url FROM identifier_cover WHERE identifier = ?`, id)
}

func (s *SQLite) lookup(ctx context.Context, q, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, q, strings.TrimSpace(key)).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *SQLite) Close() error { return s.db.Close() }
