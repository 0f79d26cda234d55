package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestLoadEffective_NoConfigUsesDefaults(t *testing.T) {
	t.Setenv(EnvProxyURL, "")
	t.Setenv(EnvCachePath, "")
	cwd := t.TempDir()

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.ConfigFile != "" {
		t.Fatalf("未读取配置文件时 ConfigFile 应为空，实际 %q", eff.ConfigFile)
	}
	if eff.Concurrency != DefaultConcurrency || eff.Timeout != DefaultTimeout || eff.LogLevel != zerolog.InfoLevel {
		t.Fatalf("默认值不符：%+v", eff)
	}
	if eff.CachePath != "" || eff.ProxyURL != "" || eff.MappingFile != "" {
		t.Fatalf("不应有路径/代理默认值：%+v", eff)
	}
}

func TestLoadEffective_ExplicitConfigNotFound(t *testing.T) {
	cwd := t.TempDir()
	_, err := LoadEffective(cwd, CLIArgs{ConfigPath: "missing.json"})
	if Code(err) != ErrCodeNotFound {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeNotFound, err, Code(err))
	}
}

func TestLoadEffective_JSON5AndRelativePaths(t *testing.T) {
	t.Setenv(EnvProxyURL, "")
	t.Setenv(EnvCachePath, "")
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`{
  // 注释
  concurrency: 8,
  timeout: 30,
  cache_path: "data/cache.db",
  genre_mappings_file: "mappings.yaml",
  log_level: "DEBUG",
  base_url: "https://ridibooks.com/",
}`))

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Concurrency != 8 || eff.Timeout != 30*time.Second {
		t.Fatalf("concurrency/timeout 不符：%d %v", eff.Concurrency, eff.Timeout)
	}
	if eff.CachePath != filepath.Join(cwd, "data", "cache.db") {
		t.Fatalf("cache_path 应以配置文件目录为基准：%q", eff.CachePath)
	}
	if eff.MappingFile != filepath.Join(cwd, "mappings.yaml") {
		t.Fatalf("genre_mappings_file 不符：%q", eff.MappingFile)
	}
	if eff.LogLevel != zerolog.DebugLevel {
		t.Fatalf("log_level 不符：%v", eff.LogLevel)
	}
	if eff.BaseURL != "https://ridibooks.com" {
		t.Fatalf("base_url 应去掉尾部斜杠：%q", eff.BaseURL)
	}
}

func TestLoadEffective_MergeOrder(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`{"concurrency": 2, "proxy": {"url": "http://file:1"}, "cache_path": "file.db"}`))

	t.Setenv(EnvProxyURL, "http://env:2")
	t.Setenv(EnvCachePath, "env.db")

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.ProxyURL != "http://env:2" || eff.CachePath != filepath.Join(cwd, "env.db") {
		t.Fatalf("环境变量应覆盖配置文件：%q %q", eff.ProxyURL, eff.CachePath)
	}

	eff, err = LoadEffective(cwd, CLIArgs{
		Concurrency: 100, ConcurrencySet: true,
		ProxyURL: "", ProxyURLSet: true,
		CachePath: "cli.db", CachePathSet: true,
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Concurrency != MaxConcurrency {
		t.Fatalf("concurrency 应截断为 %d，实际 %d", MaxConcurrency, eff.Concurrency)
	}
	if eff.ProxyURL != "" {
		t.Fatalf("CLI 显式空值应覆盖环境变量，实际 %q", eff.ProxyURL)
	}
	if eff.CachePath != filepath.Join(cwd, "cli.db") {
		t.Fatalf("CLI 应覆盖 cache_path：%q", eff.CachePath)
	}
}

func TestLoadEffective_Invalid(t *testing.T) {
	t.Setenv(EnvProxyURL, "")
	cases := map[string]string{
		"bad_json":    `{"concurrency": `,
		"bad_proxy":   `{"proxy": {"url": "not a url"}}`,
		"bad_level":   `{"log_level": "loud"}`,
		"bad_base":    `{"base_url": "ftp://ridibooks.com"}`,
		"neg_timeout": `{"timeout": -1}`,
		"both_maps":   `{"genre_mappings_file": "m.yaml", "genre_mappings": {"a": ["A"]}}`,
	}
	for name, body := range cases {
		cwd := t.TempDir()
		writeFile(t, filepath.Join(cwd, FileName), []byte(body))
		_, err := LoadEffective(cwd, CLIArgs{})
		if Code(err) != ErrCodeInvalid {
			t.Fatalf("[%s] 期望 %q，实际 err=%v", name, ErrCodeInvalid, err)
		}
	}
}

func TestLoadEffective_InlineMappingsCopied(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, "custom.json"), []byte(`{"genre_mappings": {"Fantasy": ["Fantasy & SF"]}}`))

	eff, err := LoadEffective(cwd, CLIArgs{ConfigPath: "custom.json"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if got := eff.InlineMappings["Fantasy"]; len(got) != 1 || got[0] != "Fantasy & SF" {
		t.Fatalf("inline 映射不符：%v", eff.InlineMappings)
	}
	if eff.ConfigFile != filepath.Join(cwd, "custom.json") {
		t.Fatalf("ConfigFile 不符：%q", eff.ConfigFile)
	}
}

func writeFile(t *testing.T, path string, b []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
}
