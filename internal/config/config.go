package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	json5 "github.com/yosuke-furukawa/json5/encoding/json5"
)

const (
	// ErrCodeNotFound 表示 --config 指定的文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	// FileName 是 cwd 下自动发现的配置文件名（内容按 JSON5 解析）。
	FileName = "ridimeta.json"

	DefaultConcurrency = 4
	MaxConcurrency     = 32
	DefaultTimeout     = 20 * time.Second
	DefaultLogLevel    = "info"

	EnvProxyURL  = "RIDIMETA_PROXY_URL"
	EnvCachePath = "RIDIMETA_CACHE_PATH"
)

// CLIArgs 保留“是否显式指定”的信息，保证 CLI 能覆盖配置文件（包括覆盖为空值）。
type CLIArgs struct {
	ConfigPath string

	Concurrency    int
	ConcurrencySet bool

	TimeoutSec int
	TimeoutSet bool

	ProxyURL    string
	ProxyURLSet bool

	CachePath    string
	CachePathSet bool

	MappingFile    string
	MappingFileSet bool

	LogLevel    string
	LogLevelSet bool
}

// FileConfig 对应 ridimeta.json 的解析结构。
type FileConfig struct {
	Concurrency       int                 `json:"concurrency"`
	Timeout           int                 `json:"timeout"`
	Proxy             *ProxyConfig        `json:"proxy"`
	CachePath         string              `json:"cache_path"`
	GenreMappingsFile string              `json:"genre_mappings_file"`
	GenreMappings     map[string][]string `json:"genre_mappings"`
	LogLevel          string              `json:"log_level"`
	BaseURL           string              `json:"base_url"`
	UserAgent         string              `json:"user_agent"`
}

type ProxyConfig struct {
	URL string `json:"url"`
}

// EffectiveConfig 是合并并规范化后的最终配置；下游不再做默认值或优先级判断。
type EffectiveConfig struct {
	// ConfigFile 是实际读取的配置文件（未读取时为空）。
	ConfigFile string

	Concurrency int
	Timeout     time.Duration
	ProxyURL    string
	// CachePath 为空表示只用进程内缓存。
	CachePath string

	MappingFile    string
	InlineMappings map[string][]string

	LogLevel  zerolog.Level
	BaseURL   string
	UserAgent string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，与环境变量、CLI 参数合并为最终配置。
//
// 发现规则：
// 1) CLI 提供 --config：必须存在
// 2) 否则尝试 <cwd>/ridimeta.json（可选）
//
// 覆盖优先级：
// - proxy.url / cache_path：CLI > 环境变量 > 配置文件 > 默认空
// - 其他字段：CLI > 配置文件 > 默认
// - 配置文件中的相对路径以配置文件所在目录为基准；CLI 与环境变量以 cwd 为基准
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	var (
		cfgPath string
		fc      FileConfig
		exists  bool
	)
	if strings.TrimSpace(cli.ConfigPath) != "" {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigPath)
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		if !exists {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
	} else {
		cfgPath = filepath.Join(cwdAbs, FileName)
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
	}
	if !exists {
		cfgPath = ""
	}
	return merge(cwdAbs, cli, fc, cfgPath)
}

func merge(cwdAbs string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	errPath := cfgPath
	if errPath == "" {
		errPath = "<cli>"
	}
	invalid := func(format string, args ...any) error {
		return &Error{Code: ErrCodeInvalid, Path: errPath, Err: fmt.Errorf(format, args...)}
	}
	cfgDir := cwdAbs
	if cfgPath != "" {
		cfgDir = filepath.Dir(cfgPath)
	}

	concurrency := fc.Concurrency
	if cli.ConcurrencySet {
		concurrency = cli.Concurrency
	}
	if concurrency == 0 {
		concurrency = DefaultConcurrency
	}
	// 范围 [1, 32]；超出截断。
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > MaxConcurrency {
		concurrency = MaxConcurrency
	}

	timeoutSec := fc.Timeout
	if cli.TimeoutSet {
		timeoutSec = cli.TimeoutSec
	}
	if timeoutSec < 0 {
		return EffectiveConfig{}, invalid("timeout 不能为负数：%d", timeoutSec)
	}
	timeout := DefaultTimeout
	if timeoutSec > 0 {
		timeout = time.Duration(timeoutSec) * time.Second
	}

	proxyURL := ""
	if fc.Proxy != nil {
		proxyURL = strings.TrimSpace(fc.Proxy.URL)
	}
	if v := strings.TrimSpace(os.Getenv(EnvProxyURL)); v != "" {
		proxyURL = v
	}
	if cli.ProxyURLSet {
		proxyURL = strings.TrimSpace(cli.ProxyURL)
	}
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return EffectiveConfig{}, invalid("proxy.url 无效：%q", proxyURL)
		}
	}

	cachePath := absCleanFrom(cfgDir, fc.CachePath)
	if v := strings.TrimSpace(os.Getenv(EnvCachePath)); v != "" {
		cachePath = absCleanFrom(cwdAbs, v)
	}
	if cli.CachePathSet {
		cachePath = absCleanFrom(cwdAbs, cli.CachePath)
	}

	mappingFile := absCleanFrom(cfgDir, fc.GenreMappingsFile)
	if cli.MappingFileSet {
		mappingFile = absCleanFrom(cwdAbs, cli.MappingFile)
	}
	if mappingFile != "" && len(fc.GenreMappings) > 0 {
		return EffectiveConfig{}, invalid("genre_mappings 与 genre_mappings_file 不能同时配置")
	}

	levelName := strings.TrimSpace(fc.LogLevel)
	if cli.LogLevelSet {
		levelName = strings.TrimSpace(cli.LogLevel)
	}
	if levelName == "" {
		levelName = DefaultLogLevel
	}
	level, err := zerolog.ParseLevel(strings.ToLower(levelName))
	if err != nil {
		return EffectiveConfig{}, invalid("log_level 无效：%q", levelName)
	}

	baseURL := strings.TrimRight(strings.TrimSpace(fc.BaseURL), "/")
	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return EffectiveConfig{}, invalid("base_url 无效：%q", baseURL)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return EffectiveConfig{}, invalid("base_url 必须是 http/https：%q", baseURL)
		}
	}

	var inline map[string][]string
	if len(fc.GenreMappings) > 0 {
		inline = make(map[string][]string, len(fc.GenreMappings))
		for k, v := range fc.GenreMappings {
			inline[k] = append([]string(nil), v...)
		}
	}

	return EffectiveConfig{
		ConfigFile:     cfgPath,
		Concurrency:    concurrency,
		Timeout:        timeout,
		ProxyURL:       proxyURL,
		CachePath:      cachePath,
		MappingFile:    mappingFile,
		InlineMappings: inline,
		LogLevel:       level,
		BaseURL:        baseURL,
		UserAgent:      strings.TrimSpace(fc.UserAgent),
	}, nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute；p 为空返回空串。
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析配置文件（JSON5：允许注释与尾逗号）。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := json5.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
