package main

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/John-Robertt/RidiMeta/internal/config"
)

// globalFlags 是所有子命令共享的配置覆盖项。
type globalFlags struct {
	configPath  string
	concurrency int
	timeoutSec  int
	proxyURL    string
	cachePath   string
	mappingFile string
	logLevel    string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	cmd := &cobra.Command{
		Use:   "ridimeta",
		Short: "Ridibooks 书籍元数据抓取工具",
		Long: `ridimeta 抓取 Ridibooks 详情页，输出规范化的书籍元数据（JSON 或 calibre OPF）。

配置来源（优先级从高到低）：命令行参数 > 环境变量（RIDIMETA_PROXY_URL / RIDIMETA_CACHE_PATH，
可写在 .env 中）> ridimeta.json > 默认值。`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// .env 可选
			_ = godotenv.Load()
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "配置文件路径（默认读取当前目录下的 ridimeta.json，可不存在）")
	pf.IntVar(&g.concurrency, "concurrency", 0, fmt.Sprintf("并发数（默认 %d，范围 1-%d）", config.DefaultConcurrency, config.MaxConcurrency))
	pf.IntVar(&g.timeoutSec, "timeout", 0, "单本书的抓取超时（秒，默认 20）")
	pf.StringVar(&g.proxyURL, "proxy", "", "HTTP 代理地址，例如 http://127.0.0.1:7890")
	pf.StringVar(&g.cachePath, "cache-path", "", "SQLite 缓存文件（为空只用进程内缓存）")
	pf.StringVar(&g.mappingFile, "genre-mappings", "", "分类映射文件（.json/.json5/.yaml）")
	pf.StringVar(&g.logLevel, "log-level", "", "日志级别：trace|debug|info|warn|error|disabled")

	cmd.AddCommand(newFetchCmd(g))
	cmd.AddCommand(newInspectCmd(g))
	cmd.AddCommand(newCacheCmd(g))
	return cmd
}

// load 读取最终配置；只有显式给出的参数才覆盖配置文件。
func (g *globalFlags) load(cmd *cobra.Command) (config.EffectiveConfig, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return config.EffectiveConfig{}, fmt.Errorf("读取当前目录失败：%w", err)
	}
	f := cmd.Flags()
	return config.LoadEffective(cwd, config.CLIArgs{
		ConfigPath:     g.configPath,
		Concurrency:    g.concurrency,
		ConcurrencySet: f.Changed("concurrency"),
		TimeoutSec:     g.timeoutSec,
		TimeoutSet:     f.Changed("timeout"),
		ProxyURL:       g.proxyURL,
		ProxyURLSet:    f.Changed("proxy"),
		CachePath:      g.cachePath,
		CachePathSet:   f.Changed("cache-path"),
		MappingFile:    g.mappingFile,
		MappingFileSet: f.Changed("genre-mappings"),
		LogLevel:       g.logLevel,
		LogLevelSet:    f.Changed("log-level"),
	})
}

// newLogger 在终端上用 ConsoleWriter，否则输出 JSON 行。
func newLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	out := w
	if isTTY(w) {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
