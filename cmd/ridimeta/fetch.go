package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/RidiMeta/internal/app/run"
	"github.com/John-Robertt/RidiMeta/internal/domain"
	"github.com/John-Robertt/RidiMeta/internal/infra/fsx"
)

// errRunFailed 让进程以 1 退出；明细已写到 stderr。
var errRunFailed = errors.New("部分 URL 处理失败")

type fetchFlags struct {
	format         string
	outDir         string
	reportPath     string
	relevanceStart int
	overwrite      bool
}

func newFetchCmd(g *globalFlags) *cobra.Command {
	ff := &fetchFlags{}
	cmd := &cobra.Command{
		Use:   "fetch <url>...",
		Short: "抓取一个或多个详情页并输出元数据",
		Long: `并发抓取给定的 Ridibooks 详情页。

未指定 --out 时记录以 JSON Lines 写到 stdout；指定 --out 时每本书写成一个文件
（ridibooks-<id>.json 或 ridibooks-<id>.opf）。运行摘要写到 stderr。`,
		Example: `  ridimeta fetch https://ridibooks.com/books/123456789
  ridimeta fetch --format opf --out ./meta https://ridibooks.com/books/1 https://ridibooks.com/books/2`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eff, err := g.load(cmd)
			if err != nil {
				return err
			}
			log := newLogger(cmd.ErrOrStderr(), eff.LogLevel)

			outDir := ff.outDir
			if outDir != "" {
				if outDir, err = filepath.Abs(outDir); err != nil {
					return fmt.Errorf("输出目录无效：%w", err)
				}
			}

			res := run.ExecuteWithObserver(cmd.Context(), eff, run.Request{
				URLs:           args,
				Format:         ff.format,
				OutDir:         outDir,
				Overwrite:      ff.overwrite,
				RelevanceStart: ff.relevanceStart,
				Log:            log,
			}, newLogObserver(log))

			if outDir == "" {
				if err := writeRecords(cmd.OutOrStdout(), res.Records); err != nil {
					return fmt.Errorf("输出记录失败：%w", err)
				}
			}
			if ff.reportPath != "" {
				if err := writeReportFile(ff.reportPath, res.Report); err != nil {
					return fmt.Errorf("写入 report 失败：%w", err)
				}
			}

			emitSummary(cmd.ErrOrStderr(), res.Report)
			if res.Report.HasFailures() {
				return errRunFailed
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&ff.format, "format", run.FormatJSON, "输出格式：json|opf（opf 需要 --out）")
	f.StringVar(&ff.outDir, "out", "", "输出目录（为空时 JSON Lines 写到 stdout）")
	f.StringVar(&ff.reportPath, "report", "", "把 RunReport JSON 写到该文件")
	f.IntVar(&ff.relevanceStart, "relevance-start", 0, "第一条记录的 source_relevance，后续递增")
	f.BoolVar(&ff.overwrite, "overwrite", false, "覆盖已存在的输出文件")
	return cmd
}

// writeRecords 以 JSON Lines 输出（按 relevance 升序）。
func writeRecords(w io.Writer, recs []domain.BookMetadata) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i := range recs {
		if err := enc.Encode(recs[i]); err != nil {
			return err
		}
	}
	return nil
}

func writeReportFile(path string, rr domain.RunReport) error {
	b, err := json.MarshalIndent(rr, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	return fsx.WriteOutput(filepath.Dir(abs), filepath.Base(abs), b, true)
}

func emitSummary(w io.Writer, rr domain.RunReport) {
	fmt.Fprintf(w, "完成：processed=%d skipped=%d failed=%d invalid=%d\n",
		rr.Summary.Processed, rr.Summary.Skipped, rr.Summary.Failed, rr.Summary.Invalid,
	)
	for _, it := range rr.Items {
		if it.Status != domain.StatusFailed && it.Status != domain.StatusInvalid {
			continue
		}
		key := it.URL
		if key == "" {
			key = "<config>"
		}
		fmt.Fprintf(w, "%s %s: %s\n", key, it.ErrorCode, it.ErrorMsg)
	}
}
