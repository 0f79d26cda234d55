package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/RidiMeta/internal/infra/cache"
)

func newCacheCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "查询 SQLite 标识符缓存（只读）",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "isbn <isbn>",
		Short: "按 ISBN 查询 Ridibooks 书籍 ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return lookupCache(cmd, g, func(s cache.Store) (string, bool, error) {
				return s.IdentifierForISBN(cmd.Context(), args[0])
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "cover <id>",
		Short: "按书籍 ID 查询封面 URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return lookupCache(cmd, g, func(s cache.Store) (string, bool, error) {
				return s.CoverURLForIdentifier(cmd.Context(), args[0])
			})
		},
	})
	return cmd
}

var errCacheMiss = errors.New("缓存未命中")

func lookupCache(cmd *cobra.Command, g *globalFlags, get func(cache.Store) (string, bool, error)) error {
	eff, err := g.load(cmd)
	if err != nil {
		return err
	}
	if eff.CachePath == "" {
		return errors.New("未配置 cache_path（--cache-path / RIDIMETA_CACHE_PATH / ridimeta.json）")
	}
	s, err := cache.OpenSQLite(eff.CachePath, true)
	if err != nil {
		return fmt.Errorf("打开缓存失败：%w", err)
	}
	defer s.Close()

	v, ok, err := get(s)
	if err != nil {
		return err
	}
	if !ok {
		return errCacheMiss
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), v)
	return err
}
