package genre

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json5 "github.com/yosuke-furukawa/json5/encoding/json5"
	"gopkg.in/yaml.v3"
)

type mappingFile struct {
	GenreMappings map[string][]string `json:"genre_mappings" yaml:"genre_mappings"`
}

// LoadMapping 读取映射文件：.yaml/.yml 用 YAML，其余按 JSON5 解析。
//
// 约束：
// - 同时接受 {"genre_mappings": {...}} 包裹形式与裸对象
// - path 为空返回空映射（所有原始标签原样透传）
func LoadMapping(path string) (Mapping, error) {
	if strings.TrimSpace(path) == "" {
		return NewMapping(nil), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Mapping{}, fmt.Errorf("读取分类映射失败：%w", err)
	}

	var raw map[string][]string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		raw, err = decodeYAML(b)
	default:
		raw, err = decodeJSON5(b)
	}
	if err != nil {
		return Mapping{}, fmt.Errorf("分类映射格式非法：%s：%w", path, err)
	}
	return NewMapping(raw), nil
}

func decodeYAML(b []byte) (map[string][]string, error) {
	var wrapped mappingFile
	if err := yaml.Unmarshal(b, &wrapped); err == nil && wrapped.GenreMappings != nil {
		return wrapped.GenreMappings, nil
	}
	var bare map[string][]string
	if err := yaml.Unmarshal(b, &bare); err != nil {
		return nil, err
	}
	return bare, nil
}

func decodeJSON5(b []byte) (map[string][]string, error) {
	var wrapped mappingFile
	if err := json5.Unmarshal(b, &wrapped); err == nil && wrapped.GenreMappings != nil {
		return wrapped.GenreMappings, nil
	}
	var bare map[string][]string
	if err := json5.Unmarshal(b, &bare); err != nil {
		return nil, err
	}
	return bare, nil
}
