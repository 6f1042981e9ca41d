package output

import (
	"fmt"
	"os"
	"path/filepath"

	"mewcn/internal/csvio"
	"mewcn/internal/scan"
)

// EnsureDir 创建输出目录。
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败（%s）：%w", dir, err)
	}
	return nil
}

// LayerChange 是层数修复报告里的一行。
type LayerChange struct {
	File             string
	Row              int
	Key              string
	MatchedKeywords  string
	ReplacementCount int
	EN               string
	ZHBefore         string
	ZHAfter          string
}

// WriteIssueReport 把检查结果写成明细 CSV。
func WriteIssueReport(path string, issues []scan.Issue) error {
	tbl := &csvio.Table{
		Header: []string{"file", "row", "key", "issue_type", "snippet"},
	}
	for _, is := range issues {
		tbl.Rows = append(tbl.Rows, []string{
			is.File,
			fmt.Sprintf("%d", is.Row),
			is.Key,
			is.Type,
			is.Snippet,
		})
	}
	return tbl.Write(path)
}

// WriteLayerReport 把层数修复的前后对照写成 CSV，带 BOM 便于直接
// 用表格软件打开核对。
func WriteLayerReport(path string, changes []LayerChange) error {
	tbl := &csvio.Table{
		HasBOM: true,
		Header: []string{"file", "row", "key", "matched_keywords", "replacement_count", "en", "zh_before", "zh_after"},
	}
	for _, c := range changes {
		tbl.Rows = append(tbl.Rows, []string{
			c.File,
			fmt.Sprintf("%d", c.Row),
			c.Key,
			c.MatchedKeywords,
			fmt.Sprintf("%d", c.ReplacementCount),
			c.EN,
			c.ZHBefore,
			c.ZHAfter,
		})
	}
	return tbl.Write(path)
}

// JSONPathFor 返回 CSV 对应的同名 .json 路径。
func JSONPathFor(csvPath string) string {
	ext := filepath.Ext(csvPath)
	return csvPath[:len(csvPath)-len(ext)] + ".json"
}
