package app

import (
	"path/filepath"
	"strings"

	"mewcn/internal/csvio"
	"mewcn/internal/discovery"
	"mewcn/internal/logging"
	"mewcn/internal/output"
	"mewcn/internal/wrap"
)

type WrapOptions struct {
	CommonOptions
	MaxLen    int
	OutputDir string
}

type WrapResult struct {
	FilesProcessed int
	RowsChanged    int
	WrapsAdded     int
	OutputDir      string
}

// RunWrap 对目标 CSV 的 DESC 行做自动换行，结果写到输出子目录，
// 原文件不动。
func RunWrap(opts WrapOptions) (WrapResult, error) {
	e, err := bootstrap(opts.CommonOptions)
	if err != nil {
		return WrapResult{}, err
	}
	defer e.close()

	maxLen := e.cfg.MaxLen
	if opts.MaxLen > 0 {
		maxLen = opts.MaxLen
	}
	outSub := e.cfg.Output.WrapDir
	if strings.TrimSpace(opts.OutputDir) != "" {
		outSub = opts.OutputDir
	}

	targets, err := discovery.Targets(e.dir, e.cfg.WrapFiles)
	if err != nil {
		return WrapResult{}, err
	}
	outDir := filepath.Join(e.dir, outSub)
	if err := output.EnsureDir(outDir); err != nil {
		return WrapResult{}, err
	}

	result := WrapResult{OutputDir: outDir}
	for _, name := range targets.Skipped {
		e.printf("%s: skipped (file not found)", name)
		e.logger.Emit(logging.Event{Level: "warn", Event: "wrap_skip", File: name})
	}

	for _, src := range targets.Files {
		name := filepath.Base(src)
		tbl, err := csvio.Read(src)
		if err != nil {
			return result, err
		}
		keyIdx := tbl.Column(e.cfg.KeyColumn)
		zhIdx := tbl.Column(e.cfg.ZHColumn)

		rowsChanged := 0
		wrapsAdded := 0
		if zhIdx >= 0 {
			for i, row := range tbl.Rows {
				key := strings.TrimSpace(csvio.Field(row, keyIdx))
				if csvio.IsCommentKey(key) || !strings.Contains(strings.ToUpper(key), "DESC") {
					continue
				}
				original := csvio.Field(row, zhIdx)
				wrapped, breaks := wrap.Text(original, maxLen)
				if wrapped == original {
					continue
				}
				tbl.SetField(i, zhIdx, wrapped)
				rowsChanged++
				wrapsAdded += breaks
			}
		}

		if err := tbl.Write(filepath.Join(outDir, name)); err != nil {
			return result, err
		}
		result.FilesProcessed++
		result.RowsChanged += rowsChanged
		result.WrapsAdded += wrapsAdded
		e.printf("%s: rows changed %d, wraps added %d", name, rowsChanged, wrapsAdded)
		e.logger.Emit(logging.Event{Event: "wrap_file", File: name, Count: wrapsAdded, OutputFile: filepath.Join(outDir, name)})
	}

	e.separator(48)
	e.printf("files processed: %d", result.FilesProcessed)
	e.printf("rows changed: %d", result.RowsChanged)
	e.printf("wraps added: %d", result.WrapsAdded)
	e.printf("output dir: %s", outDir)
	e.logger.Emit(logging.Event{Event: "wrap_done", Count: result.WrapsAdded, OutputFile: outDir})
	return result, nil
}
