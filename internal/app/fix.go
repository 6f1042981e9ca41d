package app

import (
	"path/filepath"
	"strings"

	"mewcn/internal/csvio"
	"mewcn/internal/discovery"
	"mewcn/internal/fix"
	"mewcn/internal/logging"
	"mewcn/internal/output"
)

type FixOptions struct {
	CommonOptions
	OutputDir string
}

type FixResult struct {
	RowsChanged int
	FixCount    int
	OutputDir   string
}

// RunFix 修复 zh 列里的标签写法错误与变量换行，修好的副本写到
// 输出子目录。
func RunFix(opts FixOptions) (FixResult, error) {
	e, err := bootstrap(opts.CommonOptions)
	if err != nil {
		return FixResult{}, err
	}
	defer e.close()

	outSub := e.cfg.Output.FixDir
	if strings.TrimSpace(opts.OutputDir) != "" {
		outSub = opts.OutputDir
	}

	excluded := append([]string{}, e.cfg.ExcludedFiles...)
	excluded = append(excluded, "m_newline_scan_report.csv")
	files, err := discovery.Scan(e.dir, excluded)
	if err != nil {
		return FixResult{}, err
	}
	outDir := filepath.Join(e.dir, outSub)
	if err := output.EnsureDir(outDir); err != nil {
		return FixResult{}, err
	}

	result := FixResult{OutputDir: outDir}
	for _, src := range files.Files {
		name := filepath.Base(src)
		tbl, err := csvio.Read(src)
		if err != nil {
			return result, err
		}
		zhIdx := tbl.Column(e.cfg.ZHColumn)

		rowsChanged := 0
		fixCount := 0
		if zhIdx >= 0 {
			for i, row := range tbl.Rows {
				original := csvio.Field(row, zhIdx)
				if original == "" {
					continue
				}
				fixed, n := fix.Text(original)
				if n == 0 || fixed == original {
					continue
				}
				tbl.SetField(i, zhIdx, fixed)
				rowsChanged++
				fixCount += n
			}
		}

		if err := tbl.Write(filepath.Join(outDir, name)); err != nil {
			return result, err
		}
		result.RowsChanged += rowsChanged
		result.FixCount += fixCount
		e.printf("%s: rows changed %d, fixes %d", name, rowsChanged, fixCount)
		e.logger.Emit(logging.Event{Event: "fix_file", File: name, Count: fixCount, OutputFile: filepath.Join(outDir, name)})
	}

	e.separator(48)
	e.printf("total rows changed: %d", result.RowsChanged)
	e.printf("total fixes: %d", result.FixCount)
	e.printf("output dir: %s", outDir)
	e.logger.Emit(logging.Event{Event: "fix_done", Count: result.FixCount, OutputFile: outDir})
	return result, nil
}
