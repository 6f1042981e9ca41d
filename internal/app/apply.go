package app

import (
	"path/filepath"
	"strings"

	"mewcn/internal/csvio"
	"mewcn/internal/discovery"
	"mewcn/internal/jsonconv"
	"mewcn/internal/logging"
	"mewcn/internal/output"
)

type ApplyOptions struct {
	CommonOptions
	TranslationsPath string
	OutputDir        string
}

type ApplyResult struct {
	RowsApplied int
	OutputDir   string
}

// RunApply 把 translations.json 的译文按 KEY 写回每个 CSV 的
// 最后一列，结果写到输出子目录。
func RunApply(opts ApplyOptions) (ApplyResult, error) {
	e, err := bootstrap(opts.CommonOptions)
	if err != nil {
		return ApplyResult{}, err
	}
	defer e.close()

	trPath := strings.TrimSpace(opts.TranslationsPath)
	if trPath == "" {
		trPath = filepath.Join(e.dir, e.cfg.TranslationsFile)
	} else {
		trPath = absPath(e.cwd, trPath)
	}
	translations, err := jsonconv.LoadTranslations(trPath)
	if err != nil {
		return ApplyResult{}, err
	}

	outSub := e.cfg.Output.ApplyDir
	if strings.TrimSpace(opts.OutputDir) != "" {
		outSub = opts.OutputDir
	}
	files, err := discovery.Scan(e.dir, nil)
	if err != nil {
		return ApplyResult{}, err
	}
	outDir := filepath.Join(e.dir, outSub)
	if err := output.EnsureDir(outDir); err != nil {
		return ApplyResult{}, err
	}

	result := ApplyResult{OutputDir: outDir}
	for _, src := range files.Files {
		name := filepath.Base(src)
		tbl, err := csvio.Read(src)
		if err != nil {
			return result, err
		}
		if len(tbl.Header) == 0 {
			e.printf("%s: skipped (empty file)", name)
			continue
		}
		applied := jsonconv.Apply(tbl, translations)
		if err := tbl.Write(filepath.Join(outDir, name)); err != nil {
			return result, err
		}
		result.RowsApplied += applied
		e.printf("%s: rows applied %d", name, applied)
		e.logger.Emit(logging.Event{Event: "apply_file", File: name, Count: applied, OutputFile: filepath.Join(outDir, name)})
	}

	e.separator(48)
	e.printf("total rows applied: %d", result.RowsApplied)
	e.printf("output dir: %s", outDir)
	e.logger.Emit(logging.Event{Event: "apply_done", Count: result.RowsApplied, OutputFile: outDir})
	return result, nil
}
