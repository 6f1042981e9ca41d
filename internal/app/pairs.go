package app

import (
	"path/filepath"
	"strings"

	"mewcn/internal/csvio"
	"mewcn/internal/keywords"
	"mewcn/internal/logging"
)

type PairsOptions struct {
	CommonOptions
	SourcePath string
	OutputPath string
}

type PairsResult struct {
	Pairs      int
	OutputPath string
}

// RunPairs 从 keyword_tooltips.csv 提取所有关键词的中英对照，
// 生成层数修复用的 keyword_name_pairs.csv。
func RunPairs(opts PairsOptions) (PairsResult, error) {
	e, err := bootstrap(opts.CommonOptions)
	if err != nil {
		return PairsResult{}, err
	}
	defer e.close()

	srcPath := strings.TrimSpace(opts.SourcePath)
	if srcPath == "" {
		srcPath = filepath.Join(e.dir, e.cfg.PairsSource)
	} else {
		srcPath = absPath(e.cwd, srcPath)
	}
	outPath := strings.TrimSpace(opts.OutputPath)
	if outPath == "" {
		outPath = filepath.Join(e.dir, e.cfg.PairsFile)
	} else {
		outPath = absPath(e.cwd, outPath)
	}

	tbl, err := csvio.Read(srcPath)
	if err != nil {
		return PairsResult{}, err
	}
	pairs, err := keywords.ExtractNamePairs(tbl)
	if err != nil {
		return PairsResult{}, err
	}

	out := &csvio.Table{
		HasBOM: true,
		Header: []string{"KEY", "en", "zh"},
	}
	for _, p := range pairs {
		out.Rows = append(out.Rows, []string{p.Key, p.EN, p.ZH})
	}
	if err := out.Write(outPath); err != nil {
		return PairsResult{}, err
	}

	result := PairsResult{Pairs: len(pairs), OutputPath: outPath}
	e.printf("pairs extracted: %d", len(pairs))
	e.printf("output: %s", outPath)
	e.logger.Emit(logging.Event{Event: "pairs_done", File: filepath.Base(srcPath), Count: len(pairs), OutputFile: outPath})
	return result, nil
}
