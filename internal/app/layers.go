package app

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"
	"mewcn/internal/csvio"
	"mewcn/internal/discovery"
	"mewcn/internal/fix"
	"mewcn/internal/keywords"
	"mewcn/internal/logging"
	"mewcn/internal/output"
)

type LayersOptions struct {
	CommonOptions
	PairsPath  string
	ReportPath string
	OutputDir  string
}

type LayersResult struct {
	RowsChanged  int
	Replacements int
	ReportPath   string
	OutputDir    string
}

// RunLayers 把 "关键词N" 改写成 "N层关键词"：英文里 inflicts 后面
// 跟着关键词加数字的 DESC 行，中文按对照表搬数字，并输出前后
// 对照报告。
func RunLayers(opts LayersOptions) (LayersResult, error) {
	e, err := bootstrap(opts.CommonOptions)
	if err != nil {
		return LayersResult{}, err
	}
	defer e.close()

	pairsPath := strings.TrimSpace(opts.PairsPath)
	if pairsPath == "" {
		pairsPath = filepath.Join(e.dir, e.cfg.PairsFile)
	} else {
		pairsPath = absPath(e.cwd, pairsPath)
	}
	pairs, err := keywords.LoadPairs(pairsPath)
	if err != nil {
		return LayersResult{}, err
	}
	if len(pairs) == 0 {
		return LayersResult{}, fmt.Errorf("关键词对照表为空（%s）", pairsPath)
	}

	outSub := e.cfg.Output.LayersDir
	if strings.TrimSpace(opts.OutputDir) != "" {
		outSub = opts.OutputDir
	}
	targets, err := discovery.Targets(e.dir, e.cfg.LayerFiles)
	if err != nil {
		return LayersResult{}, err
	}
	outDir := filepath.Join(e.dir, outSub)
	if err := output.EnsureDir(outDir); err != nil {
		return LayersResult{}, err
	}

	result := LayersResult{OutputDir: outDir}
	changes := []output.LayerChange{}
	keywordTotals := map[string]int{}
	for _, name := range targets.Skipped {
		e.printf("%s: skipped (not found)", name)
	}

	for _, src := range targets.Files {
		name := filepath.Base(src)
		tbl, err := csvio.Read(src)
		if err != nil {
			return result, err
		}
		keyIdx := tbl.Column(e.cfg.KeyColumn)
		enIdx := tbl.Column(e.cfg.ENColumn)
		zhIdx := tbl.Column(e.cfg.ZHColumn)

		rowsChanged := 0
		repCount := 0
		if keyIdx >= 0 && enIdx >= 0 && zhIdx >= 0 {
			for i, row := range tbl.Rows {
				key := strings.TrimSpace(csvio.Field(row, keyIdx))
				en := csvio.Field(row, enIdx)
				zh := csvio.Field(row, zhIdx)
				if csvio.IsCommentKey(key) || !fix.IsDescKey(key) || zh == "" || !fix.HasInflict(en) {
					continue
				}
				hits := fix.InflictHits(en, pairs)
				if len(hits) == 0 {
					continue
				}

				before := zh
				perKeyword := map[string]int{}
				for _, hit := range hits {
					moved, c := fix.MoveNumberBeforeKeyword(zh, hit.ZH)
					if c > 0 {
						zh = moved
						perKeyword[hit.ZH] += c
					}
				}
				if zh == before {
					continue
				}

				tbl.SetField(i, zhIdx, zh)
				rowsChanged++
				changedHere := 0
				for kw, c := range perKeyword {
					changedHere += c
					keywordTotals[kw] += c
				}
				repCount += changedHere

				kws := make([]string, 0, len(perKeyword))
				for kw := range perKeyword {
					kws = append(kws, kw)
				}
				sort.Strings(kws)
				matched := make([]string, 0, len(kws))
				for _, kw := range kws {
					matched = append(matched, fmt.Sprintf("%s:%d", kw, perKeyword[kw]))
				}
				changes = append(changes, output.LayerChange{
					File:             name,
					Row:              i + 2,
					Key:              key,
					MatchedKeywords:  strings.Join(matched, "; "),
					ReplacementCount: changedHere,
					EN:               en,
					ZHBefore:         before,
					ZHAfter:          zh,
				})
			}
		}

		if err := tbl.Write(filepath.Join(outDir, name)); err != nil {
			return result, err
		}
		result.RowsChanged += rowsChanged
		result.Replacements += repCount
		e.printf("%s: rows changed %d, replacements %d", name, rowsChanged, repCount)
		e.logger.Emit(logging.Event{Event: "layers_file", File: name, Count: repCount, OutputFile: filepath.Join(outDir, name)})
	}

	reportPath := strings.TrimSpace(opts.ReportPath)
	if reportPath == "" {
		reportPath = filepath.Join(outDir, "inflict_keyword_layer_report.csv")
	} else {
		reportPath = absPath(e.cwd, reportPath)
	}
	if err := output.WriteLayerReport(reportPath, changes); err != nil {
		return result, err
	}
	result.ReportPath = reportPath

	e.separator(56)
	e.printf("total rows changed: %d", result.RowsChanged)
	e.printf("total replacements: %d", result.Replacements)
	// 关键词多为全角字符，按显示宽度补齐才能对齐计数列。
	if len(keywordTotals) > 0 {
		kws := make([]string, 0, len(keywordTotals))
		width := 0
		for kw := range keywordTotals {
			kws = append(kws, kw)
			if w := runewidth.StringWidth(kw); w > width {
				width = w
			}
		}
		sort.Strings(kws)
		e.printf("keyword breakdown:")
		for _, kw := range kws {
			e.printf("  %s  %d", runewidth.FillRight(kw, width), keywordTotals[kw])
		}
	}
	e.printf("report: %s", reportPath)
	e.printf("output dir: %s", outDir)
	e.logger.Emit(logging.Event{Event: "layers_done", Count: result.Replacements, OutputFile: outDir})
	return result, nil
}
