package app

import (
	"path/filepath"
	"sort"
	"strings"

	"mewcn/internal/csvio"
	"mewcn/internal/discovery"
	"mewcn/internal/logging"
	"mewcn/internal/output"
	"mewcn/internal/scan"
)

type CheckOptions struct {
	CommonOptions
	ReportPath string
}

type CheckResult struct {
	Issues     []scan.Issue
	ReportPath string
}

// RunCheck 只检查不改文件：扫描目录下全部 CSV 的 zh 列，
// 输出问题明细报告。
func RunCheck(opts CheckOptions) (CheckResult, error) {
	e, err := bootstrap(opts.CommonOptions)
	if err != nil {
		return CheckResult{}, err
	}
	defer e.close()

	files, err := discovery.Scan(e.dir, e.cfg.ExcludedFiles)
	if err != nil {
		return CheckResult{}, err
	}

	result := CheckResult{}
	for _, src := range files.Files {
		name := filepath.Base(src)
		tbl, err := csvio.Read(src)
		if err != nil {
			return result, err
		}
		issues := scan.Table(tbl, e.cfg.KeyColumn, e.cfg.ZHColumn)
		result.Issues = append(result.Issues, issues...)
		e.printf("%s: issues %d", name, len(issues))
		for _, is := range issues {
			e.logger.Emit(logging.Event{
				Level:  "error",
				Event:  "scan_issue",
				File:   is.File,
				Row:    is.Row,
				Key:    is.Key,
				Column: e.cfg.ZHColumn,
				Error:  is.Type,
			})
		}
	}

	e.separator(48)
	e.printf("total issues: %d", len(result.Issues))
	if len(result.Issues) > 0 {
		counts := map[string]int{}
		for _, is := range result.Issues {
			counts[is.Type]++
		}
		types := make([]string, 0, len(counts))
		for t := range counts {
			types = append(types, t)
		}
		sort.Strings(types)
		e.printf("issue types:")
		for _, t := range types {
			e.printf("  %s: %d", t, counts[t])
		}
	}

	reportPath := strings.TrimSpace(opts.ReportPath)
	if reportPath == "" {
		reportPath = filepath.Join(e.dir, "m_newline_scan_report.csv")
	} else {
		reportPath = absPath(e.cwd, reportPath)
	}
	if err := output.WriteIssueReport(reportPath, result.Issues); err != nil {
		return result, err
	}
	result.ReportPath = reportPath
	e.printf("report written: %s", reportPath)
	e.logger.Emit(logging.Event{Event: "check_done", Count: len(result.Issues), OutputFile: reportPath})
	return result, nil
}
