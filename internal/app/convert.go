package app

import (
	"os"
	"path/filepath"

	"mewcn/internal/csvio"
	"mewcn/internal/discovery"
	"mewcn/internal/jsonconv"
	"mewcn/internal/logging"
	"mewcn/internal/output"
)

type ConvertOptions struct {
	CommonOptions
}

type ConvertResult struct {
	FilesConverted int
}

// RunConvert 把目录下的每个 CSV 转成同名 JSON（前三列），
// 供翻译与术语提取流程使用。
func RunConvert(opts ConvertOptions) (ConvertResult, error) {
	e, err := bootstrap(opts.CommonOptions)
	if err != nil {
		return ConvertResult{}, err
	}
	defer e.close()

	files, err := discovery.Scan(e.dir, nil)
	if err != nil {
		return ConvertResult{}, err
	}

	result := ConvertResult{}
	for _, src := range files.Files {
		name := filepath.Base(src)
		tbl, err := csvio.Read(src)
		if err != nil {
			return result, err
		}
		if len(tbl.Header) == 0 {
			e.printf("%s: skipped (empty file)", name)
			e.logger.Emit(logging.Event{Level: "warn", Event: "convert_skip", File: name})
			continue
		}

		b, err := jsonconv.Marshal(jsonconv.FromTable(tbl))
		if err != nil {
			return result, err
		}
		jsonPath := output.JSONPathFor(src)
		if err := os.WriteFile(jsonPath, b, 0o644); err != nil {
			return result, err
		}
		result.FilesConverted++
		e.printf("%s -> %s (%d rows)", name, filepath.Base(jsonPath), len(tbl.Rows))
		e.logger.Emit(logging.Event{Event: "convert_file", File: name, Count: len(tbl.Rows), OutputFile: jsonPath})
	}

	e.separator(48)
	e.printf("files converted: %d", result.FilesConverted)
	e.logger.Emit(logging.Event{Event: "convert_done", Count: result.FilesConverted})
	return result, nil
}
