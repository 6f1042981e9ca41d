package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"mewcn/internal/csvio"
	"mewcn/internal/discovery"
	"mewcn/internal/jsonconv"
	"mewcn/internal/logging"
	"mewcn/internal/translator"
)

type TranslateOptions struct {
	CommonOptions
	Provider         string
	TranslationsPath string
	BatchSize        int
}

type TranslateResult struct {
	Pending          int
	Translated       int
	TranslationsPath string
}

type pendingText struct {
	Key string
	EN  string
}

// RunTranslate 收集 zh 为空的行，分批送机器翻译，结果增量写入
// translations.json。每批保存一次，中断后重跑会跳过已翻译的键。
func RunTranslate(opts TranslateOptions) (TranslateResult, error) {
	e, err := bootstrap(opts.CommonOptions)
	if err != nil {
		return TranslateResult{}, err
	}
	defer e.close()

	tc := e.cfg.Translator
	if strings.TrimSpace(opts.Provider) != "" {
		tc.Provider = opts.Provider
	}
	batchSize := tc.BatchSize
	if opts.BatchSize > 0 {
		batchSize = opts.BatchSize
	}

	trPath := strings.TrimSpace(opts.TranslationsPath)
	if trPath == "" {
		trPath = filepath.Join(e.dir, e.cfg.TranslationsFile)
	} else {
		trPath = absPath(e.cwd, trPath)
	}
	translations, err := jsonconv.LoadTranslationsOrEmpty(trPath)
	if err != nil {
		return TranslateResult{}, err
	}

	req := translator.Request{
		Provider:  tc.Provider,
		Endpoint:  tc.Endpoint,
		Model:     tc.Model,
		Region:    tc.Region,
		Source:    tc.Source,
		Target:    tc.Target,
		ProjectID: tc.ProjectID,
	}
	switch strings.ToLower(strings.TrimSpace(tc.Provider)) {
	case "tencent", "tencent_tmt":
		id, err := e.apiKeyFor(tc.SecretIDEnv)
		if err != nil {
			return TranslateResult{}, err
		}
		key, err := e.apiKeyFor(tc.SecretKeyEnv)
		if err != nil {
			return TranslateResult{}, err
		}
		req.SecretID, req.SecretKey = id, key
	default:
		key, err := e.apiKeyFor(tc.APIKeyEnv)
		if err != nil {
			return TranslateResult{}, err
		}
		req.APIKey = key
	}

	files, err := discovery.Scan(e.dir, e.cfg.ExcludedFiles)
	if err != nil {
		return TranslateResult{}, err
	}

	pending := []pendingText{}
	seen := map[string]struct{}{}
	for _, src := range files.Files {
		tbl, err := csvio.Read(src)
		if err != nil {
			return TranslateResult{}, err
		}
		keyIdx := tbl.Column(e.cfg.KeyColumn)
		enIdx := tbl.Column(e.cfg.ENColumn)
		zhIdx := tbl.Column(e.cfg.ZHColumn)
		if keyIdx < 0 || enIdx < 0 || zhIdx < 0 {
			continue
		}
		for _, row := range tbl.Rows {
			key := strings.TrimSpace(csvio.Field(row, keyIdx))
			en := strings.TrimSpace(csvio.Field(row, enIdx))
			zh := strings.TrimSpace(csvio.Field(row, zhIdx))
			if csvio.IsCommentKey(key) || en == "" || zh != "" {
				continue
			}
			if _, ok := translations[key]; ok {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			pending = append(pending, pendingText{Key: key, EN: en})
		}
	}

	result := TranslateResult{Pending: len(pending), TranslationsPath: trPath}
	e.printf("pending texts: %d", len(pending))
	if len(pending) == 0 {
		return result, nil
	}

	client := translator.NewClient(time.Duration(e.cfg.RequestTimeoutSec) * time.Second)
	ctx := context.Background()

	for start := 0; start < len(pending); start += batchSize {
		end := start + batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]
		texts := make([]string, len(batch))
		for i, p := range batch {
			texts[i] = p.EN
		}

		var resp translator.BatchResponse
		err := withExponentialBackoff(retryOptions{
			MaxRetries: e.cfg.MaxRetries,
			OnRetry: func(attempt int, wait time.Duration, err error) {
				e.logger.Emit(logging.Event{
					Level:    "warn",
					Event:    "translate_retry",
					Provider: tc.Provider,
					Attempt:  attempt,
					WaitMS:   wait.Milliseconds(),
					Error:    err.Error(),
				})
			},
		}, func(attempt int) error {
			r, err := client.TranslateBatch(ctx, req, texts)
			if err != nil {
				return err
			}
			resp = r
			return nil
		})
		if err != nil {
			return result, fmt.Errorf("批量翻译失败（第 %d-%d 条）：%w", start+1, end, err)
		}

		for i, p := range batch {
			translations[p.Key] = jsonconv.Translation{EN: p.EN, ZH: resp.Texts[i]}
		}
		if err := jsonconv.SaveTranslations(trPath, translations); err != nil {
			return result, err
		}
		result.Translated += len(batch)
		e.printf("batch %d-%d translated (%d total)", start+1, end, result.Translated)
		e.logger.Emit(logging.Event{
			Event:      "translate_batch",
			Provider:   tc.Provider,
			Count:      len(batch),
			LatencyMS:  resp.LatencyMS,
			OutputFile: trPath,
		})
	}

	e.separator(48)
	e.printf("translated: %d", result.Translated)
	e.printf("translations file: %s", trPath)
	e.logger.Emit(logging.Event{Event: "translate_done", Provider: tc.Provider, Count: result.Translated, OutputFile: trPath})
	return result, nil
}
