package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mewcn/internal/config"
	"mewcn/internal/csvio"
	"mewcn/internal/discovery"
	"mewcn/internal/llm"
	"mewcn/internal/logging"
	"mewcn/internal/terms"
)

type TermsOptions struct {
	CommonOptions
	Provider  string
	TermsPath string
	ChunkSize int
}

type TermsResult struct {
	Entries   int
	Chunks    int
	Added     int
	TermsPath string
}

// RunTerms 用 LLM 从英文文本里提取需要统一翻译的术语，
// 合并进 terms.json。每块处理完就保存，方便断点续跑。
func RunTerms(opts TermsOptions) (TermsResult, error) {
	e, err := bootstrap(opts.CommonOptions)
	if err != nil {
		return TermsResult{}, err
	}
	defer e.close()

	provider := e.cfg.Provider
	if strings.TrimSpace(opts.Provider) != "" {
		provider = opts.Provider
	}
	providerCfg, ok := e.cfg.Providers[provider]
	if !ok {
		return TermsResult{}, fmt.Errorf("配置中不存在 provider：%s", provider)
	}
	apiKey, err := e.apiKeyFor(providerCfg.APIKeyEnv)
	if err != nil {
		return TermsResult{}, err
	}

	sync, err := config.SyncGlossaryFromCenter(e.cfg, e.paths)
	if err != nil {
		return TermsResult{}, err
	}
	if sync.Warning != "" {
		e.logger.Emit(logging.Event{Level: "warn", Event: "glossary_sync", Error: sync.Warning})
	}
	if sync.Message != "" {
		e.printf("%s", sync.Message)
	}

	// 术语中心开启时，同步下来的提示词优先于本地配置。
	promptPath := e.paths.ResolvedPrompt
	if e.cfg.GlossaryCenter.Enabled {
		if _, statErr := os.Stat(e.paths.GlossaryPromptPath()); statErr == nil {
			promptPath = e.paths.GlossaryPromptPath()
		}
	}
	systemPrompt, err := config.ReadPrompt(promptPath)
	if err != nil {
		return TermsResult{}, err
	}

	termsPath := strings.TrimSpace(opts.TermsPath)
	if termsPath == "" {
		termsPath = filepath.Join(e.dir, e.cfg.TermsFile)
	} else {
		termsPath = absPath(e.cwd, termsPath)
	}
	all, err := terms.Load(termsPath)
	if err != nil {
		return TermsResult{}, err
	}
	e.printf("loaded %d existing terms", len(all))

	// 共享术语只进提示词上下文，不写回本地 terms.json。
	shared := []terms.Term{}
	if e.cfg.GlossaryCenter.Enabled {
		shared, err = terms.Load(e.paths.GlossaryTermsPath())
		if err != nil {
			return TermsResult{}, err
		}
		if len(shared) > 0 {
			e.printf("loaded %d shared glossary terms", len(shared))
		}
	}

	files, err := discovery.Scan(e.dir, e.cfg.ExcludedFiles)
	if err != nil {
		return TermsResult{}, err
	}
	entries := []terms.Entry{}
	for _, src := range files.Files {
		tbl, err := csvio.Read(src)
		if err != nil {
			return TermsResult{}, err
		}
		entries = append(entries, terms.EntriesFromTable(tbl, e.cfg.KeyColumn, e.cfg.ENColumn)...)
	}

	chunkSize := e.cfg.ChunkSize
	if opts.ChunkSize > 0 {
		chunkSize = opts.ChunkSize
	}
	chunks := terms.Chunks(entries, chunkSize, e.cfg.ChunkOverlap)

	result := TermsResult{Entries: len(entries), Chunks: len(chunks), TermsPath: termsPath}
	if len(entries) == 0 {
		e.printf("no entries to process")
		return result, nil
	}

	client := llm.NewClient(time.Duration(e.cfg.RequestTimeoutSec) * time.Second)
	ctx := context.Background()

	for ci, chunk := range chunks {
		e.printf("processing chunk %d/%d (%d items)...", ci+1, len(chunks), len(chunk))
		// 本地术语覆盖共享术语里的同名条目。
		promptTerms := all
		if len(shared) > 0 {
			promptTerms, _ = terms.Merge(append([]terms.Term{}, shared...), all)
		}
		userPrompt, err := terms.BuildUserPrompt(promptTerms, chunk)
		if err != nil {
			return result, err
		}

		var resp llm.Response
		err = withExponentialBackoff(retryOptions{
			MaxRetries: e.cfg.MaxRetries,
			OnRetry: func(attempt int, wait time.Duration, err error) {
				e.logger.Emit(logging.Event{
					Level:    "warn",
					Event:    "terms_retry",
					Provider: provider,
					Model:    providerCfg.Model,
					Attempt:  attempt,
					WaitMS:   wait.Milliseconds(),
					Error:    err.Error(),
				})
			},
		}, func(attempt int) error {
			r, err := client.Generate(ctx, llm.Request{
				Provider:     provider,
				BaseURL:      providerCfg.BaseURL,
				Model:        providerCfg.Model,
				APIMode:      providerCfg.APIMode,
				APIKey:       apiKey,
				SystemPrompt: systemPrompt,
				UserPrompt:   userPrompt,
				JSONMode:     true,
			})
			if err != nil {
				return err
			}
			if _, err := terms.ParseResponse(r.Text); err != nil {
				return err
			}
			resp = r
			return nil
		})
		if err != nil {
			return result, fmt.Errorf("术语提取失败（第 %d 块）：%w", ci+1, err)
		}

		extracted, err := terms.ParseResponse(resp.Text)
		if err != nil {
			return result, err
		}
		var added int
		all, added = terms.Merge(all, extracted)
		result.Added += added
		if err := terms.Save(termsPath, all); err != nil {
			return result, err
		}
		e.printf("  extracted %d terms, %d new (total %d)", len(extracted), added, len(all))
		e.logger.Emit(logging.Event{
			Event:     "terms_chunk",
			Provider:  provider,
			Model:     providerCfg.Model,
			Count:     added,
			LatencyMS: resp.LatencyMS,
		})
	}

	e.separator(48)
	e.printf("entries: %d", result.Entries)
	e.printf("new terms: %d", result.Added)
	e.printf("terms file: %s", termsPath)
	e.logger.Emit(logging.Event{Event: "terms_done", Count: result.Added, OutputFile: termsPath})
	return result, nil
}
