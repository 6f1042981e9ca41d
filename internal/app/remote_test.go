package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mewcn/internal/jsonconv"
	"mewcn/internal/terms"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "test_config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("写入配置失败: %v", err)
	}
	return path
}

func TestRunTranslate(t *testing.T) {
	dictionary := map[string]string{"Cat": "猫", "Dog": "狗"}
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		var payload struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("解码请求失败: %v", err)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-zhipu-key" {
			t.Errorf("Authorization = %q", got)
		}
		source := payload.Messages[len(payload.Messages)-1].Content
		zh, ok := dictionary[source]
		if !ok {
			t.Errorf("未知原文: %q", source)
		}
		fmt.Fprintf(w, `{"choices": [{"message": {"content": %q}}]}`, zh)
	}))
	defer srv.Close()

	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "units.csv"),
		"KEY,en,zh\n"+
			"UN_CAT_NAME,Cat,\n"+
			"UN_DOG_NAME,Dog,\n"+
			"UN_DONE_NAME,Done,完成\n"+
			"// section,x,\n")
	cfgPath := writeConfig(t, dir, fmt.Sprintf("translator:\n  provider: zhipu\n  endpoint: %s\n  batch_size: 1\n", srv.URL))
	t.Setenv("ZHIPU_API_KEY", "test-zhipu-key")

	opts, out := testCommon(t, dir)
	opts.ConfigPath = cfgPath

	result, err := RunTranslate(TranslateOptions{CommonOptions: opts})
	if err != nil {
		t.Fatalf("RunTranslate: %v", err)
	}
	if result.Pending != 2 || result.Translated != 2 {
		t.Fatalf("pending = %d, translated = %d, want 2/2", result.Pending, result.Translated)
	}
	if requests != 2 {
		t.Fatalf("requests = %d, want 2", requests)
	}

	got, err := jsonconv.LoadTranslations(filepath.Join(dir, "translations.json"))
	if err != nil {
		t.Fatalf("读取 translations.json 失败: %v", err)
	}
	if got["UN_CAT_NAME"].ZH != "猫" || got["UN_DOG_NAME"].ZH != "狗" {
		t.Fatalf("译文不对: %v", got)
	}
	if got["UN_CAT_NAME"].EN != "Cat" {
		t.Fatalf("原文未保存: %v", got)
	}
	if _, ok := got["UN_DONE_NAME"]; ok {
		t.Fatal("已翻译的键不应重翻")
	}
	if !strings.Contains(out.String(), "pending texts: 2") {
		t.Fatalf("摘要缺失: %q", out.String())
	}
}

func TestRunTranslateSkipsExistingKeys(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("不应发起请求")
	}))
	defer srv.Close()

	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "units.csv"),
		"KEY,en,zh\nUN_CAT_NAME,Cat,\n")
	writeTestFile(t, filepath.Join(dir, "translations.json"),
		`{"UN_CAT_NAME": {"en": "Cat", "zh": "猫"}}`)
	cfgPath := writeConfig(t, dir, fmt.Sprintf("translator:\n  endpoint: %s\n", srv.URL))
	t.Setenv("ZHIPU_API_KEY", "test-zhipu-key")

	opts, _ := testCommon(t, dir)
	opts.ConfigPath = cfgPath

	result, err := RunTranslate(TranslateOptions{CommonOptions: opts})
	if err != nil {
		t.Fatalf("RunTranslate: %v", err)
	}
	if result.Pending != 0 || result.Translated != 0 {
		t.Fatalf("pending = %d, translated = %d, want 0/0", result.Pending, result.Translated)
	}
}

func TestRunTranslateMissingKey(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "units.csv"), "KEY,en,zh\nUN_CAT_NAME,Cat,\n")

	opts, _ := testCommon(t, dir)
	t.Setenv("ZHIPU_API_KEY", "")

	_, err := RunTranslate(TranslateOptions{CommonOptions: opts})
	if err == nil || !strings.Contains(err.Error(), "ZHIPU_API_KEY") {
		t.Fatalf("err = %v", err)
	}
}

func TestRunTerms(t *testing.T) {
	extracted := []terms.Term{
		{Original: "Fireball", Translation: "火球术", Type: "ability", SourceKey: "AB_FIREBALL_NAME"},
		{Original: "Burn", Translation: "燃烧", Type: "status", SourceKey: "AB_FIREBALL_DESC"},
	}
	content, err := json.Marshal(extracted)
	if err != nil {
		t.Fatalf("编码术语失败: %v", err)
	}

	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var payload struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
			ResponseFormat struct {
				Type string `json:"type"`
			} `json:"response_format"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("解码请求失败: %v", err)
		}
		if payload.ResponseFormat.Type != "json_object" {
			t.Errorf("response_format = %q", payload.ResponseFormat.Type)
		}
		if !strings.Contains(payload.Messages[1].Content, "Fireball") {
			t.Errorf("用户提示词缺少原文: %q", payload.Messages[1].Content)
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": string(content)}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "abilities.csv"),
		"KEY,en,zh\n"+
			"AB_FIREBALL_NAME,Fireball,\n"+
			"AB_FIREBALL_DESC,Inflicts Burn on hit,\n")
	cfgPath := writeConfig(t, dir, fmt.Sprintf("providers:\n  deepseek:\n    base_url: %s\n", srv.URL))
	t.Setenv("DEEPSEEK_API_KEY", "test-ds-key")

	opts, out := testCommon(t, dir)
	opts.ConfigPath = cfgPath

	result, err := RunTerms(TermsOptions{CommonOptions: opts})
	if err != nil {
		t.Fatalf("RunTerms: %v", err)
	}
	if result.Entries != 2 || result.Chunks != 1 || result.Added != 2 {
		t.Fatalf("entries = %d, chunks = %d, added = %d", result.Entries, result.Chunks, result.Added)
	}
	if requests != 1 {
		t.Fatalf("requests = %d, want 1", requests)
	}

	all, err := terms.Load(filepath.Join(dir, "terms.json"))
	if err != nil {
		t.Fatalf("读取 terms.json 失败: %v", err)
	}
	if len(all) != 2 || all[0].Translation != "火球术" {
		t.Fatalf("术语表内容不对: %v", all)
	}
	if !strings.Contains(out.String(), "new terms: 2") {
		t.Fatalf("摘要缺失: %q", out.String())
	}
}

func TestRunTermsMergesExisting(t *testing.T) {
	content := `[{"original": "Burn", "translation": "灼烧", "type": "status", "source_key": "K"}]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"choices": [{"message": {"content": %q}}]}`, content)
	}))
	defer srv.Close()

	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "abilities.csv"),
		"KEY,en,zh\nAB_X_NAME,Burn,\n")
	writeTestFile(t, filepath.Join(dir, "terms.json"),
		`[{"original": "Burn", "translation": "燃烧", "type": "status", "source_key": "K", "notes": ""}]`)
	cfgPath := writeConfig(t, dir, fmt.Sprintf("providers:\n  deepseek:\n    base_url: %s\n", srv.URL))
	t.Setenv("DEEPSEEK_API_KEY", "test-ds-key")

	opts, _ := testCommon(t, dir)
	opts.ConfigPath = cfgPath

	result, err := RunTerms(TermsOptions{CommonOptions: opts})
	if err != nil {
		t.Fatalf("RunTerms: %v", err)
	}
	if result.Added != 0 {
		t.Fatalf("added = %d, want 0（已有术语原地更新）", result.Added)
	}
	all, err := terms.Load(filepath.Join(dir, "terms.json"))
	if err != nil {
		t.Fatalf("读取 terms.json 失败: %v", err)
	}
	if len(all) != 1 || all[0].Translation != "灼烧" {
		t.Fatalf("术语未更新: %v", all)
	}
}

func TestRunTermsUsesSyncedGlossary(t *testing.T) {
	content := `[{"original": "Fireball", "translation": "火球术", "type": "ability", "source_key": "AB_FIREBALL_NAME"}]`
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		var payload struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("解码请求失败: %v", err)
		}
		if got := payload.Messages[0].Content; !strings.Contains(got, "中心提示词") {
			t.Errorf("系统提示词未用同步版本: %q", got)
		}
		if got := payload.Messages[1].Content; !strings.Contains(got, "燃烧") {
			t.Errorf("用户提示词缺少共享术语: %q", got)
		}
		fmt.Fprintf(w, `{"choices": [{"message": {"content": %q}}]}`, content)
	}))
	defer srv.Close()

	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "abilities.csv"),
		"KEY,en,zh\nAB_FIREBALL_NAME,Fireball,\n")
	cfgPath := writeConfig(t, dir, fmt.Sprintf(
		"providers:\n  deepseek:\n    base_url: %s\nglossary_center:\n  enabled: true\n", srv.URL))
	t.Setenv("DEEPSEEK_API_KEY", "test-ds-key")

	opts, out := testCommon(t, dir)
	opts.ConfigPath = cfgPath

	glossaryDir := filepath.Join(os.Getenv("HOME"), ".mewcn", "glossary")
	if err := os.MkdirAll(glossaryDir, 0o755); err != nil {
		t.Fatalf("创建术语目录失败: %v", err)
	}
	writeTestFile(t, filepath.Join(glossaryDir, "terms_prompt.md"), "中心提示词：请提取术语。")
	writeTestFile(t, filepath.Join(glossaryDir, "terms.json"),
		`[{"original": "Burn", "translation": "燃烧", "type": "status", "source_key": "SHARED", "notes": ""}]`)

	result, err := RunTerms(TermsOptions{CommonOptions: opts})
	if err != nil {
		t.Fatalf("RunTerms: %v", err)
	}
	if requests != 1 || result.Added != 1 {
		t.Fatalf("requests = %d, added = %d", requests, result.Added)
	}

	// 共享术语只进上下文，本地 terms.json 不应收录。
	all, err := terms.Load(filepath.Join(dir, "terms.json"))
	if err != nil {
		t.Fatalf("读取 terms.json 失败: %v", err)
	}
	if len(all) != 1 || all[0].Original != "Fireball" {
		t.Fatalf("本地术语表内容不对: %v", all)
	}
	if !strings.Contains(out.String(), "loaded 1 shared glossary terms") {
		t.Fatalf("缺少共享术语提示: %q", out.String())
	}
}

func TestRunTermsUnknownProvider(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "abilities.csv"), "KEY,en,zh\nA,a,\n")
	opts, _ := testCommon(t, dir)

	_, err := RunTerms(TermsOptions{CommonOptions: opts, Provider: "nope"})
	if err == nil || !strings.Contains(err.Error(), "nope") {
		t.Fatalf("err = %v", err)
	}
}
