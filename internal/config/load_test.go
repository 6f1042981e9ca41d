package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadBootstrapsDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, paths, err := Load("", "")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.MaxLen != 14 || cfg.ZHColumn != "zh" || cfg.KeyColumn != "KEY" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.WrapFiles) != 7 || cfg.WrapFiles[0] != "abilities.csv" {
		t.Fatalf("unexpected wrap files: %v", cfg.WrapFiles)
	}
	if cfg.Providers["deepseek"].BaseURL == "" || cfg.Providers["deepseek"].APIKeyEnv != "DEEPSEEK_API_KEY" {
		t.Fatalf("unexpected provider defaults: %+v", cfg.Providers["deepseek"])
	}
	if cfg.Translator.Provider != "zhipu" || cfg.Translator.BatchSize != 20 {
		t.Fatalf("unexpected translator defaults: %+v", cfg.Translator)
	}

	for _, p := range []string{paths.ConfigPath, paths.EnvExample, paths.PromptPath} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("bootstrap file missing: %s", p)
		}
	}
	if !strings.HasSuffix(paths.RootDir, ".mewcn") {
		t.Fatalf("unexpected root dir: %s", paths.RootDir)
	}
	if paths.ResolvedPrompt != paths.PromptPath {
		t.Fatalf("prompt path not resolved: %s != %s", paths.ResolvedPrompt, paths.PromptPath)
	}
}

func TestLoadCustomConfigPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	custom := filepath.Join(t.TempDir(), "my.yaml")
	content := "max_len: 20\nzh_column: cn\nwrap_files:\n  - only.csv\n"
	if err := os.WriteFile(custom, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, paths, err := Load(custom, "")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.MaxLen != 20 || cfg.ZHColumn != "cn" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if len(cfg.WrapFiles) != 1 || cfg.WrapFiles[0] != "only.csv" {
		t.Fatalf("wrap files override lost: %v", cfg.WrapFiles)
	}
	if cfg.ENColumn != "en" {
		t.Fatalf("unset field should keep default: %s", cfg.ENColumn)
	}
	if paths.ConfigSource != custom {
		t.Fatalf("config source mismatch: %s", paths.ConfigSource)
	}
}

func TestLoadBadYAML(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("max_len: [\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Load(bad, ""); err == nil {
		t.Fatalf("expected yaml error")
	}
}

func TestLoadDoesNotOverwriteExistingConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	root := filepath.Join(home, ".mewcn")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	own := filepath.Join(root, "config.yaml")
	if err := os.WriteFile(own, []byte("max_len: 99\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, _, err := Load("", "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MaxLen != 99 {
		t.Fatalf("existing config was overwritten: %d", cfg.MaxLen)
	}
}

func TestExpandPath(t *testing.T) {
	if got := expandPath("~/x/y", "/home/u", ""); got != filepath.Join("/home/u", "x/y") {
		t.Fatalf("unexpected: %s", got)
	}
	if got := expandPath("rel.csv", "/home/u", "/data"); got != filepath.Join("/data", "rel.csv") {
		t.Fatalf("unexpected: %s", got)
	}
	if got := expandPath("/abs", "/home/u", "/data"); got != "/abs" {
		t.Fatalf("unexpected: %s", got)
	}
}

func TestReadPrompt(t *testing.T) {
	p := filepath.Join(t.TempDir(), "prompt.md")
	if err := os.WriteFile(p, []byte("提示词"), 0o644); err != nil {
		t.Fatal(err)
	}
	text, err := ReadPrompt(p)
	if err != nil {
		t.Fatal(err)
	}
	if text != "提示词" {
		t.Fatalf("unexpected: %q", text)
	}
	if _, err := ReadPrompt(filepath.Join(t.TempDir(), "absent.md")); err == nil {
		t.Fatalf("expected error for missing prompt")
	}
}
