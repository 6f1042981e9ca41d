package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# 注释\n" +
		"DEEPSEEK_API_KEY=sk-abc\n" +
		"export ZHIPU_API_KEY='zp-123'\n" +
		"QUOTED=\"v v\"\n" +
		"\n" +
		"无等号的行\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("写入失败: %v", err)
	}

	got, err := LoadEnvFile(path)
	if err != nil {
		t.Fatalf("LoadEnvFile: %v", err)
	}
	if got["DEEPSEEK_API_KEY"] != "sk-abc" {
		t.Fatalf("DEEPSEEK_API_KEY = %q", got["DEEPSEEK_API_KEY"])
	}
	if got["ZHIPU_API_KEY"] != "zp-123" {
		t.Fatalf("export 前缀未处理: %q", got["ZHIPU_API_KEY"])
	}
	if got["QUOTED"] != "v v" {
		t.Fatalf("引号未剥掉: %q", got["QUOTED"])
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3: %v", len(got), got)
	}
}

func TestLoadEnvFileMissing(t *testing.T) {
	_, err := LoadEnvFile(filepath.Join(t.TempDir(), "no-such.env"))
	if !os.IsNotExist(err) {
		t.Fatalf("err = %v", err)
	}
}

func TestUpsertEnvVarCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", ".env")
	if err := UpsertEnvVar(path, "KEY_A", "v1"); err != nil {
		t.Fatalf("UpsertEnvVar: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if string(raw) != "KEY_A=v1\n" {
		t.Fatalf("内容 = %q", raw)
	}
}

func TestUpsertEnvVarReplacesInPlace(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# 密钥\nKEY_A=old\nKEY_B=keep\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("写入失败: %v", err)
	}

	if err := UpsertEnvVar(path, "KEY_A", "new"); err != nil {
		t.Fatalf("UpsertEnvVar: %v", err)
	}
	raw, _ := os.ReadFile(path)
	s := string(raw)
	if !strings.Contains(s, "KEY_A=new") || strings.Contains(s, "old") {
		t.Fatalf("替换失败: %q", s)
	}
	if !strings.Contains(s, "# 密钥") || !strings.Contains(s, "KEY_B=keep") {
		t.Fatalf("其余行被破坏: %q", s)
	}
	if strings.Index(s, "KEY_A") > strings.Index(s, "KEY_B") {
		t.Fatalf("行序变了: %q", s)
	}
}

func TestUpsertEnvVarAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("KEY_A=v1\n"), 0o600); err != nil {
		t.Fatalf("写入失败: %v", err)
	}
	if err := UpsertEnvVar(path, "KEY_B", "v2"); err != nil {
		t.Fatalf("UpsertEnvVar: %v", err)
	}
	raw, _ := os.ReadFile(path)
	if !strings.Contains(string(raw), "KEY_A=v1") || !strings.HasSuffix(string(raw), "KEY_B=v2\n") {
		t.Fatalf("内容 = %q", raw)
	}
}

func TestUpsertEnvVarRejectsEmptyKey(t *testing.T) {
	if err := UpsertEnvVar(filepath.Join(t.TempDir(), ".env"), "  ", "v"); err == nil {
		t.Fatal("空键应当报错")
	}
}
