package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadEnvFile 解析 .env 文件为键值表。支持注释行、空行和
// 前缀 export，值两侧的引号会剥掉。
func LoadEnvFile(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	out := map[string]string{}
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		out[k] = strings.Trim(strings.TrimSpace(v), "\"'")
	}
	return out, nil
}

// UpsertEnvVar 更新或追加 .env 里的一个键。已有行原位替换，
// 其余行（含注释）保持原样；文件不存在时新建。
func UpsertEnvVar(path, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("env key 为空")
	}
	value = strings.TrimSpace(value)

	var lines []string
	if raw, err := os.ReadFile(path); err == nil {
		lines = strings.Split(strings.ReplaceAll(string(raw), "\r\n", "\n"), "\n")
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("读取 .env 失败：%w", err)
	}

	replaced := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		k, _, ok := strings.Cut(strings.TrimPrefix(trimmed, "export "), "=")
		if !ok || strings.TrimSpace(k) != key {
			continue
		}
		lines[i] = key + "=" + value
		replaced = true
	}
	if !replaced {
		lines = append(lines, key+"="+value)
	}

	text := strings.Join(lines, "\n")
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建 .env 目录失败：%w", err)
	}
	if err := os.WriteFile(path, []byte(text), 0o600); err != nil {
		return fmt.Errorf("写入 .env 失败：%w", err)
	}
	return nil
}
