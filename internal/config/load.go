package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var embeddedDefaultConfig []byte

//go:embed default_env.example
var embeddedEnvExample []byte

//go:embed default_prompt.md
var embeddedPrompt []byte

// Load 读取配置并保证 ~/.mewcn 下的默认文件齐全。
// pathArg 非空时用它替代默认的 config.yaml 位置。
func Load(pathArg, cwd string) (*Config, *Paths, error) {
	paths, err := resolvePaths(pathArg)
	if err != nil {
		return nil, nil, err
	}
	if err := ensureBootstrap(paths); err != nil {
		return nil, nil, err
	}

	raw, err := os.ReadFile(paths.ConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("读取配置文件失败（%s）：%w", paths.ConfigPath, err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, nil, fmt.Errorf("配置文件格式错误（%s）：%w", paths.ConfigPath, err)
	}
	cfg.applyDefaults()

	paths.ConfigSource = paths.ConfigPath
	paths.ResolvedPrompt = expandPath(cfg.PromptFile, paths.HomeDir, cwd)
	return cfg, paths, nil
}

func resolvePaths(configArg string) (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("读取用户目录失败：%w", err)
	}
	root := filepath.Join(home, ".mewcn")
	configPath := filepath.Join(root, "config.yaml")
	if strings.TrimSpace(configArg) != "" {
		configPath = expandPath(configArg, home, "")
	}

	return &Paths{
		HomeDir:          home,
		RootDir:          root,
		ConfigPath:       configPath,
		EnvPath:          filepath.Join(root, ".env"),
		EnvExample:       filepath.Join(root, ".env.example"),
		PromptPath:       filepath.Join(root, "terms_prompt.md"),
		GlossaryDir:      filepath.Join(root, "glossary"),
		GlossaryLockPath: filepath.Join(root, "glossary.lock.json"),
	}, nil
}

func ensureBootstrap(paths *Paths) error {
	if err := os.MkdirAll(filepath.Dir(paths.ConfigPath), 0o755); err != nil {
		return fmt.Errorf("创建配置目录失败：%w", err)
	}
	if err := os.MkdirAll(paths.RootDir, 0o755); err != nil {
		return fmt.Errorf("创建配置目录失败：%w", err)
	}
	if err := ensureFile(paths.ConfigPath, embeddedDefaultConfig, 0o644); err != nil {
		return err
	}
	if err := ensureFile(paths.EnvExample, embeddedEnvExample, 0o644); err != nil {
		return err
	}
	if err := ensureFile(paths.PromptPath, embeddedPrompt, 0o644); err != nil {
		return err
	}
	return nil
}

func ensureFile(path string, data []byte, mode os.FileMode) error {
	if st, err := os.Stat(path); err == nil && !st.IsDir() {
		return nil
	}
	if err := os.WriteFile(path, data, mode); err != nil {
		return fmt.Errorf("写入默认文件失败（%s）：%w", path, err)
	}
	return nil
}

func expandPath(v, home, cwd string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return v
	}
	if strings.HasPrefix(v, "~/") {
		return filepath.Join(home, v[2:])
	}
	if filepath.IsAbs(v) {
		return v
	}
	if strings.TrimSpace(cwd) != "" {
		return filepath.Join(cwd, v)
	}
	return v
}

// ReadPrompt 读取术语提取的系统提示词。
func ReadPrompt(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("读取提示词文件失败（%s）：%w", path, err)
	}
	return string(raw), nil
}
