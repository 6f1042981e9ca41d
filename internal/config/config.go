package config

import "strings"

// Config 是 ~/.mewcn/config.yaml 的结构。列名、目标文件列表和
// 输出目录都可以覆盖，默认值对齐 Mewgenics 的本地化 CSV 布局。
type Config struct {
	KeyColumn string `yaml:"key_column"`
	ENColumn  string `yaml:"en_column"`
	ZHColumn  string `yaml:"zh_column"`
	MaxLen    int    `yaml:"max_len"`

	WrapFiles     []string `yaml:"wrap_files"`
	LayerFiles    []string `yaml:"layer_files"`
	ExcludedFiles []string `yaml:"excluded_files"`

	PairsSource      string `yaml:"pairs_source"`
	PairsFile        string `yaml:"pairs_file"`
	TranslationsFile string `yaml:"translations_file"`
	TermsFile        string `yaml:"terms_file"`
	PromptFile       string `yaml:"prompt_file"`

	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`

	Provider          string                    `yaml:"provider"`
	MaxRetries        int                       `yaml:"max_retries"`
	RequestTimeoutSec int                       `yaml:"request_timeout_sec"`
	Providers         map[string]ProviderConfig `yaml:"providers"`
	Translator        TranslatorConfig          `yaml:"translator"`
	GlossaryCenter    GlossaryCenterConfig      `yaml:"glossary_center"`

	Output OutputConfig `yaml:"output"`
}

type ProviderConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIMode   string `yaml:"api_mode"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
}

type TranslatorConfig struct {
	Provider     string `yaml:"provider"`
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKeyEnv    string `yaml:"api_key_env"`
	SecretIDEnv  string `yaml:"secret_id_env"`
	SecretKeyEnv string `yaml:"secret_key_env"`
	Region       string `yaml:"region"`
	Source       string `yaml:"source"`
	Target       string `yaml:"target"`
	ProjectID    int64  `yaml:"project_id"`
	BatchSize    int    `yaml:"batch_size"`
}

// GlossaryCenterConfig 指向存放共享术语包的 GitHub release。
// Strict 为 true 时同步失败会中断命令，否则只给告警。
type GlossaryCenterConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Owner      string `yaml:"owner"`
	Repo       string `yaml:"repo"`
	Release    string `yaml:"release"`
	Asset      string `yaml:"asset"`
	TimeoutSec int    `yaml:"timeout_sec"`
	Strict     bool   `yaml:"strict"`
}

// OutputConfig 是各命令在输入目录下的输出子目录名。
type OutputConfig struct {
	WrapDir   string `yaml:"wrap_dir"`
	FixDir    string `yaml:"fix_dir"`
	LayersDir string `yaml:"layers_dir"`
	ApplyDir  string `yaml:"apply_dir"`
}

type Paths struct {
	HomeDir          string
	RootDir          string
	ConfigPath       string
	EnvPath          string
	EnvExample       string
	PromptPath       string
	GlossaryDir      string
	GlossaryLockPath string
	ConfigSource     string
	ResolvedPrompt   string
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.KeyColumn) == "" {
		c.KeyColumn = "KEY"
	}
	if strings.TrimSpace(c.ENColumn) == "" {
		c.ENColumn = "en"
	}
	if strings.TrimSpace(c.ZHColumn) == "" {
		c.ZHColumn = "zh"
	}
	if c.MaxLen <= 0 {
		c.MaxLen = 14
	}
	if len(c.WrapFiles) == 0 {
		c.WrapFiles = []string{
			"abilities.csv",
			"enemy_abilities.csv",
			"passives.csv",
			"items.csv",
			"keyword_tooltips.csv",
			"mutations.csv",
			"units.csv",
		}
	}
	if len(c.LayerFiles) == 0 {
		c.LayerFiles = []string{
			"abilities.csv",
			"items.csv",
			"misc.csv",
			"mutations.csv",
			"passives.csv",
			"units.csv",
		}
	}
	if len(c.ExcludedFiles) == 0 {
		c.ExcludedFiles = []string{
			"npc_dialog.csv",
			"npc_dialogue.csv",
			"npcdialogue.csv",
		}
	}
	if strings.TrimSpace(c.PairsSource) == "" {
		c.PairsSource = "keyword_tooltips.csv"
	}
	if strings.TrimSpace(c.PairsFile) == "" {
		c.PairsFile = "keyword_name_pairs.csv"
	}
	if strings.TrimSpace(c.TranslationsFile) == "" {
		c.TranslationsFile = "translations.json"
	}
	if strings.TrimSpace(c.TermsFile) == "" {
		c.TermsFile = "terms.json"
	}
	if strings.TrimSpace(c.PromptFile) == "" {
		c.PromptFile = "~/.mewcn/terms_prompt.md"
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = 100
	}
	if c.ChunkOverlap <= 0 {
		c.ChunkOverlap = 10
	}
	if strings.TrimSpace(c.Provider) == "" {
		c.Provider = "deepseek"
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RequestTimeoutSec <= 0 {
		c.RequestTimeoutSec = 120
	}
	if c.Providers == nil {
		c.Providers = map[string]ProviderConfig{}
	}
	defaults := map[string]ProviderConfig{
		"deepseek": {BaseURL: "https://api.deepseek.com", APIMode: "chat", Model: "deepseek-chat", APIKeyEnv: "DEEPSEEK_API_KEY"},
		"openai":   {BaseURL: "https://api.openai.com", APIMode: "auto", Model: "gpt-4o-mini", APIKeyEnv: "OPENAI_API_KEY"},
		"gemini":   {BaseURL: "https://generativelanguage.googleapis.com", Model: "gemini-2.0-flash", APIKeyEnv: "GEMINI_API_KEY"},
		"claude":   {BaseURL: "https://api.anthropic.com", Model: "claude-3-5-sonnet-latest", APIKeyEnv: "ANTHROPIC_API_KEY"},
	}
	for name, def := range defaults {
		got, ok := c.Providers[name]
		if !ok {
			c.Providers[name] = def
			continue
		}
		if strings.TrimSpace(got.BaseURL) == "" {
			got.BaseURL = def.BaseURL
		}
		if strings.TrimSpace(got.APIMode) == "" {
			got.APIMode = def.APIMode
		}
		if strings.TrimSpace(got.Model) == "" {
			got.Model = def.Model
		}
		if strings.TrimSpace(got.APIKeyEnv) == "" {
			got.APIKeyEnv = def.APIKeyEnv
		}
		c.Providers[name] = got
	}
	if strings.TrimSpace(c.Translator.Provider) == "" {
		c.Translator.Provider = "zhipu"
	}
	if strings.TrimSpace(c.Translator.APIKeyEnv) == "" {
		c.Translator.APIKeyEnv = "ZHIPU_API_KEY"
	}
	if strings.TrimSpace(c.Translator.SecretIDEnv) == "" {
		c.Translator.SecretIDEnv = "TENCENT_SECRET_ID"
	}
	if strings.TrimSpace(c.Translator.SecretKeyEnv) == "" {
		c.Translator.SecretKeyEnv = "TENCENT_SECRET_KEY"
	}
	if strings.TrimSpace(c.Translator.Region) == "" {
		c.Translator.Region = "ap-beijing"
	}
	if strings.TrimSpace(c.Translator.Source) == "" {
		c.Translator.Source = "en"
	}
	if strings.TrimSpace(c.Translator.Target) == "" {
		c.Translator.Target = "zh"
	}
	if c.Translator.BatchSize <= 0 {
		c.Translator.BatchSize = 20
	}
	if strings.TrimSpace(c.GlossaryCenter.Release) == "" {
		c.GlossaryCenter.Release = "latest"
	}
	if strings.TrimSpace(c.GlossaryCenter.Asset) == "" {
		c.GlossaryCenter.Asset = "glossary-bundle.tar.gz"
	}
	if c.GlossaryCenter.TimeoutSec <= 0 {
		c.GlossaryCenter.TimeoutSec = 20
	}
	if strings.TrimSpace(c.Output.WrapDir) == "" {
		c.Output.WrapDir = "wrapped_desc_output"
	}
	if strings.TrimSpace(c.Output.FixDir) == "" {
		c.Output.FixDir = "fixed_m_newline"
	}
	if strings.TrimSpace(c.Output.LayersDir) == "" {
		c.Output.LayersDir = "fixed_inflict_layers"
	}
	if strings.TrimSpace(c.Output.ApplyDir) == "" {
		c.Output.ApplyDir = "output"
	}
}
