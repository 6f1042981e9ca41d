package app

import (
	"fmt"
	"strings"

	"mewcn/internal/config"
)

type SetKeyOptions struct {
	CommonOptions
	Provider string
	EnvName  string
	Value    string
}

// RunSetKey 把 API 密钥写入 ~/.mewcn/.env，跑批量命令时不用每次导出环境变量。
func RunSetKey(opts SetKeyOptions) error {
	e, err := bootstrap(opts.CommonOptions)
	if err != nil {
		return err
	}
	defer e.close()

	if strings.TrimSpace(opts.Value) == "" {
		return fmt.Errorf("密钥不能为空")
	}

	envName := strings.TrimSpace(opts.EnvName)
	if envName == "" {
		provider := e.cfg.Provider
		if strings.TrimSpace(opts.Provider) != "" {
			provider = opts.Provider
		}
		switch provider {
		case "tencent":
			return fmt.Errorf("腾讯翻译需要两个凭据，请分别指定：mewcn set key --env TENCENT_SECRET_ID 与 --env TENCENT_SECRET_KEY")
		case "zhipu":
			envName = e.cfg.Translator.APIKeyEnv
		default:
			providerCfg, ok := e.cfg.Providers[provider]
			if !ok {
				return fmt.Errorf("配置中不存在 provider：%s", provider)
			}
			envName = providerCfg.APIKeyEnv
		}
	}

	if err := config.UpsertEnvVar(e.paths.EnvPath, envName, opts.Value); err != nil {
		return err
	}
	e.printf("%s 已写入 %s", envName, e.paths.EnvPath)
	return nil
}
