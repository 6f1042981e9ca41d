package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"mewcn/internal/app"
)

const version = "0.3.0"

type rootFlags struct {
	dirArg     string
	configArg  string
	logFileArg string
	verboseArg bool
}

func Execute() error {
	root := NewRootCmd(os.Stdout, os.Stderr)
	root.SetArgs(os.Args[1:])
	return root.Execute()
}

func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	flags := &rootFlags{}
	showVersion := false

	root := &cobra.Command{
		Use:           "mewcn",
		Short:         "Mewgenics 汉化 CSV 的批处理工具",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				printVersion(stdout)
				return nil
			}
			return cmd.Help()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.CompletionOptions.HiddenDefaultCmd = true
	root.PersistentFlags().StringVarP(&flags.dirArg, "dir", "d", "", "汉化 CSV 所在目录，默认当前目录")
	root.PersistentFlags().StringVar(&flags.configArg, "config", "", "配置文件路径，默认 ~/.mewcn/config.yaml")
	root.PersistentFlags().StringVar(&flags.logFileArg, "log-file", "", "NDJSON 日志文件路径")
	root.PersistentFlags().BoolVar(&flags.verboseArg, "verbose", false, "输出详细 NDJSON（机器友好）")
	root.Flags().BoolVarP(&showVersion, "version", "v", false, "显示版本信息")

	common := func() app.CommonOptions {
		return app.CommonOptions{
			Dir:        flags.dirArg,
			ConfigPath: flags.configArg,
			LogFile:    flags.logFileArg,
			Verbose:    flags.verboseArg,
			Stdout:     stdout,
			Stderr:     stderr,
		}
	}

	var wrapMaxLen int
	var wrapOut string
	wrapCmd := &cobra.Command{
		Use:           "wrap",
		Short:         "对描述行自动换行",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := app.RunWrap(app.WrapOptions{
				CommonOptions: common(),
				MaxLen:        wrapMaxLen,
				OutputDir:     wrapOut,
			})
			return err
		},
	}
	wrapCmd.Flags().IntVar(&wrapMaxLen, "max-len", 0, "每行最大可见宽度")
	wrapCmd.Flags().StringVarP(&wrapOut, "out", "o", "", "输出子目录")
	root.AddCommand(wrapCmd)

	var checkReport string
	checkCmd := &cobra.Command{
		Use:           "check",
		Short:         "扫描标签与换行错误，只报告不修改",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := app.RunCheck(app.CheckOptions{
				CommonOptions: common(),
				ReportPath:    checkReport,
			})
			return err
		},
	}
	checkCmd.Flags().StringVar(&checkReport, "report", "", "报告 CSV 路径")
	root.AddCommand(checkCmd)

	var fixOut string
	fixCmd := &cobra.Command{
		Use:           "fix",
		Short:         "修复标签写法与变量换行",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := app.RunFix(app.FixOptions{
				CommonOptions: common(),
				OutputDir:     fixOut,
			})
			return err
		},
	}
	fixCmd.Flags().StringVarP(&fixOut, "out", "o", "", "输出子目录")
	root.AddCommand(fixCmd)

	var layersPairs, layersReport, layersOut string
	layersCmd := &cobra.Command{
		Use:           "layers",
		Short:         "把「关键词N」改写为「N层关键词」",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := app.RunLayers(app.LayersOptions{
				CommonOptions: common(),
				PairsPath:     layersPairs,
				ReportPath:    layersReport,
				OutputDir:     layersOut,
			})
			return err
		},
	}
	layersCmd.Flags().StringVar(&layersPairs, "pairs", "", "关键词对照 CSV 路径")
	layersCmd.Flags().StringVar(&layersReport, "report", "", "前后对照报告路径")
	layersCmd.Flags().StringVarP(&layersOut, "out", "o", "", "输出子目录")
	root.AddCommand(layersCmd)

	var pairsSource, pairsOut string
	pairsCmd := &cobra.Command{
		Use:           "pairs",
		Short:         "从 keyword_tooltips.csv 生成关键词对照表",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := app.RunPairs(app.PairsOptions{
				CommonOptions: common(),
				SourcePath:    pairsSource,
				OutputPath:    pairsOut,
			})
			return err
		},
	}
	pairsCmd.Flags().StringVar(&pairsSource, "source", "", "来源 CSV 路径")
	pairsCmd.Flags().StringVarP(&pairsOut, "out", "o", "", "输出 CSV 路径")
	root.AddCommand(pairsCmd)

	convertCmd := &cobra.Command{
		Use:           "convert",
		Short:         "把 CSV 转成同名 JSON",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := app.RunConvert(app.ConvertOptions{CommonOptions: common()})
			return err
		},
	}
	root.AddCommand(convertCmd)

	var applyTranslations, applyOut string
	applyCmd := &cobra.Command{
		Use:           "apply",
		Short:         "把 translations.json 的译文写回 CSV",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := app.RunApply(app.ApplyOptions{
				CommonOptions:    common(),
				TranslationsPath: applyTranslations,
				OutputDir:        applyOut,
			})
			return err
		},
	}
	applyCmd.Flags().StringVar(&applyTranslations, "translations", "", "translations.json 路径")
	applyCmd.Flags().StringVarP(&applyOut, "out", "o", "", "输出子目录")
	root.AddCommand(applyCmd)

	var trProvider, trTranslations string
	var trBatchSize int
	translateCmd := &cobra.Command{
		Use:           "translate",
		Short:         "机器翻译 zh 为空的行",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := app.RunTranslate(app.TranslateOptions{
				CommonOptions:    common(),
				Provider:         trProvider,
				TranslationsPath: trTranslations,
				BatchSize:        trBatchSize,
			})
			return err
		},
	}
	translateCmd.Flags().StringVar(&trProvider, "provider", "", "翻译 provider（zhipu/tencent）")
	translateCmd.Flags().StringVar(&trTranslations, "translations", "", "translations.json 路径")
	translateCmd.Flags().IntVar(&trBatchSize, "batch-size", 0, "每批翻译条数")
	root.AddCommand(translateCmd)

	var termsProvider, termsPath string
	var termsChunkSize int
	termsCmd := &cobra.Command{
		Use:           "terms",
		Short:         "用 LLM 提取并翻译术语",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := app.RunTerms(app.TermsOptions{
				CommonOptions: common(),
				Provider:      termsProvider,
				TermsPath:     termsPath,
				ChunkSize:     termsChunkSize,
			})
			return err
		},
	}
	termsCmd.Flags().StringVar(&termsProvider, "provider", "", "LLM provider（deepseek/openai/gemini/claude）")
	termsCmd.Flags().StringVar(&termsPath, "terms", "", "terms.json 路径")
	termsCmd.Flags().IntVar(&termsChunkSize, "chunk-size", 0, "每块送审条数")
	root.AddCommand(termsCmd)

	setCmd := &cobra.Command{
		Use:           "set",
		Short:         "写入本地配置",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	var keyProvider, keyEnvName string
	setKeyCmd := &cobra.Command{
		Use:           "key <api-key>",
		Short:         "把 API 密钥写入 ~/.mewcn/.env",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunSetKey(app.SetKeyOptions{
				CommonOptions: common(),
				Provider:      keyProvider,
				EnvName:       keyEnvName,
				Value:         args[0],
			})
		},
	}
	setKeyCmd.Flags().StringVar(&keyProvider, "provider", "", "按 provider 选择默认环境变量名")
	setKeyCmd.Flags().StringVar(&keyEnvName, "env", "", "直接指定环境变量名")
	setCmd.AddCommand(setKeyCmd)
	root.AddCommand(setCmd)

	versionCmd := &cobra.Command{
		Use:           "version",
		Short:         "显示版本信息",
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(stdout)
		},
	}
	root.AddCommand(versionCmd)
	return root
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "mewcn v%s\n", version)
}
