package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"mewcn/internal/config"
	"mewcn/internal/logging"
)

// CommonOptions 是所有子命令共享的运行参数。
// Verbose 打开时 NDJSON 事件会镜像到 stdout，否则只输出摘要。
type CommonOptions struct {
	Dir        string
	ConfigPath string
	LogFile    string
	Verbose    bool
	CWD        string
	Stdout     io.Writer
	Stderr     io.Writer
}

type env struct {
	cfg    *config.Config
	paths  *config.Paths
	logger *logging.Logger
	closer io.Closer
	cwd    string
	dir    string
	stdout io.Writer
}

func bootstrap(opts CommonOptions) (*env, error) {
	cwd := strings.TrimSpace(opts.CWD)
	if cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("读取当前目录失败：%w", err)
		}
		cwd = wd
	}

	cfg, paths, err := config.Load(opts.ConfigPath, cwd)
	if err != nil {
		return nil, err
	}

	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	logTarget := io.Writer(io.Discard)
	if opts.Verbose {
		logTarget = stdout
	}
	logger, closer, err := logging.New(logTarget, opts.LogFile)
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败：%w", err)
	}

	dir := strings.TrimSpace(opts.Dir)
	if dir == "" {
		dir = cwd
	} else {
		dir = absPath(cwd, dir)
	}

	return &env{
		cfg:    cfg,
		paths:  paths,
		logger: logger,
		closer: closer,
		cwd:    cwd,
		dir:    dir,
		stdout: stdout,
	}, nil
}

func (e *env) close() {
	if e.closer != nil {
		_ = e.closer.Close()
	}
}

func (e *env) printf(format string, args ...any) {
	fmt.Fprintf(e.stdout, format+"\n", args...)
}

func (e *env) separator(n int) {
	fmt.Fprintln(e.stdout, strings.Repeat("-", n))
}

// apiKeyFor 从 ~/.mewcn/.env 取出指定环境变量名的密钥。
// 进程环境变量优先，便于 CI 里直接注入。
func (e *env) apiKeyFor(envName string) (string, error) {
	envName = strings.TrimSpace(envName)
	if envName == "" {
		return "", fmt.Errorf("api_key_env 未配置")
	}
	if v := strings.TrimSpace(os.Getenv(envName)); v != "" {
		return v, nil
	}
	m, err := config.LoadEnvFile(e.paths.EnvPath)
	if err != nil {
		return "", fmt.Errorf("未读取到 %s。先复制 %s 为 %s 并填写 %s", e.paths.EnvPath, e.paths.EnvExample, e.paths.EnvPath, envName)
	}
	v := strings.TrimSpace(m[envName])
	if v == "" {
		return "", fmt.Errorf("%s 为空。先用 `mewcn set key` 写入，或编辑 %s", envName, e.paths.EnvPath)
	}
	return v, nil
}

func absPath(cwd, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(cwd, p)
}
