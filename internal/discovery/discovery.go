package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type Result struct {
	Files   []string
	Skipped []string
}

// Targets 按固定清单在目录下定位 CSV，缺失的文件记入 Skipped。
func Targets(dir string, names []string) (Result, error) {
	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		return Result{}, fmt.Errorf("输入目录不存在：%s", dir)
	}

	out := Result{}
	for _, name := range names {
		p := filepath.Join(dir, name)
		if st, err := os.Stat(p); err != nil || st.IsDir() {
			out.Skipped = append(out.Skipped, name)
			continue
		}
		out.Files = append(out.Files, p)
	}
	if len(out.Files) == 0 {
		return out, fmt.Errorf("目录中没有任何目标 CSV：%s", dir)
	}
	return out, nil
}

// Scan 收集目录下的全部 CSV（不含子目录），按排除名单过滤。
func Scan(dir string, excluded []string) (Result, error) {
	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		return Result{}, fmt.Errorf("输入目录不存在：%s", dir)
	}

	skip := map[string]struct{}{}
	for _, name := range excluded {
		skip[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return Result{}, fmt.Errorf("扫描目录失败（%s）：%w", dir, err)
	}

	out := Result{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := strings.ToLower(e.Name())
		if !strings.HasSuffix(name, ".csv") {
			continue
		}
		if _, ok := skip[name]; ok {
			continue
		}
		out.Files = append(out.Files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out.Files)
	if len(out.Files) == 0 {
		return out, fmt.Errorf("目录中没有任何可用 CSV：%s", dir)
	}
	return out, nil
}
