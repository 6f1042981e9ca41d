package keywords

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"mewcn/internal/csvio"
)

// Pair 是一个关键词的中英对照。
type Pair struct {
	Key string
	EN  string
	ZH  string
}

var spaceRe = regexp.MustCompile(`\s+`)

// NormalizeEN 折叠空白并统一小写，作为英文关键词的匹配形式。
func NormalizeEN(v string) string {
	return strings.ToLower(spaceRe.ReplaceAllString(strings.TrimSpace(v), " "))
}

// ExtractNamePairs 取出所有 *_NAME 行的 KEY/en/zh 三列，
// 用于生成 keyword_name_pairs.csv。
func ExtractNamePairs(tbl *csvio.Table) ([]Pair, error) {
	keyIdx := tbl.Column("KEY")
	enIdx := tbl.Column("en")
	zhIdx := tbl.Column("zh")
	missing := []string{}
	if keyIdx < 0 {
		missing = append(missing, "KEY")
	}
	if enIdx < 0 {
		missing = append(missing, "en")
	}
	if zhIdx < 0 {
		missing = append(missing, "zh")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("输入文件缺少必要列：%s", strings.Join(missing, ", "))
	}

	pairs := []Pair{}
	for _, row := range tbl.Rows {
		key := strings.TrimSpace(csvio.Field(row, keyIdx))
		if key == "" || strings.HasPrefix(key, "//") {
			continue
		}
		if !strings.HasSuffix(key, "_NAME") {
			continue
		}
		pairs = append(pairs, Pair{
			Key: key,
			EN:  strings.TrimSpace(csvio.Field(row, enIdx)),
			ZH:  strings.TrimSpace(csvio.Field(row, zhIdx)),
		})
	}
	return pairs, nil
}

// LoadPairs 读取关键词对照 CSV（en/zh 两列必须存在），按英文归一形式
// 去重（先到先得），长关键词排在前面，避免短词抢先匹配。
func LoadPairs(path string) ([]Pair, error) {
	tbl, err := csvio.Read(path)
	if err != nil {
		return nil, err
	}
	enIdx := tbl.Column("en")
	zhIdx := tbl.Column("zh")
	if enIdx < 0 || zhIdx < 0 {
		return nil, fmt.Errorf("关键词对照文件缺少 en/zh 列（%s）", path)
	}

	seen := map[string]struct{}{}
	pairs := []Pair{}
	for _, row := range tbl.Rows {
		en := strings.TrimSpace(csvio.Field(row, enIdx))
		zh := strings.TrimSpace(csvio.Field(row, zhIdx))
		if en == "" || zh == "" {
			continue
		}
		enNorm := NormalizeEN(en)
		if enNorm == "" {
			continue
		}
		if _, ok := seen[enNorm]; ok {
			continue
		}
		seen[enNorm] = struct{}{}
		pairs = append(pairs, Pair{EN: enNorm, ZH: zh})
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		return len(pairs[i].EN) > len(pairs[j].EN)
	})
	return pairs, nil
}
