package fix

import (
	"regexp"
	"strings"

	"mewcn/internal/keywords"
)

var inflictRe = regexp.MustCompile(`(?i)\binflicts?\b`)

// IsDescKey 判断 KEY 是否为描述行。
func IsDescKey(key string) bool {
	return strings.Contains(strings.TrimSpace(key), "_DESC")
}

// HasInflict 判断英文描述里是否出现 inflict/inflicts。
func HasInflict(en string) bool {
	return inflictRe.MatchString(en)
}

// InflictHits 找出英文文本里以 "keyword N" 形式出现的关键词。
// 关键词内部空白允许折行，匹配忽略大小写。
func InflictHits(en string, pairs []keywords.Pair) []keywords.Pair {
	hits := []keywords.Pair{}
	for _, pair := range pairs {
		pattern := strings.ReplaceAll(regexp.QuoteMeta(pair.EN), " ", `\s+`)
		re, err := regexp.Compile(`(?i)\b` + pattern + `\s+\d+\b`)
		if err != nil {
			continue
		}
		if re.MatchString(en) {
			hits = append(hits, pair)
		}
	}
	return hits
}

// MoveNumberBeforeKeyword 把 zh 文本中「关键词N」改写为「N层关键词」，
// 返回改写后的文本与替换次数。
func MoveNumberBeforeKeyword(zh, zhKeyword string) (string, int) {
	re, err := regexp.Compile(regexp.QuoteMeta(zhKeyword) + `\s*([0-9]+)`)
	if err != nil || zhKeyword == "" {
		return zh, 0
	}
	changed := 0
	out := re.ReplaceAllStringFunc(zh, func(match string) string {
		sub := re.FindStringSubmatch(match)
		changed++
		return sub[1] + "层" + zhKeyword
	})
	return out, changed
}
