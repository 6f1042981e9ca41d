package fix

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"mewcn/internal/tagtext"
)

// 可携带参数的标签名单，按需扩展。
var tagWithArgNames = []string{"img", "m", "s", "o", "c", "a", "pause"}

var (
	tagArgGroup      = strings.Join(tagWithArgNames, "|")
	invalidTagDotsRe = regexp.MustCompile(`\[(?:` + tagArgGroup + `):\.\.\.\]`)
	tagWithArgRe     = regexp.MustCompile(`\[(` + tagArgGroup + `):([^\]]*)\]`)
	bareTagRe        = regexp.MustCompile(`(img|m)\s*:\s*([A-Za-z0-9_]+(?:[\s-][A-Za-z0-9_]+)*)`)
	braceBlockRe     = regexp.MustCompile(`\{[^{}]*\}`)
)

// Text 对一条 zh 文本依次执行三类修复：清理无效参数标签、
// 补全裸写的 img:/m: 标签、去掉花括号变量内部的换行。
// 返回修复后的文本与修复次数。
func Text(zh string) (string, int) {
	if zh == "" {
		return zh, 0
	}
	out, c1 := normalizeArgTags(zh)
	out, c2 := wrapBareTags(out)
	out, c3 := fixBraceNewlines(out)
	return out, c1 + c2 + c3
}

// normalizeArgTags 删除 [tag:...] 字面量，移除参数为空或含中文的
// 参数标签，并把参数两侧空白归一。
func normalizeArgTags(zh string) (string, int) {
	changed := 0

	cleaned := invalidTagDotsRe.ReplaceAllStringFunc(zh, func(string) string {
		changed++
		return ""
	})

	cleaned = tagWithArgRe.ReplaceAllStringFunc(cleaned, func(match string) string {
		sub := tagWithArgRe.FindStringSubmatch(match)
		name, inner := sub[1], sub[2]
		normalized := strings.TrimSpace(inner)

		after := ""
		if normalized != "" && !tagtext.ContainsCJK(inner) {
			after = fmt.Sprintf("[%s:%s]", name, normalized)
		}
		if after != match {
			changed++
		}
		return after
	})

	return cleaned, changed
}

// wrapBareTags 把裸写的 img:shield / m:happy 包成 [img:shield]。
// 前一个字符是 [、: 或单词字符时不算裸写（已在标签里或是别的词）。
func wrapBareTags(zh string) (string, int) {
	changed := 0
	var b strings.Builder
	idx := 0
	for idx < len(zh) {
		loc := bareTagRe.FindStringSubmatchIndex(zh[idx:])
		if loc == nil {
			break
		}
		start, end := idx+loc[0], idx+loc[1]
		if blockedBefore(zh, start) {
			b.WriteString(zh[idx : start+1])
			idx = start + 1
			continue
		}

		name := zh[idx+loc[2] : idx+loc[3]]
		inner := strings.TrimSpace(zh[idx+loc[4] : idx+loc[5]])
		b.WriteString(zh[idx:start])
		if inner == "" || tagtext.ContainsCJK(inner) {
			b.WriteString(zh[start:end])
		} else {
			changed++
			fmt.Fprintf(&b, "[%s:%s]", name, inner)
		}
		idx = end
	}
	b.WriteString(zh[idx:])
	return b.String(), changed
}

func blockedBefore(s string, pos int) bool {
	if pos == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s[:pos])
	return r == '[' || r == ':' || r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// fixBraceNewlines 去掉 {variable} 内部被错误插入的换行。
func fixBraceNewlines(zh string) (string, int) {
	fixed := 0
	out := braceBlockRe.ReplaceAllStringFunc(zh, func(block string) string {
		if !strings.Contains(block, "\n") {
			return block
		}
		fixed++
		return strings.ReplaceAll(block, "\n", "")
	})
	return out, fixed
}
