package scan

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"mewcn/internal/csvio"
	"mewcn/internal/tagtext"
)

const snippetRadius = 28

// Issue 是一条 zh 文本里的标签或换行错误。
type Issue struct {
	File    string
	Row     int
	Key     string
	Type    string
	Snippet string
}

const (
	TypeMLiteralDots     = "invalid_m_literal_dots"
	TypeMContainsCJK     = "invalid_m_contains_cjk"
	TypeMUnclosed        = "invalid_m_unclosed"
	TypeBrokenVarNewline = "broken_variable_newline"
)

var (
	invalidMDotsRe     = regexp.MustCompile(`\[m:\.\.\.\]`)
	mTagRe             = regexp.MustCompile(`\[m:([^\]]*)\]`)
	brokenVarNewlineRe = regexp.MustCompile(`\{[^{}\n]*\n[^{}]*\}`)
)

// Text 对一条 zh 文本做全部检查，返回发现的问题。
func Text(file string, row int, key, zh string) []Issue {
	issues := []Issue{}

	for _, m := range invalidMDotsRe.FindAllStringIndex(zh, -1) {
		issues = append(issues, Issue{
			File: file, Row: row, Key: key,
			Type:    TypeMLiteralDots,
			Snippet: Snippet(zh, m[0], m[1]),
		})
	}

	for _, m := range mTagRe.FindAllStringSubmatchIndex(zh, -1) {
		inner := zh[m[2]:m[3]]
		if tagtext.ContainsCJK(inner) {
			issues = append(issues, Issue{
				File: file, Row: row, Key: key,
				Type:    TypeMContainsCJK,
				Snippet: Snippet(zh, m[0], m[1]),
			})
		}
	}

	for _, pos := range unclosedMTagPositions(zh) {
		end := pos + 3
		if end > len(zh) {
			end = len(zh)
		}
		issues = append(issues, Issue{
			File: file, Row: row, Key: key,
			Type:    TypeMUnclosed,
			Snippet: Snippet(zh, pos, end),
		})
	}

	for _, m := range brokenVarNewlineRe.FindAllStringIndex(zh, -1) {
		issues = append(issues, Issue{
			File: file, Row: row, Key: key,
			Type:    TypeBrokenVarNewline,
			Snippet: Snippet(zh, m[0], m[1]),
		})
	}

	return issues
}

// unclosedMTagPositions 找出 "[m:" 之后再无 "]" 的位置。
func unclosedMTagPositions(text string) []int {
	positions := []int{}
	start := 0
	for {
		idx := strings.Index(text[start:], "[m:")
		if idx < 0 {
			break
		}
		idx += start
		closeIdx := strings.Index(text[idx+3:], "]")
		if closeIdx < 0 {
			positions = append(positions, idx)
			break
		}
		start = idx + 3
	}
	return positions
}

// Snippet 截取错误位置前后各 28 个字符的上下文，换行转义成 \n。
func Snippet(text string, start, end int) string {
	left := start
	for i := 0; i < snippetRadius && left > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(text[:left])
		left -= size
	}
	right := end
	for i := 0; i < snippetRadius && right < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[right:])
		right += size
	}
	s := strings.ReplaceAll(text[left:right], "\n", `\n`)
	if left > 0 {
		s = "..." + s
	}
	if right < len(text) {
		s = s + "..."
	}
	return s
}

// Table 扫描一张 CSV 的 zh 列，注释行与空 zh 跳过。行号从 2 起
// （表头占第 1 行）。缺少 zh 列时视为无问题。
func Table(tbl *csvio.Table, keyColumn, zhColumn string) []Issue {
	zhIdx := tbl.Column(zhColumn)
	if zhIdx < 0 {
		return nil
	}
	keyIdx := tbl.Column(keyColumn)

	issues := []Issue{}
	file := filepath.Base(tbl.Path)
	for i, row := range tbl.Rows {
		zh := csvio.Field(row, zhIdx)
		if zh == "" {
			continue
		}
		key := csvio.Field(row, keyIdx)
		if strings.HasPrefix(strings.TrimSpace(key), "//") {
			continue
		}
		issues = append(issues, Text(file, i+2, key, zh)...)
	}
	return issues
}
