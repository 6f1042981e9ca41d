package tagtext

import (
	"regexp"

	"github.com/rivo/uniseg"
)

// Token 是文本切分后的最小单元：Tag 为 true 时表示一个完整的
// 标记片段（[b]、[/b]、[m:happy] 或 {catname}），不计入可见长度；
// 否则是单个可见字符（按字素簇切分）。
type Token struct {
	Text string
	Tag  bool
}

var (
	tagRe       = regexp.MustCompile(`\[/?[^\[\]]+\]|\{[^{}]*\}`)
	openNameRe  = regexp.MustCompile(`^\[([^\]/:]+)(?::[^\]]*)?\]$`)
	closeNameRe = regexp.MustCompile(`^\[/([^\]]+)\]$`)
)

// Tokenize 把文本无损切分为 Token 序列，所有 Token 按原顺序拼接
// 可还原输入。标记识别只看词法，不校验标签名或配对。
func Tokenize(text string) []Token {
	tokens := make([]Token, 0, len(text)/2+1)
	last := 0
	for _, m := range tagRe.FindAllStringIndex(text, -1) {
		if m[0] > last {
			tokens = appendVisible(tokens, text[last:m[0]])
		}
		tokens = append(tokens, Token{Text: text[m[0]:m[1]], Tag: true})
		last = m[1]
	}
	if last < len(text) {
		tokens = appendVisible(tokens, text[last:])
	}
	return tokens
}

func appendVisible(tokens []Token, text string) []Token {
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		tokens = append(tokens, Token{Text: g.Str()})
	}
	return tokens
}

// Join 还原 Token 序列对应的原始文本。
func Join(tokens []Token) string {
	n := 0
	for _, t := range tokens {
		n += len(t.Text)
	}
	buf := make([]byte, 0, n)
	for _, t := range tokens {
		buf = append(buf, t.Text...)
	}
	return string(buf)
}

// OpenTagName 返回开标签的名字（[m:happy] -> m），非开标签返回空串。
func OpenTagName(tag string) string {
	m := openNameRe.FindStringSubmatch(tag)
	if m == nil {
		return ""
	}
	return m[1]
}

// CloseTagName 返回闭标签的名字（[/m] -> m），非闭标签返回空串。
func CloseTagName(tag string) string {
	m := closeNameRe.FindStringSubmatch(tag)
	if m == nil {
		return ""
	}
	return m[1]
}

var cjkRanges = [][2]rune{
	{0x3400, 0x4DBF},
	{0x4E00, 0x9FFF},
	{0xF900, 0xFAFF},
	{0x20000, 0x2A6DF},
	{0x2A700, 0x2B73F},
	{0x2B740, 0x2B81F},
	{0x2B820, 0x2CEAF},
	{0x2CEB0, 0x2EBEF},
	{0x30000, 0x3134F},
}

func IsCJK(r rune) bool {
	for _, rg := range cjkRanges {
		if r >= rg[0] && r <= rg[1] {
			return true
		}
	}
	return false
}

// ContainsCJK 判断文本中是否含有中日韩统一表意文字。
func ContainsCJK(s string) bool {
	for _, r := range s {
		if IsCJK(r) {
			return true
		}
	}
	return false
}
