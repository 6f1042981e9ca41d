package wrap

import (
	"strings"

	"github.com/rivo/uniseg"

	"mewcn/internal/tagtext"
)

var priorityWords = []string{"并且", "同时", "然后", "因此", "因为", "等同于", "使得", "的"}

const punctuation = "，。；！？、,.;!?:："

const searchWindow = 8

// Text 在保持标签与受保护括号段完整的前提下，把每行可见长度
// 压到 maxLen 以内。已有换行视为段落边界，逐段独立处理。
// 返回换行后的文本与插入的换行数；可见长度不超限时原样返回。
func Text(text string, maxLen int) (string, int) {
	if text == "" || maxLen <= 0 {
		return text, 0
	}
	parts := strings.Split(text, "\n")
	inserted := 0
	for i, part := range parts {
		wrapped, n := segment(part, maxLen)
		parts[i] = wrapped
		inserted += n
	}
	if inserted == 0 {
		return text, 0
	}
	return strings.Join(parts, "\n"), inserted
}

func segment(seg string, maxLen int) (string, int) {
	if seg == "" {
		return seg, 0
	}

	tokens := tagtext.Tokenize(seg)
	protected := protectedIndices(tokens)
	vis := visibleIndices(tokens)

	if len(vis) <= maxLen {
		return seg, 0
	}

	insertAfter := map[int]struct{}{}
	startVis := 0
	for startVis+maxLen < len(vis) {
		splitIdx := chooseSplit(tokens, vis, startVis, maxLen, protected)
		if splitIdx < 0 {
			break
		}
		insertAfter[splitIdx] = struct{}{}

		nextStart := -1
		for i, tokenIdx := range vis {
			if tokenIdx == splitIdx {
				nextStart = i + 1
				break
			}
		}
		if nextStart <= startVis {
			break
		}
		startVis = nextStart
	}

	if len(insertAfter) == 0 {
		return seg, 0
	}

	var b strings.Builder
	b.Grow(len(seg) + len(insertAfter))
	for idx, tok := range tokens {
		b.WriteString(tok.Text)
		if _, ok := insertAfter[idx]; ok {
			b.WriteByte('\n')
		}
	}
	return b.String(), len(insertAfter)
}

func visibleIndices(tokens []tagtext.Token) []int {
	out := make([]int, 0, len(tokens))
	for i, tok := range tokens {
		if !tok.Tag {
			out = append(out, i)
		}
	}
	return out
}

// protectedIndices 标记「开标签 + ( ... ) + 对应闭标签」之间的
// 括号参数段。找不到配对时不做标记，也不报错。
func protectedIndices(tokens []tagtext.Token) map[int]struct{} {
	protected := map[int]struct{}{}
	n := len(tokens)

	i := 0
	for i < n-3 {
		tok := tokens[i]
		if !tok.Tag || strings.HasPrefix(tok.Text, "[/") {
			i++
			continue
		}
		name := tagtext.OpenTagName(tok.Text)
		if name == "" {
			i++
			continue
		}
		next := tokens[i+1]
		if next.Tag || next.Text != "(" {
			i++
			continue
		}

		closeParen := -1
		closeTag := -1
		for j := i + 2; j < n-1; j++ {
			t := tokens[j]
			if t.Tag {
				continue
			}
			if t.Text == ")" {
				maybe := tokens[j+1]
				if maybe.Tag && tagtext.CloseTagName(maybe.Text) == name {
					closeParen = j
					closeTag = j + 1
					break
				}
			}
		}

		if closeParen >= 0 {
			for idx := i + 1; idx <= closeParen; idx++ {
				protected[idx] = struct{}{}
			}
			i = closeTag + 1
			continue
		}
		i++
	}
	return protected
}

// chooseSplit 在目标长度附近选一个换行点，依次尝试：标点就近、
// 语义连接词之后、目标左侧最近可切点、右侧最近可切点。
// 段末 Token 之后不设换行点（只会多出一个空行）。找不到返回 -1。
func chooseSplit(tokens []tagtext.Token, vis []int, startVis, maxLen int, protected map[int]struct{}) int {
	endVis := startVis + maxLen
	if endVis >= len(vis) {
		return -1
	}
	windowEnd := endVis + searchWindow
	if windowEnd > len(vis) {
		windowEnd = len(vis)
	}
	lastVis := len(vis) - 1

	bestIdx := -1
	bestScore := 0.0
	for i := startVis; i < windowEnd; i++ {
		if i == lastVis {
			continue
		}
		tokenIdx := vis[i]
		if _, ok := protected[tokenIdx]; ok {
			continue
		}
		if !strings.Contains(punctuation, tokens[tokenIdx].Text) {
			continue
		}
		score := float64(abs(i + 1 - endVis))
		if i+1 <= endVis {
			score -= 0.25
		}
		if bestIdx < 0 || score < bestScore {
			bestScore = score
			bestIdx = tokenIdx
		}
	}
	if bestIdx >= 0 {
		return bestIdx
	}

	if idx := wordSplit(tokens, vis, startVis, endVis, windowEnd, protected); idx >= 0 {
		return idx
	}

	for i := endVis - 1; i > startVis; i-- {
		if i == lastVis {
			continue
		}
		tokenIdx := vis[i]
		if _, ok := protected[tokenIdx]; ok {
			continue
		}
		return tokenIdx
	}

	for i := endVis; i < len(vis); i++ {
		if i == lastVis {
			continue
		}
		tokenIdx := vis[i]
		if _, ok := protected[tokenIdx]; ok {
			continue
		}
		return tokenIdx
	}

	return -1
}

// wordSplit 在窗口的可见文本里找优先连接词，切点在词尾之后。
// 词按优先级顺序、出现位置从左到右遍历，同分时先到先得。
func wordSplit(tokens []tagtext.Token, vis []int, startVis, endVis, windowEnd int, protected map[int]struct{}) int {
	window := make([]string, 0, windowEnd-startVis)
	offsets := make(map[int]int, windowEnd-startVis)
	byteLen := 0
	for i := startVis; i < windowEnd; i++ {
		cluster := tokens[vis[i]].Text
		offsets[byteLen] = i - startVis
		window = append(window, cluster)
		byteLen += len(cluster)
	}
	visibleText := strings.Join(window, "")
	lastVis := len(vis) - 1
	targetLocal := endVis - startVis

	bestVis := -1
	bestScore := 0.0
	for _, word := range priorityWords {
		wordClusters := clusterCount(word)
		searchFrom := 0
		for {
			pos := strings.Index(visibleText[searchFrom:], word)
			if pos < 0 {
				break
			}
			pos += searchFrom
			searchFrom = pos + 1

			local, ok := offsets[pos]
			if !ok {
				continue
			}
			splitLocal := local + wordClusters
			splitVis := startVis + splitLocal - 1
			if splitVis < startVis || splitVis >= len(vis) || splitVis == lastVis {
				continue
			}
			tokenIdx := vis[splitVis]
			if _, protectedTok := protected[tokenIdx]; protectedTok {
				continue
			}

			score := float64(abs(splitLocal - targetLocal))
			if splitLocal <= targetLocal {
				score -= 0.2
			}
			if bestVis < 0 || score < bestScore {
				bestScore = score
				bestVis = splitVis
			}
		}
	}
	if bestVis < 0 {
		return -1
	}
	return vis[bestVis]
}

func clusterCount(s string) int {
	return uniseg.GraphemeClusterCount(s)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
