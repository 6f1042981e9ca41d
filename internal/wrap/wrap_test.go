package wrap

import (
	"strings"
	"testing"

	"mewcn/internal/tagtext"
)

func visibleLines(t *testing.T, s string) []int {
	t.Helper()
	out := []int{}
	for _, line := range strings.Split(s, "\n") {
		n := 0
		for _, tok := range tagtext.Tokenize(line) {
			if !tok.Tag {
				n++
			}
		}
		out = append(out, n)
	}
	return out
}

func TestTextNoopBelowThreshold(t *testing.T) {
	in := "玩家受到了伤害。"
	out, n := Text(in, 14)
	if out != in {
		t.Fatalf("expected unchanged, got %q", out)
	}
	if n != 0 {
		t.Fatalf("expected 0 breaks, got %d", n)
	}
}

func TestTextEmptyAndZeroLen(t *testing.T) {
	if out, n := Text("", 14); out != "" || n != 0 {
		t.Fatalf("unexpected: %q %d", out, n)
	}
	if out, n := Text("你好世界", 0); out != "你好世界" || n != 0 {
		t.Fatalf("unexpected: %q %d", out, n)
	}
}

func TestTextBreaksAtPunctuation(t *testing.T) {
	out, n := Text("玩家受到了伤害，并且失去一个护甲层数。", 14)
	if n != 1 {
		t.Fatalf("expected 1 break, got %d: %q", n, out)
	}
	want := "玩家受到了伤害，\n并且失去一个护甲层数。"
	if out != want {
		t.Fatalf("unexpected wrap:\n got %q\nwant %q", out, want)
	}
}

func TestTextBreaksAfterPriorityWord(t *testing.T) {
	// 无标点时在连接词「并且」之后切
	out, n := Text("玩家受到了伤害并且失去一个护甲层数", 14)
	if n != 1 {
		t.Fatalf("expected 1 break, got %d: %q", n, out)
	}
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), out)
	}
	if !strings.HasSuffix(lines[0], "并且") {
		t.Fatalf("expected break after 并且, got first line %q", lines[0])
	}
}

func TestTextNeverSplitsTags(t *testing.T) {
	in := "[m:happy]你好，世界[/m]"
	out, _ := Text(in, 3)
	want := "[m:happy]你好，\n世界[/m]"
	if out != want {
		t.Fatalf("unexpected wrap:\n got %q\nwant %q", out, want)
	}
}

func TestTextProtectedArgumentNeverSplit(t *testing.T) {
	in := "[x](一二三四五六七八九十)[/x]"
	out, n := Text(in, 4)
	if out != in || n != 0 {
		t.Fatalf("expected protected span untouched, got %q (%d breaks)", out, n)
	}
}

func TestTextBreaksOutsideProtectedSpan(t *testing.T) {
	in := "[x](一二三四五六)[/x]，然后结束。"
	out, _ := Text(in, 4)
	openIdx := strings.Index(out, "(")
	closeIdx := strings.Index(out, ")")
	if strings.Contains(out[openIdx:closeIdx], "\n") {
		t.Fatalf("break inside protected span: %q", out)
	}
	if !strings.Contains(out, "[/x]，\n") {
		t.Fatalf("expected break after comma, got %q", out)
	}
}

func TestTextUnmatchedProtectionIsBestEffort(t *testing.T) {
	// 括号没有配对闭标签时不保护，允许在其中换行
	in := "[x](一二三四五六七八九十没有闭合"
	out, n := Text(in, 5)
	if n == 0 {
		t.Fatalf("expected breaks in unprotected text, got %q", out)
	}
	if strings.ReplaceAll(out, "\n", "") != in {
		t.Fatalf("lost content: %q", out)
	}
}

func TestTextPreservesExistingNewlines(t *testing.T) {
	in := "第一段很短\n玩家受到了伤害，并且失去一个护甲层数。"
	out, n := Text(in, 14)
	if n != 1 {
		t.Fatalf("expected 1 break, got %d: %q", n, out)
	}
	parts := strings.Split(out, "\n")
	if parts[0] != "第一段很短" {
		t.Fatalf("first paragraph changed: %q", parts[0])
	}
	if parts[1] != "玩家受到了伤害，" {
		t.Fatalf("unexpected second line: %q", parts[1])
	}
}

func TestTextRemoveBreaksRestoresInput(t *testing.T) {
	inputs := []string{
		"玩家受到了伤害，并且失去一个护甲层数，然后战斗结束了，因此大家都很满意。",
		"[b]攻击[/b]造成{damage}点伤害，并且使目标获得三层[m:poison]中毒效果，持续两回合。",
		"[x](保护的参数段落)[/x]之后是很长很长很长很长的普通描述文本。",
		"abcdefg, hijklmn. opqrstu!",
	}
	for _, in := range inputs {
		out, n := Text(in, 8)
		if strings.ReplaceAll(out, "\n", "") != strings.ReplaceAll(in, "\n", "") {
			t.Fatalf("input %q not reconstructable from %q", in, out)
		}
		if n != strings.Count(out, "\n")-strings.Count(in, "\n") {
			t.Fatalf("break count mismatch for %q: n=%d out=%q", in, n, out)
		}
	}
}

func TestTextNoTrailingEmptyLine(t *testing.T) {
	out, _ := Text("玩家受到了伤害，并且失去一个护甲层数。", 14)
	if strings.HasSuffix(out, "\n") {
		t.Fatalf("unexpected trailing break: %q", out)
	}
}

func TestTextLineLengthsWithinTolerance(t *testing.T) {
	out, _ := Text("玩家受到了伤害，并且失去一个护甲层数，然后战斗结束了，因此大家都很满意。", 10)
	for i, n := range visibleLines(t, out) {
		if n > 10+searchWindow {
			t.Fatalf("line %d too long: %d in %q", i, n, out)
		}
	}
}

func TestProtectedIndices(t *testing.T) {
	tokens := tagtext.Tokenize("[x](参数)[/x]尾巴")
	protected := protectedIndices(tokens)
	// ( 参 数 ) 均受保护
	for idx := 1; idx <= 4; idx++ {
		if _, ok := protected[idx]; !ok {
			t.Fatalf("expected token %d protected: %v", idx, protected)
		}
	}
	if _, ok := protected[0]; ok {
		t.Fatalf("open tag should not be protected")
	}
	if _, ok := protected[6]; ok {
		t.Fatalf("trailing text should not be protected")
	}
}

func TestProtectedIndicesNameMismatch(t *testing.T) {
	tokens := tagtext.Tokenize("[x](参数)[/y]")
	if got := protectedIndices(tokens); len(got) != 0 {
		t.Fatalf("expected no protection on mismatched close tag, got %v", got)
	}
}

func TestChooseSplitNoCandidate(t *testing.T) {
	tokens := tagtext.Tokenize("[x](一二三四五六)[/x]")
	protected := protectedIndices(tokens)
	vis := visibleIndices(tokens)
	if idx := chooseSplit(tokens, vis, 0, 3, protected); idx != -1 {
		t.Fatalf("expected -1, got %d", idx)
	}
}
