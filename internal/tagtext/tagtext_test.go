package tagtext

import (
	"testing"
)

func TestTokenizeLossless(t *testing.T) {
	inputs := []string{
		"",
		"纯文本没有标签",
		"[b]加粗[/b]与{catname}变量",
		"[m:happy]你好，世界[/m]",
		"未闭合[标签 和 {未闭合",
		"[[双括号]]",
	}
	for _, in := range inputs {
		if got := Join(Tokenize(in)); got != in {
			t.Fatalf("tokenize not lossless: %q -> %q", in, got)
		}
	}
}

func TestTokenizeTagForms(t *testing.T) {
	tokens := Tokenize("[b]你[/b]好{catname}")
	want := []Token{
		{Text: "[b]", Tag: true},
		{Text: "你"},
		{Text: "[/b]", Tag: true},
		{Text: "好"},
		{Text: "{catname}", Tag: true},
	}
	if len(tokens) != len(want) {
		t.Fatalf("token count mismatch: %v", tokens)
	}
	for i, tok := range tokens {
		if tok != want[i] {
			t.Fatalf("token %d mismatch: %+v != %+v", i, tok, want[i])
		}
	}
}

func TestTokenizeNoNestedBrackets(t *testing.T) {
	tokens := Tokenize("a[x]b")
	if !tokens[1].Tag || tokens[1].Text != "[x]" {
		t.Fatalf("unexpected tokens: %v", tokens)
	}
	// 空括号对不是合法标签
	for _, tok := range Tokenize("[]") {
		if tok.Tag {
			t.Fatalf("[] should not be a tag")
		}
	}
}

func TestOpenTagName(t *testing.T) {
	cases := map[string]string{
		"[b]":        "b",
		"[m:happy]":  "m",
		"[s:1.5]":    "s",
		"[/b]":       "",
		"{catname}":  "",
		"[m:ha:ppy]": "m",
	}
	for in, want := range cases {
		if got := OpenTagName(in); got != want {
			t.Fatalf("OpenTagName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCloseTagName(t *testing.T) {
	cases := map[string]string{
		"[/b]":      "b",
		"[/m]":      "m",
		"[b]":       "",
		"[m:happy]": "",
	}
	for in, want := range cases {
		if got := CloseTagName(in); got != want {
			t.Fatalf("CloseTagName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestContainsCJK(t *testing.T) {
	if !ContainsCJK("shield盾") {
		t.Fatalf("expected CJK detected")
	}
	if ContainsCJK("shield only ascii 123") {
		t.Fatalf("unexpected CJK")
	}
	if ContainsCJK("") {
		t.Fatalf("empty string has no CJK")
	}
}
