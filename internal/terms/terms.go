package terms

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"mewcn/internal/csvio"
)

// Term 是术语表 terms.json 里的一条记录。
type Term struct {
	Original    string `json:"original"`
	Translation string `json:"translation"`
	Type        string `json:"type"`
	SourceKey   string `json:"source_key"`
	Notes       string `json:"notes"`
}

// Entry 是送给模型的一条待提取文本。
type Entry struct {
	Key string `json:"KEY"`
	EN  string `json:"en"`
}

// Load 读取术语表。文件不存在时返回空表。
func Load(path string) ([]Term, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Term{}, nil
		}
		return nil, fmt.Errorf("读取术语表失败（%s）：%w", path, err)
	}
	var out []Term
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("解析术语表失败（%s）：%w", path, err)
	}
	return out, nil
}

// Save 写回术语表，缩进 4 格且不转义中文。
func Save(path string, all []Term) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(all); err != nil {
		return fmt.Errorf("编码术语表失败：%w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("写入术语表失败（%s）：%w", path, err)
	}
	return nil
}

// EntriesFromTable 取出 KEY/en 两列里值得送去提取的行：
// 跳过注释行、空英文和 QEVENT_ 开头的事件文本。
func EntriesFromTable(tbl *csvio.Table, keyColumn, enColumn string) []Entry {
	keyIdx := tbl.Column(keyColumn)
	enIdx := tbl.Column(enColumn)
	if keyIdx < 0 || enIdx < 0 {
		return nil
	}
	out := []Entry{}
	for _, row := range tbl.Rows {
		key := strings.TrimSpace(csvio.Field(row, keyIdx))
		en := strings.TrimSpace(csvio.Field(row, enIdx))
		if csvio.IsCommentKey(key) || en == "" {
			continue
		}
		if strings.HasPrefix(key, "QEVENT_") {
			continue
		}
		out = append(out, Entry{Key: key, EN: en})
	}
	return out
}

// Chunks 按 size 步进切分，每块向后多带 overlap 条作为上下文。
func Chunks(entries []Entry, size, overlap int) [][]Entry {
	if size <= 0 {
		size = 100
	}
	if overlap < 0 {
		overlap = 0
	}
	out := [][]Entry{}
	for i := 0; i < len(entries); i += size {
		end := i + size + overlap
		if end > len(entries) {
			end = len(entries)
		}
		out = append(out, entries[i:end])
	}
	return out
}

// BuildUserPrompt 拼出用户消息：已有术语表（original:type 到
// translation:source_key 的映射）加上待处理片段。
func BuildUserPrompt(existing []Term, chunk []Entry) (string, error) {
	dict := map[string]string{}
	for _, t := range existing {
		dict[t.Original+":"+t.Type] = t.Translation + ":" + t.SourceKey
	}
	dictJSON, err := marshalNoEscape(dict)
	if err != nil {
		return "", err
	}
	chunkJSON, err := marshalNoEscape(chunk)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("**已翻译术语表（参考用）：**\n")
	b.WriteString("本部分目的是为了提供上下文和保持翻译一致性，不需要完全覆盖所有术语。")
	b.WriteString("请优先参考这个表格中的翻译，如果有新的术语或更好的翻译建议，可以输出新的术语对象。\n")
	b.WriteString("条目格式由 original : type 映射到 translation:source_key ，其中 type 是术语类型，translation 是翻译结果，source_key 是来源 KEY。\n\n")
	b.WriteString(dictJSON)
	b.WriteString("\n\n**待处理文本片段：**\n\n")
	b.WriteString(chunkJSON)
	b.WriteString("\n\n请提取并翻译术语：")
	return b.String(), nil
}

func marshalNoEscape(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("编码提示内容失败：%w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// ParseResponse 解析模型返回的术语列表。容忍 markdown 围栏，
// 以及把列表包进对象某个字段的返回形式。
func ParseResponse(text string) ([]Term, error) {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	s = strings.TrimSpace(s)

	var list []Term
	if err := json.Unmarshal([]byte(s), &list); err == nil {
		return list, nil
	}
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &wrapped); err != nil {
		return nil, fmt.Errorf("模型返回不是合法 JSON：%s", truncate(s, 200))
	}
	for _, raw := range wrapped {
		if err := json.Unmarshal(raw, &list); err == nil {
			return list, nil
		}
	}
	return nil, fmt.Errorf("模型返回的 JSON 里没有术语列表")
}

// Merge 把新提取的术语并入现有表：(original, type) 相同时整条更新，
// 否则追加。返回合并后的表和新增条数。
func Merge(all []Term, incoming []Term) ([]Term, int) {
	index := map[[2]string]int{}
	for i, t := range all {
		index[[2]string{t.Original, t.Type}] = i
	}
	added := 0
	for _, t := range incoming {
		if strings.TrimSpace(t.Original) == "" || strings.TrimSpace(t.Type) == "" {
			continue
		}
		key := [2]string{t.Original, t.Type}
		if i, ok := index[key]; ok {
			all[i] = t
			continue
		}
		index[key] = len(all)
		all = append(all, t)
		added++
	}
	return all, added
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
