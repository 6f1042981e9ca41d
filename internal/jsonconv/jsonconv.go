package jsonconv

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"mewcn/internal/csvio"
)

// Field 是 JSON 对象里的一个键值对，保持 CSV 表头的列顺序。
type Field struct {
	Name  string
	Value string
}

// Record 按列顺序序列化为 JSON 对象。
type Record []Field

func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteString(", ")
		}
		name, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteString(": ")
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// maxColumns 是导出到 JSON 的列数：KEY、en、zh。
const maxColumns = 3

// FromTable 把表格的前三列转换为记录列表。列数不足的行补空串。
func FromTable(tbl *csvio.Table) []Record {
	headers := tbl.Header
	if len(headers) > maxColumns {
		headers = headers[:maxColumns]
	}
	records := make([]Record, 0, len(tbl.Rows))
	for _, row := range tbl.Rows {
		rec := make(Record, 0, len(headers))
		for i, name := range headers {
			rec = append(rec, Field{Name: name, Value: csvio.Field(row, i)})
		}
		records = append(records, rec)
	}
	return records
}

// Marshal 输出带缩进、不转义中文的 JSON 数组。
func Marshal(records []Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Translation 是 translations.json 里单个键的译文，
// 附带英文原文便于校对。
type Translation struct {
	EN string `json:"en,omitempty"`
	ZH string `json:"zh"`
}

// LoadTranslations 读取 key -> {zh: …} 形式的译文映射。
func LoadTranslations(path string) (map[string]Translation, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取译文文件失败（%s）：%w", path, err)
	}
	var m map[string]Translation
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("解析译文文件失败（%s）：%w", path, err)
	}
	return m, nil
}

// LoadTranslationsOrEmpty 同 LoadTranslations，但文件不存在时返回
// 空映射，用于增量翻译的首次运行。
func LoadTranslationsOrEmpty(path string) (map[string]Translation, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return map[string]Translation{}, nil
	}
	return LoadTranslations(path)
}

// SaveTranslations 写回译文映射，缩进 4 格且不转义中文。
func SaveTranslations(path string, translations map[string]Translation) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(translations); err != nil {
		return fmt.Errorf("编码译文文件失败：%w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("写入译文文件失败（%s）：%w", path, err)
	}
	return nil
}

// Apply 按第一列的键查找译文，替换每行最后一列。返回替换的行数。
// 查不到的键保持原值。
func Apply(tbl *csvio.Table, translations map[string]Translation) int {
	applied := 0
	for _, row := range tbl.Rows {
		if len(row) == 0 {
			continue
		}
		tr, ok := translations[row[0]]
		if !ok {
			continue
		}
		row[len(row)-1] = tr.ZH
		applied++
	}
	return applied
}
