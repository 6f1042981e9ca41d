package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

// Table 是一张按行读入的本地化 CSV。游戏导出的 CSV 列数不齐、
// 引号不规范、可能带 BOM，读取时全部容忍，写回时保持 BOM。
type Table struct {
	Path   string
	Header []string
	Rows   [][]string
	HasBOM bool
}

func Read(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("读取 CSV 失败（%s）：%w", path, err)
	}
	defer f.Close()

	head := make([]byte, 3)
	n, _ := io.ReadFull(f, head)
	hasBOM := n == 3 && head[0] == bom[0] && head[1] == bom[1] && head[2] == bom[2]
	if !hasBOM {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("读取 CSV 失败（%s）：%w", path, err)
		}
	}

	r := csv.NewReader(f)
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return &Table{Path: path, HasBOM: hasBOM}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("解析 CSV 表头失败（%s）：%w", path, err)
	}

	rows := [][]string{}
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("解析 CSV 行失败（%s）：%w", path, err)
		}
		rows = append(rows, record)
	}
	return &Table{Path: path, Header: header, Rows: rows, HasBOM: hasBOM}, nil
}

func (t *Table) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败（%s）：%w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("写入 CSV 失败（%s）：%w", path, err)
	}
	defer f.Close()

	if t.HasBOM {
		if _, err := f.Write(bom); err != nil {
			return fmt.Errorf("写入 CSV 失败（%s）：%w", path, err)
		}
	}

	w := csv.NewWriter(f)
	if len(t.Header) > 0 {
		if err := w.Write(t.Header); err != nil {
			return fmt.Errorf("写入 CSV 表头失败（%s）：%w", path, err)
		}
	}
	for _, row := range t.Rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("写入 CSV 行失败（%s）：%w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("写入 CSV 失败（%s）：%w", path, err)
	}
	return nil
}

// Column 返回列名对应的下标（忽略大小写），不存在返回 -1。
func (t *Table) Column(name string) int {
	for i, h := range t.Header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

// Field 取行内某列的值，列数不足时返回空串。
func Field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// SetField 写入行内某列的值，必要时补齐空列。
func (t *Table) SetField(rowIdx, col int, value string) {
	if rowIdx < 0 || rowIdx >= len(t.Rows) || col < 0 {
		return
	}
	row := t.Rows[rowIdx]
	for len(row) <= col {
		row = append(row, "")
	}
	row[col] = value
	t.Rows[rowIdx] = row
}

// IsCommentKey 判断 KEY 是否为注释行（以 // 开头）或空行。
func IsCommentKey(key string) bool {
	key = strings.TrimSpace(key)
	return key == "" || strings.HasPrefix(key, "//")
}
