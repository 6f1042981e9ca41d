package logging

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"
)

// Logger 把事件按 NDJSON 逐行写出，行内一把锁保证并发安全。
type Logger struct {
	mu sync.Mutex
	w  io.Writer
}

// Event 的字段覆盖所有子命令，无关字段留零值即可，
// 序列化时会省略。
type Event struct {
	TS         string `json:"ts"`
	Level      string `json:"level"`
	Event      string `json:"event"`
	File       string `json:"file,omitempty"`
	Row        int    `json:"row,omitempty"`
	Key        string `json:"key,omitempty"`
	Column     string `json:"column,omitempty"`
	Provider   string `json:"provider,omitempty"`
	Model      string `json:"model,omitempty"`
	Attempt    int    `json:"attempt,omitempty"`
	WaitMS     int64  `json:"wait_ms,omitempty"`
	LatencyMS  int64  `json:"latency_ms,omitempty"`
	OutputFile string `json:"output_file,omitempty"`
	Count      int    `json:"count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// New 建一个写到 stdout 的 Logger。logFile 非空时同时追加写入
// 该文件，返回的 Closer 由调用方负责关闭。
func New(stdout io.Writer, logFile string) (*Logger, io.Closer, error) {
	if logFile == "" {
		return &Logger{w: stdout}, nil, nil
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return &Logger{w: io.MultiWriter(stdout, f)}, f, nil
}

// Emit 补全时间戳与级别后写出一行。nil Logger 直接丢弃。
func (l *Logger) Emit(ev Event) {
	if l == nil || l.w == nil {
		return
	}
	if ev.TS == "" {
		ev.TS = time.Now().Format(time.RFC3339Nano)
	}
	if ev.Level == "" {
		ev.Level = "info"
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.w.Write(append(b, '\n'))
}
