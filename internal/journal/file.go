package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DefaultFilePath is used when the file driver has no path.
const DefaultFilePath = "data/registrations.log"

// FileConfig 描述 JSON lines 文件日志。
type FileConfig struct {
	Path string `json:"path"`
}

// FileSink 以 JSON lines 追加写入本地文件。
type FileSink struct {
	mu   sync.Mutex
	path string
}

// NewFileSink 创建文件日志并确保目录存在。
func NewFileSink(cfg FileConfig) (*FileSink, error) {
	path := cfg.Path
	if path == "" {
		path = DefaultFilePath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("创建日志目录失败: %w", err)
	}
	return &FileSink{path: path}, nil
}

// Path 返回日志文件路径。
func (f *FileSink) Path() string { return f.path }

// Record 追加一条记录。
func (f *FileSink) Record(_ context.Context, entry Entry) error {
	encoded, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("序列化记录失败: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("打开结果日志失败: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(append(encoded, '\n')); err != nil {
		return fmt.Errorf("写入结果日志失败: %w", err)
	}
	return nil
}

// Close implements Sink.
func (f *FileSink) Close() error { return nil }

// ReadFile 读取文件日志，按时间倒序返回最多 limit 条记录。无法解析的行被跳过。
func ReadFile(path string, limit int) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("读取结果日志失败: %w", err)
	}
	defer file.Close()

	var entries []Entry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("解析结果日志失败: %w", err)
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries, nil
}
