package sink

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileSink 写入本地目录
type FileSink struct {
	dir string
}

// NewFileSink 创建本地目录存储，目录不存在时自动创建
func NewFileSink(dir string) (*FileSink, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &FileSink{dir: dir}, nil
}

// Dir 返回输出目录
func (s *FileSink) Dir() string {
	return s.dir
}

// Put 先写临时文件再原子重命名，覆盖已有文件
func (s *FileSink) Put(ctx context.Context, name string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, err := s.path(name)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.dir, "."+filepath.Base(name)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath) //nolint:errcheck
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath) //nolint:errcheck
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath) //nolint:errcheck
		return "", fmt.Errorf("chmod %s: %w", name, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath) //nolint:errcheck
		return "", fmt.Errorf("rename %s: %w", name, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return "file://" + abs, nil
}

// Get 读取文件
func (s *FileSink) Get(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return data, err
}

func (s *FileSink) path(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("sink: invalid object name %q", name)
	}
	return filepath.Join(s.dir, name), nil
}
