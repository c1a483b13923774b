// Package sink 持久化评估报告
package sink

import (
	"context"
	"errors"
)

// ErrNotFound 对象不存在
var ErrNotFound = errors.New("sink: object not found")

// Sink 报告存储
//
// 同名对象会被整体覆盖。
type Sink interface {
	// Put 写入对象，返回对象引用（file:// 或 s3://）
	Put(ctx context.Context, name string, data []byte, contentType string) (string, error)

	// Get 读取对象
	Get(ctx context.Context, name string) ([]byte, error)
}
