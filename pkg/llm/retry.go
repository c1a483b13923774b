package llm

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// maxRetryInterval 单次重试等待的上限
const maxRetryInterval = 30 * time.Second

// Retry 按 Options 的重试策略执行 op
//
// 只有 IsRetryable 为真的错误会被重试；MaxRetries 为 0 时只执行一次。
//
// 参数:
//   - ctx: 上下文，取消时立即返回
//   - opts: 重试配置（MaxRetries, RetryDelay）
//   - op: 待执行的操作
func Retry[T any](ctx context.Context, opts *Options, op func() (T, error)) (T, error) {
	if opts.MaxRetries <= 0 {
		return op()
	}

	b := backoff.NewExponentialBackOff()
	if opts.RetryDelay > 0 {
		b.InitialInterval = opts.RetryDelay
	}
	b.MaxInterval = maxRetryInterval

	operation := func() (T, error) {
		v, err := op()
		if err != nil && !IsRetryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(opts.MaxRetries+1)),
	)
}
