package evaluation

import (
	"time"
)

// EvalConfig 评估配置
type EvalConfig struct {
	// RunKey 运行键，决定输出文件名 score-<key>.json
	RunKey string

	// JudgeTimeout 单次评委调用超时（0 表示不限制）
	JudgeTimeout time.Duration

	// JudgeConcurrency 评委并发数（1 表示逐题顺序调用）
	JudgeConcurrency int

	// FailFast 评委调用失败时中止整个运行
	FailFast bool

	// SkipJudge 跳过事实性评判
	SkipJudge bool

	// ProgressCallback 进度回调函数
	ProgressCallback ProgressCallback

	// Verbose 是否输出逐题进度
	Verbose bool
}

// EvalOption 评估选项函数类型
type EvalOption func(*EvalConfig)

// DefaultEvalConfig 返回默认评估配置
func DefaultEvalConfig() *EvalConfig {
	return &EvalConfig{
		RunKey:           "custom_eval",
		JudgeTimeout:     2 * time.Minute,
		JudgeConcurrency: 1,
		Verbose:          true,
	}
}

// ApplyOptions 应用评估选项
func (c *EvalConfig) ApplyOptions(opts ...EvalOption) {
	for _, opt := range opts {
		opt(c)
	}
	if c.JudgeConcurrency < 1 {
		c.JudgeConcurrency = 1
	}
}

// WithRunKey 设置运行键
func WithRunKey(key string) EvalOption {
	return func(c *EvalConfig) {
		c.RunKey = key
	}
}

// WithJudgeTimeout 设置单次评委调用超时
//
// 参数:
//   - d: 超时时间，0 表示不限制
func WithJudgeTimeout(d time.Duration) EvalOption {
	return func(c *EvalConfig) {
		c.JudgeTimeout = d
	}
}

// WithJudgeConcurrency 设置评委并发数
//
// 参数:
//   - n: 并发数，小于 1 时按 1 处理
func WithJudgeConcurrency(n int) EvalOption {
	return func(c *EvalConfig) {
		c.JudgeConcurrency = n
	}
}

// WithFailFast 评委失败时中止运行
func WithFailFast(failFast bool) EvalOption {
	return func(c *EvalConfig) {
		c.FailFast = failFast
	}
}

// WithSkipJudge 跳过事实性评判
func WithSkipJudge(skip bool) EvalOption {
	return func(c *EvalConfig) {
		c.SkipJudge = skip
	}
}

// WithProgressCallback 设置进度回调函数
//
// 参数:
//   - callback: 进度回调函数，每完成一个问题调用一次
func WithProgressCallback(callback ProgressCallback) EvalOption {
	return func(c *EvalConfig) {
		c.ProgressCallback = callback
	}
}

// WithVerbose 设置是否输出逐题进度
func WithVerbose(verbose bool) EvalOption {
	return func(c *EvalConfig) {
		c.Verbose = verbose
	}
}
