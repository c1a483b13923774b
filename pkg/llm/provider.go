// Package llm 提供对话补全与文本向量化服务的统一接口
package llm

import (
	"context"
)

// ChatProvider 定义对话补全提供商接口
//
// 统一不同大模型服务的调用方式，支持 OpenAI、Anthropic、Gemini、Bedrock。
// 每次 Chat 调用都是一次独立的单轮对话，不保留会话状态。
type ChatProvider interface {
	// Chat 发送一次单轮对话请求
	//
	// 参数:
	//   - ctx: 上下文
	//   - req: 请求参数
	//
	// 返回:
	//   - ChatResponse: 模型回复
	//   - error: 调用错误
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)

	// Name 返回提供商名称
	Name() string

	// Model 返回当前模型名称
	Model() string

	// Close 关闭客户端连接
	Close() error
}

// Embedder 定义文本向量化提供商接口
type Embedder interface {
	// Embed 批量向量化文本
	//
	// 参数:
	//   - ctx: 上下文
	//   - texts: 待向量化文本（不能包含空串）
	//
	// 返回:
	//   - [][]float32: 与 texts 等长、顺序一致的向量
	//   - error: 调用错误
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Name 返回提供商名称
	Name() string

	// Model 返回当前模型名称
	Model() string
}

// ChatRequest 对话请求
type ChatRequest struct {
	// System 系统提示词（可选）
	System string `json:"system,omitempty"`

	// Prompt 用户消息（必填）
	Prompt string `json:"prompt"`

	// MaxTokens 最大输出 token 数（0 使用提供商默认值）
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature 采样温度（nil 使用提供商默认值）
	Temperature *float64 `json:"temperature,omitempty"`
}

// Validate 校验请求
func (r ChatRequest) Validate() error {
	if r.Prompt == "" {
		return ErrEmptyPrompt
	}
	return nil
}

// ChatResponse 对话响应
type ChatResponse struct {
	// Content 模型回复文本
	Content string `json:"content"`

	// Model 实际使用的模型
	Model string `json:"model,omitempty"`

	// PromptTokens 输入 token 数（提供商返回时填充）
	PromptTokens int `json:"prompt_tokens,omitempty"`

	// CompletionTokens 输出 token 数
	CompletionTokens int `json:"completion_tokens,omitempty"`
}

// Float64 返回 v 的指针，便于设置 Temperature
func Float64(v float64) *float64 {
	return &v
}
