package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-3-5-haiku-latest"

// Anthropic Anthropic Messages API 客户端
type Anthropic struct {
	client anthropic.Client
	opts   *Options
}

// NewAnthropic 创建 Anthropic 对话客户端
func NewAnthropic(opts ...Option) (*Anthropic, error) {
	o := DefaultOptions()
	ApplyOptions(o, opts...)

	if o.APIKey == "" {
		return nil, WrapError(ErrInvalidAPIKey, "anthropic: API key is required")
	}
	if o.Model == "" {
		o.Model = defaultAnthropicModel
	}

	// 重试由 Retry 统一控制，关闭 SDK 内置重试
	reqOpts := []option.RequestOption{
		option.WithAPIKey(o.APIKey),
		option.WithHTTPClient(o.httpClient()),
		option.WithMaxRetries(0),
	}
	if o.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(o.BaseURL))
	}

	return &Anthropic{
		client: anthropic.NewClient(reqOpts...),
		opts:   o,
	}, nil
}

// Name 返回提供商名称
func (p *Anthropic) Name() string {
	return string(ProviderAnthropic)
}

// Model 返回当前模型名称
func (p *Anthropic) Model() string {
	return p.opts.Model
}

// Close 关闭客户端连接
func (p *Anthropic) Close() error {
	return nil
}

// Chat 发送一次单轮对话请求
func (p *Anthropic) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if err := req.Validate(); err != nil {
		return ChatResponse{}, err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.opts.Model),
		MaxTokens: int64(p.opts.maxTokens(req)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}

	return Retry(ctx, p.opts, func() (ChatResponse, error) {
		msg, err := p.client.Messages.New(ctx, params)
		if err != nil {
			return ChatResponse{}, anthropicError(err)
		}

		var text strings.Builder
		for _, block := range msg.Content {
			if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
				text.WriteString(tb.Text)
			}
		}
		return ChatResponse{
			Content:          text.String(),
			Model:            string(msg.Model),
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
		}, nil
	})
}

// anthropicError 将 SDK 错误映射为包内错误
func anthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return statusError("anthropic", apiErr.StatusCode, err)
	}
	return contextError("anthropic", err)
}
