package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

const (
	defaultOpenAIChatModel      = "gpt-4o-mini"
	defaultOpenAIEmbeddingModel = string(openai.SmallEmbedding3)
)

// OpenAI OpenAI 兼容的对话补全客户端
type OpenAI struct {
	client *openai.Client
	opts   *Options
}

// NewOpenAI 创建 OpenAI 对话客户端
func NewOpenAI(opts ...Option) (*OpenAI, error) {
	o := DefaultOptions()
	ApplyOptions(o, opts...)

	if o.APIKey == "" {
		return nil, WrapError(ErrInvalidAPIKey, "openai: API key is required")
	}
	if o.Model == "" {
		o.Model = defaultOpenAIChatModel
	}

	return &OpenAI{
		client: newOpenAIClient(o),
		opts:   o,
	}, nil
}

func newOpenAIClient(o *Options) *openai.Client {
	cfg := openai.DefaultConfig(o.APIKey)
	if o.BaseURL != "" {
		cfg.BaseURL = o.BaseURL
	}
	cfg.HTTPClient = o.httpClient()
	return openai.NewClientWithConfig(cfg)
}

// Name 返回提供商名称
func (p *OpenAI) Name() string {
	return string(ProviderOpenAI)
}

// Model 返回当前模型名称
func (p *OpenAI) Model() string {
	return p.opts.Model
}

// Close 关闭客户端连接
func (p *OpenAI) Close() error {
	return nil
}

// Chat 发送一次单轮对话请求
func (p *OpenAI) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if err := req.Validate(); err != nil {
		return ChatResponse{}, err
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	apiReq := openai.ChatCompletionRequest{
		Model:     p.opts.Model,
		Messages:  messages,
		MaxTokens: p.opts.maxTokens(req),
	}
	if req.Temperature != nil {
		apiReq.Temperature = float32(*req.Temperature)
	}

	return Retry(ctx, p.opts, func() (ChatResponse, error) {
		resp, err := p.client.CreateChatCompletion(ctx, apiReq)
		if err != nil {
			return ChatResponse{}, openAIError(err)
		}
		if len(resp.Choices) == 0 {
			return ChatResponse{}, WrapError(ErrInvalidResponse, "openai: no choices returned")
		}
		return ChatResponse{
			Content:          resp.Choices[0].Message.Content,
			Model:            resp.Model,
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		}, nil
	})
}

// OpenAIEmbedder OpenAI 向量化客户端
type OpenAIEmbedder struct {
	client *openai.Client
	opts   *Options
}

// NewOpenAIEmbedder 创建 OpenAI 向量化客户端
func NewOpenAIEmbedder(opts ...Option) (*OpenAIEmbedder, error) {
	o := DefaultOptions()
	ApplyOptions(o, opts...)

	if o.APIKey == "" {
		return nil, WrapError(ErrInvalidAPIKey, "openai: API key is required")
	}
	if o.Model == "" {
		o.Model = defaultOpenAIEmbeddingModel
	}

	return &OpenAIEmbedder{
		client: newOpenAIClient(o),
		opts:   o,
	}, nil
}

// Name 返回提供商名称
func (e *OpenAIEmbedder) Name() string {
	return string(ProviderOpenAI)
}

// Model 返回当前模型名称
func (e *OpenAIEmbedder) Model() string {
	return e.opts.Model
}

// Embed 批量向量化文本
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for _, t := range texts {
		if t == "" {
			return nil, ErrEmptyInput
		}
	}

	return Retry(ctx, e.opts, func() ([][]float32, error) {
		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts,
			Model: openai.EmbeddingModel(e.opts.Model),
		})
		if err != nil {
			return nil, openAIError(err)
		}
		if len(resp.Data) != len(texts) {
			return nil, WrapError(
				fmt.Errorf("%w: got %d embeddings for %d inputs", ErrInvalidResponse, len(resp.Data), len(texts)),
				"openai",
			)
		}

		vectors := make([][]float32, len(texts))
		for _, d := range resp.Data {
			if d.Index < 0 || d.Index >= len(vectors) {
				return nil, WrapError(ErrInvalidResponse, "openai: embedding index out of range")
			}
			vectors[d.Index] = d.Embedding
		}
		return vectors, nil
	})
}

// openAIError 将 go-openai 错误映射为包内错误
func openAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return statusError("openai", apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return statusError("openai", reqErr.HTTPStatusCode, err)
	}
	return contextError("openai", err)
}
