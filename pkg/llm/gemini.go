package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const (
	defaultGeminiChatModel      = "gemini-2.0-flash"
	defaultGeminiEmbeddingModel = "text-embedding-004"
)

// Gemini Google Gemini 对话客户端
type Gemini struct {
	client *genai.Client
	opts   *Options
}

func newGeminiClient(o *Options) (*genai.Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:     o.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: o.httpClient(),
	}
	if o.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: o.BaseURL}
	}
	client, err := genai.NewClient(context.Background(), cfg)
	if err != nil {
		return nil, WrapError(err, "gemini: failed to create client")
	}
	return client, nil
}

// NewGemini 创建 Gemini 对话客户端
func NewGemini(opts ...Option) (*Gemini, error) {
	o := DefaultOptions()
	ApplyOptions(o, opts...)

	if o.APIKey == "" {
		return nil, WrapError(ErrInvalidAPIKey, "gemini: API key is required")
	}
	if o.Model == "" {
		o.Model = defaultGeminiChatModel
	}

	client, err := newGeminiClient(o)
	if err != nil {
		return nil, err
	}
	return &Gemini{client: client, opts: o}, nil
}

// Name 返回提供商名称
func (p *Gemini) Name() string {
	return string(ProviderGemini)
}

// Model 返回当前模型名称
func (p *Gemini) Model() string {
	return p.opts.Model
}

// Close 关闭客户端连接
func (p *Gemini) Close() error {
	return nil
}

// Chat 发送一次单轮对话请求
func (p *Gemini) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if err := req.Validate(); err != nil {
		return ChatResponse{}, err
	}

	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(p.opts.maxTokens(req)),
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*req.Temperature))
	}

	return Retry(ctx, p.opts, func() (ChatResponse, error) {
		resp, err := p.client.Models.GenerateContent(ctx, p.opts.Model, genai.Text(req.Prompt), config)
		if err != nil {
			return ChatResponse{}, geminiError(err)
		}
		out := ChatResponse{
			Content: resp.Text(),
			Model:   resp.ModelVersion,
		}
		if resp.UsageMetadata != nil {
			out.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
			out.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		}
		return out, nil
	})
}

// GeminiEmbedder Gemini 向量化客户端
type GeminiEmbedder struct {
	client *genai.Client
	opts   *Options
}

// NewGeminiEmbedder 创建 Gemini 向量化客户端
func NewGeminiEmbedder(opts ...Option) (*GeminiEmbedder, error) {
	o := DefaultOptions()
	ApplyOptions(o, opts...)

	if o.APIKey == "" {
		return nil, WrapError(ErrInvalidAPIKey, "gemini: API key is required")
	}
	if o.Model == "" {
		o.Model = defaultGeminiEmbeddingModel
	}

	client, err := newGeminiClient(o)
	if err != nil {
		return nil, err
	}
	return &GeminiEmbedder{client: client, opts: o}, nil
}

// Name 返回提供商名称
func (e *GeminiEmbedder) Name() string {
	return string(ProviderGemini)
}

// Model 返回当前模型名称
func (e *GeminiEmbedder) Model() string {
	return e.opts.Model
}

// Embed 批量向量化文本
func (e *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		if t == "" {
			return nil, ErrEmptyInput
		}
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	return Retry(ctx, e.opts, func() ([][]float32, error) {
		resp, err := e.client.Models.EmbedContent(ctx, e.opts.Model, contents, nil)
		if err != nil {
			return nil, geminiError(err)
		}
		if len(resp.Embeddings) != len(texts) {
			return nil, WrapError(
				fmt.Errorf("%w: got %d embeddings for %d inputs", ErrInvalidResponse, len(resp.Embeddings), len(texts)),
				"gemini",
			)
		}
		vectors := make([][]float32, len(texts))
		for i, emb := range resp.Embeddings {
			if emb == nil {
				return nil, WrapError(ErrInvalidResponse, "gemini: nil embedding")
			}
			vectors[i] = emb.Values
		}
		return vectors, nil
	})
}

// geminiError 将 genai 错误映射为包内错误
func geminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return statusError("gemini", apiErr.Code, err)
	}
	return contextError("gemini", err)
}
