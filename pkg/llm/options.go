package llm

import (
	"net/http"
	"time"
)

// Option 提供商配置选项函数
type Option func(*Options)

// Options 提供商配置选项
type Options struct {
	// APIKey API 密钥（Bedrock 为 AWS Access Key ID）
	APIKey string
	// SecretKey 密钥（Bedrock 为 AWS Secret Access Key）
	SecretKey string
	// SessionToken AWS 临时凭证令牌
	SessionToken string
	// Region 区域（Bedrock 需要）
	Region string
	// BaseURL 自定义 API 端点
	BaseURL string
	// Model 模型名称
	Model string
	// Timeout 请求超时
	Timeout time.Duration
	// MaxRetries 最大重试次数（0 表示不重试）
	MaxRetries int
	// RetryDelay 重试间隔基数
	RetryDelay time.Duration
	// HTTPClient 自定义 HTTP 客户端
	HTTPClient *http.Client
	// MaxTokens 默认最大输出 token 数
	MaxTokens int
}

// DefaultOptions 返回默认选项
func DefaultOptions() *Options {
	return &Options{
		Timeout:    60 * time.Second,
		MaxRetries: 0,
		RetryDelay: time.Second,
		MaxTokens:  1024,
	}
}

// WithAPIKey 设置 API 密钥
func WithAPIKey(key string) Option {
	return func(o *Options) {
		o.APIKey = key
	}
}

// WithSecretKey 设置密钥（Bedrock 需要）
func WithSecretKey(key string) Option {
	return func(o *Options) {
		o.SecretKey = key
	}
}

// WithSessionToken 设置 AWS 临时凭证令牌
func WithSessionToken(token string) Option {
	return func(o *Options) {
		o.SessionToken = token
	}
}

// WithRegion 设置区域
func WithRegion(region string) Option {
	return func(o *Options) {
		o.Region = region
	}
}

// WithBaseURL 设置自定义端点
func WithBaseURL(url string) Option {
	return func(o *Options) {
		o.BaseURL = url
	}
}

// WithModel 设置模型
func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// WithTimeout 设置超时时间
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}

// WithMaxRetries 设置最大重试次数
func WithMaxRetries(n int) Option {
	return func(o *Options) {
		o.MaxRetries = n
	}
}

// WithRetryDelay 设置重试间隔
func WithRetryDelay(d time.Duration) Option {
	return func(o *Options) {
		o.RetryDelay = d
	}
}

// WithHTTPClient 设置自定义 HTTP 客户端
func WithHTTPClient(client *http.Client) Option {
	return func(o *Options) {
		o.HTTPClient = client
	}
}

// WithMaxTokens 设置默认最大输出 token 数
func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

// ApplyOptions 应用选项到 Options
func ApplyOptions(opts *Options, options ...Option) {
	for _, opt := range options {
		opt(opts)
	}
}

// httpClient 返回配置的 HTTP 客户端，未配置时按 Timeout 新建
func (o *Options) httpClient() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	return &http.Client{Timeout: o.Timeout}
}

// maxTokens 返回请求级或默认的最大输出 token 数
func (o *Options) maxTokens(req ChatRequest) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return o.MaxTokens
}
