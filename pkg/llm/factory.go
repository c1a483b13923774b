package llm

import (
	"fmt"
	"strings"
	"time"
)

// ProviderType 提供商类型
type ProviderType string

const (
	// ProviderOpenAI OpenAI 及兼容接口
	ProviderOpenAI ProviderType = "openai"
	// ProviderAnthropic Anthropic Claude
	ProviderAnthropic ProviderType = "anthropic"
	// ProviderGemini Google Gemini
	ProviderGemini ProviderType = "gemini"
	// ProviderBedrock AWS Bedrock
	ProviderBedrock ProviderType = "bedrock"
)

// NewChatProvider 根据提供商类型创建对话客户端
func NewChatProvider(providerType ProviderType, opts ...Option) (ChatProvider, error) {
	switch providerType {
	case ProviderOpenAI:
		return NewOpenAI(opts...)
	case ProviderAnthropic:
		return NewAnthropic(opts...)
	case ProviderGemini:
		return NewGemini(opts...)
	case ProviderBedrock:
		return NewBedrock(opts...)
	default:
		return nil, fmt.Errorf("unknown provider type: %s", providerType)
	}
}

// NewEmbedder 根据提供商类型创建向量化客户端
//
// 只有 OpenAI 和 Gemini 提供向量化接口。
func NewEmbedder(providerType ProviderType, opts ...Option) (Embedder, error) {
	switch providerType {
	case ProviderOpenAI:
		return NewOpenAIEmbedder(opts...)
	case ProviderGemini:
		return NewGeminiEmbedder(opts...)
	case ProviderAnthropic, ProviderBedrock:
		return nil, fmt.Errorf("%w: %s has no embedding endpoint", ErrModelNotSupported, providerType)
	default:
		return nil, fmt.Errorf("unknown provider type: %s", providerType)
	}
}

// ProviderConfig 提供商配置
type ProviderConfig struct {
	// Type 提供商类型
	Type ProviderType `json:"type" yaml:"type"`
	// APIKey API 密钥
	APIKey string `json:"api_key" yaml:"api_key"`
	// SecretKey 密钥（Bedrock 需要）
	SecretKey string `json:"secret_key,omitempty" yaml:"secret_key,omitempty"`
	// Region 区域（Bedrock 需要）
	Region string `json:"region,omitempty" yaml:"region,omitempty"`
	// BaseURL 自定义 API 端点
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	// Model 模型名称
	Model string `json:"model,omitempty" yaml:"model,omitempty"`
	// TimeoutSeconds 超时秒数
	TimeoutSeconds int `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
	// MaxRetries 最大重试次数
	MaxRetries int `json:"max_retries,omitempty" yaml:"max_retries,omitempty"`
}

// Options 将配置转换为选项列表
func (cfg ProviderConfig) Options() []Option {
	opts := []Option{
		WithAPIKey(cfg.APIKey),
	}

	if cfg.SecretKey != "" {
		opts = append(opts, WithSecretKey(cfg.SecretKey))
	}
	if cfg.Region != "" {
		opts = append(opts, WithRegion(cfg.Region))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, WithBaseURL(cfg.BaseURL))
	}
	if cfg.Model != "" {
		opts = append(opts, WithModel(cfg.Model))
	}
	if cfg.TimeoutSeconds > 0 {
		opts = append(opts, WithTimeout(
			time.Duration(cfg.TimeoutSeconds)*time.Second,
		))
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, WithMaxRetries(cfg.MaxRetries))
	}
	return opts
}

// NewChatProviderFromConfig 从配置创建对话客户端
func NewChatProviderFromConfig(cfg ProviderConfig) (ChatProvider, error) {
	return NewChatProvider(cfg.Type, cfg.Options()...)
}

// NewEmbedderFromConfig 从配置创建向量化客户端
func NewEmbedderFromConfig(cfg ProviderConfig) (Embedder, error) {
	return NewEmbedder(cfg.Type, cfg.Options()...)
}

// ParseProviderType 从字符串解析提供商类型
func ParseProviderType(s string) (ProviderType, error) {
	switch strings.ToLower(s) {
	case "openai", "gpt", "azure-openai":
		return ProviderOpenAI, nil
	case "anthropic", "claude":
		return ProviderAnthropic, nil
	case "gemini", "google", "genai":
		return ProviderGemini, nil
	case "bedrock", "aws", "aws-bedrock":
		return ProviderBedrock, nil
	default:
		return "", fmt.Errorf("unknown provider: %s", s)
	}
}

// SupportedProviders 返回支持的提供商列表
func SupportedProviders() []ProviderType {
	return []ProviderType{
		ProviderOpenAI,
		ProviderAnthropic,
		ProviderGemini,
		ProviderBedrock,
	}
}

// APIKeyEnv 返回提供商约定的 API 密钥环境变量名
func APIKeyEnv(providerType ProviderType) string {
	switch providerType {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}
