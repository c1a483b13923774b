// Package config 加载 qaeval 的运行配置
//
// 配置按以下顺序叠加，后者覆盖前者：
// 内置默认值 → YAML 配置文件 → QAEVAL_ 前缀环境变量 → 命令行覆盖。
// 环境变量中的双下划线表示层级，例如 QAEVAL_JUDGE__MODEL 对应 judge.model。
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/ahhsitt/qaeval-go/pkg/llm"
)

// EnvPrefix 环境变量前缀
const EnvPrefix = "QAEVAL_"

// ErrInvalidConfig 配置校验失败
var ErrInvalidConfig = errors.New("invalid configuration")

var runKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Config qaeval 运行配置
type Config struct {
	Run       RunConfig       `koanf:"run"`
	Judge     JudgeConfig     `koanf:"judge"`
	Semantic  SemanticConfig  `koanf:"semantic"`
	Output    OutputConfig    `koanf:"output"`
	History   HistoryConfig   `koanf:"history"`
	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// RunConfig 输入数据集与运行键
type RunConfig struct {
	// Key 运行键，输出文件名为 score-<key>.json
	Key string `koanf:"key"`
	// Questions 参考数据集路径
	Questions string `koanf:"questions"`
	// Results 候选答案数据集路径
	Results string `koanf:"results"`
	// Verbose 输出逐题进度
	Verbose bool `koanf:"verbose"`
}

// JudgeConfig 事实性评委配置
type JudgeConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Provider  string `koanf:"provider"`
	APIKey    string `koanf:"api_key"`
	SecretKey string `koanf:"secret_key"`
	Region    string `koanf:"region"`
	BaseURL   string `koanf:"base_url"`
	Model     string `koanf:"model"`
	// MaxRetries 提供商层面的重试次数（默认 0，失败即记为 ERROR）
	MaxRetries int `koanf:"max_retries"`
	// Timeout 单次调用超时
	Timeout     time.Duration `koanf:"timeout"`
	Concurrency int           `koanf:"concurrency"`
	// RateLimit 每秒请求数，0 表示不限制
	RateLimit float64 `koanf:"rate_limit"`
	Burst     int     `koanf:"burst"`
	MaxTokens int     `koanf:"max_tokens"`
	// Temperature 采样温度，未设置时使用提供商默认值
	Temperature *float64 `koanf:"temperature"`
	FailFast    bool     `koanf:"fail_fast"`
	CountTokens bool     `koanf:"count_tokens"`
}

// ProviderConfig 转换为 llm.ProviderConfig
func (c JudgeConfig) ProviderConfig() (llm.ProviderConfig, error) {
	pt, err := llm.ParseProviderType(c.Provider)
	if err != nil {
		return llm.ProviderConfig{}, err
	}
	return llm.ProviderConfig{
		Type:       pt,
		APIKey:     c.APIKey,
		SecretKey:  c.SecretKey,
		Region:     c.Region,
		BaseURL:    c.BaseURL,
		Model:      c.Model,
		MaxRetries: c.MaxRetries,
	}, nil
}

// SemanticConfig 语义相似度配置
type SemanticConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Provider  string `koanf:"provider"`
	APIKey    string `koanf:"api_key"`
	BaseURL   string `koanf:"base_url"`
	Model     string `koanf:"model"`
	BatchSize int    `koanf:"batch_size"`
	// CacheURL 向量缓存地址：空或 "memory" 使用进程内缓存，redis:// 使用 Redis
	CacheURL string        `koanf:"cache_url"`
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

// ProviderConfig 转换为 llm.ProviderConfig
func (c SemanticConfig) ProviderConfig() (llm.ProviderConfig, error) {
	pt, err := llm.ParseProviderType(c.Provider)
	if err != nil {
		return llm.ProviderConfig{}, err
	}
	return llm.ProviderConfig{
		Type:    pt,
		APIKey:  c.APIKey,
		BaseURL: c.BaseURL,
		Model:   c.Model,
	}, nil
}

// OutputConfig 报告输出配置
//
// 设置 S3Bucket 时报告写入 S3，否则写入本地 Dir。
type OutputConfig struct {
	Dir        string `koanf:"dir"`
	Markdown   bool   `koanf:"markdown"`
	S3Bucket   string `koanf:"s3_bucket"`
	S3Prefix   string `koanf:"s3_prefix"`
	S3Region   string `koanf:"s3_region"`
	S3Endpoint string `koanf:"s3_endpoint"`
}

// HistoryConfig 运行历史配置
type HistoryConfig struct {
	// Path SQLite 文件路径，空表示不记录
	Path string `koanf:"path"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// TelemetryConfig OpenTelemetry 配置
type TelemetryConfig struct {
	// Exporter none、stdout 或 otlp
	Exporter string `koanf:"exporter"`
	// Protocol otlp 协议：grpc 或 http
	Protocol    string `koanf:"protocol"`
	Endpoint    string `koanf:"endpoint"`
	Insecure    bool   `koanf:"insecure"`
	ServiceName string `koanf:"service_name"`
}

// Defaults 返回内置默认值
func Defaults() map[string]any {
	return map[string]any{
		"run.key":                "custom_eval",
		"run.questions":          "testbasement.json",
		"run.results":            "generatedresult.json",
		"run.verbose":            true,
		"judge.enabled":          true,
		"judge.provider":         string(llm.ProviderOpenAI),
		"judge.model":            "gpt-4o-mini",
		"judge.timeout":          "2m",
		"judge.concurrency":      1,
		"judge.burst":            1,
		"judge.max_tokens":       1024,
		"semantic.enabled":       true,
		"semantic.provider":      string(llm.ProviderOpenAI),
		"semantic.batch_size":    64,
		"semantic.cache_url":     "memory",
		"semantic.cache_ttl":     "168h",
		"output.dir":             ".",
		"logging.level":          "info",
		"logging.format":         "text",
		"telemetry.exporter":     "none",
		"telemetry.protocol":     "grpc",
		"telemetry.insecure":     true,
		"telemetry.service_name": "qaeval",
	}
}

// Load 加载配置
//
// 参数:
//   - path: YAML 配置文件路径，空字符串表示不读取文件
//   - overrides: 命令行覆盖项，键为点分路径（如 "judge.model"）
func Load(path string, overrides map[string]any) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("加载默认配置失败: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("加载配置文件失败: %w", err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("加载环境变量失败: %w", err)
	}

	if len(overrides) > 0 {
		if err := k.Load(confmap.Provider(overrides, "."), nil); err != nil {
			return nil, fmt.Errorf("加载命令行参数失败: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	cfg.applyKeyFallbacks()
	return &cfg, nil
}

// envKey 将 QAEVAL_JUDGE__API_KEY 转换为 judge.api_key
func envKey(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	return strings.ReplaceAll(key, "__", "."), value
}

// applyKeyFallbacks 未配置密钥时读取提供商约定的环境变量
func (c *Config) applyKeyFallbacks() {
	if c.Judge.APIKey == "" {
		if pt, err := llm.ParseProviderType(c.Judge.Provider); err == nil {
			if name := llm.APIKeyEnv(pt); name != "" {
				c.Judge.APIKey = os.Getenv(name)
			}
		}
	}
	if c.Semantic.APIKey == "" {
		if pt, err := llm.ParseProviderType(c.Semantic.Provider); err == nil {
			if name := llm.APIKeyEnv(pt); name != "" {
				c.Semantic.APIKey = os.Getenv(name)
			}
		}
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	var issues []string

	if !runKeyPattern.MatchString(c.Run.Key) {
		issues = append(issues, fmt.Sprintf("run.key %q must match %s", c.Run.Key, runKeyPattern))
	}
	if c.Run.Questions == "" {
		issues = append(issues, "run.questions is required")
	}
	if c.Run.Results == "" {
		issues = append(issues, "run.results is required")
	}

	if c.Judge.Enabled {
		pt, err := llm.ParseProviderType(c.Judge.Provider)
		switch {
		case err != nil:
			issues = append(issues, "judge.provider: "+err.Error())
		case pt == llm.ProviderBedrock:
			if (c.Judge.APIKey == "") != (c.Judge.SecretKey == "") {
				issues = append(issues, "judge.api_key and judge.secret_key must be set together for bedrock")
			}
		case c.Judge.APIKey == "":
			issues = append(issues, fmt.Sprintf("judge.api_key is required (or set %s)", llm.APIKeyEnv(pt)))
		}
		if c.Judge.Concurrency < 1 {
			issues = append(issues, "judge.concurrency must be >= 1")
		}
		if c.Judge.Timeout < 0 {
			issues = append(issues, "judge.timeout must not be negative")
		}
		if c.Judge.RateLimit < 0 {
			issues = append(issues, "judge.rate_limit must not be negative")
		}
		if t := c.Judge.Temperature; t != nil && (*t < 0 || *t > 2) {
			issues = append(issues, fmt.Sprintf("judge.temperature %g must be within [0, 2]", *t))
		}
	}

	if c.Semantic.Enabled {
		pt, err := llm.ParseProviderType(c.Semantic.Provider)
		switch {
		case err != nil:
			issues = append(issues, "semantic.provider: "+err.Error())
		case pt != llm.ProviderOpenAI && pt != llm.ProviderGemini:
			issues = append(issues, fmt.Sprintf("semantic.provider %s has no embedding endpoint", pt))
		case c.Semantic.APIKey == "":
			issues = append(issues, fmt.Sprintf("semantic.api_key is required (or set %s)", llm.APIKeyEnv(pt)))
		}
		if c.Semantic.CacheURL != "" && c.Semantic.CacheURL != "memory" &&
			!strings.HasPrefix(c.Semantic.CacheURL, "redis://") && !strings.HasPrefix(c.Semantic.CacheURL, "rediss://") {
			issues = append(issues, "semantic.cache_url must be \"memory\" or a redis:// URL")
		}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		issues = append(issues, fmt.Sprintf("logging.level %q is not supported", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		issues = append(issues, fmt.Sprintf("logging.format %q is not supported", c.Logging.Format))
	}

	switch c.Telemetry.Exporter {
	case "", "none", "stdout":
	case "otlp":
		if c.Telemetry.Protocol != "grpc" && c.Telemetry.Protocol != "http" {
			issues = append(issues, fmt.Sprintf("telemetry.protocol %q must be grpc or http", c.Telemetry.Protocol))
		}
	default:
		issues = append(issues, fmt.Sprintf("telemetry.exporter %q must be none, stdout or otlp", c.Telemetry.Exporter))
	}

	if len(issues) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(issues, "; "))
	}
	return nil
}
