package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"
)

const (
	defaultBedrockModel  = "anthropic.claude-3-haiku-20240307-v1:0"
	defaultBedrockRegion = "us-east-1"
)

// Bedrock AWS Bedrock Converse API 客户端
type Bedrock struct {
	client *bedrockruntime.Client
	opts   *Options
}

// LoadAWSConfig 按 Options 加载 AWS 配置
//
// APIKey/SecretKey 均非空时使用静态凭证，否则走默认凭证链（环境变量、IAM 角色等）。
func LoadAWSConfig(ctx context.Context, o *Options) (aws.Config, error) {
	region := o.Region
	if region == "" {
		region = defaultBedrockRegion
	}
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
		config.WithHTTPClient(o.httpClient()),
	}
	if o.APIKey != "" && o.SecretKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.APIKey, o.SecretKey, o.SessionToken),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, nil
}

// NewBedrock 创建 Bedrock 对话客户端
func NewBedrock(opts ...Option) (*Bedrock, error) {
	o := DefaultOptions()
	ApplyOptions(o, opts...)

	if (o.APIKey == "") != (o.SecretKey == "") {
		return nil, WrapError(ErrInvalidAPIKey, "bedrock: access key and secret key must be set together")
	}
	if o.Model == "" {
		o.Model = defaultBedrockModel
	}

	awsCfg, err := LoadAWSConfig(context.Background(), o)
	if err != nil {
		return nil, WrapError(err, "bedrock")
	}

	client := bedrockruntime.NewFromConfig(awsCfg, func(bo *bedrockruntime.Options) {
		if o.BaseURL != "" {
			bo.BaseEndpoint = aws.String(o.BaseURL)
		}
		bo.RetryMaxAttempts = 1
	})

	return &Bedrock{client: client, opts: o}, nil
}

// Name 返回提供商名称
func (p *Bedrock) Name() string {
	return string(ProviderBedrock)
}

// Model 返回当前模型名称
func (p *Bedrock) Model() string {
	return p.opts.Model
}

// Close 关闭客户端连接
func (p *Bedrock) Close() error {
	return nil
}

// Chat 发送一次单轮对话请求
func (p *Bedrock) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if err := req.Validate(); err != nil {
		return ChatResponse{}, err
	}

	maxTokens := min(p.opts.maxTokens(req), math.MaxInt32)
	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(p.opts.Model),
		Messages: []types.Message{{
			Role:    types.ConversationRoleUser,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: req.Prompt}},
		}},
		InferenceConfig: &types.InferenceConfiguration{
			// #nosec G115 -- bounded by min above
			MaxTokens: aws.Int32(int32(maxTokens)),
		},
	}
	if req.System != "" {
		input.System = []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: req.System},
		}
	}
	if req.Temperature != nil {
		input.InferenceConfig.Temperature = aws.Float32(float32(*req.Temperature))
	}

	return Retry(ctx, p.opts, func() (ChatResponse, error) {
		out, err := p.client.Converse(ctx, input)
		if err != nil {
			return ChatResponse{}, bedrockError(err)
		}

		msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
		if !ok {
			return ChatResponse{}, WrapError(ErrInvalidResponse, "bedrock: no message in output")
		}
		var text strings.Builder
		for _, block := range msg.Value.Content {
			if tb, ok := block.(*types.ContentBlockMemberText); ok {
				text.WriteString(tb.Value)
			}
		}

		resp := ChatResponse{Content: text.String(), Model: p.opts.Model}
		if out.Usage != nil {
			resp.PromptTokens = int(aws.ToInt32(out.Usage.InputTokens))
			resp.CompletionTokens = int(aws.ToInt32(out.Usage.OutputTokens))
		}
		return resp, nil
	})
}

// bedrockError 将 smithy API 错误码映射为包内错误
func bedrockError(err error) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return contextError("bedrock", err)
	}

	var sentinel error
	switch apiErr.ErrorCode() {
	case "ThrottlingException", "ServiceQuotaExceededException":
		sentinel = ErrRateLimited
	case "AccessDeniedException", "UnrecognizedClientException":
		sentinel = ErrInvalidAPIKey
	case "ModelTimeoutException":
		sentinel = ErrTimeout
	case "ResourceNotFoundException", "ModelNotReadyException":
		sentinel = ErrModelNotSupported
	case "ServiceUnavailableException", "InternalServerException", "ModelErrorException":
		sentinel = ErrProviderUnavailable
	default:
		sentinel = ErrBadRequest
	}
	return WrapError(fmt.Errorf("%w: %w", sentinel, err), "bedrock")
}
