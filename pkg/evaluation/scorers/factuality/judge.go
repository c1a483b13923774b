package factuality

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/ahhsitt/qaeval-go/pkg/evaluation"
	"github.com/ahhsitt/qaeval-go/pkg/llm"
)

// Judge LLM 事实性评委
//
// 实现 evaluation.FactualityJudge。每次调用都是一次全新的单轮对话。
type Judge struct {
	provider    llm.ChatProvider
	timeout     time.Duration
	limiter     *rate.Limiter
	counter     *llm.TokenCounter
	maxTokens   int
	temperature *float64
	logger      *slog.Logger
	tracer      trace.Tracer
	meter       metric.Meter
	inst        *instruments
}

// Option 评委选项
type Option func(*Judge)

// WithTimeout 设置单次调用超时（0 表示不限制）
func WithTimeout(d time.Duration) Option {
	return func(j *Judge) {
		j.timeout = d
	}
}

// WithRateLimit 设置调用速率限制
//
// 参数:
//   - perSecond: 每秒请求数，<= 0 表示不限制
//   - burst: 突发请求数
func WithRateLimit(perSecond float64, burst int) Option {
	return func(j *Judge) {
		if perSecond <= 0 {
			j.limiter = nil
			return
		}
		j.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
	}
}

// WithTokenCounter 在提供商未返回用量时本地统计提示词 token 数
func WithTokenCounter(counter *llm.TokenCounter) Option {
	return func(j *Judge) {
		j.counter = counter
	}
}

// WithMaxTokens 设置评委回复的最大 token 数
func WithMaxTokens(n int) Option {
	return func(j *Judge) {
		j.maxTokens = n
	}
}

// WithTemperature 设置采样温度
func WithTemperature(t float64) Option {
	return func(j *Judge) {
		j.temperature = llm.Float64(t)
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *slog.Logger) Option {
	return func(j *Judge) {
		if logger != nil {
			j.logger = logger
		}
	}
}

// WithTracerProvider 设置链路追踪提供者
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(j *Judge) {
		if tp != nil {
			j.tracer = tp.Tracer(instrumentationName)
		}
	}
}

// WithMeterProvider 设置指标提供者
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(j *Judge) {
		if mp != nil {
			j.meter = mp.Meter(instrumentationName)
		}
	}
}

// NewJudge 创建事实性评委
func NewJudge(provider llm.ChatProvider, opts ...Option) (*Judge, error) {
	if provider == nil {
		return nil, errors.New("factuality: chat provider is required")
	}
	j := &Judge{
		provider: provider,
		timeout:  2 * time.Minute,
		logger:   slog.Default(),
		tracer:   defaultTracer(),
		meter:    defaultMeter(),
	}
	for _, opt := range opts {
		opt(j)
	}

	inst, err := newInstruments(j.meter)
	if err != nil {
		return nil, fmt.Errorf("factuality: creating instruments: %w", err)
	}
	j.inst = inst
	return j, nil
}

// Judge 对单个问题进行一次独立的评判
//
// 调用失败时返回 Choice 为 ERROR 的 Verdict 和错误；超时错误包装 ErrJudgeTimeout，
// 其他错误包装 ErrExternalService。格式不规范的回复不算错误，只记录日志。
func (j *Judge) Judge(ctx context.Context, question, expert, submission string) (evaluation.Verdict, error) {
	ctx, span := j.tracer.Start(ctx, "factuality.judge",
		trace.WithAttributes(attribute.String("llm.provider", j.provider.Name()), attribute.String("llm.model", j.provider.Model())))
	defer span.End()

	prompt := BuildPrompt(question, expert, submission)

	if j.limiter != nil {
		if err := j.limiter.Wait(ctx); err != nil {
			return j.fail(ctx, span, fmt.Errorf("%w: waiting for rate limiter: %w", evaluation.ErrExternalService, err))
		}
	}

	callCtx := ctx
	if j.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	start := time.Now()
	j.inst.calls.Add(ctx, 1)
	resp, err := j.provider.Chat(callCtx, llm.ChatRequest{
		System:      SystemPrompt,
		Prompt:      prompt,
		MaxTokens:   j.maxTokens,
		Temperature: j.temperature,
	})
	j.inst.latency.Record(ctx, time.Since(start).Seconds())

	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) || errors.Is(err, llm.ErrTimeout) {
			return j.fail(ctx, span, fmt.Errorf("%w after %s: %w", evaluation.ErrJudgeTimeout, j.timeout, err))
		}
		return j.fail(ctx, span, fmt.Errorf("%w: %w", evaluation.ErrExternalService, err))
	}

	v := ParseVerdict(resp.Content)
	v.PromptTokens = resp.PromptTokens
	if v.PromptTokens == 0 && j.counter != nil {
		if n, err := j.counter.Count(SystemPrompt + "\n" + prompt); err == nil {
			v.PromptTokens = n
		} else {
			j.logger.Debug("token count unavailable", "error", err)
		}
	}

	span.SetAttributes(attribute.String("factuality.choice", string(v.Choice)), attribute.Bool("factuality.malformed", v.Malformed))
	if v.Malformed {
		j.inst.malformed.Add(ctx, 1)
		j.logger.Warn("malformed judge response",
			"error", evaluation.ErrMalformedVerdict, "choice", v.Choice, "raw", v.Raw)
	}
	return v, nil
}

func (j *Judge) fail(ctx context.Context, span trace.Span, err error) (evaluation.Verdict, error) {
	j.inst.errors.Add(ctx, 1)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return evaluation.Verdict{Choice: evaluation.CategoryError, Err: err.Error()}, err
}
