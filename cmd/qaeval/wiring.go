package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ahhsitt/qaeval-go/pkg/config"
	"github.com/ahhsitt/qaeval-go/pkg/evaluation/scorers/factuality"
	"github.com/ahhsitt/qaeval-go/pkg/evaluation/scorers/semantic"
	"github.com/ahhsitt/qaeval-go/pkg/evaluation/sink"
	"github.com/ahhsitt/qaeval-go/pkg/llm"
	"github.com/ahhsitt/qaeval-go/pkg/telemetry"
)

// buildJudge 创建事实性评委
func buildJudge(cfg config.JudgeConfig, logger *slog.Logger, providers *telemetry.Providers) (*factuality.Judge, func(), error) {
	pc, err := cfg.ProviderConfig()
	if err != nil {
		return nil, nil, err
	}
	opts := pc.Options()
	if cfg.MaxTokens > 0 {
		opts = append(opts, llm.WithMaxTokens(cfg.MaxTokens))
	}
	provider, err := llm.NewChatProvider(pc.Type, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("创建评委客户端失败: %w", err)
	}

	judgeOpts := []factuality.Option{
		factuality.WithTimeout(cfg.Timeout),
		factuality.WithRateLimit(cfg.RateLimit, cfg.Burst),
		factuality.WithLogger(logger),
		factuality.WithTracerProvider(providers.TracerProvider),
		factuality.WithMeterProvider(providers.MeterProvider),
	}
	if cfg.Temperature != nil {
		judgeOpts = append(judgeOpts, factuality.WithTemperature(*cfg.Temperature))
	}
	if cfg.CountTokens {
		judgeOpts = append(judgeOpts, factuality.WithTokenCounter(llm.NewTokenCounter(provider.Model())))
	}

	judge, err := factuality.NewJudge(provider, judgeOpts...)
	if err != nil {
		provider.Close()
		return nil, nil, err
	}
	logger.Info("factuality judge ready", "provider", provider.Name(), "model", provider.Model())
	return judge, func() { provider.Close() }, nil
}

// buildSemanticScorer 创建语义相似度评分器及其向量缓存
func buildSemanticScorer(cfg config.SemanticConfig, logger *slog.Logger) (*semantic.Scorer, func(), error) {
	pc, err := cfg.ProviderConfig()
	if err != nil {
		return nil, nil, err
	}
	embedder, err := llm.NewEmbedderFromConfig(pc)
	if err != nil {
		return nil, nil, fmt.Errorf("创建向量化客户端失败: %w", err)
	}

	closeFn := func() {}
	var cache semantic.Cache
	switch cfg.CacheURL {
	case "", "memory":
		cache = semantic.NewMemoryCache()
	default:
		rc, err := semantic.NewRedisCache(cfg.CacheURL, cfg.CacheTTL)
		if err != nil {
			return nil, nil, fmt.Errorf("连接向量缓存失败: %w", err)
		}
		cache = rc
		closeFn = func() { rc.Close() }
	}

	model := semantic.NewEmbeddingModel(embedder,
		semantic.WithBatchSize(cfg.BatchSize),
		semantic.WithCache(cache),
		semantic.WithLogger(logger),
	)
	logger.Info("semantic scorer ready", "provider", embedder.Name(), "model", embedder.Model())
	return semantic.NewScorer(model), closeFn, nil
}

// buildSink 根据输出配置选择本地目录或 S3
func buildSink(ctx context.Context, cfg config.OutputConfig) (sink.Sink, error) {
	if cfg.S3Bucket != "" {
		return sink.NewS3Sink(ctx, sink.S3Config{
			Bucket:   cfg.S3Bucket,
			Prefix:   cfg.S3Prefix,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
		})
	}
	return sink.NewFileSink(cfg.Dir)
}
