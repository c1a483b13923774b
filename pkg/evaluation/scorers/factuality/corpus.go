package factuality

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ahhsitt/qaeval-go/pkg/evaluation"
)

// CorpusConfig 语料级评判配置
type CorpusConfig struct {
	// Concurrency 并发数（<= 1 表示逐题顺序调用）
	Concurrency int

	// FailFast 任一调用失败时中止并返回错误
	FailFast bool

	// Timeout 单个问题的评判超时（0 表示不限制）
	Timeout time.Duration

	// Logger 日志记录器（nil 使用 slog.Default）
	Logger *slog.Logger

	// OnDone 每个问题评判完成后调用（可能并发调用）
	OnDone func(index int, verdict evaluation.Verdict)
}

// JudgeCorpus 对所有有答案的问题调用评委
//
// 结果按 pairs 的下标存放，顺序与参考数据集一致；缺失答案的问题得到空 Verdict，
// 不调用评委。默认情况下失败的问题记为 ERROR 并继续；FailFast 时返回
// *evaluation.MetricError，其中包含出错问题的 ID。
func JudgeCorpus(ctx context.Context, judge evaluation.FactualityJudge, pairs []evaluation.QAPair, cfg CorpusConfig) ([]evaluation.Verdict, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	verdicts := make([]evaluation.Verdict, len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Concurrency, 1))

	for i, pair := range pairs {
		if !pair.Answered() {
			continue
		}
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			v, err := judgeOne(gctx, judge, pair, cfg.Timeout)
			if err != nil {
				if v.Choice == "" {
					v = evaluation.Verdict{Choice: evaluation.CategoryError, Err: err.Error()}
				}
				verdicts[i] = v
				if cfg.FailFast {
					return &evaluation.MetricError{Metric: "factuality", QuestionID: pair.Question.ID, Err: err}
				}
				logger.Error("factuality judge failed", "question_id", pair.Question.ID, "error", err)
			} else {
				verdicts[i] = v
			}
			if cfg.OnDone != nil {
				cfg.OnDone(i, verdicts[i])
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return verdicts, err
	}
	if err := ctx.Err(); err != nil {
		return verdicts, err
	}
	return verdicts, nil
}

func judgeOne(ctx context.Context, judge evaluation.FactualityJudge, pair evaluation.QAPair, timeout time.Duration) (evaluation.Verdict, error) {
	if timeout <= 0 {
		return judge.Judge(ctx, pair.Question.Question, pair.Question.Answer, pair.Result.Answer)
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	v, err := judge.Judge(callCtx, pair.Question.Question, pair.Question.Answer, pair.Result.Answer)
	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, evaluation.ErrJudgeTimeout) {
		err = fmt.Errorf("%w after %s: %w", evaluation.ErrJudgeTimeout, timeout, err)
		v = evaluation.Verdict{Choice: evaluation.CategoryError, Err: err.Error()}
	}
	return v, err
}
