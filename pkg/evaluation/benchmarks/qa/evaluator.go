package qa

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahhsitt/qaeval-go/pkg/evaluation"
	"github.com/ahhsitt/qaeval-go/pkg/evaluation/scorers/factuality"
	"github.com/ahhsitt/qaeval-go/pkg/evaluation/scorers/lexical"
	"github.com/ahhsitt/qaeval-go/pkg/evaluation/scorers/rouge"
	"github.com/ahhsitt/qaeval-go/pkg/evaluation/scorers/semantic"
	"github.com/ahhsitt/qaeval-go/pkg/evaluation/textnorm"
)

const instrumentationName = "github.com/ahhsitt/qaeval-go/pkg/evaluation/benchmarks/qa"

// NormalizeFunc 规范化函数，返回错误时文本仍可使用
type NormalizeFunc func(text string) (string, error)

// Evaluator 问答评估器
//
// 各评分组件在构造时注入，评估期间只读，可在多次运行间复用。
type Evaluator struct {
	normalize NormalizeFunc
	overlap   *rouge.Scorer
	semantic  *semantic.Scorer
	judge     evaluation.FactualityJudge
	logger    *slog.Logger
	printer   *Printer
	tracer    trace.Tracer
}

// Option 评估器选项
type Option func(*Evaluator)

// WithNormalizer 替换规范化函数
func WithNormalizer(fn NormalizeFunc) Option {
	return func(e *Evaluator) {
		if fn != nil {
			e.normalize = fn
		}
	}
}

// WithOverlapScorer 设置 n-gram 重叠评分器
func WithOverlapScorer(s *rouge.Scorer) Option {
	return func(e *Evaluator) {
		if s != nil {
			e.overlap = s
		}
	}
}

// WithSemanticScorer 设置语义相似度评分器（nil 表示跳过，分数记为 0）
func WithSemanticScorer(s *semantic.Scorer) Option {
	return func(e *Evaluator) {
		e.semantic = s
	}
}

// WithJudge 设置事实性评委（nil 表示跳过）
func WithJudge(j evaluation.FactualityJudge) Option {
	return func(e *Evaluator) {
		e.judge = j
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithPrinter 设置控制台输出（nil 表示不输出）
func WithPrinter(p *Printer) Option {
	return func(e *Evaluator) {
		e.printer = p
	}
}

// WithTracerProvider 设置链路追踪提供者
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Evaluator) {
		if tp != nil {
			e.tracer = tp.Tracer(instrumentationName)
		}
	}
}

// NewEvaluator 创建问答评估器
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{
		normalize: textnorm.NormalizeStrict,
		overlap:   rouge.NewScorer(),
		logger:    slog.Default(),
		tracer:    otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate 执行完整评估
//
// 每个参考问题恰好产生一条 QuestionReport，顺序与参考数据集一致；
// 缺失答案的问题各项指标为零值。汇总指标在所有逐题分数得到后计算一次。
func (e *Evaluator) Evaluate(ctx context.Context, questions []evaluation.Question, results []evaluation.Result, opts ...evaluation.EvalOption) (*evaluation.Report, error) {
	config := evaluation.DefaultEvalConfig()
	config.ApplyOptions(opts...)

	if len(questions) == 0 {
		return nil, evaluation.ErrEmptyDataset
	}

	startTime := time.Now()
	report := &evaluation.Report{
		RunID:     uuid.NewString(),
		RunKey:    config.RunKey,
		CreatedAt: startTime,
	}
	logger := e.logger.With("run_key", report.RunKey, "run_id", report.RunID)

	ctx, span := e.tracer.Start(ctx, "qa.evaluate", trace.WithAttributes(
		attribute.String("qaeval.run_key", report.RunKey),
		attribute.Int("qaeval.eval_len", len(questions)),
	))
	defer span.End()

	byID, duplicates := evaluation.IndexResults(results)
	for _, id := range duplicates {
		logger.Warn("duplicate result id, last one wins", "question_id", id)
	}
	pairs := make([]evaluation.QAPair, 0, len(questions))
	for pair := range evaluation.Match(questions, byID) {
		pairs = append(pairs, pair)
	}
	evalLen := len(pairs)

	references, candidates, normErrors := e.normalizeAll(pairs, logger)

	series := MetricSeries{
		Accuracy:   make([]evaluation.AccuracyResult, evalLen),
		Overlap:    make([]evaluation.OverlapScores, evalLen),
		Semantic:   make([]float64, evalLen),
		Factuality: make([]evaluation.Verdict, evalLen),
	}
	for i, pair := range pairs {
		if !pair.Answered() {
			series.Accuracy[i] = evaluation.ZeroAccuracy()
			continue
		}
		series.Accuracy[i] = lexical.AnswerInNormalized(references[i], candidates[i])
		series.Overlap[i] = e.overlap.Score(references[i], candidates[i])
	}

	if e.semantic != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		scores, err := e.semantic.ScoreNormalized(ctx, pairs, references, candidates)
		if err != nil {
			return nil, e.abort(span, fmt.Errorf("语义相似度评分失败: %w", err))
		}
		series.Semantic = scores
	}

	report.Questions = make(evaluation.CorpusReport, evalLen)
	progress := newOrderedProgress(evalLen, func(i int, verdict evaluation.Verdict) {
		pair := pairs[i]
		qr := evaluation.QuestionReport{
			ID:                 pair.Question.ID,
			Answered:           pair.Answered(),
			Accuracy:           series.Accuracy[i],
			Overlap:            series.Overlap[i],
			Semantic:           series.Semantic[i],
			Factuality:         verdict,
			NormalizationError: normErrors[i],
		}
		report.Questions[i] = qr

		if config.Verbose && e.printer != nil && qr.Answered {
			e.printer.Question(qr)
		}
		if config.ProgressCallback != nil {
			config.ProgressCallback(i+1, evalLen)
		}
	})

	if e.judge != nil && !config.SkipJudge {
		// 缺失答案的问题不调用评委，先标记完成，使进度按参考顺序推进
		for i, pair := range pairs {
			if !pair.Answered() {
				progress.complete(i, evaluation.Verdict{})
			}
		}
		verdicts, err := factuality.JudgeCorpus(ctx, e.judge, pairs, factuality.CorpusConfig{
			Concurrency: config.JudgeConcurrency,
			FailFast:    config.FailFast,
			Timeout:     config.JudgeTimeout,
			Logger:      logger,
			OnDone:      progress.complete,
		})
		if err != nil {
			return nil, e.abort(span, fmt.Errorf("事实性评判失败: %w", err))
		}
		series.Factuality = verdicts
	}
	for i := range pairs {
		progress.complete(i, series.Factuality[i])
	}

	summary, err := ComputeSummary(pairs, series)
	if err != nil {
		return nil, e.abort(span, err)
	}
	for _, msg := range normErrors {
		if msg != "" {
			summary.NormalizationErrors++
		}
	}
	report.Summary = summary
	report.Duration = time.Since(startTime)

	if e.printer != nil {
		e.printer.Summary(summary)
	}
	span.SetAttributes(
		attribute.Int("qaeval.answered", summary.Answered),
		attribute.Float64("qaeval.mean_accuracy", summary.MeanAccuracy),
	)
	logger.Info("evaluation finished",
		"eval_len", summary.EvalLen,
		"answered", summary.Answered,
		"mean_accuracy", summary.MeanAccuracy,
		"judge_errors", summary.JudgeErrors,
		"duration", report.Duration)
	return report, nil
}

// normalizeAll 对每段文本只规范化一次
func (e *Evaluator) normalizeAll(pairs []evaluation.QAPair, logger *slog.Logger) (references, candidates, errs []string) {
	references = make([]string, len(pairs))
	candidates = make([]string, len(pairs))
	errs = make([]string, len(pairs))

	for i, pair := range pairs {
		var problems []string
		ref, err := e.normalize(pair.Question.Answer)
		if err != nil {
			problems = append(problems, "reference: "+err.Error())
		}
		references[i] = ref

		if pair.Answered() {
			cand, err := e.normalize(pair.Result.Answer)
			if err != nil {
				problems = append(problems, "candidate: "+err.Error())
			}
			candidates[i] = cand
		}

		if len(problems) > 0 {
			errs[i] = strings.Join(problems, "; ")
			logger.Warn("text normalization incomplete", "question_id", pair.Question.ID, "error", errs[i])
		}
	}
	return references, candidates, errs
}

func (e *Evaluator) abort(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// orderedProgress 按参考顺序输出已完成的问题
//
// 评委并发时完成顺序不确定，complete 可能被并发调用；emit 总是按下标递增、
// 在锁内串行调用，每个下标只调用一次。
type orderedProgress struct {
	mu       sync.Mutex
	done     []bool
	verdicts []evaluation.Verdict
	next     int
	emit     func(i int, verdict evaluation.Verdict)
}

func newOrderedProgress(n int, emit func(i int, verdict evaluation.Verdict)) *orderedProgress {
	return &orderedProgress{
		done:     make([]bool, n),
		verdicts: make([]evaluation.Verdict, n),
		emit:     emit,
	}
}

func (p *orderedProgress) complete(i int, verdict evaluation.Verdict) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.done[i] {
		return
	}
	p.done[i] = true
	p.verdicts[i] = verdict
	for p.next < len(p.done) && p.done[p.next] {
		p.emit(p.next, p.verdicts[p.next])
		p.next++
	}
}
