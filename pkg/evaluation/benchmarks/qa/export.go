package qa

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ahhsitt/qaeval-go/pkg/evaluation"
	"github.com/ahhsitt/qaeval-go/pkg/evaluation/sink"
	"github.com/ahhsitt/qaeval-go/pkg/evaluation/store"
)

// HistoryRecorder 运行历史记录
type HistoryRecorder interface {
	Record(ctx context.Context, run store.Run) error
}

// Exporter 评估报告导出器
type Exporter struct {
	sink     sink.Sink
	markdown bool
	history  HistoryRecorder
	logger   *slog.Logger
}

// ExportOption 导出选项
type ExportOption func(*Exporter)

// WithMarkdownReport 同时导出 Markdown 报告 score-<key>.md
func WithMarkdownReport(enabled bool) ExportOption {
	return func(e *Exporter) {
		e.markdown = enabled
	}
}

// WithHistory 导出后记录运行历史
func WithHistory(h HistoryRecorder) ExportOption {
	return func(e *Exporter) {
		e.history = h
	}
}

// WithExportLogger 设置日志记录器
func WithExportLogger(logger *slog.Logger) ExportOption {
	return func(e *Exporter) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExporter 创建导出器
func NewExporter(s sink.Sink, opts ...ExportOption) *Exporter {
	e := &Exporter{sink: s, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ReportName 返回运行键对应的报告文件名
func ReportName(runKey string) string {
	return "score-" + runKey + ".json"
}

// MarkdownName 返回运行键对应的 Markdown 报告文件名
func MarkdownName(runKey string) string {
	return "score-" + runKey + ".md"
}

// MarshalReport 将逐题报告序列化为缩进 JSON（以问题 ID 为键，保持参考顺序）
func MarshalReport(report *evaluation.Report) ([]byte, error) {
	data, err := json.MarshalIndent(report.Questions, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("序列化报告失败: %w", err)
	}
	return append(data, '\n'), nil
}

// Export 导出报告，同名报告会被覆盖
//
// 返回 JSON 报告的引用。
func (e *Exporter) Export(ctx context.Context, report *evaluation.Report) (string, error) {
	data, err := MarshalReport(report)
	if err != nil {
		return "", err
	}

	ref, err := e.sink.Put(ctx, ReportName(report.RunKey), data, "application/json")
	if err != nil {
		return "", fmt.Errorf("写入报告失败: %w", err)
	}
	e.logger.Info("report written", "run_key", report.RunKey, "reference", ref)

	if e.markdown {
		mdRef, err := e.sink.Put(ctx, MarkdownName(report.RunKey), []byte(RenderMarkdown(report)), "text/markdown; charset=utf-8")
		if err != nil {
			return ref, fmt.Errorf("写入 Markdown 报告失败: %w", err)
		}
		e.logger.Info("markdown report written", "run_key", report.RunKey, "reference", mdRef)
	}

	if e.history != nil {
		if err := e.history.Record(ctx, store.RunFromReport(report, ref)); err != nil {
			return ref, fmt.Errorf("记录运行历史失败: %w", err)
		}
	}
	return ref, nil
}

// RenderMarkdown 生成 Markdown 报告
func RenderMarkdown(report *evaluation.Report) string {
	var b strings.Builder
	s := report.Summary
	if s == nil {
		s = &evaluation.Summary{}
	}

	fmt.Fprintf(&b, "# 问答评估报告\n\n")
	fmt.Fprintf(&b, "## 概览\n\n")
	fmt.Fprintf(&b, "- **运行键**: %s\n", report.RunKey)
	fmt.Fprintf(&b, "- **运行 ID**: %s\n", report.RunID)
	fmt.Fprintf(&b, "- **评估时间**: %s\n", report.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "- **总耗时**: %s\n\n", report.Duration)

	fmt.Fprintf(&b, "## 总体指标\n\n")
	fmt.Fprintf(&b, "| 指标 | 值 |\n")
	fmt.Fprintf(&b, "|------|----|\n")
	fmt.Fprintf(&b, "| 问题总数 | %d |\n", s.EvalLen)
	fmt.Fprintf(&b, "| 已回答 | %d |\n", s.Answered)
	fmt.Fprintf(&b, "| 平均准确率 | %.2f%% |\n", s.MeanAccuracy*100)
	fmt.Fprintf(&b, "| 完全正确比例 | %.2f%% |\n", s.PercentPerfect*100)
	for _, order := range evaluation.OverlapOrders() {
		sc := s.Overlap.Get(order)
		fmt.Fprintf(&b, "| %s P/R/F | %.4f / %.4f / %.4f |\n", order, sc.Precision, sc.Recall, sc.FMeasure)
	}
	fmt.Fprintf(&b, "| 平均语义相似度 | %.4f |\n", s.MeanSemantic)
	fmt.Fprintf(&b, "| 评委失败 | %d |\n", s.JudgeErrors)
	fmt.Fprintf(&b, "| 格式不规范 | %d |\n", s.Malformed)
	fmt.Fprintf(&b, "\n")

	if len(s.FactualityCounts) > 0 {
		fmt.Fprintf(&b, "## 事实性分布\n\n")
		fmt.Fprintf(&b, "| 类别 | 含义 | 数量 |\n")
		fmt.Fprintf(&b, "|------|------|------|\n")
		for _, c := range evaluation.Categories() {
			fmt.Fprintf(&b, "| %s | %s | %d |\n", c, c.Description(), s.FactualityCounts[c])
		}
		for _, c := range []evaluation.Category{evaluation.CategoryMalformed, evaluation.CategoryError} {
			if n := s.FactualityCounts[c]; n > 0 {
				fmt.Fprintf(&b, "| %s | | %d |\n", c, n)
			}
		}
		fmt.Fprintf(&b, "\n")
	}

	var failed []evaluation.QuestionReport
	for _, qr := range report.Questions {
		if qr.Accuracy.Score == 0 {
			failed = append(failed, qr)
		}
	}
	if len(failed) > 0 {
		fmt.Fprintf(&b, "## 未命中问题（前 10 个）\n\n")
		for _, qr := range failed[:min(len(failed), 10)] {
			fmt.Fprintf(&b, "### 问题: %s\n\n", qr.ID)
			if !qr.Answered {
				fmt.Fprintf(&b, "**未提交答案**\n\n")
			} else {
				fmt.Fprintf(&b, "**缺失**: %s\n\n", strings.Join(qr.Accuracy.Missing, ", "))
				if qr.Factuality.Choice != "" {
					fmt.Fprintf(&b, "**事实性**: %s\n\n", qr.Factuality.Choice)
				}
			}
			if qr.Factuality.Err != "" {
				fmt.Fprintf(&b, "**错误**: %s\n\n", qr.Factuality.Err)
			}
			if qr.NormalizationError != "" {
				fmt.Fprintf(&b, "**规范化**: %s\n\n", qr.NormalizationError)
			}
			fmt.Fprintf(&b, "---\n\n")
		}
	}
	return b.String()
}
