package qa

import (
	"github.com/ahhsitt/qaeval-go/pkg/evaluation"
	"github.com/ahhsitt/qaeval-go/pkg/evaluation/scorers/lexical"
	"github.com/ahhsitt/qaeval-go/pkg/evaluation/scorers/rouge"
	"github.com/ahhsitt/qaeval-go/pkg/evaluation/scorers/semantic"
)

// MetricSeries 每项指标按参考顺序排列的逐题结果
//
// 每个序列的长度都必须等于 eval_len。
type MetricSeries struct {
	Accuracy   []evaluation.AccuracyResult
	Overlap    []evaluation.OverlapScores
	Semantic   []float64
	Factuality []evaluation.Verdict
}

// ComputeSummary 计算语料级汇总指标
//
// 在所有逐题分数都已得到之后调用一次。任一序列长度不等于 eval_len 时返回
// 包装 ErrDatasetLengthMismatch 的 *evaluation.MetricError。
func ComputeSummary(pairs []evaluation.QAPair, series MetricSeries) (*evaluation.Summary, error) {
	questions := make([]evaluation.Question, len(pairs))
	answered := 0
	for i, p := range pairs {
		questions[i] = p.Question
		if p.Answered() {
			answered++
		}
	}

	checks := []struct {
		metric string
		n      int
	}{
		{"accuracy", len(series.Accuracy)},
		{"overlap", len(series.Overlap)},
		{"semantic", len(series.Semantic)},
		{"factuality", len(series.Factuality)},
	}
	for _, c := range checks {
		if err := evaluation.CheckLength(c.metric, c.n, questions); err != nil {
			return nil, err
		}
	}

	evalLen := len(questions)
	acc := lexical.Summarize(series.Accuracy, evalLen)
	summary := &evaluation.Summary{
		EvalLen:          evalLen,
		Answered:         answered,
		MeanAccuracy:     acc.Mean,
		PercentPerfect:   acc.PercentPerfect,
		Overlap:          rouge.Summarize(series.Overlap, evalLen),
		MeanSemantic:     semantic.Summarize(series.Semantic, evalLen),
		FactualityCounts: make(map[evaluation.Category]int),
	}

	for _, v := range series.Factuality {
		if v.Choice == "" {
			continue
		}
		summary.FactualityCounts[v.Choice]++
		if v.Malformed {
			summary.Malformed++
		}
		if v.Choice == evaluation.CategoryError {
			summary.JudgeErrors++
		}
	}
	return summary, nil
}
