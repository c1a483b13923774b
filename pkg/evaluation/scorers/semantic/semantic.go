// Package semantic 实现基于学习模型的语义相似度评分
package semantic

import (
	"context"
	"fmt"
	"math"

	"github.com/ahhsitt/qaeval-go/pkg/evaluation"
)

// Scorer 语义相似度评分器
//
// 整个语料只调用一次模型；模型实例由调用方创建并注入。
type Scorer struct {
	model evaluation.SimilarityModel
}

// NewScorer 创建语义相似度评分器
func NewScorer(model evaluation.SimilarityModel) *Scorer {
	return &Scorer{model: model}
}

// ScoreCorpus 对语料逐对评分
//
// 缺失答案以空串作为候选文本参与批次，保证批次与参考问题等长。
//
// 参数:
//   - ctx: 上下文
//   - pairs: 参考顺序的问答对
//   - norm: 规范化函数（nil 表示不做规范化）
//
// 返回:
//   - []float64: 与 pairs 等长的分数
//   - error: 模型调用失败、条目数不符或分数非有限值
func (s *Scorer) ScoreCorpus(ctx context.Context, pairs []evaluation.QAPair, norm evaluation.Normalizer) ([]float64, error) {
	if norm == nil {
		norm = func(text string) string { return text }
	}
	references := make([]string, len(pairs))
	candidates := make([]string, len(pairs))
	for i, pair := range pairs {
		references[i] = norm(pair.Question.Answer)
		if pair.Answered() {
			candidates[i] = norm(pair.Result.Answer)
		}
	}
	return s.ScoreNormalized(ctx, pairs, references, candidates)
}

// ScoreNormalized 与 ScoreCorpus 相同，但使用调用方已规范化的文本
func (s *Scorer) ScoreNormalized(ctx context.Context, pairs []evaluation.QAPair, references, candidates []string) ([]float64, error) {
	if len(pairs) == 0 {
		return []float64{}, nil
	}

	scores, err := s.model.Score(ctx, references, candidates)
	if err != nil {
		return nil, &evaluation.MetricError{Metric: "semantic", Err: err}
	}

	questions := make([]evaluation.Question, len(pairs))
	for i, p := range pairs {
		questions[i] = p.Question
	}
	if err := evaluation.CheckLength("semantic", len(scores), questions); err != nil {
		return nil, err
	}

	for i, sc := range scores {
		if math.IsNaN(sc) || math.IsInf(sc, 0) {
			return nil, &evaluation.MetricError{
				Metric:     "semantic",
				QuestionID: pairs[i].Question.ID,
				Err:        fmt.Errorf("%w: non-finite score %v", evaluation.ErrExternalService, sc),
			}
		}
	}
	return scores, nil
}

// Summarize 计算平均语义相似度（除以 eval_len）
func Summarize(scores []float64, evalLen int) float64 {
	if evalLen == 0 {
		return 0
	}
	var total float64
	for _, sc := range scores {
		total += sc
	}
	return total / float64(evalLen)
}
