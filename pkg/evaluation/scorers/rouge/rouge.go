// Package rouge 实现 ROUGE-1/ROUGE-2/ROUGE-L 重叠评分
package rouge

import (
	"github.com/ahhsitt/qaeval-go/pkg/evaluation"
)

// Scorer ROUGE 评分器
//
// 创建后只读，可在多个 goroutine 间共享。
type Scorer struct {
	// stem 是否做词干化
	stem bool
}

// Option 评分器选项
type Option func(*Scorer)

// WithStemmer 设置是否做词干化（默认开启）
func WithStemmer(stem bool) Option {
	return func(s *Scorer) {
		s.stem = stem
	}
}

// NewScorer 创建 ROUGE 评分器
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{stem: true}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score 计算预测文本相对目标文本的各阶重叠分数
//
// 参数:
//   - target: 参考文本
//   - prediction: 预测文本
func (s *Scorer) Score(target, prediction string) evaluation.OverlapScores {
	targetTokens := tokenize(target, s.stem)
	predTokens := tokenize(prediction, s.stem)

	return evaluation.OverlapScores{
		Rouge1: ngramScore(targetTokens, predTokens, 1),
		Rouge2: ngramScore(targetTokens, predTokens, 2),
		RougeL: lcsScore(targetTokens, predTokens),
	}
}

// ScoreCorpus 对语料逐对评分
//
// 返回切片与 pairs 等长；缺失答案的条目全部为 0。
//
// 参数:
//   - pairs: 参考顺序的问答对
//   - norm: 规范化函数（nil 表示不做规范化）
func (s *Scorer) ScoreCorpus(pairs []evaluation.QAPair, norm evaluation.Normalizer) []evaluation.OverlapScores {
	if norm == nil {
		norm = func(text string) string { return text }
	}
	scores := make([]evaluation.OverlapScores, len(pairs))
	for i, pair := range pairs {
		if !pair.Answered() {
			continue
		}
		scores[i] = s.Score(norm(pair.Question.Answer), norm(pair.Result.Answer))
	}
	return scores
}

// Summarize 计算每一阶的平均 P/R/F（除以 eval_len）
func Summarize(scores []evaluation.OverlapScores, evalLen int) evaluation.OverlapScores {
	var sum evaluation.OverlapScores
	if evalLen == 0 {
		return sum
	}
	for _, sc := range scores {
		addScore(&sum.Rouge1, sc.Rouge1)
		addScore(&sum.Rouge2, sc.Rouge2)
		addScore(&sum.RougeL, sc.RougeL)
	}
	n := float64(evalLen)
	for _, p := range []*evaluation.OverlapScore{&sum.Rouge1, &sum.Rouge2, &sum.RougeL} {
		p.Precision /= n
		p.Recall /= n
		p.FMeasure /= n
	}
	return sum
}

func addScore(dst *evaluation.OverlapScore, src evaluation.OverlapScore) {
	dst.Precision += src.Precision
	dst.Recall += src.Recall
	dst.FMeasure += src.FMeasure
}

// ngramScore 计算 n 阶重叠（截断计数）
func ngramScore(target, prediction []string, n int) evaluation.OverlapScore {
	targetNgrams := ngrams(target, n)
	predNgrams := ngrams(prediction, n)

	overlap := 0
	for gram, tc := range targetNgrams {
		overlap += min(tc, predNgrams[gram])
	}

	return fromCounts(overlap, max(len(prediction)-n+1, 0), max(len(target)-n+1, 0))
}

// lcsScore 计算基于最长公共子序列的 ROUGE-L
func lcsScore(target, prediction []string) evaluation.OverlapScore {
	return fromCounts(lcsLength(target, prediction), len(prediction), len(target))
}

// fromCounts 由重叠数计算 P/R/F，任一侧为空时为 0
func fromCounts(overlap, predTotal, targetTotal int) evaluation.OverlapScore {
	if overlap == 0 || predTotal == 0 || targetTotal == 0 {
		return evaluation.OverlapScore{}
	}
	precision := float64(overlap) / float64(predTotal)
	recall := float64(overlap) / float64(targetTotal)
	return evaluation.OverlapScore{
		Precision: precision,
		Recall:    recall,
		FMeasure:  2 * precision * recall / (precision + recall),
	}
}
