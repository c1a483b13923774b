// Package lexical 实现词边界子串匹配准确率
package lexical

import (
	"strings"
	"unicode/utf8"

	"github.com/ahhsitt/qaeval-go/pkg/evaluation"
	"github.com/ahhsitt/qaeval-go/pkg/evaluation/textnorm"
)

// AnswerInText 判断规范化后的参考答案是否以完整词的形式出现在候选答案中
//
// 两侧都先经过 textnorm.Normalize。匹配位置两侧必须是字符串边界或非单词字符，
// 因此 "cat" 匹配 "the cat sat" 而不匹配 "concatenate"。
// 参考答案规范化为空串时永远不算命中。
func AnswerInText(reference, candidate string) evaluation.AccuracyResult {
	return AnswerInNormalized(textnorm.Normalize(reference), textnorm.Normalize(candidate))
}

// AnswerInNormalized 与 AnswerInText 相同，但要求调用方已完成规范化
func AnswerInNormalized(normReference, normCandidate string) evaluation.AccuracyResult {
	if containsWord(normCandidate, normReference) {
		return evaluation.AccuracyResult{Found: true, Score: 1, Missing: []string{}}
	}
	return evaluation.AccuracyResult{Found: false, Score: 0, Missing: []string{normReference}}
}

// containsWord 在 text 中查找两侧为词边界的 needle
func containsWord(text, needle string) bool {
	if needle == "" {
		return false
	}
	for offset := 0; offset <= len(text)-len(needle); {
		i := strings.Index(text[offset:], needle)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(needle)
		if boundaryBefore(text, start) && boundaryAfter(text, end) {
			return true
		}
		// 从下一个 rune 继续查找（允许重叠）
		_, size := utf8.DecodeRuneInString(text[start:])
		offset = start + size
	}
	return false
}

// boundaryBefore 判断 pos 之前是否为词边界
func boundaryBefore(text string, pos int) bool {
	if pos == 0 {
		return true
	}
	prev, _ := utf8.DecodeLastRuneInString(text[:pos])
	first, _ := utf8.DecodeRuneInString(text[pos:])
	return textnorm.IsWordRune(prev) != textnorm.IsWordRune(first)
}

// boundaryAfter 判断 pos 之后是否为词边界
func boundaryAfter(text string, pos int) bool {
	if pos == len(text) {
		return true
	}
	last, _ := utf8.DecodeLastRuneInString(text[:pos])
	next, _ := utf8.DecodeRuneInString(text[pos:])
	return textnorm.IsWordRune(last) != textnorm.IsWordRune(next)
}

// Summary 语料级准确率汇总
type Summary struct {
	// Mean 平均分（除以 eval_len）
	Mean float64

	// PercentPerfect 得分恰为 1 的比例
	PercentPerfect float64
}

// Summarize 计算语料级准确率
//
// 参数:
//   - results: 每个参考问题一条（缺失答案记为 ZeroAccuracy）
//   - evalLen: 参考问题总数
func Summarize(results []evaluation.AccuracyResult, evalLen int) Summary {
	if evalLen == 0 {
		return Summary{}
	}
	total, perfect := 0, 0
	for _, r := range results {
		total += r.Score
		if r.Score == 1 {
			perfect++
		}
	}
	return Summary{
		Mean:           float64(total) / float64(evalLen),
		PercentPerfect: float64(perfect) / float64(evalLen),
	}
}
