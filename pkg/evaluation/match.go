package evaluation

import (
	"iter"
)

// IndexResults 按 ID 建立候选答案索引
//
// 同一 ID 出现多次时后者覆盖前者，返回被覆盖的 ID 列表（按出现顺序）。
func IndexResults(results []Result) (map[string]Result, []string) {
	byID := make(map[string]Result, len(results))
	var duplicates []string
	for _, r := range results {
		if _, ok := byID[r.ID]; ok {
			duplicates = append(duplicates, r.ID)
		}
		byID[r.ID] = r
	}
	return byID, duplicates
}

// Match 按参考数据集顺序惰性生成问题与答案的配对
//
// 每个问题恰好出现一次；没有答案的问题 Result 为 nil。
func Match(questions []Question, byID map[string]Result) iter.Seq[QAPair] {
	return func(yield func(QAPair) bool) {
		for _, q := range questions {
			pair := QAPair{Question: q}
			if r, ok := byID[q.ID]; ok {
				pair.Result = &r
			}
			if !yield(pair) {
				return
			}
		}
	}
}

// CollectPairs 将 Match 的结果收集为切片
func CollectPairs(questions []Question, results []Result) []QAPair {
	byID, _ := IndexResults(results)
	pairs := make([]QAPair, 0, len(questions))
	for pair := range Match(questions, byID) {
		pairs = append(pairs, pair)
	}
	return pairs
}
