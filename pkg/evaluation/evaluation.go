// Package evaluation 提供问答答案评估框架
//
// 本包定义参考问题、候选答案、各项指标结果以及语料级汇总的数据模型，
// 具体指标由子包实现：
// - textnorm: 文本规范化（编码修复、大小写、标点）
// - scorers/lexical: 词边界子串匹配准确率
// - scorers/rouge: n-gram 与最长公共子序列重叠
// - scorers/semantic: 基于学习模型的语义相似度
// - scorers/factuality: LLM 评委事实性分类（A-F）
// - benchmarks/qa: 逐题评估与汇总报告
package evaluation

import (
	"context"
)

// Normalizer 文本规范化函数
type Normalizer func(text string) string

// SimilarityModel 语义相似度模型
//
// 模型实例在进程启动时创建一次，评估期间只读。
type SimilarityModel interface {
	// Score 对每一对参考/候选文本打分
	//
	// 参数:
	//   - ctx: 上下文
	//   - references: 参考文本
	//   - candidates: 候选文本，与 references 等长
	//
	// 返回:
	//   - []float64: 每对一个分数
	//   - error: 模型调用错误
	Score(ctx context.Context, references, candidates []string) ([]float64, error)
}

// FactualityJudge 事实性评委
type FactualityJudge interface {
	// Judge 对单个问题进行一次独立的评判
	//
	// 参数:
	//   - ctx: 上下文，用于取消和超时控制
	//   - question: 问题文本
	//   - expert: 专家答案
	//   - submission: 提交答案
	//
	// 返回:
	//   - Verdict: 评判结果（格式不规范时仍返回原始输出）
	//   - error: 调用失败
	Judge(ctx context.Context, question, expert, submission string) (Verdict, error)
}

// ProgressCallback 进度回调函数类型
//
// 参数:
//   - done: 已完成数量
//   - total: 总数量
type ProgressCallback func(done, total int)
