package evaluation

import (
	"time"
)

// Question 专家参考样本
//
// 加载后不可变，ID 在参考数据集中唯一。
type Question struct {
	// ID 样本唯一标识
	ID string `json:"id" yaml:"id"`

	// Question 问题文本
	Question string `json:"question" yaml:"question"`

	// Answer 专家答案（ground truth）
	Answer string `json:"answer" yaml:"answer"`
}

// Result 模型生成的候选答案
//
// 其他字段会被忽略。同一 ID 出现多次时以最后一条为准。
type Result struct {
	// ID 对应 Question 的 ID
	ID string `json:"id" yaml:"id"`

	// Answer 候选答案
	Answer string `json:"answer" yaml:"answer"`
}

// QAPair 问题与候选答案的配对
//
// Result 为 nil 表示该问题没有提交答案，所有指标取零值。
type QAPair struct {
	Question Question
	Result   *Result
}

// Answered 是否存在候选答案
func (p QAPair) Answered() bool {
	return p.Result != nil
}

// AccuracyResult 词汇准确率结果
type AccuracyResult struct {
	// Found 规范化后的参考答案是否出现在候选答案中
	Found bool `json:"found"`

	// Score 0 或 1，没有部分得分
	Score int `json:"score"`

	// Missing 未找到时记录规范化后的参考答案（用于诊断）
	Missing []string `json:"missing"`
}

// ZeroAccuracy 缺失答案时的准确率哨兵值
func ZeroAccuracy() AccuracyResult {
	return AccuracyResult{Missing: []string{}}
}

// OverlapScore 单个 n-gram 阶的重叠分数
type OverlapScore struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	FMeasure  float64 `json:"fmeasure"`
}

// OverlapOrder n-gram 阶
type OverlapOrder string

const (
	// OrderRouge1 unigram 重叠
	OrderRouge1 OverlapOrder = "rouge1"
	// OrderRouge2 bigram 重叠
	OrderRouge2 OverlapOrder = "rouge2"
	// OrderRougeL 最长公共子序列重叠
	OrderRougeL OverlapOrder = "rougeL"
)

// OverlapOrders 返回固定顺序的全部 n-gram 阶
func OverlapOrders() []OverlapOrder {
	return []OverlapOrder{OrderRouge1, OrderRouge2, OrderRougeL}
}

// OverlapScores 每个 n-gram 阶一个分数
type OverlapScores struct {
	Rouge1 OverlapScore `json:"rouge1"`
	Rouge2 OverlapScore `json:"rouge2"`
	RougeL OverlapScore `json:"rougeL"`
}

// Get 按阶取分数
func (s OverlapScores) Get(order OverlapOrder) OverlapScore {
	switch order {
	case OrderRouge1:
		return s.Rouge1
	case OrderRouge2:
		return s.Rouge2
	case OrderRougeL:
		return s.RougeL
	default:
		return OverlapScore{}
	}
}

// Category 事实性类别
type Category string

const (
	// CategorySubset 提交答案是专家答案的子集
	CategorySubset Category = "A"
	// CategorySuperset 提交答案是专家答案的超集
	CategorySuperset Category = "B"
	// CategorySame 二者事实内容相同
	CategorySame Category = "C"
	// CategoryDisagree 二者存在分歧
	CategoryDisagree Category = "D"
	// CategoryImmaterial 差异不影响事实正确性
	CategoryImmaterial Category = "E"
	// CategoryInvalid 提交答案未回答问题或无效
	CategoryInvalid Category = "F"

	// CategoryMalformed 评委输出无法解析
	CategoryMalformed Category = "MALFORMED"
	// CategoryError 评委调用失败
	CategoryError Category = "ERROR"
)

// Categories 返回六个合法类别
func Categories() []Category {
	return []Category{
		CategorySubset,
		CategorySuperset,
		CategorySame,
		CategoryDisagree,
		CategoryImmaterial,
		CategoryInvalid,
	}
}

// Valid 是否为 A-F 之一
func (c Category) Valid() bool {
	switch c {
	case CategorySubset, CategorySuperset, CategorySame, CategoryDisagree, CategoryImmaterial, CategoryInvalid:
		return true
	}
	return false
}

// Description 返回类别含义
func (c Category) Description() string {
	switch c {
	case CategorySubset:
		return "The submitted answer is a subset of the expert answer and is fully consistent with it."
	case CategorySuperset:
		return "The submitted answer is a superset of the expert answer and is fully consistent with it."
	case CategorySame:
		return "The submitted answer contains all the same details as the expert answer."
	case CategoryDisagree:
		return "There is a disagreement between the submitted answer and the expert answer."
	case CategoryImmaterial:
		return "The answers differ, but these differences don't matter from the perspective of factuality."
	case CategoryInvalid:
		return "The submitted answer does not answer the question or is otherwise invalid."
	default:
		return ""
	}
}

// Verdict 事实性评判结果
type Verdict struct {
	// Raw 去除首尾空白后的评委原始输出
	Raw string `json:"raw"`

	// Choice 解析出的类别；缺失答案时为空
	Choice Category `json:"choice"`

	// Malformed 输出不以单独的类别字母行结尾
	Malformed bool `json:"malformed,omitempty"`

	// PromptTokens 提示词 token 数（未统计时为 0）
	PromptTokens int `json:"prompt_tokens,omitempty"`

	// Err 调用失败时的错误信息
	Err string `json:"error,omitempty"`
}

// QuestionReport 单个问题的全部指标
type QuestionReport struct {
	// ID 问题 ID
	ID string

	// Answered 是否存在候选答案
	Answered bool

	// Accuracy 词汇准确率
	Accuracy AccuracyResult

	// Overlap n-gram 重叠分数
	Overlap OverlapScores

	// Semantic 语义相似度
	Semantic float64

	// Factuality 事实性评判
	Factuality Verdict

	// NormalizationError 文本编码修复失败时的说明
	NormalizationError string
}

// CorpusReport 以参考数据集顺序排列的问题报告
type CorpusReport []QuestionReport

// Summary 语料级汇总指标
//
// 所有均值均以 EvalLen 为分母，缺失答案计为 0。
type Summary struct {
	// EvalLen 参考问题总数
	EvalLen int `json:"eval_len"`

	// Answered 有候选答案的问题数
	Answered int `json:"answered"`

	// MeanAccuracy 平均准确率
	MeanAccuracy float64 `json:"mean_accuracy"`

	// PercentPerfect 得分恰为 1 的问题比例
	PercentPerfect float64 `json:"percent_perfect"`

	// Overlap 各阶平均重叠分数
	Overlap OverlapScores `json:"overlap"`

	// MeanSemantic 平均语义相似度
	MeanSemantic float64 `json:"mean_semantic"`

	// FactualityCounts 各类别计数
	FactualityCounts map[Category]int `json:"factuality_counts"`

	// Malformed 格式不规范的评委输出数
	Malformed int `json:"malformed"`

	// JudgeErrors 评委调用失败数
	JudgeErrors int `json:"judge_errors"`

	// NormalizationErrors 编码修复失败的问题数
	NormalizationErrors int `json:"normalization_errors"`
}

// Report 一次评估运行的完整结果
type Report struct {
	// RunID 运行唯一标识
	RunID string `json:"run_id"`

	// RunKey 调用方提供的运行键，决定输出文件名
	RunKey string `json:"run_key"`

	// CreatedAt 评估开始时间
	CreatedAt time.Time `json:"created_at"`

	// Duration 总耗时
	Duration time.Duration `json:"duration"`

	// Questions 问题报告
	Questions CorpusReport `json:"questions"`

	// Summary 汇总指标
	Summary *Summary `json:"summary"`
}
