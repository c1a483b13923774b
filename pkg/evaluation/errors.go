package evaluation

import (
	"errors"
	"fmt"
)

// 评估相关错误
var (
	// ErrDatasetLengthMismatch 某项指标的条目数不等于 eval_len（致命）
	ErrDatasetLengthMismatch = errors.New("dataset length mismatch")

	// ErrExternalService 外部服务（评委/语义模型）调用失败
	ErrExternalService = errors.New("external service failure")

	// ErrJudgeTimeout 评委调用超时
	ErrJudgeTimeout = errors.New("judge call timed out")

	// ErrMalformedVerdict 评委输出不以单独的类别字母行结尾
	ErrMalformedVerdict = errors.New("malformed judge response")

	// ErrEmptyDataset 参考数据集为空
	ErrEmptyDataset = errors.New("reference dataset is empty")
)

// MetricError 标识出错的指标和问题
type MetricError struct {
	// Metric 指标名称
	Metric string

	// QuestionID 问题 ID（可能为空）
	QuestionID string

	// Err 底层错误
	Err error
}

func (e *MetricError) Error() string {
	if e.QuestionID == "" {
		return fmt.Sprintf("metric %s: %v", e.Metric, e.Err)
	}
	return fmt.Sprintf("metric %s, question %s: %v", e.Metric, e.QuestionID, e.Err)
}

func (e *MetricError) Unwrap() error {
	return e.Err
}

// CheckLength 校验某项指标的条目数等于 eval_len
//
// 参数:
//   - metric: 指标名称
//   - got: 实际条目数
//   - questions: 参考问题（用于定位第一个缺失条目的问题 ID）
func CheckLength(metric string, got int, questions []Question) error {
	if got == len(questions) {
		return nil
	}
	var id string
	if got < len(questions) {
		id = questions[got].ID
	}
	return &MetricError{
		Metric:     metric,
		QuestionID: id,
		Err:        fmt.Errorf("%w: got %d entries, eval_len is %d", ErrDatasetLengthMismatch, got, len(questions)),
	}
}
