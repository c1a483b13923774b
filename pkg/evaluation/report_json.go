package evaluation

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// flatQuestionReport 问题报告的扁平 JSON 形式（指标名 -> 值）
type flatQuestionReport struct {
	Answered           bool     `json:"answered"`
	Accuracy           int      `json:"accuracy"`
	Missing            []string `json:"missing"`
	Rouge1Precision    float64  `json:"rouge1_precision"`
	Rouge1Recall       float64  `json:"rouge1_recall"`
	Rouge1FMeasure     float64  `json:"rouge1_fmeasure"`
	Rouge2Precision    float64  `json:"rouge2_precision"`
	Rouge2Recall       float64  `json:"rouge2_recall"`
	Rouge2FMeasure     float64  `json:"rouge2_fmeasure"`
	RougeLPrecision    float64  `json:"rougeL_precision"`
	RougeLRecall       float64  `json:"rougeL_recall"`
	RougeLFMeasure     float64  `json:"rougeL_fmeasure"`
	Semantic           float64  `json:"semantic"`
	Factuality         string   `json:"factuality"`
	FactualityChoice   Category `json:"factuality_choice"`
	FactualityError    string   `json:"factuality_error,omitempty"`
	NormalizationError string   `json:"normalization_error,omitempty"`
}

// MarshalJSON 输出扁平的指标映射
func (r QuestionReport) MarshalJSON() ([]byte, error) {
	missing := r.Accuracy.Missing
	if missing == nil {
		missing = []string{}
	}
	return json.Marshal(flatQuestionReport{
		Answered:           r.Answered,
		Accuracy:           r.Accuracy.Score,
		Missing:            missing,
		Rouge1Precision:    r.Overlap.Rouge1.Precision,
		Rouge1Recall:       r.Overlap.Rouge1.Recall,
		Rouge1FMeasure:     r.Overlap.Rouge1.FMeasure,
		Rouge2Precision:    r.Overlap.Rouge2.Precision,
		Rouge2Recall:       r.Overlap.Rouge2.Recall,
		Rouge2FMeasure:     r.Overlap.Rouge2.FMeasure,
		RougeLPrecision:    r.Overlap.RougeL.Precision,
		RougeLRecall:       r.Overlap.RougeL.Recall,
		RougeLFMeasure:     r.Overlap.RougeL.FMeasure,
		Semantic:           r.Semantic,
		Factuality:         r.Factuality.Raw,
		FactualityChoice:   r.Factuality.Choice,
		FactualityError:    r.Factuality.Err,
		NormalizationError: r.NormalizationError,
	})
}

// UnmarshalJSON 从扁平形式还原（ID 由外层键提供）
func (r *QuestionReport) UnmarshalJSON(data []byte) error {
	var flat flatQuestionReport
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	*r = QuestionReport{
		ID:       r.ID,
		Answered: flat.Answered,
		Accuracy: AccuracyResult{
			Found:   flat.Accuracy == 1,
			Score:   flat.Accuracy,
			Missing: flat.Missing,
		},
		Overlap: OverlapScores{
			Rouge1: OverlapScore{Precision: flat.Rouge1Precision, Recall: flat.Rouge1Recall, FMeasure: flat.Rouge1FMeasure},
			Rouge2: OverlapScore{Precision: flat.Rouge2Precision, Recall: flat.Rouge2Recall, FMeasure: flat.Rouge2FMeasure},
			RougeL: OverlapScore{Precision: flat.RougeLPrecision, Recall: flat.RougeLRecall, FMeasure: flat.RougeLFMeasure},
		},
		Semantic: flat.Semantic,
		Factuality: Verdict{
			Raw:    flat.Factuality,
			Choice: flat.FactualityChoice,
			Err:    flat.FactualityError,
		},
		NormalizationError: flat.NormalizationError,
	}
	return nil
}

// MarshalJSON 输出以问题 ID 为键的对象，键顺序与参考数据集一致
func (c CorpusReport) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, qr := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(qr.ID)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := json.Marshal(qr)
		if err != nil {
			return nil, fmt.Errorf("序列化问题 %s 失败: %w", qr.ID, err)
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON 按出现顺序读取以问题 ID 为键的对象
func (c *CorpusReport) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("期望 JSON 对象，得到 %v", tok)
	}

	out := make(CorpusReport, 0)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		id, ok := tok.(string)
		if !ok {
			return fmt.Errorf("期望字符串键，得到 %v", tok)
		}
		qr := QuestionReport{ID: id}
		if err := dec.Decode(&qr); err != nil {
			return fmt.Errorf("解析问题 %s 失败: %w", id, err)
		}
		out = append(out, qr)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*c = out
	return nil
}
