package evaluation

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategory_Valid(t *testing.T) {
	for _, c := range Categories() {
		assert.True(t, c.Valid(), c)
		assert.NotEmpty(t, c.Description(), c)
	}
	assert.Len(t, Categories(), 6)
	assert.False(t, CategoryMalformed.Valid())
	assert.False(t, CategoryError.Valid())
	assert.False(t, Category("G").Valid())
}

func TestOverlapScores_Get(t *testing.T) {
	s := OverlapScores{
		Rouge1: OverlapScore{FMeasure: 0.1},
		Rouge2: OverlapScore{FMeasure: 0.2},
		RougeL: OverlapScore{FMeasure: 0.3},
	}
	assert.Equal(t, 0.1, s.Get(OrderRouge1).FMeasure)
	assert.Equal(t, 0.2, s.Get(OrderRouge2).FMeasure)
	assert.Equal(t, 0.3, s.Get(OrderRougeL).FMeasure)
	assert.Equal(t, OverlapScore{}, s.Get("rouge9"))
}

func TestQuestionReport_MarshalFlat(t *testing.T) {
	qr := QuestionReport{
		ID:       "1",
		Answered: true,
		Accuracy: AccuracyResult{Found: false, Score: 0, Missing: []string{"paris"}},
		Overlap: OverlapScores{
			Rouge1: OverlapScore{Precision: 0.5, Recall: 1, FMeasure: 0.6667},
		},
		Semantic:   0.42,
		Factuality: Verdict{Raw: "reasoning\nD\nD", Choice: CategoryDisagree},
	}

	data, err := json.Marshal(qr)
	require.NoError(t, err)

	var flat map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &flat))

	assert.Equal(t, true, flat["answered"])
	assert.Equal(t, float64(0), flat["accuracy"])
	assert.Equal(t, []interface{}{"paris"}, flat["missing"])
	assert.Equal(t, 0.5, flat["rouge1_precision"])
	assert.Equal(t, 0.42, flat["semantic"])
	assert.Equal(t, "reasoning\nD\nD", flat["factuality"])
	assert.Equal(t, "D", flat["factuality_choice"])
	assert.NotContains(t, flat, "factuality_error")
	assert.NotContains(t, flat, "id")
}

func TestCorpusReport_PreservesOrder(t *testing.T) {
	report := CorpusReport{
		{ID: "b", Answered: true, Accuracy: AccuracyResult{Found: true, Score: 1}},
		{ID: "a"},
		{ID: "10"},
	}

	data, err := json.MarshalIndent(report, "", "  ")
	require.NoError(t, err)

	text := string(data)
	ib := strings.Index(text, `"b"`)
	ia := strings.Index(text, `"a"`)
	i10 := strings.Index(text, `"10"`)
	assert.True(t, ib < ia && ia < i10, "keys must follow reference order: %s", text)

	var decoded CorpusReport
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 3)
	assert.Equal(t, "b", decoded[0].ID)
	assert.Equal(t, 1, decoded[0].Accuracy.Score)
	assert.True(t, decoded[0].Accuracy.Found)
	assert.Equal(t, "10", decoded[2].ID)
}

func TestCheckLength(t *testing.T) {
	questions := []Question{{ID: "1"}, {ID: "2"}, {ID: "3"}}

	assert.NoError(t, CheckLength("semantic", 3, questions))

	err := CheckLength("semantic", 2, questions)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDatasetLengthMismatch))

	var me *MetricError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, "semantic", me.Metric)
	assert.Equal(t, "3", me.QuestionID)
	assert.Contains(t, err.Error(), "question 3")
}
