package evaluation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexResults_LastWriteWins(t *testing.T) {
	byID, dups := IndexResults([]Result{
		{ID: "1", Answer: "first"},
		{ID: "2", Answer: "two"},
		{ID: "1", Answer: "second"},
	})

	assert.Len(t, byID, 2)
	assert.Equal(t, "second", byID["1"].Answer)
	assert.Equal(t, []string{"1"}, dups)
}

func TestMatch_VisitsEveryQuestionInOrder(t *testing.T) {
	questions := []Question{{ID: "q1"}, {ID: "q2"}, {ID: "q3"}}
	byID, _ := IndexResults([]Result{{ID: "q3", Answer: "c"}, {ID: "q1", Answer: "a"}, {ID: "zz", Answer: "orphan"}})

	var got []QAPair
	for pair := range Match(questions, byID) {
		got = append(got, pair)
	}

	require.Len(t, got, 3)
	assert.Equal(t, "q1", got[0].Question.ID)
	assert.True(t, got[0].Answered())
	assert.Equal(t, "a", got[0].Result.Answer)
	assert.Equal(t, "q2", got[1].Question.ID)
	assert.False(t, got[1].Answered())
	assert.Nil(t, got[1].Result)
	assert.Equal(t, "c", got[2].Result.Answer)
}

func TestMatch_StopsEarly(t *testing.T) {
	questions := []Question{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	n := 0
	for range Match(questions, nil) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestCollectPairs_DistinctResultPointers(t *testing.T) {
	pairs := CollectPairs(
		[]Question{{ID: "1"}, {ID: "2"}},
		[]Result{{ID: "1", Answer: "x"}, {ID: "2", Answer: "y"}},
	)
	require.Len(t, pairs, 2)
	assert.Equal(t, "x", pairs[0].Result.Answer)
	assert.Equal(t, "y", pairs[1].Result.Answer)
}
