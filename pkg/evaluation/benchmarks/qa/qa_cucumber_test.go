package qa

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"testing"

	"github.com/cucumber/godog"

	"github.com/ahhsitt/qaeval-go/pkg/evaluation"
	"github.com/ahhsitt/qaeval-go/pkg/evaluation/scorers/semantic"
	"github.com/ahhsitt/qaeval-go/pkg/evaluation/textnorm"
)

// TestEvaluationScenarios 运行端到端评估场景
func TestEvaluationScenarios(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "qa-evaluation",
		ScenarioInitializer: InitializeEvaluationScenario,
		Options: &godog.Options{
			Format:    "pretty",
			Paths:     []string{filepath.Join("features", "evaluation.feature")},
			Strict:    true,
			TestingT:  t,
			Randomize: 0,
		},
	}
	if suite.Run() != 0 {
		t.Fatalf("non-zero godog status")
	}
}

// InitializeEvaluationScenario 注册场景步骤
func InitializeEvaluationScenario(ctx *godog.ScenarioContext) {
	state := &evaluationState{}
	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		state.reset()
		return ctx, nil
	})

	ctx.Step(`^the reference question "([^"]*)" "([^"]*)" with answer "([^"]*)"$`, state.givenReferenceQuestion)
	ctx.Step(`^the candidate answer for "([^"]*)" is "([^"]*)"$`, state.givenCandidateAnswer)
	ctx.Step(`^the corpus is evaluated$`, state.whenTheCorpusIsEvaluated)
	ctx.Step(`^question "([^"]*)" has accuracy (\d)$`, state.thenAccuracy)
	ctx.Step(`^question "([^"]*)" is found$`, state.thenFound)
	ctx.Step(`^question "([^"]*)" is not found$`, state.thenNotFound)
	ctx.Step(`^question "([^"]*)" has no missing answers$`, state.thenNoMissing)
	ctx.Step(`^question "([^"]*)" is missing "([^"]*)"$`, state.thenMissing)
	ctx.Step(`^the eval length is (\d+)$`, state.thenEvalLen)
	ctx.Step(`^the mean accuracy is ([0-9.]+)$`, state.thenMeanAccuracy)
	ctx.Step(`^question "([^"]*)" is unanswered with zeroed metrics$`, state.thenZeroed)
	ctx.Step(`^the semantic score of question "([^"]*)" is finite$`, state.thenSemanticFinite)
	ctx.Step(`^the text "([^"]*)" normalizes to "([^"]*)"$`, state.thenNormalizesTo)
}

// evaluationState 场景状态
type evaluationState struct {
	questions []evaluation.Question
	results   []evaluation.Result
	report    *evaluation.Report
}

func (s *evaluationState) reset() {
	s.questions = nil
	s.results = nil
	s.report = nil
}

func (s *evaluationState) givenReferenceQuestion(id, question, answer string) error {
	s.questions = append(s.questions, evaluation.Question{ID: id, Question: question, Answer: answer})
	return nil
}

func (s *evaluationState) givenCandidateAnswer(id, answer string) error {
	s.results = append(s.results, evaluation.Result{ID: id, Answer: answer})
	return nil
}

func (s *evaluationState) whenTheCorpusIsEvaluated() error {
	e := NewEvaluator(WithSemanticScorer(semantic.NewScorer(&exactModel{})))
	report, err := e.Evaluate(context.Background(), s.questions, s.results)
	if err != nil {
		return err
	}
	s.report = report
	return nil
}

func (s *evaluationState) question(id string) (evaluation.QuestionReport, error) {
	if s.report == nil {
		return evaluation.QuestionReport{}, fmt.Errorf("corpus has not been evaluated")
	}
	for _, qr := range s.report.Questions {
		if qr.ID == id {
			return qr, nil
		}
	}
	return evaluation.QuestionReport{}, fmt.Errorf("question %s not in report", id)
}

func (s *evaluationState) thenAccuracy(id string, want int) error {
	qr, err := s.question(id)
	if err != nil {
		return err
	}
	if qr.Accuracy.Score != want {
		return fmt.Errorf("accuracy = %d, want %d", qr.Accuracy.Score, want)
	}
	return nil
}

func (s *evaluationState) thenFound(id string) error {
	qr, err := s.question(id)
	if err != nil {
		return err
	}
	if !qr.Accuracy.Found {
		return fmt.Errorf("question %s not found", id)
	}
	return nil
}

func (s *evaluationState) thenNotFound(id string) error {
	qr, err := s.question(id)
	if err != nil {
		return err
	}
	if qr.Accuracy.Found {
		return fmt.Errorf("question %s unexpectedly found", id)
	}
	return nil
}

func (s *evaluationState) thenNoMissing(id string) error {
	qr, err := s.question(id)
	if err != nil {
		return err
	}
	if qr.Accuracy.Missing == nil || len(qr.Accuracy.Missing) != 0 {
		return fmt.Errorf("missing = %#v, want empty", qr.Accuracy.Missing)
	}
	return nil
}

func (s *evaluationState) thenMissing(id, want string) error {
	qr, err := s.question(id)
	if err != nil {
		return err
	}
	if len(qr.Accuracy.Missing) != 1 || qr.Accuracy.Missing[0] != want {
		return fmt.Errorf("missing = %q, want [%q]", qr.Accuracy.Missing, want)
	}
	return nil
}

func (s *evaluationState) thenEvalLen(want int) error {
	if s.report.Summary.EvalLen != want {
		return fmt.Errorf("eval_len = %d, want %d", s.report.Summary.EvalLen, want)
	}
	return nil
}

func (s *evaluationState) thenMeanAccuracy(want float64) error {
	if got := s.report.Summary.MeanAccuracy; math.Abs(got-want) > 1e-4 {
		return fmt.Errorf("mean accuracy = %.6f, want %.4f", got, want)
	}
	return nil
}

func (s *evaluationState) thenZeroed(id string) error {
	qr, err := s.question(id)
	if err != nil {
		return err
	}
	if qr.Answered || qr.Accuracy.Score != 0 || qr.Accuracy.Found || len(qr.Accuracy.Missing) != 0 {
		return fmt.Errorf("accuracy not zeroed: %+v", qr.Accuracy)
	}
	if qr.Overlap != (evaluation.OverlapScores{}) {
		return fmt.Errorf("overlap not zeroed: %+v", qr.Overlap)
	}
	if qr.Factuality != (evaluation.Verdict{}) {
		return fmt.Errorf("factuality not empty: %+v", qr.Factuality)
	}
	return nil
}

func (s *evaluationState) thenSemanticFinite(id string) error {
	qr, err := s.question(id)
	if err != nil {
		return err
	}
	if math.IsNaN(qr.Semantic) || math.IsInf(qr.Semantic, 0) {
		return fmt.Errorf("semantic score %v is not finite", qr.Semantic)
	}
	return nil
}

func (s *evaluationState) thenNormalizesTo(raw, want string) error {
	if got := textnorm.Normalize(raw); got != want {
		return fmt.Errorf("Normalize(%q) = %q, want %q", raw, got, want)
	}
	return nil
}
