package qa

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ahhsitt/qaeval-go/pkg/evaluation"
)

// Printer 控制台进度输出
//
// 输出仅供观察，不影响评估结果。
type Printer struct {
	w       io.Writer
	noColor bool
}

// NewPrinter 创建控制台输出
func NewPrinter(w io.Writer, noColor bool) *Printer {
	return &Printer{w: w, noColor: noColor}
}

// Question 输出单个问题的指标
func (p *Printer) Question(qr evaluation.QuestionReport) {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n", p.stylize("Question ID: "+qr.ID, lipgloss.Color("33")))
	p.metric(&b, "accuracy", fmt.Sprintf("%d", qr.Accuracy.Score))
	if len(qr.Accuracy.Missing) > 0 {
		p.metric(&b, "missing", fmt.Sprintf("%q", qr.Accuracy.Missing))
	}
	for _, order := range evaluation.OverlapOrders() {
		p.metric(&b, string(order), formatScore(qr.Overlap.Get(order).FMeasure))
	}
	p.metric(&b, "semantic", formatScore(qr.Semantic))
	if qr.Factuality.Choice != "" {
		p.metric(&b, "factuality", string(qr.Factuality.Choice))
	}
	if qr.NormalizationError != "" {
		fmt.Fprintf(&b, "%s\n", p.stylize("normalization: "+qr.NormalizationError, lipgloss.Color("220")))
	}
	io.WriteString(p.w, b.String())
}

// Summary 输出语料级汇总
func (p *Printer) Summary(s *evaluation.Summary) {
	var b strings.Builder
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s\n", p.stylize(fmt.Sprintf("Evaluated %d questions (%d answered)", s.EvalLen, s.Answered), lipgloss.Color("252")))
	fmt.Fprintf(&b, "Accuracy: %s\n", formatScore(s.MeanAccuracy))
	fmt.Fprintf(&b, "Percent perfect: %s\n", formatScore(s.PercentPerfect))
	for _, order := range evaluation.OverlapOrders() {
		sc := s.Overlap.Get(order)
		fmt.Fprintf(&b, "%s: P=%s R=%s F=%s\n", order, formatScore(sc.Precision), formatScore(sc.Recall), formatScore(sc.FMeasure))
	}
	fmt.Fprintf(&b, "Mean semantic: %s\n", formatScore(s.MeanSemantic))
	if len(s.FactualityCounts) > 0 {
		parts := make([]string, 0, len(s.FactualityCounts))
		for _, c := range append(evaluation.Categories(), evaluation.CategoryMalformed, evaluation.CategoryError) {
			if n := s.FactualityCounts[c]; n > 0 {
				parts = append(parts, fmt.Sprintf("%s=%d", c, n))
			}
		}
		fmt.Fprintf(&b, "Factuality: %s\n", strings.Join(parts, " "))
	}
	if s.JudgeErrors > 0 || s.Malformed > 0 {
		fmt.Fprintf(&b, "%s\n", p.stylize(fmt.Sprintf("Judge errors: %d, malformed: %d", s.JudgeErrors, s.Malformed), lipgloss.Color("196")))
	}
	io.WriteString(p.w, b.String())
}

func (p *Printer) metric(b *strings.Builder, name, value string) {
	fmt.Fprintf(b, "%s: %s\n", p.stylize(strings.ToUpper(name), lipgloss.Color("244")), value)
}

func (p *Printer) stylize(text string, color lipgloss.Color) string {
	if p.noColor {
		return text
	}
	return lipgloss.NewStyle().Foreground(color).Render(text)
}

func formatScore(v float64) string {
	return fmt.Sprintf("%.4f", v)
}
