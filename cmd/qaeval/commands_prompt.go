package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ahhsitt/qaeval-go/pkg/evaluation"
	"github.com/ahhsitt/qaeval-go/pkg/evaluation/benchmarks/qa"
	"github.com/ahhsitt/qaeval-go/pkg/evaluation/scorers/factuality"
)

func buildPromptCmd(opts *rootOptions) *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Print the factuality judge prompt for one question",
		Long: `Print the system and user prompt the factuality judge would receive for
a question. No model is called.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(cmd, opts, changedFlags(cmd, map[string]string{
				"questions": "run.questions",
				"results":   "run.results",
			}))
			if err != nil {
				return err
			}

			questions, err := qa.LoadQuestions(cmd.Context(), cfg.Run.Questions)
			if err != nil {
				return fmt.Errorf("加载参考数据集失败: %w", err)
			}
			results, err := qa.LoadResults(cmd.Context(), cfg.Run.Results)
			if err != nil {
				return fmt.Errorf("加载生成结果失败: %w", err)
			}
			return runPrompt(cmd.OutOrStdout(), questions, results, id)
		},
	}

	cmd.Flags().String("questions", "", "Reference dataset")
	cmd.Flags().String("results", "", "Generated results dataset")
	cmd.Flags().StringVar(&id, "id", "", "Question ID")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

// runPrompt 输出指定问题的评委提示词
func runPrompt(w io.Writer, questions []evaluation.Question, results []evaluation.Result, id string) error {
	for _, pair := range evaluation.CollectPairs(questions, results) {
		if pair.Question.ID != id {
			continue
		}
		if !pair.Answered() {
			return fmt.Errorf("question %s has no generated answer", id)
		}
		fmt.Fprintf(w, "[system]\n%s\n\n[user]\n%s\n", factuality.SystemPrompt,
			factuality.BuildPrompt(pair.Question.Question, pair.Question.Answer, pair.Result.Answer))
		return nil
	}
	return fmt.Errorf("question %s not found in reference dataset", id)
}
