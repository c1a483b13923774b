package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ahhsitt/qaeval-go/pkg/config"
	"github.com/ahhsitt/qaeval-go/pkg/evaluation"
	"github.com/ahhsitt/qaeval-go/pkg/evaluation/benchmarks/qa"
	"github.com/ahhsitt/qaeval-go/pkg/evaluation/store"
	"github.com/ahhsitt/qaeval-go/pkg/telemetry"
)

// runFlagKeys run 命令参数到配置键的映射
var runFlagKeys = map[string]string{
	"questions":   "run.questions",
	"results":     "run.results",
	"key":         "run.key",
	"output-dir":  "output.dir",
	"markdown":    "output.markdown",
	"s3-bucket":   "output.s3_bucket",
	"history":     "history.path",
	"provider":    "judge.provider",
	"model":       "judge.model",
	"concurrency": "judge.concurrency",
	"timeout":     "judge.timeout",
	"temperature": "judge.temperature",
	"fail-fast":   "judge.fail_fast",
}

func buildRunCmd(opts *rootOptions) *cobra.Command {
	var (
		noJudge    bool
		noSemantic bool
		quiet      bool
		noColor    bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Score generated answers and write score-<key>.json",
		Long: `Score every reference question against the generated results.

Questions without a generated answer score zero on every metric and still
count toward the corpus averages. The report is written to
score-<key>.json (overwriting any previous report with the same key).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			overrides := changedFlags(cmd, runFlagKeys)
			if noJudge {
				overrides["judge.enabled"] = false
			}
			if noSemantic {
				overrides["semantic.enabled"] = false
			}
			if quiet {
				overrides["run.verbose"] = false
			}

			cfg, logger, err := loadConfig(cmd, opts, overrides)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runEvaluation(ctx, cfg, cmd.OutOrStdout(), logger, noColor)
		},
	}

	cmd.Flags().String("questions", "", "Reference dataset (.json, .jsonl, .yaml)")
	cmd.Flags().String("results", "", "Generated results dataset (.json, .jsonl, .yaml)")
	cmd.Flags().StringP("key", "k", "", "Run key; the report is written to score-<key>.json")
	cmd.Flags().StringP("output-dir", "o", "", "Directory for the report")
	cmd.Flags().Bool("markdown", false, "Also write a markdown report score-<key>.md")
	cmd.Flags().String("s3-bucket", "", "Write reports to this S3 bucket instead of the output directory")
	cmd.Flags().String("history", "", "SQLite file recording run summaries")
	cmd.Flags().String("provider", "", "Judge provider (openai, anthropic, gemini, bedrock)")
	cmd.Flags().String("model", "", "Judge model")
	cmd.Flags().Int("concurrency", 1, "Concurrent judge calls")
	cmd.Flags().Duration("timeout", 0, "Per-question judge timeout")
	cmd.Flags().Float64("temperature", 0, "Judge sampling temperature (provider default when unset)")
	cmd.Flags().Bool("fail-fast", false, "Abort the run on the first judge failure")
	cmd.Flags().BoolVar(&noJudge, "no-judge", false, "Skip the factuality judge")
	cmd.Flags().BoolVar(&noSemantic, "no-semantic", false, "Skip semantic similarity")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only print the summary")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	return cmd
}

// runEvaluation 执行一次完整评估并导出报告
func runEvaluation(ctx context.Context, cfg *config.Config, out io.Writer, logger *slog.Logger, noColor bool) error {
	providers, err := telemetry.Setup(ctx, cfg.Telemetry, os.Stderr)
	if err != nil {
		return err
	}
	defer func() {
		if err := providers.Shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	questions, err := qa.LoadQuestions(ctx, cfg.Run.Questions)
	if err != nil {
		return fmt.Errorf("加载参考数据集失败: %w", err)
	}
	results, err := qa.LoadResults(ctx, cfg.Run.Results)
	if err != nil {
		return fmt.Errorf("加载生成结果失败: %w", err)
	}
	logger.Info("datasets loaded", "run_key", cfg.Run.Key, "questions", len(questions), "results", len(results))

	evalOpts := []qa.Option{
		qa.WithLogger(logger),
		qa.WithPrinter(qa.NewPrinter(out, noColor)),
		qa.WithTracerProvider(providers.TracerProvider),
	}

	if cfg.Semantic.Enabled {
		scorer, closeFn, err := buildSemanticScorer(cfg.Semantic, logger)
		if err != nil {
			return err
		}
		defer closeFn()
		evalOpts = append(evalOpts, qa.WithSemanticScorer(scorer))
	}

	if cfg.Judge.Enabled {
		judge, closeFn, err := buildJudge(cfg.Judge, logger, providers)
		if err != nil {
			return err
		}
		defer closeFn()
		evalOpts = append(evalOpts, qa.WithJudge(judge))
	}

	report, err := qa.NewEvaluator(evalOpts...).Evaluate(ctx, questions, results,
		evaluation.WithRunKey(cfg.Run.Key),
		evaluation.WithJudgeTimeout(cfg.Judge.Timeout),
		evaluation.WithJudgeConcurrency(cfg.Judge.Concurrency),
		evaluation.WithFailFast(cfg.Judge.FailFast),
		evaluation.WithSkipJudge(!cfg.Judge.Enabled),
		evaluation.WithVerbose(cfg.Run.Verbose),
	)
	if err != nil {
		return err
	}

	s, err := buildSink(ctx, cfg.Output)
	if err != nil {
		return err
	}
	exportOpts := []qa.ExportOption{
		qa.WithMarkdownReport(cfg.Output.Markdown),
		qa.WithExportLogger(logger),
	}
	if cfg.History.Path != "" {
		history, err := store.OpenSQLite(ctx, cfg.History.Path)
		if err != nil {
			return err
		}
		defer history.Close()
		exportOpts = append(exportOpts, qa.WithHistory(history))
	}

	ref, err := qa.NewExporter(s, exportOpts...).Export(ctx, report)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nReport written to %s\n", ref)
	return nil
}
