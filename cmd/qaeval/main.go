// Package main 提供 qaeval 命令行入口
//
// 对照参考数据集评估模型生成的答案：
//
//	qaeval run --questions testbasement.json --results generatedresult.json --key custom_eval
//
// 预览某个问题的评委提示词：
//
//	qaeval prompt --id 42
//
// 查看历史运行：
//
//	qaeval history --history runs.db
//
// 配置可以来自 YAML 文件（--config）、QAEVAL_ 前缀环境变量或命令行参数，
// 评委密钥也可以通过 OPENAI_API_KEY、ANTHROPIC_API_KEY、GEMINI_API_KEY 提供。
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ahhsitt/qaeval-go/pkg/config"
)

var (
	version = "dev"
	commit  = "none"
)

// rootOptions 全局参数
type rootOptions struct {
	configPath string
	sets       []string
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "qaeval",
		Short: "Evaluate generated answers against an expert QA dataset",
		Long: `qaeval scores model-generated answers against expert reference answers.

Metrics: lexical accuracy, ROUGE-1/2/L overlap, embedding similarity and an
LLM factuality judge (categories A-F). Aggregates always divide by the number
of reference questions.`,
		Version:      fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv("QAEVAL_CONFIG"), "YAML configuration file (or set QAEVAL_CONFIG)")
	rootCmd.PersistentFlags().StringArrayVar(&opts.sets, "set", nil, "Override a configuration key, e.g. --set judge.model=gpt-4o (repeatable)")

	rootCmd.AddCommand(
		buildRunCmd(opts),
		buildPromptCmd(opts),
		buildHistoryCmd(opts),
	)
	return rootCmd
}

// loadConfig 按全局参数和命令行覆盖项加载配置，并替换默认日志记录器
func loadConfig(cmd *cobra.Command, opts *rootOptions, overrides map[string]any) (*config.Config, *slog.Logger, error) {
	merged, err := parseSets(opts.sets)
	if err != nil {
		return nil, nil, err
	}
	for k, v := range overrides {
		merged[k] = v
	}

	cfg, err := config.Load(opts.configPath, merged)
	if err != nil {
		return nil, nil, err
	}
	logger := config.NewLogger(cfg.Logging, cmd.ErrOrStderr())
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// parseSets 解析 --set key=value
func parseSets(sets []string) (map[string]any, error) {
	out := make(map[string]any, len(sets))
	for _, s := range sets {
		key, value, ok := strings.Cut(s, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q, expected key=value", s)
		}
		out[key] = value
	}
	return out, nil
}

// changedFlags 收集被显式设置的参数对应的配置键
func changedFlags(cmd *cobra.Command, mapping map[string]string) map[string]any {
	out := make(map[string]any)
	for flag, key := range mapping {
		f := cmd.Flags().Lookup(flag)
		if f == nil || !f.Changed {
			continue
		}
		out[key] = f.Value.String()
	}
	return out
}
