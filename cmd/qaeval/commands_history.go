package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ahhsitt/qaeval-go/pkg/evaluation"
	"github.com/ahhsitt/qaeval-go/pkg/evaluation/store"
)

func buildHistoryCmd(opts *rootOptions) *cobra.Command {
	var (
		runKey string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded evaluation runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(cmd, opts, changedFlags(cmd, map[string]string{
				"history": "history.path",
			}))
			if err != nil {
				return err
			}
			if cfg.History.Path == "" {
				return fmt.Errorf("no history database configured (use --history or history.path)")
			}

			db, err := store.OpenSQLite(cmd.Context(), cfg.History.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			runs, err := db.List(cmd.Context(), runKey, limit)
			if err != nil {
				return err
			}
			return printRuns(cmd.OutOrStdout(), runs)
		},
	}

	cmd.Flags().String("history", "", "SQLite history file")
	cmd.Flags().StringVarP(&runKey, "key", "k", "", "Only show runs with this key")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs (0 = all)")
	return cmd
}

func printRuns(out io.Writer, runs []store.Run) error {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CREATED\tKEY\tQUESTIONS\tANSWERED\tACCURACY\tROUGE-L F\tSEMANTIC\tA/B/C/D/E/F\tERRORS")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.4f\t%.4f\t%.4f\t%s\t%d\n",
			r.CreatedAt.Local().Format(time.DateTime),
			r.RunKey,
			r.EvalLen,
			r.Answered,
			r.MeanAccuracy,
			r.RougeLF,
			r.MeanSemantic,
			factualityColumn(r.FactualityCounts),
			r.JudgeErrors,
		)
	}
	return w.Flush()
}

func factualityColumn(counts map[evaluation.Category]int) string {
	s := ""
	for i, c := range evaluation.Categories() {
		if i > 0 {
			s += "/"
		}
		s += fmt.Sprint(counts[c])
	}
	return s
}
