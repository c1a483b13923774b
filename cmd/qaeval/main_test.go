package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahhsitt/qaeval-go/pkg/evaluation"
	"github.com/ahhsitt/qaeval-go/pkg/evaluation/store"
)

func TestBuildRootCmdIncludesSubcommands(t *testing.T) {
	cmd := buildRootCmd()
	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}

	for _, name := range []string{"run", "prompt", "history"} {
		assert.True(t, names[name], "expected subcommand %q to be registered", name)
	}
}

func TestParseSets(t *testing.T) {
	got, err := parseSets([]string{"judge.model=gpt-4o", " run.key = nightly", "output.dir=a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"judge.model": "gpt-4o",
		"run.key":     " nightly",
		"output.dir":  "a=b",
	}, got)

	_, err = parseSets([]string{"novalue"})
	assert.Error(t, err)
	_, err = parseSets([]string{"=x"})
	assert.Error(t, err)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func executeCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("QAEVAL_CONFIG", "")
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	cmd := buildRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRunCommandWritesReport(t *testing.T) {
	dir := t.TempDir()
	questions := writeFile(t, dir, "questions.json", `[
  {"id": 1, "question": "Capital of France?", "answer": "Paris"},
  {"id": 2, "question": "Capital of Italy?", "answer": "Rome"}
]`)
	results := writeFile(t, dir, "results.jsonl", `{"id": 1, "answer": "It is Paris."}
`)
	outDir := filepath.Join(dir, "out")

	out, err := executeCmd(t, "run",
		"--questions", questions,
		"--results", results,
		"--key", "cli",
		"--output-dir", outDir,
		"--markdown",
		"--no-judge", "--no-semantic", "--no-color",
	)
	require.NoError(t, err)

	assert.Contains(t, out, "Question ID: 1")
	assert.NotContains(t, out, "Question ID: 2")
	assert.Contains(t, out, "Evaluated 2 questions (1 answered)")
	assert.Contains(t, out, "score-cli.json")

	data, err := os.ReadFile(filepath.Join(outDir, "score-cli.json"))
	require.NoError(t, err)
	var report map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &report))
	require.Len(t, report, 2)
	assert.Equal(t, true, report["1"]["answered"])
	assert.Equal(t, float64(1), report["1"]["accuracy"])
	assert.Equal(t, false, report["2"]["answered"])
	assert.Equal(t, float64(0), report["2"]["accuracy"])

	_, err = os.Stat(filepath.Join(outDir, "score-cli.md"))
	assert.NoError(t, err)
}

func TestRunCommandQuiet(t *testing.T) {
	dir := t.TempDir()
	questions := writeFile(t, dir, "q.yaml", "- id: a\n  question: q\n  answer: forty two\n")
	results := writeFile(t, dir, "r.json", `[{"id": "a", "answer": "forty two"}]`)

	out, err := executeCmd(t, "run", "-q",
		"--questions", questions, "--results", results,
		"-o", dir, "--no-judge", "--no-semantic", "--no-color")
	require.NoError(t, err)
	assert.NotContains(t, out, "Question ID:")
	assert.Contains(t, out, "Evaluated 1 questions (1 answered)")
	assert.FileExists(t, filepath.Join(dir, "score-custom_eval.json"))
}

func TestRunCommandRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	questions := writeFile(t, dir, "q.json", `[{"id": 1, "question": "q", "answer": "a"}]`)

	_, err := executeCmd(t, "run",
		"--questions", questions, "--results", questions,
		"--key", "bad key", "--no-judge", "--no-semantic")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run.key")
}

func TestRunCommandRequiresJudgeKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("QAEVAL_JUDGE__API_KEY", "")
	dir := t.TempDir()
	questions := writeFile(t, dir, "q.json", `[{"id": 1, "question": "q", "answer": "a"}]`)

	_, err := executeCmd(t, "run", "--questions", questions, "--results", questions, "--no-semantic")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "judge.api_key")
}

func TestRunPrompt(t *testing.T) {
	questions := []evaluation.Question{
		{ID: "1", Question: "Capital of France?", Answer: "Paris"},
		{ID: "2", Question: "Capital of Italy?", Answer: "Rome"},
	}
	results := []evaluation.Result{{ID: "1", Answer: "It is Paris."}}

	var buf bytes.Buffer
	require.NoError(t, runPrompt(&buf, questions, results, "1"))
	assert.Contains(t, buf.String(), "[system]\nYou are comparing a submitted answer")
	assert.Contains(t, buf.String(), "[Question]: Capital of France?")
	assert.Contains(t, buf.String(), "[Submission]: It is Paris.")

	assert.ErrorContains(t, runPrompt(&buf, questions, results, "2"), "no generated answer")
	assert.ErrorContains(t, runPrompt(&buf, questions, results, "3"), "not found")
}

func TestPrintRuns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printRuns(&buf, nil))
	assert.Equal(t, "No runs recorded.\n", buf.String())

	buf.Reset()
	require.NoError(t, printRuns(&buf, []store.Run{{
		RunKey:       "nightly",
		CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		EvalLen:      10,
		Answered:     8,
		MeanAccuracy: 0.5,
		RougeLF:      0.25,
		FactualityCounts: map[evaluation.Category]int{
			evaluation.CategorySame:     5,
			evaluation.CategoryDisagree: 2,
		},
		JudgeErrors: 1,
	}}))
	out := buf.String()
	assert.Contains(t, out, "KEY")
	assert.Contains(t, out, "nightly")
	assert.Contains(t, out, "0.5000")
	assert.Contains(t, out, "0/0/5/2/0/0")
}
