package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "qaeval.yaml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(contents)), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func clearKeys(t *testing.T) {
	t.Helper()
	for _, name := range []string{"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY"} {
		t.Setenv(name, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearKeys(t)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "custom_eval", cfg.Run.Key)
	assert.Equal(t, "testbasement.json", cfg.Run.Questions)
	assert.Equal(t, "generatedresult.json", cfg.Run.Results)
	assert.True(t, cfg.Judge.Enabled)
	assert.Equal(t, 2*time.Minute, cfg.Judge.Timeout)
	assert.Equal(t, 1, cfg.Judge.Concurrency)
	assert.Nil(t, cfg.Judge.Temperature)
	assert.Equal(t, 64, cfg.Semantic.BatchSize)
	assert.Equal(t, 168*time.Hour, cfg.Semantic.CacheTTL)
	assert.Equal(t, "none", cfg.Telemetry.Exporter)
}

func TestLoadLayering(t *testing.T) {
	clearKeys(t)
	path := writeConfig(t, `
run:
  key: nightly
judge:
  provider: anthropic
  model: claude-3-5-haiku-latest
  timeout: 30s
  concurrency: 4
  temperature: 0
logging:
  format: json
`)
	t.Setenv("QAEVAL_JUDGE__CONCURRENCY", "8")
	t.Setenv("QAEVAL_JUDGE__API_KEY", "from-env")

	cfg, err := Load(path, map[string]any{"run.key": "cli"})
	require.NoError(t, err)

	assert.Equal(t, "cli", cfg.Run.Key, "command line wins")
	assert.Equal(t, "anthropic", cfg.Judge.Provider)
	assert.Equal(t, "claude-3-5-haiku-latest", cfg.Judge.Model)
	assert.Equal(t, 30*time.Second, cfg.Judge.Timeout)
	assert.Equal(t, 8, cfg.Judge.Concurrency, "environment overrides file")
	require.NotNil(t, cfg.Judge.Temperature, "an explicit zero temperature is kept")
	assert.Equal(t, 0.0, *cfg.Judge.Temperature)
	assert.Equal(t, "from-env", cfg.Judge.APIKey)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadProviderKeyFallback(t *testing.T) {
	clearKeys(t)
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("OPENAI_API_KEY", "oa-key")

	cfg, err := Load("", map[string]any{"judge.provider": "gemini"})
	require.NoError(t, err)

	assert.Equal(t, "gem-key", cfg.Judge.APIKey)
	assert.Equal(t, "oa-key", cfg.Semantic.APIKey)
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	clearKeys(t)

	tests := []struct {
		name      string
		overrides map[string]any
		wantErr   string
	}{
		{
			name:      "valid",
			overrides: map[string]any{"judge.api_key": "k", "semantic.api_key": "k"},
		},
		{
			name:      "judge disabled needs no key",
			overrides: map[string]any{"judge.enabled": false, "semantic.enabled": false},
		},
		{
			name:      "missing judge key",
			overrides: map[string]any{"semantic.enabled": false},
			wantErr:   "OPENAI_API_KEY",
		},
		{
			name:      "bedrock uses the aws chain",
			overrides: map[string]any{"judge.provider": "bedrock", "semantic.enabled": false},
		},
		{
			name:      "bedrock half credentials",
			overrides: map[string]any{"judge.provider": "bedrock", "judge.api_key": "AKIA", "semantic.enabled": false},
			wantErr:   "secret_key",
		},
		{
			name:      "bad run key",
			overrides: map[string]any{"run.key": "../etc", "judge.enabled": false, "semantic.enabled": false},
			wantErr:   "run.key",
		},
		{
			name:      "semantic provider without embeddings",
			overrides: map[string]any{"judge.enabled": false, "semantic.provider": "anthropic", "semantic.api_key": "k"},
			wantErr:   "no embedding endpoint",
		},
		{
			name:      "bad cache url",
			overrides: map[string]any{"judge.enabled": false, "semantic.api_key": "k", "semantic.cache_url": "memcached://x"},
			wantErr:   "cache_url",
		},
		{
			name:      "temperature out of range",
			overrides: map[string]any{"judge.api_key": "k", "semantic.enabled": false, "judge.temperature": 3.5},
			wantErr:   "judge.temperature",
		},
		{
			name:      "bad exporter",
			overrides: map[string]any{"judge.enabled": false, "semantic.enabled": false, "telemetry.exporter": "zipkin"},
			wantErr:   "telemetry.exporter",
		},
		{
			name:      "bad log format",
			overrides: map[string]any{"judge.enabled": false, "semantic.enabled": false, "logging.format": "xml"},
			wantErr:   "logging.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("", tt.overrides)
			require.NoError(t, err)

			err = cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestJudgeProviderConfig(t *testing.T) {
	pc, err := JudgeConfig{Provider: "claude", APIKey: "k", Model: "m", MaxRetries: 2}.ProviderConfig()
	require.NoError(t, err)
	assert.Equal(t, "anthropic", string(pc.Type))
	assert.Equal(t, "m", pc.Model)
	assert.Equal(t, 2, pc.MaxRetries)

	_, err = JudgeConfig{Provider: "nope"}.ProviderConfig()
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggingConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown", "run_key", "k")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"run_key":"k"`)

	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}
