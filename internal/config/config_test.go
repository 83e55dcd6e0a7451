package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/petrijr/deepdive/pkg/api"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, "gemini-2.0-flash", cfg.Model)
	require.Equal(t, 3, cfg.MaxIterations)
	require.Equal(t, 5, cfg.MaxSubQueries)
	require.Equal(t, string(api.IntentDeepDive), cfg.DefaultIntent)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deepdive.yaml")
	data := `
model: gemini-2.0-pro
max_iterations: 5
max_sub_queries: 7
call_timeout: 30s
proceed_without_findings: true
history_path: runs.db
search:
  max_attempts: 4
  initial_backoff: 250ms
  max_backoff: 2s
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "gemini-2.0-pro", cfg.Model)
	require.Equal(t, 5, cfg.MaxIterations)
	require.Equal(t, 7, cfg.MaxSubQueries)
	require.Equal(t, 30*time.Second, cfg.CallTimeout.Std())
	require.True(t, cfg.ProceedWithoutFindings)
	require.Equal(t, "runs.db", cfg.HistoryPath)
	require.Equal(t, 4, cfg.Search.MaxAttempts)
	require.Equal(t, 250*time.Millisecond, cfg.Search.InitialBackoff.Std())

	// Untouched fields keep their defaults.
	require.Equal(t, 5, cfg.MaxResultsPerQuery)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deepdive.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: [unclosed"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_CredentialsFromEnv(t *testing.T) {
	t.Setenv(EnvGeminiAPIKey, "gem-key")
	t.Setenv(EnvTavilyAPIKey, "tav-key")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "gem-key", cfg.GeminiAPIKey)
	require.Equal(t, "tav-key", cfg.TavilyAPIKey)
}

func TestConfig_Policy(t *testing.T) {
	cfg := Default()
	cfg.MaxIterations = 4
	cfg.ProceedWithoutFindings = true

	p := cfg.Policy()
	require.Equal(t, api.IntentDeepDive, p.DefaultIntent)
	require.Equal(t, 4, p.DefaultMaxIterations)
	require.Equal(t, api.EmptyFindingsProceed, p.EmptyFindings)
	require.Equal(t, 3, p.SearchRetry.MaxAttempts)
	require.InDelta(t, 2.0, p.SearchRetry.BackoffMultiplier, 1e-9)

	cfg.ProceedWithoutFindings = false
	require.Equal(t, api.EmptyFindingsFail, cfg.Policy().EmptyFindings)
}
