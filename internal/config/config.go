// Package config loads the deepdive configuration file and resolves API
// credentials from the environment. The file is optional; every field has
// a default, and secrets are deliberately env-only so a committed config
// file can never leak them.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/petrijr/deepdive/pkg/api"
)

// Environment variables consulted for credentials.
const (
	EnvGeminiAPIKey = "GEMINI_API_KEY"
	EnvTavilyAPIKey = "TAVILY_API_KEY"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "30s" or "250ms".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config models the deepdive.yaml file.
type Config struct {
	// Model is the text-generation model used by the classifier, planner,
	// and critic.
	Model string `yaml:"model"`

	// MaxIterations is the default loop ceiling for runs that do not set
	// their own.
	MaxIterations int `yaml:"max_iterations"`

	// DefaultIntent is used when classification fails. Empty leaves failed
	// classifications unclassified, which fails the run at planning.
	DefaultIntent string `yaml:"default_intent"`

	// MaxSubQueries caps the research plan size.
	MaxSubQueries int `yaml:"max_sub_queries"`

	// MaxResultsPerQuery caps search results fetched per sub-query.
	MaxResultsPerQuery int `yaml:"max_results_per_query"`

	// CallTimeout bounds each collaborator call.
	CallTimeout Duration `yaml:"call_timeout"`

	// ProceedWithoutFindings lets a run write a caveated report instead of
	// failing when research produced nothing at all.
	ProceedWithoutFindings bool `yaml:"proceed_without_findings"`

	// HistoryPath is the SQLite file finished runs are archived to.
	// Empty keeps history in memory only.
	HistoryPath string `yaml:"history_path"`

	Search SearchConfig `yaml:"search"`

	// GeminiAPIKey and TavilyAPIKey are resolved from the environment,
	// never from the file.
	GeminiAPIKey string `yaml:"-"`
	TavilyAPIKey string `yaml:"-"`
}

// SearchConfig tunes the search retry behavior.
type SearchConfig struct {
	MaxAttempts    int      `yaml:"max_attempts"`
	InitialBackoff Duration `yaml:"initial_backoff"`
	MaxBackoff     Duration `yaml:"max_backoff"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Model:              "gemini-2.0-flash",
		MaxIterations:      3,
		DefaultIntent:      string(api.IntentDeepDive),
		MaxSubQueries:      5,
		MaxResultsPerQuery: 5,
		CallTimeout:        Duration(60 * time.Second),
		Search: SearchConfig{
			MaxAttempts:    3,
			InitialBackoff: Duration(500 * time.Millisecond),
			MaxBackoff:     Duration(5 * time.Second),
		},
	}
}

// Load reads the config file at path, merges it over the defaults, and
// resolves credentials from the environment. A missing file is not an
// error; the defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Fall through to defaults.
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.GeminiAPIKey = os.Getenv(EnvGeminiAPIKey)
	cfg.TavilyAPIKey = os.Getenv(EnvTavilyAPIKey)
	return cfg, nil
}

// Policy converts the configuration into an engine policy.
func (c Config) Policy() api.Policy {
	p := api.Policy{
		DefaultIntent:        api.Intent(c.DefaultIntent),
		DefaultMaxIterations: c.MaxIterations,
		MaxSubQueries:        c.MaxSubQueries,
		MaxResultsPerQuery:   c.MaxResultsPerQuery,
		CallTimeout:          c.CallTimeout.Std(),
		SearchRetry: api.RetryPolicy{
			MaxAttempts:       c.Search.MaxAttempts,
			InitialBackoff:    c.Search.InitialBackoff.Std(),
			MaxBackoff:        c.Search.MaxBackoff.Std(),
			BackoffMultiplier: 2.0,
		},
	}
	if c.ProceedWithoutFindings {
		p.EmptyFindings = api.EmptyFindingsProceed
	}
	return p.Normalize()
}
