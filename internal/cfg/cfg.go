// Package cfg holds sift's application configuration, registered as flags and
// fillable from SIFT_-prefixed environment variables.
package cfg

import (
	"errors"
	"flag"
	"fmt"
)

// Config adds app-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds           int
	ShutdownBudgetSeconds  int
	APIPort                int
	ConfidenceThreshold    int
	AnalyzerTimeoutSeconds int
	TrackerMaxAttempts     int
	TrackerEndpoint        string
	TrackerToken           string
	ClaudeAPIKey           string
	ClaudeModel            string
	DatabaseURL            string
	APIToken               string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.IntVar(&c.ConfidenceThreshold, "confidence-threshold", 80, "minimum confidence for a finding to reach triage (0..100)")
	fs.IntVar(&c.AnalyzerTimeoutSeconds, "analyzer-timeout-seconds", 120, "per-analyzer timeout in seconds (1..600)")
	fs.IntVar(&c.TrackerMaxAttempts, "tracker-max-attempts", 3, "max tracker submission attempts per accepted finding (1..10)")
	fs.StringVar(&c.TrackerEndpoint, "tracker-endpoint", "", "issue tracker create-task endpoint URL")
	fs.StringVar(&c.TrackerToken, "tracker-token", "", "bearer token for the issue tracker endpoint")
	fs.StringVar(&c.ClaudeAPIKey, "claude-api-key", "", "API key for the Claude LLM analyzers (empty = pre-checks only)")
	fs.StringVar(&c.ClaudeModel, "claude-model", "claude-sonnet-4-20250514", "Claude model to use")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory store)")
	fs.StringVar(&c.APIToken, "api-token", "", "bearer token required on mutating API routes (empty = auth disabled)")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 100 {
		errs = append(errs, fmt.Errorf("invalid CONFIDENCE_THRESHOLD %d (must be 0..100)", c.ConfidenceThreshold))
	}

	if c.AnalyzerTimeoutSeconds <= 0 || c.AnalyzerTimeoutSeconds > 600 {
		errs = append(errs, fmt.Errorf("invalid ANALYZER_TIMEOUT_SECONDS %d (must be 1..600)", c.AnalyzerTimeoutSeconds))
	}

	if c.TrackerMaxAttempts <= 0 || c.TrackerMaxAttempts > 10 {
		errs = append(errs, fmt.Errorf("invalid TRACKER_MAX_ATTEMPTS %d (must be 1..10)", c.TrackerMaxAttempts))
	}

	// Tracker endpoint is required: accepted findings must land somewhere
	if c.TrackerEndpoint == "" {
		errs = append(errs, errors.New("TRACKER_ENDPOINT is required"))
	}

	// Claude model is required whenever LLM analyzers are enabled
	if c.ClaudeAPIKey != "" && c.ClaudeModel == "" {
		errs = append(errs, errors.New("CLAUDE_MODEL is required when CLAUDE_API_KEY is set"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
