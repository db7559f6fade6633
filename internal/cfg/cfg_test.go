package cfg

import (
	"flag"
	"strings"
	"testing"
)

func validConfig() *Config {
	c := &Config{}
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)
	c.TrackerEndpoint = "https://tracker.example.com/api/tasks"
	return c
}

func TestValidateDefaults(t *testing.T) {
	t.Parallel()

	c := validConfig()
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestValidateErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{
			name:    "drain too low",
			mutate:  func(c *Config) { c.DrainSeconds = 0 },
			wantSub: "DRAIN_SECONDS",
		},
		{
			name:    "drain too high",
			mutate:  func(c *Config) { c.DrainSeconds = 301 },
			wantSub: "DRAIN_SECONDS",
		},
		{
			name:    "shutdown budget too low",
			mutate:  func(c *Config) { c.ShutdownBudgetSeconds = 0 },
			wantSub: "SHUTDOWN_BUDGET_SECONDS",
		},
		{
			name: "shutdown budget not greater than drain",
			mutate: func(c *Config) {
				c.DrainSeconds = 90
				c.ShutdownBudgetSeconds = 90
			},
			wantSub: "must be greater than DRAIN_SECONDS",
		},
		{
			name:    "port zero",
			mutate:  func(c *Config) { c.APIPort = 0 },
			wantSub: "HTTP_PORT",
		},
		{
			name:    "port too high",
			mutate:  func(c *Config) { c.APIPort = 70000 },
			wantSub: "HTTP_PORT",
		},
		{
			name:    "threshold negative",
			mutate:  func(c *Config) { c.ConfidenceThreshold = -1 },
			wantSub: "CONFIDENCE_THRESHOLD",
		},
		{
			name:    "threshold above 100",
			mutate:  func(c *Config) { c.ConfidenceThreshold = 101 },
			wantSub: "CONFIDENCE_THRESHOLD",
		},
		{
			name:    "analyzer timeout zero",
			mutate:  func(c *Config) { c.AnalyzerTimeoutSeconds = 0 },
			wantSub: "ANALYZER_TIMEOUT_SECONDS",
		},
		{
			name:    "tracker attempts zero",
			mutate:  func(c *Config) { c.TrackerMaxAttempts = 0 },
			wantSub: "TRACKER_MAX_ATTEMPTS",
		},
		{
			name:    "missing tracker endpoint",
			mutate:  func(c *Config) { c.TrackerEndpoint = "" },
			wantSub: "TRACKER_ENDPOINT is required",
		},
		{
			name: "claude key without model",
			mutate: func(c *Config) {
				c.ClaudeAPIKey = "sk-test"
				c.ClaudeModel = ""
			},
			wantSub: "CLAUDE_MODEL is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := validConfig()
			tt.mutate(c)

			err := c.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("Validate() = %q, want substring %q", err.Error(), tt.wantSub)
			}
		})
	}
}

func TestValidateJoinsMultipleErrors(t *testing.T) {
	t.Parallel()

	c := validConfig()
	c.APIPort = 0
	c.ConfidenceThreshold = 500
	c.TrackerEndpoint = ""

	err := c.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	for _, sub := range []string{"HTTP_PORT", "CONFIDENCE_THRESHOLD", "TRACKER_ENDPOINT"} {
		if !strings.Contains(err.Error(), sub) {
			t.Errorf("Validate() error missing %q: %v", sub, err)
		}
	}
}
