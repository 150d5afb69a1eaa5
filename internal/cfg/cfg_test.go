package cfg

import (
	"flag"
	"strings"
	"testing"
	"time"
)

// validBase returns a Config with all required fields set to valid values.
func validBase() Config {
	return Config{
		DrainSeconds:          60,
		ShutdownBudgetSeconds: 90,
		APIPort:               8080,
		CycleInterval:         15 * time.Minute,
		CollectTimeout:        60 * time.Second,
		SocialEndpoint:        "https://public.api.bsky.app",
		SocialQuery:           "city events",
		ClaudeAPIKey:          "sk-test-key",
		ClaudeModel:           "claude-sonnet-4-20250514",
	}
}

func TestRegisterFlags_Defaults(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	if err := fs.Parse(nil); err != nil {
		t.Fatalf("parse empty args: %v", err)
	}

	if c.DrainSeconds != 60 {
		t.Errorf("DrainSeconds = %d, want 60", c.DrainSeconds)
	}
	if c.ShutdownBudgetSeconds != 90 {
		t.Errorf("ShutdownBudgetSeconds = %d, want 90", c.ShutdownBudgetSeconds)
	}
	if c.APIPort != 8080 {
		t.Errorf("APIPort = %d, want 8080", c.APIPort)
	}
	if c.CycleInterval != 15*time.Minute {
		t.Errorf("CycleInterval = %s, want 15m", c.CycleInterval)
	}
	if c.CollectTimeout != 60*time.Second {
		t.Errorf("CollectTimeout = %s, want 60s", c.CollectTimeout)
	}
	if c.SocialEndpoint != "https://public.api.bsky.app" {
		t.Errorf("SocialEndpoint = %q", c.SocialEndpoint)
	}
	if c.ClaudeModel != "claude-sonnet-4-20250514" {
		t.Errorf("ClaudeModel = %q, want %q", c.ClaudeModel, "claude-sonnet-4-20250514")
	}
}

func TestRegisterFlags_Override(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	args := []string{
		"-drain-seconds", "30",
		"-shutdown-budget-seconds", "120",
		"-http-port", "9090",
		"-cycle-interval", "5m",
		"-collect-timeout", "30s",
		"-social-query", "road closures",
		"-cityfeed-endpoint", "https://city.example.com/requests",
		"-news-feed-url", "https://news.example.com/rss",
		"-claude-api-key", "sk-override",
		"-database-url", "postgres://localhost/citypulse",
		"-slack-webhook-url", "https://hooks.slack.com/services/x",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse args: %v", err)
	}

	if c.DrainSeconds != 30 {
		t.Errorf("DrainSeconds = %d, want 30", c.DrainSeconds)
	}
	if c.CycleInterval != 5*time.Minute {
		t.Errorf("CycleInterval = %s, want 5m", c.CycleInterval)
	}
	if c.CollectTimeout != 30*time.Second {
		t.Errorf("CollectTimeout = %s, want 30s", c.CollectTimeout)
	}
	if c.SocialQuery != "road closures" {
		t.Errorf("SocialQuery = %q", c.SocialQuery)
	}
	if c.CityFeedEndpoint != "https://city.example.com/requests" {
		t.Errorf("CityFeedEndpoint = %q", c.CityFeedEndpoint)
	}
	if c.NewsFeedURL != "https://news.example.com/rss" {
		t.Errorf("NewsFeedURL = %q", c.NewsFeedURL)
	}
	if c.ClaudeAPIKey != "sk-override" {
		t.Errorf("ClaudeAPIKey = %q", c.ClaudeAPIKey)
	}
	if c.DatabaseURL != "postgres://localhost/citypulse" {
		t.Errorf("DatabaseURL = %q", c.DatabaseURL)
	}
	if c.SlackWebhookURL != "https://hooks.slack.com/services/x" {
		t.Errorf("SlackWebhookURL = %q", c.SlackWebhookURL)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantErr   bool
		errSubstr []string
	}{
		{
			name:    "base is valid",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "cityfeed only",
			mutate:  func(c *Config) { c.SocialEndpoint, c.SocialQuery, c.CityFeedEndpoint = "", "", "https://c" },
			wantErr: false,
		},
		{
			name:    "news only",
			mutate:  func(c *Config) { c.SocialEndpoint, c.SocialQuery, c.NewsFeedURL = "", "", "https://n" },
			wantErr: false,
		},
		{
			name:      "drain zero",
			mutate:    func(c *Config) { c.DrainSeconds = 0 },
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS"},
		},
		{
			name:      "drain too large",
			mutate:    func(c *Config) { c.DrainSeconds = 301 },
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS"},
		},
		{
			name:      "shutdown budget not greater than drain",
			mutate:    func(c *Config) { c.ShutdownBudgetSeconds = 60 },
			wantErr:   true,
			errSubstr: []string{"SHUTDOWN_BUDGET_SECONDS", "DRAIN_SECONDS"},
		},
		{
			name:      "port zero",
			mutate:    func(c *Config) { c.APIPort = 0 },
			wantErr:   true,
			errSubstr: []string{"HTTP_PORT"},
		},
		{
			name:      "port too large",
			mutate:    func(c *Config) { c.APIPort = 70000 },
			wantErr:   true,
			errSubstr: []string{"HTTP_PORT"},
		},
		{
			name:      "cycle interval too short",
			mutate:    func(c *Config) { c.CycleInterval = 30 * time.Second },
			wantErr:   true,
			errSubstr: []string{"CYCLE_INTERVAL"},
		},
		{
			name:      "collect timeout zero",
			mutate:    func(c *Config) { c.CollectTimeout = 0 },
			wantErr:   true,
			errSubstr: []string{"COLLECT_TIMEOUT"},
		},
		{
			name:      "collect timeout exceeds cycle interval",
			mutate:    func(c *Config) { c.CollectTimeout = 20 * time.Minute },
			wantErr:   true,
			errSubstr: []string{"COLLECT_TIMEOUT"},
		},
		{
			name: "no collectors configured",
			mutate: func(c *Config) {
				c.SocialEndpoint, c.SocialQuery = "", ""
				c.CityFeedEndpoint, c.NewsFeedURL = "", ""
			},
			wantErr:   true,
			errSubstr: []string{"at least one collector"},
		},
		{
			name:      "social endpoint without query is not a collector",
			mutate:    func(c *Config) { c.SocialQuery = "" },
			wantErr:   true,
			errSubstr: []string{"at least one collector"},
		},
		{
			name:      "missing claude api key",
			mutate:    func(c *Config) { c.ClaudeAPIKey = "" },
			wantErr:   true,
			errSubstr: []string{"CLAUDE_API_KEY"},
		},
		{
			name:      "missing claude model",
			mutate:    func(c *Config) { c.ClaudeModel = "" },
			wantErr:   true,
			errSubstr: []string{"CLAUDE_MODEL"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := validBase()
			tt.mutate(&c)

			err := c.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, sub := range tt.errSubstr {
				if !strings.Contains(err.Error(), sub) {
					t.Errorf("error %q missing substring %q", err, sub)
				}
			}
		})
	}
}

func TestValidate_JoinsMultipleErrors(t *testing.T) {
	t.Parallel()

	c := validBase()
	c.DrainSeconds = 0
	c.APIPort = 0
	c.ClaudeAPIKey = ""

	err := c.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, sub := range []string{"DRAIN_SECONDS", "HTTP_PORT", "CLAUDE_API_KEY"} {
		if !strings.Contains(err.Error(), sub) {
			t.Errorf("error %q missing %q", err, sub)
		}
	}
}
