package cfg

import (
	"errors"
	"flag"
	"fmt"
	"time"
)

// Config adds app-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	CycleInterval         time.Duration
	CollectTimeout        time.Duration
	SocialEndpoint        string
	SocialQuery           string
	CityFeedEndpoint      string
	NewsFeedURL           string
	ClaudeAPIKey          string
	ClaudeModel           string
	DatabaseURL           string
	SlackWebhookURL       string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.DurationVar(&c.CycleInterval, "cycle-interval", 15*time.Minute, "interval between pipeline cycles")
	fs.DurationVar(&c.CollectTimeout, "collect-timeout", 60*time.Second, "per-collector timeout within a cycle")
	fs.StringVar(&c.SocialEndpoint, "social-endpoint", "https://public.api.bsky.app", "Bluesky API base URL for the social collector (empty = disabled)")
	fs.StringVar(&c.SocialQuery, "social-query", "", "search query for the social collector")
	fs.StringVar(&c.CityFeedEndpoint, "cityfeed-endpoint", "", "open311-style service request endpoint (empty = disabled)")
	fs.StringVar(&c.NewsFeedURL, "news-feed-url", "", "RSS feed URL for the news collector (empty = disabled)")
	fs.StringVar(&c.ClaudeAPIKey, "claude-api-key", "", "API key for accessing the Claude LLM provider")
	fs.StringVar(&c.ClaudeModel, "claude-model", "claude-sonnet-4-20250514", "Claude model to use")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory store)")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for urgent alert notifications")
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

	if c.CycleInterval < time.Minute {
		errs = append(errs, fmt.Errorf("invalid CYCLE_INTERVAL %s (must be at least 1m)", c.CycleInterval))
	}
	if c.CollectTimeout <= 0 || c.CollectTimeout >= c.CycleInterval {
		errs = append(errs, fmt.Errorf("invalid COLLECT_TIMEOUT %s (must be positive and shorter than the cycle interval)", c.CollectTimeout))
	}

	// At least one signal source must be configured or every cycle is empty
	social := c.SocialEndpoint != "" && c.SocialQuery != ""
	if !social && c.CityFeedEndpoint == "" && c.NewsFeedURL == "" {
		errs = append(errs, errors.New("at least one collector must be configured (SOCIAL_ENDPOINT+SOCIAL_QUERY, CITYFEED_ENDPOINT, or NEWS_FEED_URL)"))
	}

	// Claude API key is required for LLM access
	if c.ClaudeAPIKey == "" {
		errs = append(errs, errors.New("CLAUDE_API_KEY is required"))
	}

	// Claude model is required for LLM access
	if c.ClaudeModel == "" {
		errs = append(errs, errors.New("CLAUDE_MODEL is required"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
