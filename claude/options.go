// Package claude invokes the Claude CLI as a subprocess and exposes its
// stream-json output as typed records via the protocol package.
package claude

import (
	"log/slog"
	"time"
)

// RetryConfig controls retry behavior for failed executions.
type RetryConfig struct {
	// MaxRetries is the number of attempts after the first (default 3).
	MaxRetries int
	// InitialDelay is the first backoff delay (default 1s).
	InitialDelay time.Duration
	// MaxDelay caps the exponential backoff (default 60s).
	MaxDelay time.Duration
	// Multiplier is the backoff growth factor (default 2.0).
	Multiplier float64
	// RetryOn overrides the retryability check (default IsRetryable).
	RetryOn func(error) bool
}

// RateLimitConfig controls client-side request throttling.
type RateLimitConfig struct {
	// PerMinute is the sustained requests-per-minute limit (default 60).
	PerMinute int
	// PerHour is the hourly request cap (default 1000).
	PerHour int
	// Burst allows short bursts above the per-minute rate (default 10).
	Burst int
	// Enabled toggles rate limiting (default true).
	Enabled bool
}

// Config holds client configuration. Zero values fall back to the defaults
// documented on each field; construct via NewClient with Options.
type Config struct {
	// CLIPath is the Claude CLI binary (uses "claude" in PATH if empty).
	CLIPath string
	// WorkDir is the subprocess working directory.
	WorkDir string
	// Model name or alias ("sonnet", "opus", or a full model name).
	Model string
	// FallbackModel is used automatically when the primary is overloaded.
	FallbackModel string
	// SystemPrompt is appended to the CLI's system prompt.
	SystemPrompt string
	// AllowedTools restricts tool use (e.g. "Bash(git:*)", "Edit").
	AllowedTools []string
	// DisallowedTools blocks specific tool patterns.
	DisallowedTools []string
	// AddDirs grants tool access to additional directories.
	AddDirs []string
	// ContinueLast continues the most recent conversation (-c).
	ContinueLast bool
	// ResumeSessionID resumes a specific conversation (-r).
	ResumeSessionID string
	// InputFormat selects the CLI input format ("text" or "stream-json").
	InputFormat string
	// Debug enables CLI debug output.
	Debug bool
	// CustomFlags are extra CLI flags, filtered by the allow-list.
	CustomFlags map[string]string
	// Timeout bounds a single execution (default 5m).
	Timeout time.Duration
	// RawLines makes Stream yield undecoded protocol lines.
	RawLines bool
	// MaxHistory bounds the session's retained turn count (default 100).
	MaxHistory int
	// SessionPath enables session persistence to this file after each run.
	SessionPath string

	Retry     RetryConfig
	RateLimit RateLimitConfig
	Logger    *slog.Logger
}

// Option is a functional option for configuring a Client.
type Option func(*Config)

// WithModel sets the model to use.
func WithModel(model string) Option {
	return func(c *Config) {
		c.Model = model
	}
}

// WithFallbackModel sets the automatic fallback model.
func WithFallbackModel(model string) Option {
	return func(c *Config) {
		c.FallbackModel = model
	}
}

// WithCLIPath sets a custom CLI binary path.
func WithCLIPath(path string) Option {
	return func(c *Config) {
		c.CLIPath = path
	}
}

// WithWorkDir sets the subprocess working directory.
func WithWorkDir(dir string) Option {
	return func(c *Config) {
		c.WorkDir = dir
	}
}

// WithSystemPrompt appends a system prompt to all requests.
func WithSystemPrompt(prompt string) Option {
	return func(c *Config) {
		c.SystemPrompt = prompt
	}
}

// WithAllowedTools restricts which tools the CLI may use.
func WithAllowedTools(tools ...string) Option {
	return func(c *Config) {
		c.AllowedTools = tools
	}
}

// WithDisallowedTools blocks specific tool patterns.
func WithDisallowedTools(tools ...string) Option {
	return func(c *Config) {
		c.DisallowedTools = tools
	}
}

// WithAddDirs grants tool access to additional directories.
func WithAddDirs(dirs ...string) Option {
	return func(c *Config) {
		c.AddDirs = dirs
	}
}

// WithContinue continues the most recent conversation.
func WithContinue() Option {
	return func(c *Config) {
		c.ContinueLast = true
		c.ResumeSessionID = ""
	}
}

// WithResume resumes a specific conversation by session id.
func WithResume(sessionID string) Option {
	return func(c *Config) {
		c.ContinueLast = false
		c.ResumeSessionID = sessionID
	}
}

// WithInputFormat sets the CLI input format.
func WithInputFormat(format string) Option {
	return func(c *Config) {
		c.InputFormat = format
	}
}

// WithDebug enables CLI debug output.
func WithDebug() Option {
	return func(c *Config) {
		c.Debug = true
	}
}

// WithCustomFlag adds an extra CLI flag. Flags outside the allow-list are
// silently dropped during argument construction.
func WithCustomFlag(flag, value string) Option {
	return func(c *Config) {
		if c.CustomFlags == nil {
			c.CustomFlags = make(map[string]string)
		}
		c.CustomFlags[flag] = value
	}
}

// WithTimeout bounds a single execution.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithRawLines makes Stream yield undecoded protocol lines.
func WithRawLines() Option {
	return func(c *Config) {
		c.RawLines = true
	}
}

// WithRetry overrides the retry configuration.
func WithRetry(retry RetryConfig) Option {
	return func(c *Config) {
		c.Retry = retry
	}
}

// WithRateLimit overrides the rate limit configuration.
func WithRateLimit(rl RateLimitConfig) Option {
	return func(c *Config) {
		c.RateLimit = rl
	}
}

// WithoutRateLimit disables client-side throttling.
func WithoutRateLimit() Option {
	return func(c *Config) {
		c.RateLimit.Enabled = false
	}
}

// WithLogger sets the logger for client diagnostics and decode warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithMaxHistory bounds the session's retained turn count.
func WithMaxHistory(n int) Option {
	return func(c *Config) {
		c.MaxHistory = n
	}
}

// WithSessionFile enables session persistence to the given path.
func WithSessionFile(path string) Option {
	return func(c *Config) {
		c.SessionPath = path
	}
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		CLIPath:     "claude",
		InputFormat: "text",
		Timeout:     5 * time.Minute,
		MaxHistory:  100,
		Retry: RetryConfig{
			MaxRetries:   3,
			InitialDelay: time.Second,
			MaxDelay:     60 * time.Second,
			Multiplier:   2.0,
		},
		RateLimit: RateLimitConfig{
			PerMinute: 60,
			PerHour:   1000,
			Burst:     10,
			Enabled:   true,
		},
		Logger: slog.Default(),
	}
}
