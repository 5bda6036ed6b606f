package claude

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/agentwrap/claudepipe/protocol"
)

// Client runs Claude CLI commands with retry, client-side rate limiting and
// session bookkeeping. Safe for concurrent use; executions run independently
// and only session updates are serialized.
type Client struct {
	cfg    Config
	logger *slog.Logger
	minute *rate.Limiter
	hour   *rate.Limiter

	mu      sync.Mutex
	session *Session
}

// NewClient builds a Client from options applied over defaultConfig. If a
// session file is configured and exists, the previous session is resumed.
func NewClient(opts ...Option) *Client {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Client{
		cfg:    cfg,
		logger: cfg.Logger,
		minute: rate.NewLimiter(rate.Limit(float64(cfg.RateLimit.PerMinute)/60.0), cfg.RateLimit.Burst),
		hour:   rate.NewLimiter(rate.Limit(float64(cfg.RateLimit.PerHour)/3600.0), cfg.RateLimit.PerHour),
	}

	if cfg.SessionPath != "" {
		if sess, err := LoadSession(cfg.SessionPath, cfg.MaxHistory); err == nil {
			c.session = sess
		} else if !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("could not load session, starting fresh",
				"path", cfg.SessionPath, "error", err)
		}
	}
	if c.session == nil {
		c.session = NewSession(cfg.MaxHistory)
	}

	return c
}

// Session returns the client's session state.
func (c *Client) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Execute runs one prompt to completion and returns the parsed response.
// Retryable failures are retried with exponential backoff per Config.Retry.
func (c *Client) Execute(ctx context.Context, prompt string) (protocol.Response, error) {
	resp, _, err := c.execute(ctx, prompt)
	return resp, err
}

// Metrics describes one Execute call end to end, including retries.
type Metrics struct {
	Attempts int
	Duration time.Duration
	CostUSD  float64
	Tokens   int
	NumTurns int
	Success  bool
}

// ExecuteWithMetrics is Execute plus timing and usage accounting. Metrics
// are returned even when the execution fails.
func (c *Client) ExecuteWithMetrics(ctx context.Context, prompt string) (protocol.Response, Metrics, error) {
	return c.execute(ctx, prompt)
}

func (c *Client) execute(ctx context.Context, prompt string) (protocol.Response, Metrics, error) {
	var m Metrics
	start := time.Now()

	if err := c.waitRate(ctx); err != nil {
		m.Duration = time.Since(start)
		return protocol.Response{}, m, err
	}

	retryOn := c.cfg.Retry.RetryOn
	if retryOn == nil {
		retryOn = IsRetryable
	}

	op := func() (protocol.Response, error) {
		m.Attempts++
		if m.Attempts > 1 {
			c.logger.Info("retrying claude command", "attempt", m.Attempts)
		}
		resp, err := c.runPrompt(ctx, prompt, nil)
		if err != nil && !retryOn(err) {
			return protocol.Response{}, backoff.Permanent(err)
		}
		return resp, err
	}

	resp, err := backoff.RetryWithData(op, c.newBackOff(ctx))
	m.Duration = time.Since(start)
	if err != nil {
		return protocol.Response{}, m, err
	}

	if resp.Result != nil {
		m.NumTurns = resp.Result.NumTurns
	}
	if cost, ok := resp.Cost(); ok {
		m.CostUSD = cost
	}
	if usage := resp.TokenUsage(); usage != nil {
		m.Tokens = usage.TotalTokens()
	}
	m.Success = resp.Successful()

	c.record(prompt, resp)
	return resp, m, nil
}

// Ask is the convenience form of Execute: it returns the concatenated
// assistant text.
func (c *Client) Ask(ctx context.Context, prompt string) (string, error) {
	resp, err := c.Execute(ctx, prompt)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// Stream is a live execution. Records arrive on Events as the CLI emits
// them; Wait blocks until the process exits and returns the aggregate.
type Stream struct {
	events chan protocol.Message
	done   chan struct{}
	resp   protocol.Response
	err    error
}

// Events yields records in arrival order. The channel closes when the
// stream ends; the caller must drain it or execution stalls.
func (s *Stream) Events() <-chan protocol.Message {
	return s.events
}

// Wait blocks until the stream finishes and returns the final response.
func (s *Stream) Wait() (protocol.Response, error) {
	<-s.done
	return s.resp, s.err
}

// Stream starts a prompt and returns before it completes. Streaming does
// not retry: a half-delivered conversation cannot be transparently rerun.
func (c *Client) Stream(ctx context.Context, prompt string) (*Stream, error) {
	if err := c.waitRate(ctx); err != nil {
		return nil, err
	}

	r, err := c.startRun(ctx, prompt)
	if err != nil {
		return nil, err
	}

	s := &Stream{
		events: make(chan protocol.Message, 16),
		done:   make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		defer close(s.events)

		resp, err := r.consume(func(msg protocol.Message) {
			select {
			case s.events <- msg:
			case <-ctx.Done():
			}
		})
		s.resp, s.err = resp, err
		if err == nil {
			c.record(prompt, resp)
		}
	}()

	return s, nil
}

// runPrompt is one attempt: spawn, drain, classify.
func (c *Client) runPrompt(ctx context.Context, prompt string, emit func(protocol.Message)) (protocol.Response, error) {
	r, err := c.startRun(ctx, prompt)
	if err != nil {
		return protocol.Response{}, err
	}
	return r.consume(emit)
}

// record folds a completed response into the session and persists it when a
// session file is configured.
func (c *Client) record(prompt string, resp protocol.Response) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.session.Record(prompt, resp)
	if c.cfg.SessionPath == "" {
		return
	}
	if err := c.session.Save(c.cfg.SessionPath); err != nil {
		c.logger.Warn("could not save session", "path", c.cfg.SessionPath, "error", err)
	}
}

// waitRate enforces the hourly cap and throttles to the per-minute rate.
// The hourly bucket never blocks: hitting the cap fails fast instead of
// stalling a request for most of an hour.
func (c *Client) waitRate(ctx context.Context) error {
	if !c.cfg.RateLimit.Enabled {
		return nil
	}
	if !c.hour.Allow() {
		return fmt.Errorf("%w: hourly cap of %d requests reached", ErrRateLimited, c.cfg.RateLimit.PerHour)
	}
	if err := c.minute.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}
	return nil
}

// RateLimitStatus is a point-in-time view of the client-side limiters.
type RateLimitStatus struct {
	Enabled      bool
	MinuteTokens float64
	HourTokens   float64
	PerMinute    int
	PerHour      int
}

// RateLimitStatus reports the current limiter state.
func (c *Client) RateLimitStatus() RateLimitStatus {
	return RateLimitStatus{
		Enabled:      c.cfg.RateLimit.Enabled,
		MinuteTokens: c.minute.Tokens(),
		HourTokens:   c.hour.Tokens(),
		PerMinute:    c.cfg.RateLimit.PerMinute,
		PerHour:      c.cfg.RateLimit.PerHour,
	}
}

// newBackOff builds the retry schedule from Config.Retry, bounded by ctx.
func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.cfg.Retry.InitialDelay
	eb.MaxInterval = c.cfg.Retry.MaxDelay
	eb.Multiplier = c.cfg.Retry.Multiplier
	eb.MaxElapsedTime = 0

	var b backoff.BackOff = eb
	if c.cfg.Retry.MaxRetries > 0 {
		b = backoff.WithMaxRetries(b, uint64(c.cfg.Retry.MaxRetries))
	}
	return backoff.WithContext(b, ctx)
}
