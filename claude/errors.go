package claude

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	ErrTimeout       = errors.New("claude command timed out")
	ErrRateLimited   = errors.New("rate limit exceeded")
	ErrStreamClosed  = errors.New("stream is closed")
	ErrNoSessionFile = errors.New("no session file configured")
)

// ProcessError represents a CLI process failure.
type ProcessError struct {
	Cause    error
	Stderr   string
	ExitCode int
}

func (e *ProcessError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("claude command failed (exit code %d): %s", e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("claude command failed (exit code %d)", e.ExitCode)
}

func (e *ProcessError) Unwrap() error {
	return e.Cause
}

// CLINotFoundError indicates the Claude CLI binary was not found.
type CLINotFoundError struct {
	Path  string
	Cause error
}

func (e *CLINotFoundError) Error() string {
	return fmt.Sprintf("CLI binary not found at %q: %v", e.Path, e.Cause)
}

func (e *CLINotFoundError) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether an execution error is worth retrying.
// Only timeouts are retryable by default; process failures and a missing
// binary will not improve on a second attempt.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTimeout)
}
