package claude

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os/exec"
	"strings"
	"time"

	"github.com/agentwrap/claudepipe/internal/procattr"
	"github.com/agentwrap/claudepipe/protocol"
)

// run is a single CLI invocation in flight: the process, its stderr capture,
// and the stream parser consuming its stdout.
type run struct {
	cmd     *exec.Cmd
	stdout  io.ReadCloser
	stderr  bytes.Buffer
	parser  *protocol.StreamParser
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
}

// startRun spawns the CLI for one prompt. The caller must drain the run via
// consume, which also releases the timeout context.
func (c *Client) startRun(ctx context.Context, prompt string) (*run, error) {
	runCtx := ctx
	cancel := context.CancelFunc(func() {})
	if c.cfg.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
	}

	r := &run{ctx: runCtx, cancel: cancel, timeout: c.cfg.Timeout}

	parserOpts := []protocol.StreamOption{protocol.WithStreamLogger(c.logger)}
	if c.cfg.RawLines {
		parserOpts = append(parserOpts, protocol.WithRawLines())
	}
	r.parser = protocol.NewStreamParser(parserOpts...)

	cmd := exec.CommandContext(runCtx, c.cfg.CLIPath, BuildArgs(c.cfg, prompt)...)
	cmd.Dir = c.cfg.WorkDir
	cmd.Stderr = &r.stderr
	procattr.Set(cmd)
	cmd.Cancel = func() error {
		// Kill the whole process group so tool subprocesses die too.
		return procattr.KillGroup(cmd.Process)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	r.stdout = stdout
	r.cmd = cmd

	if err := cmd.Start(); err != nil {
		cancel()
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return nil, &CLINotFoundError{Path: c.cfg.CLIPath, Cause: err}
		}
		return nil, fmt.Errorf("start claude CLI: %w", err)
	}

	return r, nil
}

// consume drains stdout through the parser, emitting each record as it
// completes, then waits for the process and classifies the outcome.
func (r *run) consume(emit func(protocol.Message)) (protocol.Response, error) {
	defer r.cancel()

	buf := make([]byte, 4096)
	for {
		n, err := r.stdout.Read(buf)
		if n > 0 {
			for _, msg := range r.parser.Feed(buf[:n]) {
				if emit != nil {
					emit(msg)
				}
			}
		}
		if err != nil {
			// EOF, or the pipe closed because the process was killed.
			break
		}
	}

	for _, msg := range r.parser.Flush() {
		if emit != nil {
			emit(msg)
		}
	}

	waitErr := r.cmd.Wait()

	switch {
	case errors.Is(r.ctx.Err(), context.DeadlineExceeded):
		return protocol.Response{}, fmt.Errorf("%w after %s", ErrTimeout, r.timeout)
	case errors.Is(r.ctx.Err(), context.Canceled):
		return protocol.Response{}, r.ctx.Err()
	case waitErr != nil:
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return protocol.Response{}, &ProcessError{
			Cause:    waitErr,
			ExitCode: exitCode,
			Stderr:   strings.TrimSpace(r.stderr.String()),
		}
	}

	return r.parser.Response(), nil
}
