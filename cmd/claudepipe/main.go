// Command claudepipe runs prompts through the Claude CLI and renders its
// stream-json output as it arrives.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentwrap/claudepipe/claude"
	"github.com/agentwrap/claudepipe/internal/config"
	"github.com/agentwrap/claudepipe/render"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	logLevel   string
	verbose    bool
	noColor    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "claudepipe",
		Short:         "Run Claude CLI prompts and parse the stream-json output",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ~/.config/claudepipe/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "show tool calls as they run")
	cmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	cmd.AddCommand(newAskCmd(opts))
	cmd.AddCommand(newSessionCmd(opts))

	return cmd
}

type askOptions struct {
	model        string
	fallback     string
	systemPrompt string
	timeout      time.Duration
	continueLast bool
	resume       string
	sessionFile  string
	rawJSON      bool
	addDirs      []string
}

func newAskCmd(root *rootOptions) *cobra.Command {
	opts := &askOptions{}

	cmd := &cobra.Command{
		Use:   "ask [flags] <prompt>",
		Short: "Send a prompt and stream the response",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, root, opts, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVarP(&opts.model, "model", "m", "", "model name or alias")
	cmd.Flags().StringVar(&opts.fallback, "fallback-model", "", "model to fall back to when overloaded")
	cmd.Flags().StringVar(&opts.systemPrompt, "system-prompt", "", "append to the system prompt")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "execution timeout (0 uses the configured default)")
	cmd.Flags().BoolVarP(&opts.continueLast, "continue", "c", false, "continue the most recent conversation")
	cmd.Flags().StringVarP(&opts.resume, "resume", "r", "", "resume a conversation by session id")
	cmd.Flags().StringVar(&opts.sessionFile, "session-file", "", "persist session state to this file")
	cmd.Flags().BoolVar(&opts.rawJSON, "json", false, "emit raw stream-json lines instead of rendering")
	cmd.Flags().StringArrayVar(&opts.addDirs, "add-dir", nil, "grant tool access to an additional directory")

	return cmd
}

func runAsk(cmd *cobra.Command, root *rootOptions, opts *askOptions, prompt string) error {
	cfg, err := config.Load(root.configPath)
	if err != nil {
		return err
	}
	logger := newLogger(root, cfg)

	client := claude.NewClient(buildClientOptions(cfg, root, opts, logger)...)
	r := render.NewRenderer(cmd.OutOrStdout(), root.verbose, root.noColor)

	stream, err := client.Stream(cmd.Context(), prompt)
	if err != nil {
		return err
	}
	for msg := range stream.Events() {
		r.Render(msg)
	}

	resp, err := stream.Wait()
	if err != nil {
		r.Error(err, "execute")
		return err
	}
	if !opts.rawJSON && !resp.Successful() {
		if resp.Result != nil {
			return fmt.Errorf("run did not complete: %s", resp.Result.Subtype)
		}
		return fmt.Errorf("run ended without a result record")
	}
	return nil
}

func newSessionCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session <file>",
		Short: "Show a saved session's totals and history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := claude.LoadSession(args[0], 0)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "session %s\n", sess.ID)
			fmt.Fprintf(out, "  created  %s\n", sess.CreatedAt.Format(time.RFC3339))
			fmt.Fprintf(out, "  activity %s\n", sess.LastActivity.Format(time.RFC3339))
			fmt.Fprintf(out, "  turns    %d\n", sess.Turns())
			fmt.Fprintf(out, "  tokens   %d\n", sess.TotalTokens)
			fmt.Fprintf(out, "  cost     $%.4f\n", sess.TotalCostUSD)
			for _, h := range sess.History {
				fmt.Fprintf(out, "  %s  %s\n", h.Time.Format("2006-01-02 15:04"), firstLine(h.Prompt))
			}
			return nil
		},
	}
	return cmd
}

func buildClientOptions(cfg *config.Config, root *rootOptions, opts *askOptions, logger *slog.Logger) []claude.Option {
	clientOpts := []claude.Option{
		claude.WithCLIPath(cfg.CLIPath),
		claude.WithLogger(logger),
		claude.WithMaxHistory(cfg.MaxHistory),
		claude.WithRateLimit(claude.RateLimitConfig{
			PerMinute: cfg.RequestsPerMinute,
			PerHour:   cfg.RequestsPerHour,
			Burst:     10,
			Enabled:   true,
		}),
	}

	model := cfg.Model
	if opts.model != "" {
		model = opts.model
	}
	if model != "" {
		clientOpts = append(clientOpts, claude.WithModel(model))
	}

	fallback := cfg.FallbackModel
	if opts.fallback != "" {
		fallback = opts.fallback
	}
	if fallback != "" {
		clientOpts = append(clientOpts, claude.WithFallbackModel(fallback))
	}

	system := cfg.SystemPrompt
	if opts.systemPrompt != "" {
		system = opts.systemPrompt
	}
	if system != "" {
		clientOpts = append(clientOpts, claude.WithSystemPrompt(system))
	}

	timeout := time.Duration(cfg.Timeout)
	if opts.timeout > 0 {
		timeout = opts.timeout
	}
	if timeout > 0 {
		clientOpts = append(clientOpts, claude.WithTimeout(timeout))
	}

	if len(cfg.AllowedTools) > 0 {
		clientOpts = append(clientOpts, claude.WithAllowedTools(cfg.AllowedTools...))
	}
	if len(cfg.DisallowedTools) > 0 {
		clientOpts = append(clientOpts, claude.WithDisallowedTools(cfg.DisallowedTools...))
	}
	if len(opts.addDirs) > 0 {
		clientOpts = append(clientOpts, claude.WithAddDirs(opts.addDirs...))
	}

	switch {
	case opts.continueLast:
		clientOpts = append(clientOpts, claude.WithContinue())
	case opts.resume != "":
		clientOpts = append(clientOpts, claude.WithResume(opts.resume))
	}

	sessionFile := cfg.SessionPath
	if opts.sessionFile != "" {
		sessionFile = opts.sessionFile
	}
	if sessionFile != "" {
		clientOpts = append(clientOpts, claude.WithSessionFile(sessionFile))
	}

	if opts.rawJSON {
		clientOpts = append(clientOpts, claude.WithRawLines())
	}

	return clientOpts
}

func newLogger(root *rootOptions, cfg *config.Config) *slog.Logger {
	level := cfg.LogLevel
	if root.logLevel != "" {
		level = root.logLevel
	}

	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelWarn
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	if len(line) > 70 {
		return line[:67] + "..."
	}
	return line
}
