// Package render provides ANSI-colored terminal rendering for decoded
// Claude CLI streams.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/agentwrap/claudepipe/protocol"
)

// Renderer prints decoded stream records to a terminal.
type Renderer struct {
	out     io.Writer
	mu      sync.Mutex
	verbose bool

	meta     *color.Color
	thinking *color.Color
	tool     *color.Color
	pass     *color.Color
	fail     *color.Color
}

// NewRenderer creates a renderer writing to out. If verbose is true, tool
// invocations and results are shown as they happen. If noColor is true, or
// out is not a terminal, ANSI codes are suppressed.
func NewRenderer(out io.Writer, verbose, noColor bool) *Renderer {
	if !noColor {
		noColor = !isTerminal(out)
	}

	r := &Renderer{
		out:      out,
		verbose:  verbose,
		meta:     color.New(color.FgHiBlack),
		thinking: color.New(color.Faint, color.Italic),
		tool:     color.New(color.FgCyan),
		pass:     color.New(color.FgGreen),
		fail:     color.New(color.FgRed),
	}
	for _, c := range []*color.Color{r.meta, r.thinking, r.tool, r.pass, r.fail} {
		if noColor {
			c.DisableColor()
		} else {
			c.EnableColor()
		}
	}
	return r
}

// isTerminal checks if the writer is a terminal.
func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		stat, err := f.Stat()
		if err != nil {
			return false
		}
		return (stat.Mode() & os.ModeCharDevice) != 0
	}
	return false
}

// Render dispatches one decoded record to the matching output method.
func (r *Renderer) Render(msg protocol.Message) {
	switch m := msg.(type) {
	case protocol.RawLine:
		r.mu.Lock()
		fmt.Fprintln(r.out, string(m))
		r.mu.Unlock()
	case protocol.SystemInit:
		r.SessionInfo(m.SessionID, m.Model)
	case protocol.AssistantMessage:
		for _, block := range m.Message.Content {
			switch b := block.(type) {
			case protocol.TextBlock:
				r.Text(b.Text)
			case protocol.ThinkingBlock:
				r.Thinking(b.Thinking)
			case protocol.ToolUseBlock:
				r.ToolUse(b)
			}
		}
	case protocol.UserMessage:
		for _, res := range m.Message.Content {
			r.ToolResult(res)
		}
	case protocol.ResultMessage:
		r.Summary(m)
	}
}

// SessionInfo prints session metadata (session ID, model).
func (r *Renderer) SessionInfo(sessionID, model string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	parts := []string{}
	if sessionID != "" {
		parts = append(parts, "session="+sessionID)
	}
	if model != "" {
		parts = append(parts, "model="+model)
	}
	if len(parts) > 0 {
		r.meta.Fprintf(r.out, "[%s]\n", strings.Join(parts, " "))
	}
}

// Text prints an assistant text block.
func (r *Renderer) Text(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintln(r.out, text)
}

// Thinking prints reasoning output in dim italic style.
func (r *Renderer) Thinking(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.thinking.Fprintln(r.out, text)
}

// ToolUse prints a tool invocation. Hidden unless verbose.
func (r *Renderer) ToolUse(b protocol.ToolUseBlock) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.verbose {
		return
	}
	r.tool.Fprintf(r.out, "[%s]", b.Name)
	if summary := summarizeInput(b.Input); summary != "" {
		fmt.Fprintf(r.out, " %s", summary)
	}
	fmt.Fprintln(r.out)
}

// ToolResult prints the outcome of a tool call. Successes are hidden unless
// verbose; failures always show the first line of output.
func (r *Renderer) ToolResult(b protocol.ToolResultBlock) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b.IsError {
		line, _, _ := strings.Cut(strings.TrimSpace(b.Content), "\n")
		r.fail.Fprintf(r.out, "✗ %s\n", truncate(line, 80))
		return
	}
	if r.verbose {
		r.pass.Fprintln(r.out, "✓")
	}
}

// Summary prints the terminal result record: status, duration, turn count,
// cost and token usage.
func (r *Renderer) Summary(m protocol.ResultMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.meta.Fprintln(r.out, "───────────────────────────────────────────────────────")

	style, status := r.pass, "✓"
	if m.IsError || m.Subtype != protocol.ResultSubtypeSuccess {
		style, status = r.fail, "✗ "+m.Subtype
	}
	style.Fprintf(r.out, "%s (%.1fs, %d turns, $%.4f, %d input / %d output tokens)\n",
		status, float64(m.DurationMs)/1000, m.NumTurns, m.TotalCostUSD,
		m.Usage.InputTokens, m.Usage.OutputTokens)
}

// Error prints an error message.
func (r *Renderer) Error(err error, context string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.fail.Fprintf(r.out, "\n[Error: %s] %v\n", context, err)
}

// summarizeInput picks the most recognizable field of a tool input for a
// one-line display.
func summarizeInput(input map[string]any) string {
	for _, key := range []string{"command", "file_path", "pattern", "url", "prompt"} {
		if v, ok := input[key].(string); ok {
			return truncate(v, 60)
		}
	}
	if len(input) == 0 {
		return ""
	}
	data, err := json.Marshal(input)
	if err != nil {
		return ""
	}
	return truncate(string(data), 60)
}

// truncate truncates a string to the given max length.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
