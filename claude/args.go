package claude

import (
	"sort"
	"strings"
)

// allowedCustomFlags is the allow-list for WithCustomFlag. Flags handled by
// dedicated Config fields are filtered out even when allow-listed, so they
// cannot be passed twice.
var allowedCustomFlags = map[string]bool{
	"--temperature":          true,
	"--max-tokens":           true,
	"--stop-sequence":        true,
	"-d":                     true,
	"--debug":                true,
	"--input-format":         true,
	"--allowedTools":         true,
	"--disallowedTools":      true,
	"-c":                     true,
	"--continue":             true,
	"-r":                     true,
	"--resume":               true,
	"--model":                true,
	"--fallback-model":       true,
	"--add-dir":              true,
	"--append-system-prompt": true,
}

// handledFlags are covered by dedicated Config fields.
var handledFlags = map[string]bool{
	"-d":                     true,
	"--debug":                true,
	"--input-format":         true,
	"--model":                true,
	"--fallback-model":       true,
	"--allowedTools":         true,
	"--disallowedTools":      true,
	"-c":                     true,
	"--continue":             true,
	"-r":                     true,
	"--resume":               true,
	"--add-dir":              true,
	"--append-system-prompt": true,
}

// BuildArgs constructs the full CLI argument list for a prompt. The prompt
// is always the final argument.
func BuildArgs(cfg Config, prompt string) []string {
	args := []string{
		"-p", "--dangerously-skip-permissions",
		"--output-format", "stream-json", "--verbose",
	}

	if cfg.Debug {
		args = append(args, "--debug")
	}

	if cfg.InputFormat != "" && cfg.InputFormat != "text" {
		args = append(args, "--input-format", cfg.InputFormat)
	}

	if cfg.Model != "" {
		args = append(args, "--model", cfg.Model)
	}
	if cfg.FallbackModel != "" {
		args = append(args, "--fallback-model", cfg.FallbackModel)
	}

	// The CLI expects tool patterns joined by spaces in a single argument.
	if len(cfg.AllowedTools) > 0 {
		args = append(args, "--allowedTools", strings.Join(cfg.AllowedTools, " "))
	}
	if len(cfg.DisallowedTools) > 0 {
		args = append(args, "--disallowedTools", strings.Join(cfg.DisallowedTools, " "))
	}

	if cfg.ContinueLast {
		args = append(args, "--continue")
	} else if cfg.ResumeSessionID != "" {
		args = append(args, "--resume", cfg.ResumeSessionID)
	}

	if cfg.SystemPrompt != "" {
		args = append(args, "--append-system-prompt", cfg.SystemPrompt)
	}

	if len(cfg.AddDirs) > 0 {
		args = append(args, "--add-dir")
		args = append(args, cfg.AddDirs...)
	}

	for _, flag := range sortedFlags(cfg.CustomFlags) {
		if !allowedCustomFlags[flag] || handledFlags[flag] {
			continue
		}
		if value := cfg.CustomFlags[flag]; value != "" {
			args = append(args, flag, value)
		} else {
			args = append(args, flag)
		}
	}

	return append(args, prompt)
}

// sortedFlags returns map keys in stable order.
func sortedFlags(flags map[string]string) []string {
	keys := make([]string, 0, len(flags))
	for k := range flags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
