package claude

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildArgs_Defaults(t *testing.T) {
	args := BuildArgs(defaultConfig(), "hello")

	require.Equal(t, []string{
		"-p", "--dangerously-skip-permissions",
		"--output-format", "stream-json", "--verbose",
		"hello",
	}, args)
}

func TestBuildArgs_AllFields(t *testing.T) {
	cfg := defaultConfig()
	cfg.Debug = true
	cfg.InputFormat = "stream-json"
	cfg.Model = "sonnet"
	cfg.FallbackModel = "haiku"
	cfg.AllowedTools = []string{"Bash(git:*)", "Edit"}
	cfg.DisallowedTools = []string{"WebSearch"}
	cfg.SystemPrompt = "be brief"
	cfg.AddDirs = []string{"/a", "/b"}
	cfg.ResumeSessionID = "sess-42"

	args := BuildArgs(cfg, "do it")

	assert.Contains(t, args, "--debug")
	assert.Equal(t, "do it", args[len(args)-1], "prompt must come last")

	pairs := map[string]string{}
	for i := 0; i < len(args)-1; i++ {
		pairs[args[i]] = args[i+1]
	}
	assert.Equal(t, "stream-json", pairs["--input-format"])
	assert.Equal(t, "sonnet", pairs["--model"])
	assert.Equal(t, "haiku", pairs["--fallback-model"])
	assert.Equal(t, "Bash(git:*) Edit", pairs["--allowedTools"])
	assert.Equal(t, "WebSearch", pairs["--disallowedTools"])
	assert.Equal(t, "sess-42", pairs["--resume"])
	assert.Equal(t, "be brief", pairs["--append-system-prompt"])
	assert.Equal(t, "/a", pairs["--add-dir"])
}

func TestBuildArgs_ContinueWinsOverResume(t *testing.T) {
	cfg := defaultConfig()
	cfg.ContinueLast = true
	cfg.ResumeSessionID = "sess-42"

	args := BuildArgs(cfg, "p")

	assert.Contains(t, args, "--continue")
	assert.NotContains(t, args, "--resume")
}

func TestBuildArgs_TextInputFormatOmitted(t *testing.T) {
	args := BuildArgs(defaultConfig(), "p")
	assert.NotContains(t, args, "--input-format")
}

func TestBuildArgs_CustomFlags(t *testing.T) {
	cfg := defaultConfig()
	cfg.CustomFlags = map[string]string{
		"--temperature": "0.2",  // allowed, with value
		"--max-tokens":  "",     // allowed, bare
		"--model":       "evil", // handled elsewhere, dropped
		"--rm-rf":       "yes",  // not allow-listed, dropped
	}

	args := BuildArgs(cfg, "p")

	assert.Contains(t, args, "--temperature")
	assert.Contains(t, args, "0.2")
	assert.Contains(t, args, "--max-tokens")
	assert.NotContains(t, args, "--rm-rf")
	assert.NotContains(t, args, "evil")
}
