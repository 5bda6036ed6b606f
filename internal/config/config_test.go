package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.Error(t, err, "explicitly named missing file is an error")

	// The default path missing is not an error.
	t.Setenv("HOME", t.TempDir())
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "claude", cfg.CLIPath)
	assert.Equal(t, Duration(5*time.Minute), cfg.Timeout)
	assert.Equal(t, 100, cfg.MaxHistory)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
model: sonnet
timeout: 30s
allowed_tools:
  - Bash(git:*)
  - Edit
requests_per_minute: 10
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sonnet", cfg.Model)
	assert.Equal(t, Duration(30*time.Second), cfg.Timeout)
	assert.Equal(t, []string{"Bash(git:*)", "Edit"}, cfg.AllowedTools)
	assert.Equal(t, 10, cfg.RequestsPerMinute)
	assert.Equal(t, "claude", cfg.CLIPath, "unset keys keep defaults")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: sonnet\n"), 0o644))

	t.Setenv("CLAUDEPIPE_MODEL", "opus")
	t.Setenv("CLAUDEPIPE_TIMEOUT", "90s")
	t.Setenv("CLAUDEPIPE_ALLOWED_TOOLS", "Read,Grep")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "opus", cfg.Model)
	assert.Equal(t, Duration(90*time.Second), cfg.Timeout)
	assert.Equal(t, []string{"Read", "Grep"}, cfg.AllowedTools)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: [unclosed"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
