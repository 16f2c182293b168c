package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfgpkg "github.com/copilot-notifier/copilot-notifier/internal/config"
)

// isolate points the user config at a temp dir and runs the test in a fresh
// working directory so no real config is read or written.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Chdir(t.TempDir())
	path, err := cfgpkg.UserConfigPath()
	require.NoError(t, err)
	return path
}

func run(t *testing.T, fn func(*cobra.Command, []string) error, args []string, flags ...string) (string, error) {
	t.Helper()
	cmd := &cobra.Command{Use: "test", RunE: fn}
	AddScopeFlags(cmd)
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func TestConfigSetAndGet(t *testing.T) {
	userPath := isolate(t)

	out, err := run(t, runConfigSet, []string{"minimum_suggestion_length", "25"})
	require.NoError(t, err)
	assert.Contains(t, out, "Set minimum_suggestion_length = 25 in user config")

	data, err := os.ReadFile(userPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "minimum_suggestion_length: 25")

	out, err = run(t, runConfigGet, []string{"minimum_suggestion_length"})
	require.NoError(t, err)
	assert.Equal(t, "minimum_suggestion_length: 25 (from user config)\n", out)

	out, err = run(t, runConfigGet, []string{"session_timeout_seconds"})
	require.NoError(t, err)
	assert.Equal(t, "session_timeout_seconds: 30 (default)\n", out)

	out, err = run(t, runConfigGet, []string{"minimum_suggestion_length"}, "--project")
	require.NoError(t, err)
	assert.Contains(t, out, "not set in project config")
}

func TestConfigGet_EnvironmentWins(t *testing.T) {
	isolate(t)
	t.Setenv("COPILOT_NOTIFIER_BRIDGE__ADDR", "127.0.0.1:9999")

	out, err := run(t, runConfigGet, []string{"bridge.addr"})
	require.NoError(t, err)
	assert.Equal(t, "bridge.addr: 127.0.0.1:9999 (from COPILOT_NOTIFIER_BRIDGE__ADDR)\n", out)
}

func TestConfigSet_Errors(t *testing.T) {
	isolate(t)

	tests := map[string]struct {
		args    []string
		flags   []string
		wantErr string
	}{
		"unknown key":           {args: []string{"use_sond", "true"}, wantErr: "unknown configuration key"},
		"bad bool":              {args: []string{"use_sound", "yes"}, wantErr: "invalid boolean"},
		"bad enum":              {args: []string{"notification_type", "loud"}, wantErr: "valid options"},
		"project without dir":   {args: []string{"use_sound", "false"}, flags: []string{"--project"}, wantErr: "not in a project directory"},
		"user and project both": {args: []string{"use_sound", "false"}, flags: []string{"--user", "--project"}, wantErr: "none of the others"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := run(t, runConfigSet, tt.args, tt.flags...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigToggle(t *testing.T) {
	userPath := isolate(t)

	out, err := run(t, runConfigToggle, []string{"use_sound"})
	require.NoError(t, err)
	assert.Contains(t, out, "Toggled use_sound: true -> false in user config")

	out, err = run(t, runConfigToggle, []string{"use_sound"})
	require.NoError(t, err)
	assert.Contains(t, out, "Toggled use_sound: false -> true")

	data, err := os.ReadFile(userPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "use_sound: true")

	_, err = run(t, runConfigToggle, []string{"bridge.addr"})
	assert.ErrorIs(t, err, cfgpkg.ErrNotBool)
}

func TestConfigToggle_ProjectScope(t *testing.T) {
	isolate(t)
	require.NoError(t, os.Mkdir(".copilot-notifier", 0o755))

	out, err := run(t, runConfigToggle, []string{"silent_mode"}, "--project")
	require.NoError(t, err)
	assert.Contains(t, out, "false -> true in project config")

	cfg, err := cfgpkg.Load(cfgpkg.DefaultPaths(), nil)
	require.NoError(t, err)
	assert.True(t, cfg.SilentMode)
}

func TestConfigKeys(t *testing.T) {
	out, err := run(t, runConfigKeys, nil)
	require.NoError(t, err)
	for _, key := range cfgpkg.SortedKeys() {
		assert.Contains(t, out, key)
	}
	assert.Contains(t, out, "enum (info, warning, error)")
}
