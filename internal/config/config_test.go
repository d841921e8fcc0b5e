package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Default.BaseURL, cfg.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.RecentInterval)
	assert.Equal(t, filepath.Join(home, ".clubctl", "token.json"), cfg.TokenPath)
	assert.DirExists(t, filepath.Join(home, ".clubctl"))
}

func TestLoadFileAndEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	chdir(t, t.TempDir())

	dir := filepath.Join(home, ".clubctl")
	require.NoError(t, os.MkdirAll(dir, 0755))
	yaml := "base_url: https://admin.example.org/api\npoll_interval: 1500ms\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("CLUBCTL_RECENT_INTERVAL", "10s")
	t.Setenv("CLUBCTL_TOKEN", "abc")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://admin.example.org/api", cfg.BaseURL)
	assert.Equal(t, 1500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 10*time.Second, cfg.RecentInterval)
	assert.Equal(t, "abc", cfg.Token)
}

func TestLoadDotEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	work := t.TempDir()
	chdir(t, work)
	t.Setenv("CLUBCTL_SERVER_PORT", "")
	require.NoError(t, os.Unsetenv("CLUBCTL_SERVER_PORT"))

	require.NoError(t, os.WriteFile(filepath.Join(work, ".env"), []byte("CLUBCTL_SERVER_PORT=9555\n"), 0644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9555, cfg.ServerPort)
}

func TestValidateRejectsZeroInterval(t *testing.T) {
	cfg := Default
	cfg.PollInterval = 0
	assert.Error(t, cfg.Validate())
}

// chdir switches the working directory for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
