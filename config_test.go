package scantree

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.NotEmpty(t, cfg.CacheBaseDir)
	assert.Equal(t, 10, cfg.LockTimeoutSeconds)
	assert.Equal(t, 10*time.Second, cfg.lockTimeout())
	assert.Greater(t, cfg.Workers, 0)
}

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "scantree.yml")
	require.NoError(t, os.WriteFile(p, []byte(
		"cache_base_dir: /tmp/st-cache\nlock_timeout_seconds: 3\nignore:\n  - '*.bak'\n"), 0o644))

	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/st-cache", cfg.CacheBaseDir)
	assert.Equal(t, 3, cfg.LockTimeoutSeconds)
	assert.Equal(t, []string{"*.bak"}, cfg.Ignore)

	// Keys the file does not name keep their defaults.
	assert.Equal(t, DefaultConfig().MinFreeGB, cfg.MinFreeGB)
	assert.Equal(t, DefaultConfig().Workers, cfg.Workers)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yml"))
	require.Error(t, err)
}

func TestLoadConfigMalformed(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(p, []byte("cache_base_dir: [oops\n"), 0o644))

	_, err := LoadConfig(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}
