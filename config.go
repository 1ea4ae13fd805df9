package scantree

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v2"
)

// Config controls tree registration, caching, and scanning behavior. The
// zero value is not usable; start from DefaultConfig or LoadConfig.
type Config struct {
	// CacheBaseDir is where per-tree scan caches and the registration lock
	// file live. Defaults to <user cache dir>/scantree.
	CacheBaseDir string `yaml:"cache_base_dir"`

	// LockTimeoutSeconds bounds how long tree registration waits for the
	// cross-process lock before failing with ErrLockTimeout.
	LockTimeoutSeconds int `yaml:"lock_timeout_seconds"`

	// MinFreeGB is the minimum free space, in gibibytes, required on the
	// cache filesystem before a cache directory is created. Zero disables
	// the check.
	MinFreeGB int `yaml:"min_free_gb"`

	// Ignore lists names and glob patterns skipped during inventory, on
	// top of the built-in defaults.
	Ignore []string `yaml:"ignore"`

	// Workers is the parallelism used when scanning file contents.
	Workers int `yaml:"workers"`
}

// DefaultConfig returns the runtime defaults.
func DefaultConfig() Config {
	return Config{
		CacheBaseDir:       defaultCacheBaseDir(),
		LockTimeoutSeconds: 10,
		MinFreeGB:          1,
		Workers:            runtime.NumCPU(),
	}
}

// LoadConfig reads a YAML config file and overlays it on the defaults, so
// a partial file only overrides the keys it names.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("load config: parse %s: %w", path, err)
	}
	return cfg, nil
}

func defaultCacheBaseDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "scantree")
}

func (c Config) lockTimeout() time.Duration {
	return time.Duration(c.LockTimeoutSeconds) * time.Second
}
