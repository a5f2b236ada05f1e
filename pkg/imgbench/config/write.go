package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const defaultConfigTemplate = `# imgbench configuration

# Directories searched for benchmark images, in order. With
# scan.fallback_only, later roots are only scanned while earlier
# roots produced no usable images.
search_roots:
  - assets
  - .

# Image suffixes to consider
formats: [png, jpg, jpeg, gif, bmp, tif, tiff, webp]

scan:
  max_depth: 0        # 0 scans only the root itself, at most 8
  max_files: 0        # paths examined per root, 0 = no limit
  fallback_only: true
  exclude:
    - .git
    - node_modules
    - .cache

budget:
  per_image: %s
  total: %s

# Force a tier instead of detecting one: auto, low, moderate, good, high, excellent
tier: auto

# Run the short synthetic calibration probe during detection
calibrate: true

# Per-tier overrides of the limit table. Limits must not shrink as the
# tier increases.
# limits:
#   low:
#     max_file_size: 2MB
#     max_megapixels: 4
#     max_candidates: 3

decode:
  texture_stage: true
  max_texture_size: %d

# Estimated decode time above which an image is reported as slow
slow_threshold: %s

# Header probe cache (empty path means $XDG_CACHE_HOME/imgbench/probes)
cache:
  enabled: true
  path: ""

# Saved profiles (empty path means $XDG_DATA_HOME/imgbench/history)
history:
  enabled: false
  path: ""
  retention_days: %d

# Prometheus textfile output, empty disables it
metrics:
  textfile: ""

indexer:
  workers: 0          # 0 = derived from the host tier

logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means $XDG_STATE_HOME/imgbench/imgbench.log)
  path: ""
  # Also log to stderr at this level (empty disables)
  console_level: ""
  rotation:
    max_size: %s
    max_age: 30       # days
    max_backups: 5
    daily: true
  components:
    scanner: info
    filter: info
    runner: info
    engine: info
    cache: warn
    indexer: info
    cli: info
`

// DefaultConfigYAML returns the commented default configuration file.
func DefaultConfigYAML() string {
	return fmt.Sprintf(defaultConfigTemplate,
		DefaultPerImageTimeout, DefaultTotalBudget, DefaultMaxTextureSize,
		DefaultSlowThreshold, DefaultRetentionDays, DefaultLogMaxSize)
}

// WriteDefault writes a default config file if none exists and returns its
// path. An existing file is left untouched.
func WriteDefault() (string, error) {
	if err := EnsureConfigDir(); err != nil {
		return "", err
	}

	configPath, err := ConfigPath()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to check config file: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigYAML()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write default config: %w", err)
	}

	return filepath.Clean(configPath), nil
}
