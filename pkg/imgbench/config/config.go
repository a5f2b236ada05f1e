package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/jamesainslie/imgbench/pkg/imgbench/limits"
	"github.com/jamesainslie/imgbench/pkg/imgbench/logging"
	"github.com/jamesainslie/imgbench/pkg/imgbench/tuner"
	"github.com/jamesainslie/imgbench/pkg/imgbench/types"
)

// AppName names the config, state, cache and data directories.
const AppName = "imgbench"

// EnvPrefix prefixes environment overrides, e.g. IMGBENCH_BUDGET_TOTAL.
const EnvPrefix = "IMGBENCH"

// ErrInvalidConfig is returned when configuration values fail validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// ScanConfig configures candidate enumeration.
type ScanConfig struct {
	MaxDepth     int      `mapstructure:"max_depth" validate:"gte=0,lte=8"`
	Exclude      []string `mapstructure:"exclude"`
	MaxFiles     int      `mapstructure:"max_files" validate:"gte=0"`
	FallbackOnly bool     `mapstructure:"fallback_only"`
}

// BudgetConfig bounds benchmark time.
type BudgetConfig struct {
	PerImage time.Duration `mapstructure:"per_image" validate:"gte=0"`
	Total    time.Duration `mapstructure:"total" validate:"gte=0"`
}

// LimitOverride replaces individual values of one tier's limits. Zero values
// keep the canonical limit.
type LimitOverride struct {
	MaxFileSize   string  `mapstructure:"max_file_size"`
	MaxMegapixels float64 `mapstructure:"max_megapixels" validate:"gte=0"`
	MaxCandidates int     `mapstructure:"max_candidates" validate:"gte=0"`
}

// DecodeConfig configures the timed decoder.
type DecodeConfig struct {
	TextureStage   bool `mapstructure:"texture_stage"`
	MaxTextureSize int  `mapstructure:"max_texture_size" validate:"gt=0"`
}

// CacheConfig configures the persistent probe cache.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// HistoryConfig configures saved profile snapshots.
type HistoryConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days" validate:"gte=0"`
}

// MetricsConfig configures the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// IndexerConfig configures the cache pre-warm indexer.
type IndexerConfig struct {
	Workers int `mapstructure:"workers" validate:"gte=0"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level        string            `mapstructure:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Path         string            `mapstructure:"path"`
	ConsoleLevel string            `mapstructure:"console_level" validate:"omitempty,oneof=debug info warn warning error"`
	Rotation     RotationConfig    `mapstructure:"rotation"`
	Components   map[string]string `mapstructure:"components" validate:"dive,oneof=debug info warn warning error"`
}

// Config represents the application configuration.
type Config struct {
	SearchRoots   []string                 `mapstructure:"search_roots" validate:"dive,required"`
	Formats       []string                 `mapstructure:"formats" validate:"dive,required"`
	Scan          ScanConfig               `mapstructure:"scan"`
	Budget        BudgetConfig             `mapstructure:"budget"`
	Tier          string                   `mapstructure:"tier"`
	Calibrate     bool                     `mapstructure:"calibrate"`
	Limits        map[string]LimitOverride `mapstructure:"limits" validate:"dive"`
	Decode        DecodeConfig             `mapstructure:"decode"`
	SlowThreshold time.Duration            `mapstructure:"slow_threshold" validate:"gte=0"`
	Cache         CacheConfig              `mapstructure:"cache"`
	History       HistoryConfig            `mapstructure:"history"`
	Metrics       MetricsConfig            `mapstructure:"metrics"`
	Indexer       IndexerConfig            `mapstructure:"indexer"`
	Logging       LoggingConfig            `mapstructure:"logging"`
}

var validate = validator.New()

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("search_roots", DefaultSearchRoots)
	v.SetDefault("formats", DefaultFormats)
	v.SetDefault("scan.max_depth", 0)
	v.SetDefault("scan.exclude", DefaultExclusions)
	v.SetDefault("scan.max_files", 0)
	v.SetDefault("scan.fallback_only", true)
	v.SetDefault("budget.per_image", DefaultPerImageTimeout)
	v.SetDefault("budget.total", DefaultTotalBudget)
	v.SetDefault("tier", "auto")
	v.SetDefault("calibrate", true)
	v.SetDefault("decode.texture_stage", true)
	v.SetDefault("decode.max_texture_size", DefaultMaxTextureSize)
	v.SetDefault("slow_threshold", DefaultSlowThreshold)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.path", "") // Empty means DefaultCachePath
	v.SetDefault("history.enabled", false)
	v.SetDefault("history.path", "") // Empty means DefaultHistoryPath
	v.SetDefault("history.retention_days", DefaultRetentionDays)
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("indexer.workers", 0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "") // Empty means logging.DefaultLogPath
	v.SetDefault("logging.console_level", "")
	v.SetDefault("logging.rotation.max_size", DefaultLogMaxSize)
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", DefaultComponentLevels)
}

// AddConfigPaths registers the config file search path on v:
//   - $XDG_CONFIG_HOME/imgbench/config.yaml
//   - $HOME/.config/imgbench/config.yaml
//
// Environment variables are prefixed with IMGBENCH_ (e.g. IMGBENCH_TIER).
func AddConfigPaths(v *viper.Viper) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		v.AddConfigPath(filepath.Join(xdgConfigHome, AppName))
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(homeDir, ".config", AppName))
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// ReadInConfig reads the config file into v. A missing file is not an error.
func ReadInConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

// Load loads configuration from the default file locations and environment.
func Load() (*Config, error) {
	v := viper.New()
	AddConfigPaths(v)
	SetDefaults(v)

	if err := ReadInConfig(v); err != nil {
		return nil, err
	}
	return FromViper(v)
}

// FromViper decodes and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for _, p := range []*string{&cfg.Cache.Path, &cfg.History.Path, &cfg.Logging.Path, &cfg.Metrics.Textfile} {
		expanded, err := ExpandPath(*p)
		if err != nil {
			return nil, err
		}
		*p = expanded
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints, the tier name and the limit table.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if _, err := c.ForcedTier(); err != nil {
		return fmt.Errorf("%w: tier: %w", ErrInvalidConfig, err)
	}
	if _, err := c.LimitTable(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := c.Logging.ToLogging(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// ForcedTier returns the configured tier, or TierUnknown for "auto".
func (c *Config) ForcedTier() (tuner.Tier, error) {
	if c.Tier == "" || strings.EqualFold(c.Tier, "auto") {
		return tuner.TierUnknown, nil
	}
	return tuner.ParseTier(c.Tier)
}

// LimitTable applies the configured overrides to the canonical table and
// checks that limits still grow with the tier.
func (c *Config) LimitTable() (limits.Table, error) {
	overrides := make(map[tuner.Tier]limits.Override, len(c.Limits))

	for name, o := range c.Limits {
		tier, err := tuner.ParseTier(name)
		if err != nil {
			return nil, fmt.Errorf("limits.%s: %w", name, err)
		}

		var size int64
		if o.MaxFileSize != "" {
			size, err = types.ParseSize(o.MaxFileSize)
			if err != nil {
				return nil, fmt.Errorf("limits.%s.max_file_size: %w", name, err)
			}
		}

		overrides[tier] = limits.Override{
			MaxFileSizeBytes:  size,
			MaxMegapixels:     o.MaxMegapixels,
			MaxCandidateCount: o.MaxCandidates,
		}
	}

	table := limits.DefaultTable().WithOverrides(overrides)
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

// ToLogging converts the file configuration into a logging.Config.
func (l LoggingConfig) ToLogging() (logging.Config, error) {
	rotation := logging.DefaultRotationConfig()
	if l.Rotation.MaxSize != "" {
		size, err := types.ParseSize(l.Rotation.MaxSize)
		if err != nil {
			return logging.Config{}, fmt.Errorf("logging.rotation.max_size: %w", err)
		}
		rotation.MaxSize = size
	}
	rotation.MaxAge = l.Rotation.MaxAge
	rotation.MaxBackups = l.Rotation.MaxBackups
	rotation.Daily = l.Rotation.Daily

	if _, err := logging.ParseLevel(l.Level); err != nil {
		return logging.Config{}, err
	}

	return logging.Config{
		Level:        l.Level,
		Path:         l.Path,
		Rotation:     rotation,
		Components:   l.Components,
		ConsoleLevel: l.ConsoleLevel,
	}, nil
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, AppName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", AppName), nil
}

// ConfigPath returns the path of the config file WriteDefault creates.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return nil
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// DataDir returns $XDG_DATA_HOME/imgbench/ for saved profiles.
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// CacheDir returns $XDG_CACHE_HOME/imgbench/ for the probe cache.
func CacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// DefaultCachePath returns the default probe cache directory.
func DefaultCachePath() string {
	return filepath.Join(CacheDir(), "probes")
}

// DefaultHistoryPath returns the default profile history directory.
func DefaultHistoryPath() string {
	return filepath.Join(DataDir(), "history")
}

// CachePath returns the configured cache path or the default.
func (c *Config) CachePath() string {
	if c.Cache.Path != "" {
		return c.Cache.Path
	}
	return DefaultCachePath()
}

// HistoryPath returns the configured history path or the default.
func (c *Config) HistoryPath() string {
	if c.History.Path != "" {
		return c.History.Path
	}
	return DefaultHistoryPath()
}
