package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/imgbench/pkg/imgbench/cache"
	"github.com/jamesainslie/imgbench/pkg/imgbench/config"
	"github.com/jamesainslie/imgbench/pkg/imgbench/decoder"
	"github.com/jamesainslie/imgbench/pkg/imgbench/engine"
	"github.com/jamesainslie/imgbench/pkg/imgbench/logging"
	"github.com/jamesainslie/imgbench/pkg/imgbench/metrics"
	"github.com/jamesainslie/imgbench/pkg/imgbench/runner"
	"github.com/jamesainslie/imgbench/pkg/imgbench/scanner"
	"github.com/jamesainslie/imgbench/pkg/imgbench/tuner"
	"github.com/jamesainslie/imgbench/pkg/imgbench/types"
)

// initializeLogging is the PersistentPreRunE hook. It ensures the XDG
// directories exist and configures logging from the loaded config. A config
// that fails to load falls back to default logging; the command itself
// reports the config error.
func initializeLogging(_ *cobra.Command, _ []string) error {
	if err := ensureDirectories(); err != nil {
		return err
	}

	logCfg := logging.DefaultConfig()
	if cfg, err := loadConfig(); err == nil {
		if converted, convErr := cfg.Logging.ToLogging(); convErr == nil {
			logCfg = converted
		}
	}
	if getVerbose() {
		logCfg.ConsoleLevel = "debug"
	}

	return logging.Init(logCfg)
}

// initInteractiveLogging re-initializes logging for the progress view: the
// console is disabled and entries go to the ring buffer instead.
func initInteractiveLogging(cfg *config.Config) error {
	logCfg, err := cfg.Logging.ToLogging()
	if err != nil {
		return err
	}
	logCfg.Interactive = true
	return logging.Init(logCfg)
}

// ensureDirectories creates the config, data and cache directories.
func ensureDirectories() error {
	if err := config.EnsureConfigDir(); err != nil {
		return err
	}
	for _, dir := range []string{config.DataDir(), config.CacheDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// conservativeSignals are used when host detection fails.
var conservativeSignals = tuner.HostSignals{
	CPUCores:     2,
	TotalRAM:     4 * types.GiB,
	AvailableRAM: 2 * types.GiB,
}

// detectSignals gathers the host signals for one run.
func detectSignals(cfg *config.Config) (tuner.HostSignals, error) {
	signals, err := tuner.Detect()
	if err != nil {
		printVerbose("Failed to detect system resources, using defaults: %v", err)
		logging.Get("cli").Warn("host detection failed", "error", err)
		signals = conservativeSignals
	}

	if cfg.Calibrate {
		signals.CalibrationScore = tuner.Calibrate("")
	}

	forced, err := cfg.ForcedTier()
	if err != nil {
		return signals, err
	}
	signals.ForcedTier = forced

	printVerbose("System: %d CPUs, %s RAM, %s available, calibration %d",
		signals.CPUCores,
		types.FormatSize(signals.TotalRAM),
		types.FormatSize(signals.AvailableRAM),
		signals.CalibrationScore)

	return signals, nil
}

// openCache opens the probe cache when enabled. A nil cache is valid.
func openCache(cfg *config.Config) (*cache.Cache, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	c, err := cache.Open(cfg.CachePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open probe cache: %w", err)
	}
	return c, nil
}

// newRecorder returns a metrics recorder when a textfile is configured.
func newRecorder(cfg *config.Config) *metrics.Recorder {
	if cfg.Metrics.Textfile == "" {
		return nil
	}
	return metrics.New()
}

// engineOptions maps the configuration onto engine options.
func engineOptions(cfg *config.Config, c *cache.Cache, rec *metrics.Recorder) (engine.Options, error) {
	table, err := cfg.LimitTable()
	if err != nil {
		return engine.Options{}, err
	}

	return engine.Options{
		Scan: scanner.Options{
			Extensions: cfg.Formats,
			Exclude:    cfg.Scan.Exclude,
			MaxDepth:   cfg.Scan.MaxDepth,
		},
		Limits:       table,
		FallbackOnly: cfg.Scan.FallbackOnly,
		MaxPaths:     cfg.Scan.MaxFiles,
		Cache:        c,
		Decoder: &decoder.Image{
			TextureStage:   cfg.Decode.TextureStage,
			MaxTextureSize: cfg.Decode.MaxTextureSize,
		},
		Metrics: rec,
	}, nil
}

// budgetFromConfig returns the run budget.
func budgetFromConfig(cfg *config.Config) runner.Budget {
	return runner.Budget{
		PerImageTimeout: cfg.Budget.PerImage,
		TotalTimeBudget: cfg.Budget.Total,
	}
}

// searchRoots returns the roots named on the command line, or the configured
// search roots.
func searchRoots(args []string, cfg *config.Config) ([]string, error) {
	src := args
	if len(src) == 0 {
		src = cfg.SearchRoots
	}

	roots := make([]string, 0, len(src))
	for _, r := range src {
		expanded, err := config.ExpandPath(r)
		if err != nil {
			return nil, fmt.Errorf("failed to expand path: %w", err)
		}
		roots = append(roots, expanded)
	}
	return roots, nil
}
