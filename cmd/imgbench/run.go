package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/imgbench/cmd/imgbench/tui"
	"github.com/jamesainslie/imgbench/pkg/imgbench/config"
	"github.com/jamesainslie/imgbench/pkg/imgbench/engine"
	"github.com/jamesainslie/imgbench/pkg/imgbench/history"
	"github.com/jamesainslie/imgbench/pkg/imgbench/logging"
	"github.com/jamesainslie/imgbench/pkg/imgbench/metrics"
	"github.com/jamesainslie/imgbench/pkg/imgbench/output"
	"github.com/jamesainslie/imgbench/pkg/imgbench/profile"
	"github.com/jamesainslie/imgbench/pkg/imgbench/tuner"
	"github.com/jamesainslie/imgbench/pkg/imgbench/types"
)

var runCmd = &cobra.Command{
	Use:   "run [roots...]",
	Short: "Run the benchmark (default command)",
	Long: `Select safe images under the search roots and benchmark their decoding.

Roots are searched in order. With scan.fallback_only (the default) later
roots are only searched when earlier ones produced no safe candidates.`,
	Args: cobra.ArbitraryArgs,
	RunE: runBenchmark,
}

func init() {
	registerRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

// registerRunFlags adds the benchmark flags to cmd and binds them to viper.
// Both the root command and run share the same viper keys.
func registerRunFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.Duration("per-image", 0, "per-image decode timeout (e.g. 5s)")
	flags.Duration("total", 0, "total time budget (e.g. 30s)")
	flags.Duration("slow-threshold", 0, "estimated decode time reported as slow")
	flags.IntP("max-depth", "d", 0, "directory levels searched below each root (max 8)")
	flags.StringSliceP("exclude", "e", nil, "exclude patterns (can be specified multiple times)")
	flags.StringP("output", "o", "", "output format: "+strings.Join(output.Available(), ", "))
	flags.String("template", "", "Go template used with -o template")
	flags.BoolP("no-interactive", "n", false, "disable the progress view, use text output")
	flags.Bool("save", false, "save the profile to history")
	flags.String("metrics-file", "", "write Prometheus metrics to this textfile")

	cmd.PreRun = func(cmd *cobra.Command, _ []string) {
		bindRunFlags(cmd)
	}
}

// bindRunFlags binds the flags of the command being executed. Binding in
// PreRun keeps the root and run commands from overwriting each other.
func bindRunFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	_ = viper.BindPFlag("budget.per_image", flags.Lookup("per-image"))
	_ = viper.BindPFlag("budget.total", flags.Lookup("total"))
	_ = viper.BindPFlag("slow_threshold", flags.Lookup("slow-threshold"))
	_ = viper.BindPFlag("scan.max_depth", flags.Lookup("max-depth"))
	_ = viper.BindPFlag("scan.exclude", flags.Lookup("exclude"))
	_ = viper.BindPFlag("output", flags.Lookup("output"))
	_ = viper.BindPFlag("template", flags.Lookup("template"))
	_ = viper.BindPFlag("no_interactive", flags.Lookup("no-interactive"))
	_ = viper.BindPFlag("history.enabled", flags.Lookup("save"))
	_ = viper.BindPFlag("metrics.textfile", flags.Lookup("metrics-file"))
}

// runBenchmark is the main benchmark command handler.
func runBenchmark(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	roots, err := searchRoots(args, cfg)
	if err != nil {
		return err
	}

	formatter, err := selectFormatter()
	if err != nil {
		return err
	}

	signals, err := detectSignals(cfg)
	if err != nil {
		return err
	}

	probeCache, err := openCache(cfg)
	if err != nil {
		// The cache only saves probe work; run without it.
		printVerbose("%v", err)
		logging.Get("cli").Warn("running without probe cache", "error", err)
	}
	if probeCache != nil {
		defer func() { _ = probeCache.Close() }()
	}

	rec := newRecorder(cfg)
	opts, err := engineOptions(cfg, probeCache, rec)
	if err != nil {
		return err
	}
	budget := budgetFromConfig(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var p profile.Profile
	if interactive() {
		if err := initInteractiveLogging(cfg); err != nil {
			return fmt.Errorf("failed to initialize interactive logging: %w", err)
		}
		p, err = tui.Run(ctx, tui.Options{
			Roots:   roots,
			Signals: signals,
			Budget:  budget,
			Engine:  opts,
		})
	} else {
		printInfo("Benchmarking images under %s (tier %s, budget %s)...",
			strings.Join(roots, ", "), tuner.Classify(signals), budget.TotalTimeBudget)
		p, err = engine.RunSafeBenchmark(ctx, roots, signals, budget, opts)
	}
	if err != nil {
		if errors.Is(err, types.ErrScanFailed) {
			return fmt.Errorf("no search root could be read: %w", err)
		}
		return err
	}

	return finishRun(cfg, signals, p, rec, formatter)
}

// interactive reports whether the progress view should be used. Any
// explicit output format other than pretty forces text output.
func interactive() bool {
	if viper.GetBool("no_interactive") {
		return false
	}
	format := viper.GetString("output")
	return format == "" || format == "pretty"
}

// selectFormatter resolves -o and --template.
func selectFormatter() (output.Formatter, error) {
	outFormat := viper.GetString("output")
	if outFormat == "" {
		outFormat = "pretty"
	}

	if outFormat == "template" {
		tmplStr := viper.GetString("template")
		if tmplStr == "" {
			return nil, fmt.Errorf("--template is required when using -o template")
		}
		return output.NewTemplateFormatter(tmplStr), nil
	}

	formatter, err := output.Get(outFormat)
	if err != nil {
		return nil, fmt.Errorf("unknown output format %q: available formats are %v", outFormat, output.Available())
	}
	return formatter, nil
}

// finishRun persists history and metrics and prints the report.
func finishRun(cfg *config.Config, signals tuner.HostSignals, p profile.Profile, rec *metrics.Recorder, formatter output.Formatter) error {
	result := output.NewResult(p, signals)
	result.SlowThreshold = cfg.SlowThreshold
	result.Warnings = runWarnings(p)

	if cfg.History.Enabled {
		id, err := saveHistory(cfg, signals, p)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("profile not saved: %v", err))
		} else {
			result.RunID = id
		}
	}

	if cfg.Metrics.Textfile != "" {
		if err := rec.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("metrics not written: %v", err))
		}
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, result); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	fmt.Print(buf.String())

	return nil
}

// saveHistory writes the profile to the history store and prunes entries
// past the retention period.
func saveHistory(cfg *config.Config, signals tuner.HostSignals, p profile.Profile) (string, error) {
	store, err := history.New(cfg.HistoryPath())
	if err != nil {
		return "", err
	}

	entry, err := store.Save(signals, p)
	if err != nil {
		return "", err
	}

	if n, err := store.Prune(cfg.History.RetentionDays); err != nil {
		logging.Get("cli").Warn("history prune failed", "error", err)
	} else if n > 0 {
		printVerbose("Pruned %d history entries", n)
	}

	return entry.ID, nil
}

// runWarnings describes the states a caller should know about.
func runWarnings(p profile.Profile) []string {
	var warnings []string
	if err := p.Err(); err != nil {
		warnings = append(warnings, err.Error())
	}
	if p.BudgetExhausted {
		warnings = append(warnings, fmt.Sprintf("total budget exhausted after %d of %d images (%s)",
			len(p.Samples), p.Selected, p.Elapsed.Round(time.Millisecond)))
	}
	if p.Cancelled {
		warnings = append(warnings, fmt.Sprintf("cancelled after %d of %d images", len(p.Samples), p.Selected))
	}
	if p.Skipped > 0 {
		warnings = append(warnings, fmt.Sprintf("%d images changed after selection and were skipped", p.Skipped))
	}
	return warnings
}
