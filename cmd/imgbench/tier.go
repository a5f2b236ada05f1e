package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/imgbench/pkg/imgbench/limits"
	"github.com/jamesainslie/imgbench/pkg/imgbench/tuner"
	"github.com/jamesainslie/imgbench/pkg/imgbench/types"
)

var tierCmd = &cobra.Command{
	Use:   "tier",
	Short: "Show host signals and the performance tier",
	Long: `Detect CPU cores and memory, run the calibration probe unless
--no-calibrate is given, and show the tier the host classifies into
together with the limits that tier applies.`,
	Args: cobra.NoArgs,
	RunE: runTier,
}

var limitsCmd = &cobra.Command{
	Use:   "limits",
	Short: "Show the effective limit table",
	Long:  `Display the per-tier limits after config overrides are applied.`,
	Args:  cobra.NoArgs,
	RunE:  runLimits,
}

func init() {
	rootCmd.AddCommand(tierCmd)
	rootCmd.AddCommand(limitsCmd)
}

// runTier prints the host signals and the classified tier.
func runTier(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	signals, err := detectSignals(cfg)
	if err != nil {
		return err
	}

	table, err := cfg.LimitTable()
	if err != nil {
		return err
	}

	tier := tuner.Classify(signals)
	l := table.For(tier)

	fmt.Println("\nHost Signals")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("CPU cores:      %d\n", signals.CPUCores)
	fmt.Printf("Total RAM:      %s\n", types.FormatSize(signals.TotalRAM))
	fmt.Printf("Available RAM:  %s\n", types.FormatSize(signals.AvailableRAM))
	if signals.CalibrationScore > 0 {
		fmt.Printf("Calibration:    %s\n", humanize.Comma(int64(signals.CalibrationScore)))
	} else {
		fmt.Println("Calibration:    (skipped)")
	}
	if signals.ForcedTier.Valid() {
		fmt.Printf("Forced tier:    %s\n", signals.ForcedTier)
	}

	fmt.Printf("\nTier: %s (%s)\n", tier, tier.Description())
	printLimits(l)

	return nil
}

// runLimits prints the effective limit table.
func runLimits(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	table, err := cfg.LimitTable()
	if err != nil {
		return err
	}

	fmt.Printf("\n%-10s  %12s  %14s  %10s\n", "TIER", "MAX SIZE", "MAX MEGAPIXELS", "MAX IMAGES")
	fmt.Println(strings.Repeat("-", 52))
	for _, tier := range tuner.All() {
		l := table.For(tier)
		fmt.Printf("%-10s  %12s  %14g  %10d\n",
			tier, types.FormatSize(l.MaxFileSizeBytes), l.MaxMegapixels, l.MaxCandidateCount)
	}
	fmt.Println()

	return nil
}

func printLimits(l limits.BenchmarkLimits) {
	fmt.Printf("  max file size:   %s\n", types.FormatSize(l.MaxFileSizeBytes))
	fmt.Printf("  max megapixels:  %g\n", l.MaxMegapixels)
	fmt.Printf("  max images:      %d\n", l.MaxCandidateCount)
}
