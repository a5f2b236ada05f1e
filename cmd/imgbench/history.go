package main

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/imgbench/pkg/imgbench/history"
	"github.com/jamesainslie/imgbench/pkg/imgbench/output"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View saved profiles",
	Long: `View profiles saved with --save or history.enabled.

Each saved run records the host signals, the tier and the full profile, so
runs can be compared over time.`,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a saved profile",
	Long:  `Render a saved profile by its ID or a unique ID prefix.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove old profiles",
	Long:  `Remove saved profiles older than history.retention_days.`,
	RunE:  runHistoryPrune,
}

var (
	historyLimit  int
	historyFormat string
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries to show")
	historyShowCmd.Flags().StringVarP(&historyFormat, "output", "o", "pretty", "output format: "+strings.Join(output.Available(), ", "))

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}

// openHistory returns the configured history store.
func openHistory() (*history.Store, int, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, 0, err
	}
	store, err := history.New(cfg.HistoryPath())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open history: %w", err)
	}
	return store, cfg.History.RetentionDays, nil
}

// runHistory lists recent profiles.
func runHistory(cmd *cobra.Command, args []string) error {
	store, _, err := openHistory()
	if err != nil {
		return err
	}

	entries, err := store.List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	if len(entries) == 0 {
		printInfo("No saved profiles found.")
		printInfo("Run 'imgbench --save' to record one.")
		return nil
	}

	fmt.Printf("\n%-10s  %-19s  %-10s  %8s  %8s  %12s  %s\n",
		"ID", "TIME", "TIER", "IMAGES", "FAILED", "MEAN", "STATE")
	fmt.Println(strings.Repeat("-", 86))

	for _, e := range entries {
		state := "complete"
		if e.Summary.Incomplete {
			state = "incomplete"
		}
		mean := "-"
		if e.Summary.Successes > 0 {
			mean = (time.Duration(e.Summary.MeanMicros) * time.Microsecond).String()
		}
		fmt.Printf("%-10s  %-19s  %-10s  %8d  %8d  %12s  %s\n",
			truncateString(e.ID, 10),
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			e.Summary.Tier,
			e.Summary.Selected,
			e.Summary.Failures,
			mean,
			state,
		)
	}

	fmt.Println(strings.Repeat("-", 86))
	fmt.Printf("\nShowing %d entries. Use --limit to see more.\n", len(entries))
	fmt.Println("Use 'imgbench history show <id>' for the full profile.")

	return nil
}

// runHistoryShow renders a saved profile with the chosen formatter.
func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, _, err := openHistory()
	if err != nil {
		return err
	}

	entry, err := store.Get(args[0])
	if err != nil {
		return fmt.Errorf("failed to get entry: %w", err)
	}

	formatter, err := output.Get(historyFormat)
	if err != nil {
		return fmt.Errorf("unknown output format %q: available formats are %v", historyFormat, output.Available())
	}

	result := output.NewResult(entry.Profile, entry.Signals)
	result.RunID = entry.ID

	var buf bytes.Buffer
	if err := formatter.Format(&buf, result); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	fmt.Print(buf.String())
	return nil
}

// runHistoryPrune removes profiles past the retention period.
func runHistoryPrune(cmd *cobra.Command, args []string) error {
	store, retentionDays, err := openHistory()
	if err != nil {
		return err
	}

	if retentionDays <= 0 {
		printInfo("history.retention_days is 0; nothing is pruned.")
		return nil
	}

	printInfo("Removing profiles older than %d days...", retentionDays)
	n, err := store.Prune(retentionDays)
	if err != nil {
		return fmt.Errorf("failed to prune history: %w", err)
	}

	printInfo("Removed %d profiles.", n)
	return nil
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
