package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/imgbench/pkg/imgbench/cache"
	"github.com/jamesainslie/imgbench/pkg/imgbench/config"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the probe cache",
	Long: `Commands for managing the image header probe cache.

The cache stores image dimensions and formats keyed by path, size and
modification time, so repeat runs skip header reads. Cache data is stored in
the XDG cache directory (typically ~/.cache/imgbench/probes).`,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [dir]",
	Short: "Clear cached probes",
	Long:  `Removes cached probes under dir, or all of them when no dir is given.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCacheClear,
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune <dir>",
	Short: "Remove stale probes under a directory",
	Long:  `Removes cached probes for files that were deleted or changed since they were probed.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runCachePrune,
}

var cachePathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show cache location",
	Long:  `Prints the path to the probe cache directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Println(cfg.CachePath())
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cachePruneCmd)
	cacheCmd.AddCommand(cachePathCmd)
	rootCmd.AddCommand(cacheCmd)
}

// withCache opens the configured cache for a maintenance command.
func withCache(fn func(*cache.Cache) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfg.CachePath()); os.IsNotExist(err) {
		fmt.Println("Cache is empty.")
		return nil
	}

	c, err := cache.Open(cfg.CachePath())
	if err != nil {
		return fmt.Errorf("failed to open probe cache: %w", err)
	}
	defer func() { _ = c.Close() }()

	return fn(c)
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	return withCache(func(c *cache.Cache) error {
		var (
			n   int
			err error
		)
		if len(args) == 0 {
			n, err = c.ClearAll()
		} else {
			dir, expandErr := config.ExpandPath(args[0])
			if expandErr != nil {
				return expandErr
			}
			n, err = c.Clear(dir)
		}
		if err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		fmt.Printf("Removed %d cached probes.\n", n)
		return nil
	})
}

func runCachePrune(cmd *cobra.Command, args []string) error {
	dir, err := config.ExpandPath(args[0])
	if err != nil {
		return err
	}
	return withCache(func(c *cache.Cache) error {
		res, err := c.Prune(dir)
		if err != nil {
			return fmt.Errorf("failed to prune cache: %w", err)
		}
		fmt.Printf("Checked %d probes: %d deleted files, %d changed files removed.\n",
			res.Checked, len(res.Deleted), len(res.Changed))
		return nil
	})
}
