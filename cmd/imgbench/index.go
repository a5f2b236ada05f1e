package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/imgbench/pkg/imgbench/indexer"
	"github.com/jamesainslie/imgbench/pkg/imgbench/tuner"
	"github.com/jamesainslie/imgbench/pkg/imgbench/watcher"
)

var indexCmd = &cobra.Command{
	Use:   "index <dir>",
	Short: "Pre-warm the probe cache for a directory tree",
	Long: `Walk a directory tree in parallel and record the header of every image
in the probe cache, so later benchmark runs select candidates without
re-reading headers. Cloud placeholders are skipped, never opened.

With --watch, imgbench stays running after the initial pass and keeps the
cache current as images are added, changed or removed.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

var (
	indexWorkers int
	indexWatch   bool
)

func init() {
	indexCmd.Flags().IntVarP(&indexWorkers, "workers", "w", 0, "override walk worker count (0=auto)")
	indexCmd.Flags().BoolVar(&indexWatch, "watch", false, "keep the cache current until interrupted")
	rootCmd.AddCommand(indexCmd)
}

// runIndex walks the directory and fills the probe cache.
func runIndex(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Cache.Enabled {
		return errors.New("the probe cache is disabled (cache.enabled=false or --no-cache)")
	}

	root, err := searchRoots(args, cfg)
	if err != nil {
		return err
	}

	probeCache, err := openCache(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = probeCache.Close() }()

	signals, err := tuner.Detect()
	if err != nil {
		signals = conservativeSignals
	}
	override := cfg.Indexer.Workers
	if indexWorkers > 0 {
		override = indexWorkers
	}
	workers := tuner.IndexerWorkers(signals, override)

	var lastLine time.Time
	idx, err := indexer.New(probeCache, indexer.Options{
		Workers:    workers,
		Extensions: cfg.Formats,
		Exclude:    cfg.Scan.Exclude,
		OnProgress: func(p indexer.Progress) {
			if getQuiet() || time.Since(lastLine) < 250*time.Millisecond {
				return
			}
			lastLine = time.Now()
			fmt.Fprintf(os.Stderr, "\r%s dirs, %s images, %s probed",
				humanize.Comma(p.DirsScanned), humanize.Comma(p.FilesMatched), humanize.Comma(p.Probed))
		},
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printVerbose("Indexing %s with %d workers", root[0], workers)
	res, err := idx.Index(ctx, root[0])
	if !getQuiet() {
		fmt.Fprintln(os.Stderr)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("indexing failed: %w", err)
	}
	if errors.Is(err, context.Canceled) {
		printInfo("Indexing interrupted; entries probed so far were saved.")
	}

	printInfo("Indexed %s in %s", res.Root, res.Duration.Round(time.Millisecond))
	printInfo("  directories:   %s", humanize.Comma(res.DirsScanned))
	printInfo("  images:        %s", humanize.Comma(res.FilesMatched))
	printInfo("  already cached: %s", humanize.Comma(res.Cached))
	printInfo("  probed:        %s (%s unreadable)", humanize.Comma(res.Probed), humanize.Comma(res.Unreadable))
	printInfo("  placeholders:  %s", humanize.Comma(res.Placeholders))
	if res.Errors > 0 {
		printInfo("  errors:        %s", humanize.Comma(res.Errors))
	}

	if indexWatch && ctx.Err() == nil {
		return watchIndex(ctx, idx, res.Root)
	}
	return nil
}

// watchIndex forwards filesystem changes under root to idx until ctx ends.
func watchIndex(ctx context.Context, idx *indexer.Indexer, root string) error {
	w, err := watcher.New()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { _ = w.Close() }()

	if err := w.Watch(root); err != nil {
		return fmt.Errorf("watching %s: %w", root, err)
	}

	printInfo("Watching %s directories under %s (Ctrl+C to stop)", humanize.Comma(int64(w.Watched())), root)
	w.Run(ctx, idx)
	return nil
}
