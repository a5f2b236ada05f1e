// Package indexer pre-warms the probe cache for a directory tree. It walks
// the tree in parallel with fastwalk, skips cloud placeholders, and records
// the header of every image that is not already cached, so later benchmark
// runs select candidates without re-reading headers.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charlievieth/fastwalk"
	"github.com/gobwas/glob"

	"github.com/jamesainslie/imgbench/pkg/imgbench/cache"
	"github.com/jamesainslie/imgbench/pkg/imgbench/locality"
	"github.com/jamesainslie/imgbench/pkg/imgbench/logging"
	"github.com/jamesainslie/imgbench/pkg/imgbench/probe"
	"github.com/jamesainslie/imgbench/pkg/imgbench/scanner"
)

// flushThreshold is the number of probes buffered before a batch write.
const flushThreshold = 512

// progressInterval is how often OnProgress is called during a walk.
const progressInterval = 50 * time.Millisecond

// Progress reports indexing progress.
type Progress struct {
	Root         string
	DirsScanned  int64
	FilesMatched int64
	Probed       int64
	CurrentPath  string
}

// Result contains the final indexing counters.
type Result struct {
	Root         string        `json:"root" yaml:"root"`
	DirsScanned  int64         `json:"dirs_scanned" yaml:"dirs_scanned"`
	FilesMatched int64         `json:"files_matched" yaml:"files_matched"`
	Cached       int64         `json:"cached" yaml:"cached"`
	Probed       int64         `json:"probed" yaml:"probed"`
	Unreadable   int64         `json:"unreadable" yaml:"unreadable"`
	Placeholders int64         `json:"placeholders" yaml:"placeholders"`
	Errors       int64         `json:"errors" yaml:"errors"`
	Duration     time.Duration `json:"duration" yaml:"duration"`
}

// Options configures an Indexer.
type Options struct {
	// Workers is the number of walk goroutines. Zero uses the fastwalk
	// default.
	Workers int

	// Extensions and Exclude follow scanner.Options.
	Extensions []string
	Exclude    []string

	// Prober reads headers for uncached files. Nil uses probe.Header.
	Prober probe.Prober

	// Locality detects cloud placeholders. Nil uses locality.FS.
	Locality locality.Checker

	// OnProgress is called periodically from a separate goroutine, never
	// concurrently with itself.
	OnProgress func(Progress)
}

// Indexer fills a probe cache.
type Indexer struct {
	cache      *cache.Cache
	opts       Options
	extensions []string
	excludes   []glob.Glob
	log        *logging.Logger
}

// New creates an Indexer writing to c. It fails only for invalid exclude
// patterns.
func New(c *cache.Cache, opts Options) (*Indexer, error) {
	scanOpts := scanner.Options{Extensions: opts.Extensions, Exclude: opts.Exclude}
	excludes, err := scanOpts.Validate()
	if err != nil {
		return nil, err
	}

	if opts.Prober == nil {
		opts.Prober = probe.Header{}
	}
	if opts.Locality == nil {
		opts.Locality = locality.FS{}
	}

	return &Indexer{
		cache:      c,
		opts:       opts,
		extensions: scanOpts.Extensions,
		excludes:   excludes,
		log:        logging.Get("indexer"),
	}, nil
}

// walkState holds the counters and pending batch of one Index call.
type walkState struct {
	root string

	dirs         atomic.Int64
	matched      atomic.Int64
	cached       atomic.Int64
	probed       atomic.Int64
	unreadable   atomic.Int64
	placeholders atomic.Int64
	errors       atomic.Int64
	currentPath  atomic.Value

	mu       sync.Mutex
	pending  map[string]*cache.Entry
	flushErr error
}

// Index walks root and caches every uncached image header beneath it.
// Cancellation stops the walk; entries probed so far are still written.
func (idx *Indexer) Index(ctx context.Context, root string) (*Result, error) {
	start := time.Now()

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: not a directory", absRoot)
	}

	st := &walkState{root: absRoot, pending: make(map[string]*cache.Entry)}
	st.currentPath.Store(absRoot)

	idx.log.Info("indexing started", "root", absRoot, "workers", idx.opts.Workers)

	stopProgress := idx.startProgressReporter(ctx, st)
	walkErr := idx.walk(ctx, st)
	stopProgress()
	idx.sendProgress(st)

	idx.flush(st, true)

	if walkErr != nil && !errors.Is(walkErr, context.Canceled) {
		return nil, walkErr
	}
	if st.flushErr != nil {
		return nil, fmt.Errorf("writing probe cache: %w", st.flushErr)
	}

	res := &Result{
		Root:         absRoot,
		DirsScanned:  st.dirs.Load(),
		FilesMatched: st.matched.Load(),
		Cached:       st.cached.Load(),
		Probed:       st.probed.Load(),
		Unreadable:   st.unreadable.Load(),
		Placeholders: st.placeholders.Load(),
		Errors:       st.errors.Load(),
		Duration:     time.Since(start),
	}

	idx.log.Info("indexing finished",
		"root", absRoot,
		"files", res.FilesMatched,
		"cached", res.Cached,
		"probed", res.Probed,
		"placeholders", res.Placeholders,
		"duration", res.Duration.Round(time.Millisecond))

	return res, ctx.Err()
}

func (idx *Indexer) walk(ctx context.Context, st *walkState) error {
	conf := fastwalk.Config{
		Follow:     false,
		NumWorkers: idx.opts.Workers,
	}

	return fastwalk.Walk(&conf, st.root, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			st.errors.Add(1)
			idx.log.Debug("walk error", "path", path, "error", err)
			return nil
		}

		if path != st.root && idx.isExcluded(path) {
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			st.dirs.Add(1)
			st.currentPath.Store(path)
			return nil
		}

		if d.Type().IsRegular() && idx.wanted(path) {
			idx.processFile(st, path, d)
		}
		return nil
	})
}

func (idx *Indexer) processFile(st *walkState, path string, d fs.DirEntry) {
	st.matched.Add(1)

	info, err := d.Info()
	if err != nil {
		st.errors.Add(1)
		return
	}

	if status := idx.opts.Locality.Status(path); !status.Safe() {
		st.placeholders.Add(1)
		idx.log.Debug("skipping placeholder", "path", path, "status", status)
		return
	}

	size, mtime := info.Size(), info.ModTime().UnixNano()
	if _, ok := idx.cache.Lookup(path, size, mtime); ok {
		st.cached.Add(1)
		return
	}

	entry := idx.probe(path, size, mtime)
	if entry.Unreadable {
		st.unreadable.Add(1)
	}
	st.probed.Add(1)

	st.mu.Lock()
	st.pending[path] = entry
	st.mu.Unlock()

	idx.flush(st, false)
}

// probe reads the header of path into a cache entry. Unreadable files are
// cached too so they are not re-read until they change.
func (idx *Indexer) probe(path string, size, mtime int64) *cache.Entry {
	entry := &cache.Entry{Size: size, Mtime: mtime}
	header, err := idx.opts.Prober.ReadImageInfo(path)
	if err != nil {
		entry.Unreadable = true
		return entry
	}
	entry.Width, entry.Height, entry.Format = header.Width, header.Height, string(header.Format)
	return entry
}

// flush writes the pending batch once it reaches flushThreshold, or
// unconditionally when force is set.
func (idx *Indexer) flush(st *walkState, force bool) {
	st.mu.Lock()
	if len(st.pending) == 0 || (!force && len(st.pending) < flushThreshold) {
		st.mu.Unlock()
		return
	}
	batch := st.pending
	st.pending = make(map[string]*cache.Entry)
	st.mu.Unlock()

	if err := idx.cache.Update(batch); err != nil {
		idx.log.Error("failed to write probe batch", "entries", len(batch), "error", err)
		st.mu.Lock()
		if st.flushErr == nil {
			st.flushErr = err
		}
		st.mu.Unlock()
	}
}

func (idx *Indexer) wanted(path string) bool {
	return slices.Contains(idx.extensions, strings.ToLower(filepath.Ext(path)))
}

func (idx *Indexer) isExcluded(path string) bool {
	if len(idx.excludes) == 0 {
		return false
	}
	name := filepath.Base(path)
	slashed := filepath.ToSlash(path)
	for _, g := range idx.excludes {
		if g.Match(name) || g.Match(slashed) {
			return true
		}
	}
	return false
}

func (idx *Indexer) sendProgress(st *walkState) {
	if idx.opts.OnProgress == nil {
		return
	}
	cp, _ := st.currentPath.Load().(string)
	idx.opts.OnProgress(Progress{
		Root:         st.root,
		DirsScanned:  st.dirs.Load(),
		FilesMatched: st.matched.Load(),
		Probed:       st.probed.Load(),
		CurrentPath:  cp,
	})
}

// startProgressReporter calls OnProgress on a ticker until the returned stop
// function is called. OnProgress is never called concurrently.
func (idx *Indexer) startProgressReporter(ctx context.Context, st *walkState) func() {
	if idx.opts.OnProgress == nil {
		return func() {}
	}

	idx.sendProgress(st)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(progressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				idx.sendProgress(st)
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return func() {
		close(done)
		wg.Wait()
	}
}
