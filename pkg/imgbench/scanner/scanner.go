package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gobwas/glob"
	"github.com/jamesainslie/imgbench/pkg/imgbench/logging"
	"github.com/jamesainslie/imgbench/pkg/imgbench/types"
)

// RootError records a search root that could not be enumerated.
type RootError struct {
	Root string `json:"root" yaml:"root"`
	Err  string `json:"error" yaml:"error"`
}

// Stats are the scanner counters.
type Stats struct {
	RootsScanned int64 `json:"roots_scanned" yaml:"roots_scanned"`
	RootsFailed  int64 `json:"roots_failed" yaml:"roots_failed"`
	DirsScanned  int64 `json:"dirs_scanned" yaml:"dirs_scanned"`
	FilesMatched int64 `json:"files_matched" yaml:"files_matched"`
}

// Scanner enumerates image paths. A Scanner may run several scans; its
// counters and root errors accumulate across them.
type Scanner struct {
	opts     Options
	excludes []glob.Glob
	log      *logging.Logger

	rootsScanned atomic.Int64
	rootsFailed  atomic.Int64
	dirsScanned  atomic.Int64
	filesMatched atomic.Int64

	mu         sync.Mutex
	rootErrors []RootError
}

// New creates a Scanner. It fails only for invalid exclude patterns.
func New(opts Options) (*Scanner, error) {
	excludes, err := opts.Validate()
	if err != nil {
		return nil, err
	}

	return &Scanner{
		opts:     opts,
		excludes: excludes,
		log:      logging.Get("scanner"),
	}, nil
}

// Paths returns a lazy single-pass sequence of image paths under roots.
// Roots that do not exist or cannot be read are skipped and recorded.
// Stopping iteration early stops the walk; calling Paths again starts over.
func (s *Scanner) Paths(ctx context.Context, roots ...string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, root := range roots {
			if ctx.Err() != nil {
				return
			}
			if !s.scanRoot(ctx, root, yield) {
				return
			}
		}
	}
}

// scanRoot returns false when the consumer stopped iteration.
func (s *Scanner) scanRoot(ctx context.Context, root string, yield func(string) bool) bool {
	info, err := os.Stat(root)
	if err == nil && !info.IsDir() {
		err = fmt.Errorf("%s: not a directory", root)
	}

	var entries []os.DirEntry
	if err == nil {
		entries, err = os.ReadDir(root)
	}

	if err != nil {
		s.recordRootError(root, err)
		return true
	}

	s.rootsScanned.Add(1)
	s.log.Debug("scanning root", "root", root, "max_depth", s.opts.MaxDepth)

	return s.walkEntries(ctx, root, entries, 0, yield)
}

func (s *Scanner) walkEntries(ctx context.Context, dir string, entries []os.DirEntry, depth int, yield func(string) bool) bool {
	s.dirsScanned.Add(1)

	for _, entry := range entries {
		if ctx.Err() != nil {
			return false
		}

		path := filepath.Join(dir, entry.Name())
		if s.isExcluded(path) {
			continue
		}

		if entry.IsDir() {
			if depth >= s.opts.MaxDepth {
				continue
			}
			children, err := os.ReadDir(path)
			if err != nil {
				s.log.Debug("skipping unreadable directory", "path", path, "error", err)
				continue
			}
			if !s.walkEntries(ctx, path, children, depth+1, yield) {
				return false
			}
			continue
		}

		if !s.wanted(entry) {
			continue
		}

		s.filesMatched.Add(1)
		if !yield(path) {
			return false
		}
	}

	return true
}

// wanted reports whether a non-directory entry has an image suffix. Symlinks
// are passed through so the safety filter can stat their targets.
func (s *Scanner) wanted(entry fs.DirEntry) bool {
	t := entry.Type()
	if !t.IsRegular() && t&fs.ModeSymlink == 0 {
		return false
	}
	return slices.Contains(s.opts.Extensions, strings.ToLower(filepath.Ext(entry.Name())))
}

func (s *Scanner) isExcluded(path string) bool {
	if len(s.excludes) == 0 {
		return false
	}

	name := filepath.Base(path)
	slashed := filepath.ToSlash(path)
	for _, g := range s.excludes {
		if g.Match(name) || g.Match(slashed) {
			return true
		}
	}
	return false
}

func (s *Scanner) recordRootError(root string, err error) {
	s.rootsFailed.Add(1)
	s.log.Debug("skipping search root", "root", root, "error", err)

	s.mu.Lock()
	s.rootErrors = append(s.rootErrors, RootError{Root: root, Err: err.Error()})
	s.mu.Unlock()
}

// Err reports whether scanning failed as a whole: it returns an error
// wrapping types.ErrScanFailed when at least one root was attempted and none
// could be enumerated. Finding no images is not an error.
func (s *Scanner) Err() error {
	if s.rootsScanned.Load() > 0 || s.rootsFailed.Load() == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	errs := make([]error, 0, len(s.rootErrors))
	for _, re := range s.rootErrors {
		errs = append(errs, errors.New(re.Err))
	}
	return fmt.Errorf("%w: %w", types.ErrScanFailed, errors.Join(errs...))
}

// RootErrors returns the roots that were skipped.
func (s *Scanner) RootErrors() []RootError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.rootErrors)
}

// Stats returns a snapshot of the counters.
func (s *Scanner) Stats() Stats {
	return Stats{
		RootsScanned: s.rootsScanned.Load(),
		RootsFailed:  s.rootsFailed.Load(),
		DirsScanned:  s.dirsScanned.Load(),
		FilesMatched: s.filesMatched.Load(),
	}
}
