package probe

import (
	"fmt"
	"os"

	"github.com/jamesainslie/imgbench/pkg/imgbench/cache"
	"github.com/jamesainslie/imgbench/pkg/imgbench/logging"
	"github.com/jamesainslie/imgbench/pkg/imgbench/types"
)

// Cached wraps a Prober with a persistent cache keyed by path and validated
// by file size and modification time. Unreadable headers are cached too.
type Cached struct {
	next  Prober
	cache *cache.Cache
}

// NewCached returns a Prober that consults c before calling next.
func NewCached(next Prober, c *cache.Cache) *Cached {
	return &Cached{next: next, cache: c}
}

// ReadImageInfo returns the cached header for path or probes and records it.
func (p *Cached) ReadImageInfo(path string) (Info, error) {
	st, err := os.Stat(path)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %w", types.ErrMetadataUnreadable, err)
	}
	size, mtime := st.Size(), st.ModTime().UnixNano()

	if e, ok := p.cache.Lookup(path, size, mtime); ok {
		if e.Unreadable {
			return Info{}, fmt.Errorf("%w: %s: cached as unreadable", types.ErrMetadataUnreadable, path)
		}
		return Info{Width: e.Width, Height: e.Height, Format: types.ParseFormat(e.Format)}, nil
	}

	info, probeErr := p.next.ReadImageInfo(path)

	entry := &cache.Entry{Size: size, Mtime: mtime}
	if probeErr != nil {
		entry.Unreadable = true
	} else {
		entry.Width, entry.Height, entry.Format = info.Width, info.Height, string(info.Format)
	}

	if err := p.cache.Record(path, entry); err != nil {
		logging.Get("cache").Warn("failed to record probe", "path", path, "error", err)
	}

	return info, probeErr
}
