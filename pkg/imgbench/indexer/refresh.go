package indexer

import (
	"context"
	"io/fs"
	"os"
)

// Changed brings the cache up to date for a path that was created or
// modified. Directories are indexed in full; files are re-probed when they
// are wanted images that are stored locally. Paths that have vanished are
// ignored.
func (idx *Indexer) Changed(ctx context.Context, path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return nil //nolint:nilerr // removed before we got to it
	}
	if info.Mode()&fs.ModeSymlink != 0 || idx.isExcluded(path) {
		return nil
	}

	if info.IsDir() {
		_, err := idx.Index(ctx, path)
		return err
	}

	if !info.Mode().IsRegular() || !idx.wanted(path) {
		return nil
	}
	if !idx.opts.Locality.Status(path).Safe() {
		return nil
	}

	size, mtime := info.Size(), info.ModTime().UnixNano()
	if _, ok := idx.cache.Lookup(path, size, mtime); ok {
		return nil
	}

	idx.log.Debug("re-probing changed file", "path", path)
	return idx.cache.Record(path, idx.probe(path, size, mtime))
}

// Removed drops cached entries for a path that was deleted or renamed away.
func (idx *Indexer) Removed(_ context.Context, path string) error {
	n, err := idx.cache.Forget(path)
	if n > 0 {
		idx.log.Debug("forgot removed path", "path", path, "entries", n)
	}
	return err
}
