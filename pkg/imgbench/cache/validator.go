package cache

import (
	"errors"
	"io/fs"
	"os"
)

// PruneResult reports what a prune pass removed.
type PruneResult struct {
	// Checked is the number of entries examined.
	Checked int

	// Deleted are paths that no longer exist.
	Deleted []string

	// Changed are paths whose size or modification time no longer match.
	Changed []string
}

// Validator checks cached entries against the filesystem.
type Validator struct {
	store *Store
}

// NewValidator creates a new cache validator.
func NewValidator(store *Store) *Validator {
	return &Validator{store: store}
}

// Prune removes every entry under root whose file is gone or has changed
// since it was probed.
func (v *Validator) Prune(root string) (*PruneResult, error) {
	result := &PruneResult{}
	var stale []string

	check := func(path string, entry *Entry) error {
		result.Checked++

		info, err := os.Stat(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			result.Deleted = append(result.Deleted, path)
			stale = append(stale, path)
		case err != nil:
			return nil
		case !entry.Matches(info.Size(), info.ModTime().UnixNano()):
			result.Changed = append(result.Changed, path)
			stale = append(stale, path)
		}
		return nil
	}

	for _, prefix := range treePrefixes(root) {
		if err := v.store.Iterate(prefix, check); err != nil {
			return nil, err
		}
	}

	for _, path := range stale {
		if err := v.store.Delete(path); err != nil {
			return nil, err
		}
	}

	return result, nil
}
