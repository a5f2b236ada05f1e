package cache

import (
	"bytes"
	"encoding/gob"
	"path/filepath"
)

// CacheVersion is incremented when the cache format changes.
const CacheVersion = 1

// KeySeparator separates the directory from the file name in cache keys.
const KeySeparator = '\x00'

// Entry is a cached image header probe for one file.
type Entry struct {
	Version int
	Size    int64 // File size in bytes when probed
	Mtime   int64 // Modification time as UnixNano when probed
	Width   int
	Height  int
	Format  string

	// Unreadable records a header that failed to parse, so corrupt files are
	// not re-probed until they change.
	Unreadable bool
}

// Matches reports whether the entry was recorded for a file with the given
// size and modification time.
func (e *Entry) Matches(size, mtime int64) bool {
	return e.Version == CacheVersion && e.Size == size && e.Mtime == mtime
}

// Encode serializes the entry to bytes using gob.
func (e *Entry) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode deserializes bytes into the entry using gob.
func (e *Entry) Decode(data []byte) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(e)
}

// MakeKey creates a cache key for a file path.
// Format: <dir>\x00<name>
func MakeKey(path string) []byte {
	dir, name := filepath.Split(filepath.Clean(path))
	dir = filepath.Clean(dir)
	return []byte(dir + string(KeySeparator) + name)
}

// ParseKey reconstructs the file path from a cache key.
func ParseKey(key []byte) string {
	idx := bytes.IndexByte(key, KeySeparator)
	if idx == -1 {
		return string(key)
	}
	return filepath.Join(string(key[:idx]), string(key[idx+1:]))
}

// MakeKeyPrefix returns the prefix for all keys of files directly in dir.
func MakeKeyPrefix(dir string) []byte {
	return []byte(filepath.Clean(dir) + string(KeySeparator))
}

// treePrefixes returns the key prefixes covering every file at or below dir.
func treePrefixes(dir string) [][]byte {
	dir = filepath.Clean(dir)
	if dir == string(filepath.Separator) {
		return [][]byte{[]byte(dir)}
	}
	return [][]byte{MakeKeyPrefix(dir), []byte(dir + string(filepath.Separator))}
}
