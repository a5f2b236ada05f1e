// Package scanner enumerates image files under an ordered list of search
// roots. Enumeration is lazy and deterministic: roots are visited in the
// order given, entries within a directory in name order, and nothing is read
// beyond directory entries.
package scanner

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// MaxDepthLimit bounds Options.MaxDepth.
const MaxDepthLimit = 8

// DefaultExtensions are the image suffixes enumerated when none are set.
var DefaultExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp"}

// DefaultRoots are searched when no roots are given: the bundled assets
// directory first, then the working directory.
var DefaultRoots = []string{"assets", "."}

// ErrInvalidPattern is returned for exclude patterns that fail to compile.
var ErrInvalidPattern = errors.New("invalid exclude pattern")

// Options configures the scanner.
type Options struct {
	// Extensions lists the suffixes to enumerate (".png" or "png").
	Extensions []string

	// Exclude contains glob patterns matched against entry names and slash
	// separated paths. Matching directories are not entered.
	Exclude []string

	// MaxDepth is how many directory levels below each root are entered.
	// Zero scans only the root itself. Values above MaxDepthLimit are clamped.
	MaxDepth int
}

// DefaultOptions returns non-recursive options for the default extensions.
func DefaultOptions() Options {
	return Options{
		Extensions: DefaultExtensions,
	}
}

// Validate normalizes the options and compiles exclude patterns.
func (o *Options) Validate() ([]glob.Glob, error) {
	if len(o.Extensions) == 0 {
		o.Extensions = DefaultExtensions
	}

	normalized := make([]string, 0, len(o.Extensions))
	for _, ext := range o.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized = append(normalized, ext)
	}
	o.Extensions = normalized

	o.MaxDepth = min(max(o.MaxDepth, 0), MaxDepthLimit)

	globs := make([]glob.Glob, 0, len(o.Exclude))
	for _, pattern := range o.Exclude {
		if pattern == "" {
			continue
		}
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrInvalidPattern, pattern, err)
		}
		globs = append(globs, g)
	}

	return globs, nil
}
