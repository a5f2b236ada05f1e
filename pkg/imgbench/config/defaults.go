// Package config provides configuration management for imgbench.
package config

import "time"

// Default configuration values for imgbench.
const (
	// DefaultPerImageTimeout bounds a single decode.
	DefaultPerImageTimeout = 5 * time.Second

	// DefaultTotalBudget bounds a whole benchmark run.
	DefaultTotalBudget = 30 * time.Second

	// DefaultSlowThreshold is the estimated decode time above which an image
	// is reported as slow.
	DefaultSlowThreshold = 2 * time.Second

	// DefaultMaxTextureSize is the largest texture edge the decoder produces.
	DefaultMaxTextureSize = 16384

	// DefaultRetentionDays is the default number of days to keep history.
	DefaultRetentionDays = 30

	// DefaultLogMaxSize is the log size that triggers rotation.
	DefaultLogMaxSize = "10MB"
)

// DefaultSearchRoots are scanned in order when no roots are given.
var DefaultSearchRoots = []string{"assets", "."}

// DefaultFormats are the image suffixes scanned by default.
var DefaultFormats = []string{"png", "jpg", "jpeg", "gif", "bmp", "tif", "tiff", "webp"}

// DefaultExclusions are directory names never entered when scanning.
var DefaultExclusions = []string{".git", "node_modules", ".cache"}

// DefaultComponentLevels are the per-component log levels.
var DefaultComponentLevels = map[string]string{
	"scanner": "info",
	"filter":  "info",
	"runner":  "info",
	"engine":  "info",
	"cache":   "warn",
	"indexer": "info",
	"cli":     "info",
}
