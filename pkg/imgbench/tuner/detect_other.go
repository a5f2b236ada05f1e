//go:build !darwin && !linux && !windows

package tuner

import (
	"runtime"
)

// Detect detects available system resources (CPU and RAM).
// Memory detection is not implemented on this platform, so the memory signals
// are left at zero and classification degrades toward TierLow.
func Detect() (HostSignals, error) {
	return HostSignals{
		CPUCores: runtime.NumCPU(),
	}, nil
}
