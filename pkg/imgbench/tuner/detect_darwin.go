//go:build darwin

package tuner

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// Detect detects available system resources (CPU and RAM).
// On darwin (macOS), it uses runtime.NumCPU() for CPU cores and
// unix.SysctlUint64 for memory information.
func Detect() (HostSignals, error) {
	signals := HostSignals{
		CPUCores: runtime.NumCPU(),
	}

	memsize, err := unix.SysctlUint64("hw.memsize")
	if err != nil {
		return signals, fmt.Errorf("sysctl hw.memsize: %w", err)
	}
	signals.TotalRAM = int64(memsize)

	// Precise free memory needs host_statistics; half of physical memory is a
	// conservative estimate that accounts for the file cache macOS keeps warm.
	signals.AvailableRAM = signals.TotalRAM / 2

	return signals, nil
}
