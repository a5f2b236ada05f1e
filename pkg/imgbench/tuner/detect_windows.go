//go:build windows

package tuner

import (
	"fmt"
	"runtime"
	"unsafe"

	"golang.org/x/sys/windows"
)

var procGlobalMemoryStatusEx = windows.NewLazySystemDLL("kernel32.dll").NewProc("GlobalMemoryStatusEx")

// memoryStatusEx mirrors MEMORYSTATUSEX.
type memoryStatusEx struct {
	Length               uint32
	MemoryLoad           uint32
	TotalPhys            uint64
	AvailPhys            uint64
	TotalPageFile        uint64
	AvailPageFile        uint64
	TotalVirtual         uint64
	AvailVirtual         uint64
	AvailExtendedVirtual uint64
}

// Detect detects available system resources (CPU and RAM).
// On windows it uses runtime.NumCPU() for CPU cores and GlobalMemoryStatusEx
// for memory. When the call fails the memory signals stay zero and Classify
// treats them as unknown.
func Detect() (HostSignals, error) {
	signals := HostSignals{
		CPUCores: runtime.NumCPU(),
	}

	status := memoryStatusEx{}
	status.Length = uint32(unsafe.Sizeof(status))

	if err := procGlobalMemoryStatusEx.Find(); err != nil {
		return signals, fmt.Errorf("GlobalMemoryStatusEx: %w", err)
	}
	ok, _, callErr := procGlobalMemoryStatusEx.Call(uintptr(unsafe.Pointer(&status)))
	if ok == 0 {
		return signals, fmt.Errorf("GlobalMemoryStatusEx: %w", callErr)
	}

	signals.TotalRAM = int64(status.TotalPhys)
	signals.AvailableRAM = int64(status.AvailPhys)

	return signals, nil
}
