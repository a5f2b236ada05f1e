//go:build windows

package tuner

import (
	"testing"
	"unsafe"
)

func TestMemoryStatusExLayout(t *testing.T) {
	if got := unsafe.Sizeof(memoryStatusEx{}); got != 64 {
		t.Errorf("sizeof(memoryStatusEx) = %d, want 64", got)
	}
}

func TestDetect_ReadsMemory(t *testing.T) {
	signals, err := Detect()
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if signals.TotalRAM <= 0 {
		t.Errorf("TotalRAM = %d, want > 0", signals.TotalRAM)
	}
	if signals.AvailableRAM <= 0 || signals.AvailableRAM > signals.TotalRAM {
		t.Errorf("AvailableRAM = %d, want in (0, %d]", signals.AvailableRAM, signals.TotalRAM)
	}
}
