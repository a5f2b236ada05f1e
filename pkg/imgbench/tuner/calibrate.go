package tuner

import (
	"os"
	"path/filepath"
	"time"
)

// Calibration probe sizes, chosen to look like the work of loading a small image.
const (
	calibrationFileSize   = 500_000
	calibrationReads      = 5
	calibrationBufferSize = 200_000
	calibrationPasses     = 5
	calibrationScaleOps   = 25_000

	// calibrationReference is the elapsed time at which the raw score is
	// reported unchanged; faster hosts scale it up, slower hosts down.
	calibrationReference = 50 * time.Millisecond

	minCalibrationScore = 50
	maxCalibrationScore = 15_000
)

// Calibrate runs a quick synthetic probe of storage, memory and arithmetic
// throughput and returns a score in [50, 15000]. The storage part writes and
// re-reads a temporary file in dir (os.TempDir() when empty); a failure there
// lowers the score instead of returning an error.
//
// The probe is deterministic in the work it performs but its score depends on
// wall time, so call it once per run and store the result in HostSignals.
func Calibrate(dir string) int {
	start := time.Now()

	score := storageScore(dir)
	score += memoryScore()
	score += arithmeticScore()

	elapsed := max(time.Since(start), time.Millisecond)
	final := int(float64(score) * float64(calibrationReference) / float64(elapsed))

	return min(max(final, minCalibrationScore), maxCalibrationScore)
}

// storageScore writes a temp file and reads it back several times.
func storageScore(dir string) int {
	if dir == "" {
		dir = os.TempDir()
	}

	ioStart := time.Now()
	f, err := os.CreateTemp(dir, "imgbench-calibrate-*.tmp")
	if err != nil {
		return 0
	}
	path := f.Name()
	defer func() { _ = os.Remove(path) }()

	data := make([]byte, calibrationFileSize)
	for i := range data {
		data[i] = 0xAB
	}
	_, writeErr := f.Write(data)
	closeErr := f.Close()
	writeOK := writeErr == nil && closeErr == nil

	score := 0
	var readTotal time.Duration
	reads := 0
	for range calibrationReads {
		readStart := time.Now()
		got, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			continue
		}
		readTotal += time.Since(readStart)
		reads++
		score += len(got) / 10_000
	}

	avgRead := 100 * time.Millisecond
	if reads > 0 {
		avgRead = readTotal / time.Duration(reads)
	}
	ioTime := time.Since(ioStart)

	if !writeOK || avgRead >= 200*time.Millisecond {
		return score + 100
	}

	// Faster storage earns a larger bonus.
	denom := max((avgRead + ioTime).Milliseconds(), 1)
	return score + int(2000.0/float64(denom)*1000)
}

// memoryScore fills buffers and packs them into words, like an RGBA conversion.
func memoryScore() int {
	score := 0
	for range calibrationPasses {
		buf := make([]byte, calibrationBufferSize)
		for i := range buf {
			buf[i] = byte(i % 256)
		}

		packed := make([]uint32, len(buf)/4)
		var sum uint64
		for i := range packed {
			base := i * 4
			packed[i] = uint32(buf[base])<<24 | uint32(buf[base+1])<<16 | uint32(buf[base+2])<<8 | uint32(buf[base+3])
			sum += uint64(packed[i])
		}
		score += int(sum / 10_000_000)
	}
	return score
}

// arithmeticScore repeats the scale-to-fit computation used for previews.
func arithmeticScore() int {
	const (
		width   = 1920
		height  = 1080
		maxSide = 1024
	)

	score := 0
	for i := range calibrationScaleOps {
		scale := float32(1)
		if width > maxSide || height > maxSide {
			scale = min(float32(maxSide)/float32(max(width, height)), 1)
		}
		w := int(float32(width) * scale)
		h := int(float32(height) * scale)
		score += (w + h + i) / 2000
	}
	return score
}
