package tuner

// Worker configuration limits for the cache indexer.
const (
	// maxWorkers is the maximum number of walk workers.
	maxWorkers = 64

	// minWorkers is the minimum number of walk workers. Directory traversal
	// benefits from parallelism even on small systems.
	minWorkers = 4

	// workersPerTier scales the worker count with the host tier.
	workersPerTier = 4
)

// IndexerWorkers returns the number of parallel walk workers to use when
// pre-warming the probe cache. Header probing is I/O bound, so the count is
// max(NumCPU, tier*4), capped at 64. An override greater than zero replaces
// the calculation but still respects the cap.
func IndexerWorkers(s HostSignals, override int) int {
	if override > 0 {
		return min(override, maxWorkers)
	}

	workers := max(s.CPUCores, int(Classify(s))*workersPerTier, minWorkers)
	return min(workers, maxWorkers)
}
