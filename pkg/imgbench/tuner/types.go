// Package tuner detects host capability signals (CPU cores, memory, an optional
// synthetic calibration score) and classifies the host into a performance tier.
// Classification is a pure function of the signals passed in, so callers can
// compute a tier once per run and thread it through as a value.
package tuner

// HostSignals contains the capability signals used for classification.
// Zero values mean "unknown" and pull the classification toward TierLow.
type HostSignals struct {
	// CPUCores is the number of logical CPU cores available.
	CPUCores int `json:"cpu_cores" yaml:"cpu_cores"`

	// TotalRAM is the total physical RAM in bytes.
	TotalRAM int64 `json:"total_ram" yaml:"total_ram"`

	// AvailableRAM is the available (free) RAM in bytes.
	// This may be an estimate based on system heuristics.
	AvailableRAM int64 `json:"available_ram" yaml:"available_ram"`

	// CalibrationScore is the result of Calibrate. Zero means the probe
	// was not run and the signal is ignored.
	CalibrationScore int `json:"calibration_score,omitempty" yaml:"calibration_score,omitempty"`

	// ForcedTier overrides classification when set to a valid tier.
	ForcedTier Tier `json:"forced_tier,omitempty" yaml:"forced_tier,omitempty"`
}
