package tuner

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jamesainslie/imgbench/pkg/imgbench/types"
)

// Tier is an ordered host performance classification. TierUnknown is the zero
// value and is never returned by Classify.
type Tier int

// Tiers from least to most capable.
const (
	TierUnknown Tier = iota
	TierLow
	TierModerate
	TierGood
	TierHigh
	TierExcellent
)

// Tier name constants.
const (
	tierNameLow       = "low"
	tierNameModerate  = "moderate"
	tierNameGood      = "good"
	tierNameHigh      = "high"
	tierNameExcellent = "excellent"
)

// ErrInvalidTier indicates that a tier name could not be parsed.
var ErrInvalidTier = errors.New("invalid performance tier")

// All returns every valid tier in ascending order.
func All() []Tier {
	return []Tier{TierLow, TierModerate, TierGood, TierHigh, TierExcellent}
}

// Valid reports whether t is one of the five classification tiers.
func (t Tier) Valid() bool {
	return t >= TierLow && t <= TierExcellent
}

// String returns the configuration name of the tier.
func (t Tier) String() string {
	switch t {
	case TierLow:
		return tierNameLow
	case TierModerate:
		return tierNameModerate
	case TierGood:
		return tierNameGood
	case TierHigh:
		return tierNameHigh
	case TierExcellent:
		return tierNameExcellent
	default:
		return "unknown"
	}
}

// Description returns a human-readable label for reports.
func (t Tier) Description() string {
	switch t {
	case TierLow:
		return "Low Power"
	case TierModerate:
		return "Moderate"
	case TierGood:
		return "Good"
	case TierHigh:
		return "High"
	case TierExcellent:
		return "Excellent"
	default:
		return "Unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tier) UnmarshalText(text []byte) error {
	parsed, err := ParseTier(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTier parses a tier name (case-insensitive). "low-power" and "lowpower"
// are accepted for TierLow.
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case tierNameLow, "low-power", "lowpower":
		return TierLow, nil
	case tierNameModerate:
		return TierModerate, nil
	case tierNameGood:
		return TierGood, nil
	case tierNameHigh:
		return TierHigh, nil
	case tierNameExcellent:
		return TierExcellent, nil
	default:
		return TierUnknown, fmt.Errorf("%w: %q", ErrInvalidTier, s)
	}
}

// Calibration score thresholds separating the tiers.
const (
	scoreModerate  = 1000
	scoreGood      = 3000
	scoreHigh      = 6000
	scoreExcellent = 10000
)

// TierFromScore maps a calibration score to a tier.
func TierFromScore(score int) Tier {
	switch {
	case score < scoreModerate:
		return TierLow
	case score < scoreGood:
		return TierModerate
	case score < scoreHigh:
		return TierGood
	case score < scoreExcellent:
		return TierHigh
	default:
		return TierExcellent
	}
}

// tierFromCores maps a logical core count to a tier.
func tierFromCores(cores int) Tier {
	switch {
	case cores <= 2:
		return TierLow
	case cores <= 4:
		return TierModerate
	case cores <= 8:
		return TierGood
	case cores <= 16:
		return TierHigh
	default:
		return TierExcellent
	}
}

// tierFromMemory maps total physical memory to a tier.
func tierFromMemory(total int64) Tier {
	switch {
	case total < 4*types.GiB:
		return TierLow
	case total < 8*types.GiB:
		return TierModerate
	case total < 16*types.GiB:
		return TierGood
	case total < 32*types.GiB:
		return TierHigh
	default:
		return TierExcellent
	}
}

// Classify maps host signals to a tier.
//
// The result is the minimum of the tiers implied by each signal: core count,
// total memory and, when present, the calibration score. Missing or unreadable
// core and memory signals classify as TierLow, so an unknown host is treated as
// the most conservative tier. A valid ForcedTier wins over everything.
//
// Classify never fails and has no side effects.
func Classify(s HostSignals) Tier {
	if s.ForcedTier.Valid() {
		return s.ForcedTier
	}

	tier := tierFromCores(s.CPUCores)
	tier = min(tier, tierFromMemory(s.TotalRAM))

	if s.CalibrationScore > 0 {
		tier = min(tier, TierFromScore(s.CalibrationScore))
	}

	return tier
}
