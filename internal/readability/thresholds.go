package readability

import "fmt"

// Default reading-speed thresholds. AIAboveCPS was 30 in earlier tuning
// rounds; 40 is the settled boundary.
const (
	IgnoreBelowCPS     = 20.0
	AIAboveCPS         = 40.0
	TargetCPS          = 20.0
	SafeGapMS          = 50
	InvalidDurationCPS = 999.0
)

// Thresholds holds the tier boundaries and fixer parameters.
type Thresholds struct {
	IgnoreBelowCPS float64
	AIAboveCPS     float64
	TargetCPS      float64
	SafeGapMS      int64
}

// DefaultThresholds returns the canonical boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{
		IgnoreBelowCPS: IgnoreBelowCPS,
		AIAboveCPS:     AIAboveCPS,
		TargetCPS:      TargetCPS,
		SafeGapMS:      SafeGapMS,
	}
}

// Validate reports inconsistent boundaries.
func (t Thresholds) Validate() error {
	if t.IgnoreBelowCPS <= 0 {
		return fmt.Errorf("ignore_below_cps must be positive")
	}
	if t.AIAboveCPS <= t.IgnoreBelowCPS {
		return fmt.Errorf("ai_above_cps must be greater than ignore_below_cps")
	}
	if t.TargetCPS <= 0 {
		return fmt.Errorf("target_cps must be positive")
	}
	if t.SafeGapMS < 0 {
		return fmt.Errorf("safe_gap_ms must be non-negative")
	}
	return nil
}

// Classify returns the tier for a reading speed. The second result is false
// for the ignore tier.
func (t Thresholds) Classify(cps float64) (Tier, bool) {
	switch {
	case cps < t.IgnoreBelowCPS:
		return "", false
	case cps <= t.AIAboveCPS:
		return TierLocal, true
	default:
		return TierAI, true
	}
}
