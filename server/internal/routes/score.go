package routes

// Safety levels returned by Level.
const (
	LevelSafe     = "safe"
	LevelModerate = "moderate"
	LevelRisky    = "risky"
)

// Thresholds that map a 0–100 safety score to a level. A score must be
// strictly above a threshold to reach that level.
const (
	ThresholdSafe     = 85.0
	ThresholdModerate = 60.0
)

// Level maps a safety score to a named level.
func Level(score float64) string {
	switch {
	case score > ThresholdSafe:
		return LevelSafe
	case score > ThresholdModerate:
		return LevelModerate
	default:
		return LevelRisky
	}
}

// AdjustedScore applies a community adjustment to a base score. The result
// stays within the 0–100 score range however large the adjustment grows.
func AdjustedScore(base, adjustment int) int {
	return clamp(base+adjustment, 0, 100)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
