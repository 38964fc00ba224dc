package workflow

import (
	"math"

	"shortsmith/internal/script"
)

// Short-form defaults used when the config leaves them unset.
const (
	defaultShortTarget  = 175.0
	defaultShortCeiling = 350.0
)

// RetimeFactor returns the speed-up that brings a portrait render of the
// given duration down to target seconds, rounded up to two decimals. Only
// durations in (target, ceiling] qualify; anything longer is left alone.
func RetimeFactor(duration, target, ceiling float64, orientation script.Orientation) (float64, bool) {
	if orientation != script.OrientationPortrait {
		return 0, false
	}
	if target <= 0 {
		target = defaultShortTarget
	}
	if ceiling <= 0 {
		ceiling = defaultShortCeiling
	}
	if duration <= target || duration > ceiling {
		return 0, false
	}
	factor := math.Ceil((duration/target)*100) / 100
	return factor, factor > 1
}
