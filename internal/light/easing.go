package light

import "math"

// BlinkEase maps blink cycle progress p in [0,1) to a blend fraction:
// a half-sine ramp up over the first quarter, hold at 1 through the second,
// a half-sine ramp down over the third, hold at 0 through the last. The
// result is a smooth pulse rather than a hard on/off toggle.
func BlinkEase(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p < 0.25:
		return math.Sin(p / 0.25 * math.Pi / 2)
	case p < 0.5:
		return 1
	case p < 0.75:
		return math.Cos((p - 0.5) / 0.25 * math.Pi / 2)
	default:
		return 0
	}
}

// TransitionEase maps gradation step progress p in [0,1) to a blend
// fraction: progress is doubled and clamped, then shaped by a quadratic
// ease-out, so the target color is reached at the step's midpoint and held
// for the remainder.
func TransitionEase(p float64) float64 {
	q := p * 2
	if q < 0 {
		q = 0
	}
	if q > 1 {
		q = 1
	}
	return 1 - (1-q)*(1-q)
}
