package fraction

import "math"

// DefaultFallback is returned by FromTicks for input it cannot represent.
var DefaultFallback = Sixteenth

// Denominators tried by FromTicks, simplest first.
var commonDenominators = [...]int64{1, 2, 4, 8, 16, 32, 64}

const (
	zeroEpsilon    = 1e-10
	matchTolerance = 0.001
)

// ToTicks converts to ticks at the given ticks-per-quarter resolution.
// A whole note is 4 quarters.
func (f Fraction) ToTicks(tpq int64) float64 {
	if tpq <= 0 {
		return 0
	}
	return float64(f.num) * 4 * float64(tpq) / float64(f.Den())
}

// Ticks is ToTicks rounded half away from zero.
func Ticks(f Fraction, tpq int64) int64 {
	return int64(math.Round(f.ToTicks(tpq)))
}

// FromTicks rebuilds a fraction from a tick position. The first common
// denominator whose round trip lands within 0.001 ticks wins, so simpler
// denominators are preferred over numerically closer ones. Malformed input
// never errors: values within 1e-10 of the origin give Zero, while NaN,
// infinities and negatives give DefaultFallback.
func FromTicks(ticks float64, tpq int64) Fraction {
	if math.IsNaN(ticks) || math.IsInf(ticks, 0) || tpq <= 0 {
		return DefaultFallback
	}
	// checked before the sign so epsilon noise either side of 0 stays at 0
	if math.Abs(ticks) < zeroEpsilon {
		return Zero
	}
	if ticks < 0 {
		return DefaultFallback
	}

	quarters := ticks / float64(tpq)
	for _, den := range commonDenominators {
		num := math.Round(quarters * float64(den) / 4)
		if num < 1 || num >= math.MaxInt64 {
			continue
		}
		candidate, err := New(int64(num), den)
		if err != nil {
			continue
		}
		if math.Abs(candidate.ToTicks(tpq)-ticks) < matchTolerance {
			return candidate
		}
	}

	num := math.Max(1, math.Round(quarters*64/4))
	if num >= math.MaxInt64 {
		return DefaultFallback
	}
	f, err := New(int64(num), 64)
	if err != nil {
		return DefaultFallback
	}
	return f
}
