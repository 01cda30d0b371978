// Package quantize snaps tick positions to a musical grid.
package quantize

import (
	"fmt"
	"math"
	"time"

	"github.com/jsphweid/rollindex/fraction"
	"github.com/jsphweid/rollindex/metrics"
)

const zeroEpsilon = 1e-10

// Quantize rounds ticks to the nearest multiple of grid, half away from
// zero. NaN and infinities give 0, an invalid grid leaves ticks unchanged,
// and a non-negative input never produces a negative result.
func Quantize(ticks float64, grid fraction.Fraction, tpq int64) float64 {
	return snap(ticks, grid.ToTicks(tpq))
}

// QuantizeBatch applies Quantize to every element of ticks in place.
func QuantizeBatch(ticks []float64, grid fraction.Fraction, tpq int64) {
	start := time.Now()
	gridTicks := grid.ToTicks(tpq)
	for i, v := range ticks {
		ticks[i] = snap(v, gridTicks)
	}
	metrics.QuantizeBatchSize.Observe(float64(len(ticks)))
	metrics.QuantizeBatchDuration.Observe(time.Since(start).Seconds())
}

func snap(ticks, gridTicks float64) float64 {
	if math.IsNaN(ticks) || math.IsInf(ticks, 0) {
		return 0
	}
	if math.Abs(ticks) < zeroEpsilon {
		return 0
	}
	if !(gridTicks > 0) {
		return ticks
	}
	res := math.Round(ticks/gridTicks) * gridTicks
	if ticks >= 0 && res < 0 {
		res = 0
	}
	return res
}

// OnGrid rebuilds ticks as the nearest whole multiple of grid, so triplet
// and dotted grids come back exact instead of through FromTicks.
func OnGrid(ticks float64, grid fraction.Fraction, tpq int64) (fraction.Fraction, error) {
	gridTicks := grid.ToTicks(tpq)
	if !(gridTicks > 0) {
		return fraction.Fraction{}, fmt.Errorf("%w: grid %v at %d tpq", fraction.ErrInvalidArgument, grid, tpq)
	}
	units := math.Round(ticks / gridTicks)
	if math.IsNaN(units) || math.Abs(units) >= math.MaxInt64 {
		return fraction.Fraction{}, fmt.Errorf("%w: %v grid units of %v", fraction.ErrOverflow, units, grid)
	}
	return grid.MulInt(int64(units))
}

// Fraction quantizes a fractional position. Positions that cannot be
// rebuilt on the grid (invalid grid, overflow) go through
// fraction.FromTicks instead.
func Fraction(pos, grid fraction.Fraction, tpq int64) fraction.Fraction {
	if pos.IsZero() {
		return fraction.Zero
	}
	ticks := Quantize(pos.ToTicks(tpq), grid, tpq)
	if f, err := OnGrid(ticks, grid, tpq); err == nil {
		return f
	}
	return fraction.FromTicks(ticks, tpq)
}

// Duration is the length from startTicks to endTicks rounded to a whole
// number of grid units, never shorter than one unit.
func Duration(startTicks, endTicks float64, grid fraction.Fraction, tpq int64) (fraction.Fraction, error) {
	gridTicks := grid.ToTicks(tpq)
	if !(gridTicks > 0) {
		return grid, nil
	}
	length := math.Max(gridTicks, endTicks-startTicks)
	units := math.Max(1, math.Round(length/gridTicks))
	if math.IsNaN(units) || units >= math.MaxInt64 {
		return fraction.Fraction{}, fmt.Errorf("%w: %v grid units of %v", fraction.ErrOverflow, units, grid)
	}
	return grid.MulInt(int64(units))
}
