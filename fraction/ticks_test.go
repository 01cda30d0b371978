package fraction

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToTicks(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(96.0, Quarter.ToTicks(96))
	assert.Equal(384.0, Whole.ToTicks(96))
	assert.Equal(24.0, Sixteenth.ToTicks(96))
	assert.Equal(160.0, TripletQuarter.ToTicks(240))
	assert.Equal(0.0, Zero.ToTicks(480))
	assert.Equal(0.0, Quarter.ToTicks(0))
	assert.Equal(int64(32), Ticks(TripletEighth, 96))
}

func TestFromTicksRoundTripsCommonDenominators(t *testing.T) {
	for _, den := range []int64{1, 2, 4, 8, 16, 32, 64} {
		for num := int64(0); num <= 64; num++ {
			f := MustNew(num, den)
			t.Run(fmt.Sprintf("%d/%d", num, den), func(t *testing.T) {
				assert.Equal(t, f, FromTicks(f.ToTicks(96), 96))
			})
		}
	}
}

func TestFromTicksPrefersSimplestDenominator(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(Quarter, FromTicks(96, 96))
	assert.Equal(MustNew(5, 8), FromTicks(240, 96))
	assert.Equal(Quarter, FromTicks(480, 480))
	assert.Equal(Quarter, FromTicks(96.0004, 96))
}

func TestFromTicksFallsBackToSixtyFourths(t *testing.T) {
	// 100 ticks at 96 tpq is not a multiple of a 1/64 (6 ticks)
	assert.Equal(t, MustNew(17, 64), FromTicks(100, 96))
	// a triplet eighth has no power-of-two representation
	assert.Equal(t, MustNew(5, 64), FromTicks(32, 96))
	// tiny positive values clamp to a single 1/64
	assert.Equal(t, MustNew(1, 64), FromTicks(0.5, 96))
}

func TestFromTicksMalformedInput(t *testing.T) {
	for _, ticks := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), -1, -96} {
		assert.Equal(t, Sixteenth, FromTicks(ticks, 96), "ticks=%v", ticks)
	}
	assert.Equal(t, Sixteenth, FromTicks(96, 0))
	assert.Equal(t, Sixteenth, FromTicks(1e300, 96))
}

func TestFromTicksZeroIsStable(t *testing.T) {
	for _, ticks := range []float64{0, 1e-11, -1e-11, 9.9e-11} {
		for _, tpq := range []int64{96, 480, 960} {
			assert.Equal(t, Zero, FromTicks(ticks, tpq))
		}
	}
}
