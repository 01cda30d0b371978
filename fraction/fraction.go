// Package fraction is an exact musical time value measured in whole notes.
// A quarter note is 1/4 and a whole note is 1/1.
package fraction

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"strconv"
	"strings"
)

var (
	ErrInvalidArgument = errors.New("invalid fraction")
	ErrOverflow        = errors.New("fraction overflow")
	ErrDivideByZero    = errors.New("fraction divide by zero")
)

// Fraction is always kept in lowest terms with a positive denominator.
// The zero value is not valid; use Zero.
type Fraction struct {
	num int64
	den int64
}

var (
	Zero = Fraction{0, 1}

	Whole        = Fraction{1, 1}
	Half         = Fraction{1, 2}
	Quarter      = Fraction{1, 4}
	Eighth       = Fraction{1, 8}
	Sixteenth    = Fraction{1, 16}
	ThirtySecond = Fraction{1, 32}

	TripletHalf      = Fraction{1, 3}
	TripletQuarter   = Fraction{1, 6}
	TripletEighth    = Fraction{1, 12}
	TripletSixteenth = Fraction{1, 24}

	DottedHalf    = Fraction{3, 4}
	DottedQuarter = Fraction{3, 8}
	DottedEighth  = Fraction{3, 16}
)

func New(num, den int64) (Fraction, error) {
	if den == 0 {
		return Fraction{}, fmt.Errorf("%w: %d/%d has zero denominator", ErrInvalidArgument, num, den)
	}
	if num == 0 {
		return Zero, nil
	}
	if den < 0 {
		if num == math.MinInt64 || den == math.MinInt64 {
			return Fraction{}, fmt.Errorf("%w: cannot normalize sign of %d/%d", ErrOverflow, num, den)
		}
		num, den = -num, -den
	}
	if num == math.MinInt64 {
		// |MinInt64| is not representable; its only prime factor is 2
		g := int64(gcd(uint64(1)<<63, uint64(den)))
		return Fraction{num / g, den / g}, nil
	}
	g := int64(gcd(uint64(abs(num)), uint64(den)))
	return Fraction{num / g, den / g}, nil
}

func MustNew(num, den int64) Fraction {
	f, err := New(num, den)
	if err != nil {
		panic(err)
	}
	return f
}

// Parse accepts "n/d" or a bare integer "n".
func Parse(s string) (Fraction, error) {
	s = strings.TrimSpace(s)
	numStr, denStr, found := strings.Cut(s, "/")
	if !found {
		denStr = "1"
	}
	num, err := strconv.ParseInt(strings.TrimSpace(numStr), 10, 64)
	if err != nil {
		return Fraction{}, fmt.Errorf("%w: parsing numerator of %q: %v", ErrInvalidArgument, s, err)
	}
	den, err := strconv.ParseInt(strings.TrimSpace(denStr), 10, 64)
	if err != nil {
		return Fraction{}, fmt.Errorf("%w: parsing denominator of %q: %v", ErrInvalidArgument, s, err)
	}
	return New(num, den)
}

func (f Fraction) Num() int64 { return f.num }

func (f Fraction) Den() int64 {
	if f.den == 0 {
		return 1
	}
	return f.den
}

func (f Fraction) IsZero() bool { return f.num == 0 }

func (f Fraction) Sign() int {
	switch {
	case f.num > 0:
		return 1
	case f.num < 0:
		return -1
	}
	return 0
}

func (f Fraction) String() string {
	return fmt.Sprintf("%d/%d", f.num, f.Den())
}

func (f Fraction) Equal(o Fraction) bool {
	return f.num == o.num && f.Den() == o.Den()
}

// Cmp returns -1, 0 or +1. The cross products are computed in 128 bits so
// the comparison is exact for every representable pair.
func (f Fraction) Cmp(o Fraction) int {
	if f.Sign() != o.Sign() {
		if f.Sign() < o.Sign() {
			return -1
		}
		return 1
	}
	if f.Sign() == 0 {
		return 0
	}
	// both share a sign; compare magnitudes and flip for negatives
	lhi, llo := bits.Mul64(absU(f.num), uint64(o.Den()))
	rhi, rlo := bits.Mul64(absU(o.num), uint64(f.Den()))
	c := 0
	switch {
	case lhi < rhi || (lhi == rhi && llo < rlo):
		c = -1
	case lhi > rhi || (lhi == rhi && llo > rlo):
		c = 1
	}
	if f.Sign() < 0 {
		c = -c
	}
	return c
}

func (f Fraction) Less(o Fraction) bool { return f.Cmp(o) < 0 }

func (f Fraction) Add(o Fraction) (Fraction, error) {
	a, ok1 := mul(f.num, o.Den())
	b, ok2 := mul(o.num, f.Den())
	d, ok3 := mul(f.Den(), o.Den())
	if !(ok1 && ok2 && ok3) {
		return Fraction{}, fmt.Errorf("%w: %v + %v", ErrOverflow, f, o)
	}
	n, ok := add(a, b)
	if !ok {
		return Fraction{}, fmt.Errorf("%w: %v + %v", ErrOverflow, f, o)
	}
	return New(n, d)
}

func (f Fraction) Sub(o Fraction) (Fraction, error) {
	if o.num == math.MinInt64 {
		return Fraction{}, fmt.Errorf("%w: %v - %v", ErrOverflow, f, o)
	}
	return f.Add(Fraction{-o.num, o.Den()})
}

func (f Fraction) Mul(o Fraction) (Fraction, error) {
	// cross-reduce first so that products of already reduced values stay small
	g1 := int64(gcd(absU(f.num), uint64(o.Den())))
	g2 := int64(gcd(absU(o.num), uint64(f.Den())))
	if g1 == 0 {
		g1 = 1
	}
	if g2 == 0 {
		g2 = 1
	}
	n, ok1 := mul(f.num/g1, o.num/g2)
	d, ok2 := mul(f.Den()/g2, o.Den()/g1)
	if !(ok1 && ok2) {
		return Fraction{}, fmt.Errorf("%w: %v * %v", ErrOverflow, f, o)
	}
	return New(n, d)
}

func (f Fraction) MulInt(k int64) (Fraction, error) {
	return f.Mul(Fraction{k, 1})
}

func (f Fraction) DivInt(k int64) (Fraction, error) {
	if k == 0 {
		return Fraction{}, fmt.Errorf("%w: %v / 0", ErrDivideByZero, f)
	}
	inv, err := New(1, k)
	if err != nil {
		return Fraction{}, err
	}
	return f.Mul(inv)
}

func (f Fraction) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Fraction) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

func gcd(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

func absU(n int64) uint64 {
	if n < 0 {
		return uint64(-(n + 1)) + 1
	}
	return uint64(n)
}

func mul(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	c := a * b
	if c/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	return c, true
}

func add(a, b int64) (int64, bool) {
	c := a + b
	if (c > a) != (b > 0) {
		return 0, false
	}
	return c, true
}
