package loop

import (
	"fmt"
)

// TimeType is an exact non-negative rational duration, stored in normalized
// form (reduced to lowest terms, denominator always positive). It is used
// for every duration, offset, and sample-rate computation in the Loop tree
// so that waveform lengths never drift under repeated addition or
// multiplication the way a floating point duration would.
type TimeType struct {
	num int64 // numerator, always >= 0
	den int64 // denominator, always > 0
}

// Zero is the additive identity TimeType.
var Zero = TimeType{num: 0, den: 1}

// NewTimeType creates a normalized non-negative TimeType from num/den.
// Returns an error if den is zero or num is negative.
func NewTimeType(num, den int64) (TimeType, error) {
	if den == 0 {
		return TimeType{}, fmt.Errorf("loop: TimeType denominator must not be zero")
	}
	if den < 0 {
		num, den = -num, -den
	}
	if num < 0 {
		return TimeType{}, fmt.Errorf("loop: TimeType must be non-negative, got %d/%d", num, den)
	}
	return normalizeTime(num, den), nil
}

// MustTimeType is like NewTimeType but panics on error. Intended for tests
// and constant table construction, not for validating external input.
func MustTimeType(num, den int64) TimeType {
	t, err := NewTimeType(num, den)
	if err != nil {
		panic(err)
	}
	return t
}

// TimeFromInt returns the TimeType representing the integer n.
func TimeFromInt(n int64) TimeType {
	return TimeType{num: n, den: 1}
}

func normalizeTime(num, den int64) TimeType {
	if num == 0 {
		return TimeType{num: 0, den: 1}
	}
	g := gcdInt64(absInt64(num), den)
	return TimeType{num: num / g, den: den / g}
}

// Numerator returns the reduced numerator.
func (t TimeType) Numerator() int64 { return t.num }

// Denominator returns the reduced, always-positive denominator.
func (t TimeType) Denominator() int64 { return t.den }

// Add returns t + other.
func (t TimeType) Add(other TimeType) TimeType {
	return normalizeTime(t.num*other.den+other.num*t.den, t.den*other.den)
}

// Sub returns t - other. The result must be non-negative; callers that
// cannot guarantee other <= t should compare with Cmp first.
func (t TimeType) Sub(other TimeType) (TimeType, error) {
	num := t.num*other.den - other.num*t.den
	den := t.den * other.den
	if num < 0 {
		return TimeType{}, fmt.Errorf("loop: TimeType subtraction would be negative (%s - %s)", t, other)
	}
	return normalizeTime(num, den), nil
}

// Mul returns t * other.
func (t TimeType) Mul(other TimeType) TimeType {
	return normalizeTime(t.num*other.num, t.den*other.den)
}

// MulInt returns t * n, where n is a non-negative repetition-style count.
func (t TimeType) MulInt(n int) TimeType {
	return normalizeTime(t.num*int64(n), t.den)
}

// DivInt returns t / n. Panics if n is zero; callers dividing by a
// repetition count have already excluded zero (repetition counts are >= 1).
func (t TimeType) DivInt(n int64) TimeType {
	if n == 0 {
		panic("loop: TimeType division by zero")
	}
	return normalizeTime(t.num, t.den*n)
}

// IsZero reports whether t is exactly zero.
func (t TimeType) IsZero() bool { return t.num == 0 }

// IsInteger reports whether t has an integer value, i.e. reduces with
// denominator 1.
func (t TimeType) IsInteger() bool { return t.den == 1 }

// IntValue returns the integer value of t and true if t.IsInteger(),
// otherwise (0, false).
func (t TimeType) IntValue() (int64, bool) {
	if !t.IsInteger() {
		return 0, false
	}
	return t.num, true
}

// ModInt returns t mod n as an integer, valid only when t.IsInteger().
// The compatibility checks do not call it; they take the remainder of the
// int64 sample count directly.
func (t TimeType) ModInt(n int64) (int64, error) {
	v, ok := t.IntValue()
	if !ok {
		return 0, fmt.Errorf("loop: ModInt called on non-integer TimeType %s", t)
	}
	return v % n, nil
}

// Cmp returns -1, 0, or 1 as t is less than, equal to, or greater than other.
func (t TimeType) Cmp(other TimeType) int {
	lhs := t.num * other.den
	rhs := other.num * t.den
	switch {
	case lhs < rhs:
		return -1
	case lhs > rhs:
		return 1
	default:
		return 0
	}
}

// Less reports whether t < other.
func (t TimeType) Less(other TimeType) bool { return t.Cmp(other) < 0 }

// Equal reports whether t == other.
func (t TimeType) Equal(other TimeType) bool { return t.num == other.num && t.den == other.den }

// LessThanInt reports whether t < n, for an integer n (e.g. min_len).
func (t TimeType) LessThanInt(n int64) bool {
	return t.num < n*t.den
}

// Float64 converts t to a floating point approximation. Only used at
// measurement-window and display boundaries; never for internal comparisons.
func (t TimeType) Float64() float64 {
	return float64(t.num) / float64(t.den)
}

// String renders t as "num" when integral, else "num/den".
func (t TimeType) String() string {
	if t.den == 1 {
		return fmt.Sprintf("%d", t.num)
	}
	return fmt.Sprintf("%d/%d", t.num, t.den)
}

func gcdInt64(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

func absInt64(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}
