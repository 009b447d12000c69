package batch

import "math"

// CompensatedSum accumulates float64 values using Kahan-Babuska-Neumaier
// summation: next to the running sum it tracks the low order bits lost by
// every addition, and folds them back in when the value is read.
// The zero value is an empty sum.
type CompensatedSum struct {
	sum   float64
	delta float64
}

// NewCompensatedSum returns a sum that starts at v.
func NewCompensatedSum(v float64) CompensatedSum {
	return CompensatedSum{sum: v}
}

// Add incorporates v.
// non-finite values are plain IEEE additions: once the sum is NaN or an
// infinity the correction term is meaningless and is dropped.
func (c *CompensatedSum) Add(v float64) {
	t := c.sum + v
	switch {
	case math.IsInf(t, 0) || math.IsNaN(t):
		c.delta = 0
	case math.Abs(c.sum) >= math.Abs(v):
		c.delta += (c.sum - t) + v
	default:
		c.delta += (v - t) + c.sum
	}
	c.sum = t
}

// Value returns the compensated sum.
func (c CompensatedSum) Value() float64 {
	if math.IsInf(c.sum, 0) || math.IsNaN(c.sum) {
		return c.sum
	}
	return c.sum + c.delta
}

// Delta returns the pending correction term.
func (c CompensatedSum) Delta() float64 {
	return c.delta
}

// Reset discards all state and starts over at v.
func (c *CompensatedSum) Reset(v float64) {
	c.sum = v
	c.delta = 0
}
