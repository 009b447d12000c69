// Package batch implements batched processing for slices of scanned values
// in particular aggregations. NaN marks a document without a value and is
// skipped by every function here.
package batch

// aggregation functions for batches of data
import (
	"math"
)

func Cnt(in []float64) float64 {
	valid := float64(0)
	for _, v := range in {
		if !math.IsNaN(v) {
			valid += 1
		}
	}
	if valid == 0 {
		return math.NaN()
	}
	return valid
}

func Min(in []float64) float64 {
	valid := false
	min := math.Inf(1)
	for _, v := range in {
		if !math.IsNaN(v) {
			valid = true
			if v < min {
				min = v
			}
		}
	}
	if !valid {
		min = math.NaN()
	}
	return min
}

func Max(in []float64) float64 {
	valid := false
	max := math.Inf(-1)
	for _, v := range in {
		if !math.IsNaN(v) {
			valid = true
			if v > max {
				max = v
			}
		}
	}
	if !valid {
		max = math.NaN()
	}
	return max
}

func Sum(in []float64) float64 {
	valid := false
	var sum CompensatedSum
	for _, term := range in {
		if !math.IsNaN(term) {
			valid = true
			sum.Add(term)
		}
	}
	if !valid {
		return math.NaN()
	}
	return sum.Value()
}

// WeightedSums returns the compensated sums of value*weight and of weight,
// over the pairs where both the value and the weight are present.
// it panics if the slices differ in length.
func WeightedSums(values, weights []float64) (float64, float64) {
	if len(values) != len(weights) {
		panic("batch.WeightedSums: values and weights differ in length")
	}
	var sum, weight CompensatedSum
	for i, v := range values {
		w := weights[i]
		if math.IsNaN(v) || math.IsNaN(w) {
			continue
		}
		sum.Add(v * w)
		weight.Add(w)
	}
	return sum.Value(), weight.Value()
}
