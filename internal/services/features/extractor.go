package features

import (
	"math"
	"sort"
)

// PctReturns computes simple returns r_t = C_t / C_{t-1} - 1.
// It returns a slice of length len(closes)-1, or nil if insufficient data.
func PctReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		prev := closes[i-1]
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, closes[i]/prev-1)
	}
	return out
}

// ArgMin returns the index of the first smallest value, or -1 when empty.
func ArgMin(xs []float64) int {
	idx := -1
	for i, x := range xs {
		if idx < 0 || x < xs[idx] {
			idx = i
		}
	}
	return idx
}

// ArgMax returns the index of the first largest value, or -1 when empty.
func ArgMax(xs []float64) int {
	idx := -1
	for i, x := range xs {
		if idx < 0 || x > xs[idx] {
			idx = i
		}
	}
	return idx
}

// SampleStdDev is the standard deviation with n-1 in the denominator.
// Returns 0 for fewer than two observations.
func SampleStdDev(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(n)
	ss := 0.0
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// Quantile uses linear interpolation between closest ranks, q in [0,1].
func Quantile(xs []float64, q float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	pos := q * float64(len(s)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return s[lo]
	}
	frac := pos - float64(lo)
	return s[lo] + (s[hi]-s[lo])*frac
}

// Round rounds half away from zero to the given number of decimals.
func Round(x float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(x*p) / p
}

// MinOf returns the smallest value, 0 when empty.
func MinOf(xs []float64) float64 {
	if i := ArgMin(xs); i >= 0 {
		return xs[i]
	}
	return 0
}

// MaxOf returns the largest value, 0 when empty.
func MaxOf(xs []float64) float64 {
	if i := ArgMax(xs); i >= 0 {
		return xs[i]
	}
	return 0
}
