// Copyright 2020 Daniel Erat <dan@erat.org>.
// All rights reserved.

package owid

import "github.com/derat/covidtraj/infect"

// Rolling returns an n-day trailing mean of vals.
// The first n-1 values are undefined since they lack a full window.
func Rolling(vals []float64, n int) []infect.Value {
	sums := RollingSum(vals, n)
	for i, s := range sums {
		if s.Valid {
			sums[i].V = s.V / float64(n)
		}
	}
	return sums
}

// RollingSum returns an n-day trailing sum of vals.
// The first n-1 values are undefined since they lack a full window.
func RollingSum(vals []float64, n int) []infect.Value {
	out := make([]infect.Value, len(vals))
	if n < 1 {
		return out
	}
	var sum float64
	for i, v := range vals {
		sum += v
		if i >= n {
			sum -= vals[i-n]
		}
		if i >= n-1 {
			out[i] = infect.Defined(sum)
		}
	}
	return out
}

// Shift returns a copy of vals moved n days later, so out[i] = vals[i-n].
// Days without a source value are undefined.
func Shift(vals []infect.Value, n int) []infect.Value {
	out := make([]infect.Value, len(vals))
	for i := range out {
		if j := i - n; j >= 0 && j < len(vals) {
			out[i] = vals[j]
		}
	}
	return out
}
