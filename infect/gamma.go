// Copyright 2020 Daniel Erat <dan@erat.org>.
// All rights reserved.

package infect

import (
	"math"

	"gonum.org/v1/gonum/mathext"
)

// CDFGamma returns the probability that a Gamma(k, theta)-distributed variable is at most t.
// This is the regularized lower incomplete gamma function P(k, t/theta).
func CDFGamma(t, k, theta float64) float64 {
	if t <= 0 {
		return 0
	}
	return mathext.GammaIncReg(k, t/theta)
}

// survivalGamma returns 1 - CDFGamma(t, k, theta).
// The complemented integral is used directly so that tiny tail probabilities
// aren't lost to cancellation.
func survivalGamma(t, k, theta float64) float64 {
	if t <= 0 {
		return 1
	}
	return mathext.GammaIncRegComp(k, t/theta)
}

// ProbStillInfected returns the probability that someone infected on day 0 is
// still infected (i.e. has neither recovered nor died) t days later.
// t must not be negative.
func ProbStillInfected(t float64, p Params) float64 {
	if t <= 0 {
		return 1
	}
	v := p.Delta*survivalGamma(t, p.KD, p.ThetaD) + (1-p.Delta)*survivalGamma(t, p.KR, p.ThetaR)
	// Rounding in the mixture can nudge the result just outside [0, 1].
	return math.Max(0, math.Min(1, v))
}
