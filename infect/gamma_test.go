// Copyright 2020 Daniel Erat <dan@erat.org>.
// All rights reserved.

package infect

import (
	"fmt"
	"math"
	"testing"
)

func TestCDFGamma(t *testing.T) {
	const theta = 3.5
	for _, tc := range []struct {
		k    float64
		x    float64 // t/theta
		want float64
	}{
		{1, 0, 0},
		{1, 0.5, 1 - math.Exp(-0.5)},
		{1, 4, 1 - math.Exp(-4)},
		{2, 1, 1 - math.Exp(-1)*2},
		{2, 3, 1 - math.Exp(-3)*4},
		{3, 2, 1 - math.Exp(-2)*(1+2+2)},
	} {
		t.Run(fmt.Sprintf("k=%v,x=%v", tc.k, tc.x), func(t *testing.T) {
			if got := CDFGamma(tc.x*theta, tc.k, theta); math.Abs(got-tc.want) > 1e-12 {
				t.Errorf("CDFGamma(%v, %v, %v) = %v; want %v", tc.x*theta, tc.k, theta, got, tc.want)
			}
		})
	}
}

func TestProbStillInfected_Boundary(t *testing.T) {
	for _, p := range []Params{
		DefaultParams(),
		{KR: 1, ThetaR: 1, KD: 1, ThetaD: 1, Delta: 0},
		{KR: 0.5, ThetaR: 10, KD: 20, ThetaD: 0.1, Delta: 1},
		{KR: 8, ThetaR: 3, KD: 5, ThetaD: 4, Delta: 0.3},
	} {
		if v := ProbStillInfected(0, p); v != 1 {
			t.Errorf("ProbStillInfected(0, %+v) = %v; want 1", p, v)
		}
	}
}

func TestProbStillInfected_Decay(t *testing.T) {
	p := DefaultParams()
	prev := ProbStillInfected(0, p)
	for x := 0.25; x <= 400; x += 0.25 {
		v := ProbStillInfected(x, p)
		if v > prev+1e-15 {
			t.Fatalf("ProbStillInfected(%v) = %v; greater than %v at %v", x, v, prev, x-0.25)
		}
		if v < 0 || v > 1 {
			t.Fatalf("ProbStillInfected(%v) = %v; want value in [0, 1]", x, v)
		}
		prev = v
	}

	// Nobody recovers instantly, and the tail is essentially empty long before the horizon.
	if v := ProbStillInfected(1, p); v < 0.999 {
		t.Errorf("ProbStillInfected(1) = %v; want at least 0.999", v)
	}
	if v := ProbStillInfected(DefaultHorizon, p); v > NegligibleResidual {
		t.Errorf("ProbStillInfected(%v) = %v; want at most %v", DefaultHorizon, v, NegligibleResidual)
	}
	if v := ProbStillInfected(1e6, p); v != 0 && v > 1e-300 {
		t.Errorf("ProbStillInfected(1e6) = %v; want 0", v)
	}
}

func TestProbStillInfected_Mixture(t *testing.T) {
	// With δ at either extreme, only one distribution matters.
	p := Params{KR: 2, ThetaR: 5, KD: 4, ThetaD: 3, Delta: 0}
	if got, want := ProbStillInfected(7, p), 1-CDFGamma(7, 2, 5); math.Abs(got-want) > 1e-12 {
		t.Errorf("ProbStillInfected(7) with δ=0 = %v; want %v", got, want)
	}
	p.Delta = 1
	if got, want := ProbStillInfected(7, p), 1-CDFGamma(7, 4, 3); math.Abs(got-want) > 1e-12 {
		t.Errorf("ProbStillInfected(7) with δ=1 = %v; want %v", got, want)
	}
	p.Delta = 0.25
	want := 0.25*(1-CDFGamma(7, 4, 3)) + 0.75*(1-CDFGamma(7, 2, 5))
	if got := ProbStillInfected(7, p); math.Abs(got-want) > 1e-12 {
		t.Errorf("ProbStillInfected(7) with δ=0.25 = %v; want %v", got, want)
	}
}
