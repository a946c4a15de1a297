// Copyright 2020 Daniel Erat <dan@erat.org>.
// All rights reserved.

package infect

import (
	"fmt"
	"log/slog"
	"math"
)

const (
	// DefaultHorizon is the default number of days in the survival table.
	// It comfortably exceeds the support of the default duration distributions.
	DefaultHorizon = 1000

	// NegligibleResidual is the largest survival probability at the end of
	// the table that is treated as zero.
	NegligibleResidual = 1e-9
)

// Estimator estimates infected counts from new-case series.
// It is immutable after construction and safe for concurrent use.
type Estimator struct {
	params   Params
	survival []float64 // survival[t] is ProbStillInfected(t, params)
}

// NewEstimator returns an Estimator for p whose survival table spans horizon days.
func NewEstimator(p Params, horizon int) (*Estimator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if horizon < 1 {
		return nil, fmt.Errorf("%w: horizon must be at least 1 (got %d)", ErrInvalidParams, horizon)
	}
	e := &Estimator{params: p, survival: make([]float64, horizon)}
	for t := range e.survival {
		e.survival[t] = ProbStillInfected(float64(t), p)
	}
	return e, nil
}

// Params returns the parameters that e was created with.
func (e *Estimator) Params() Params { return e.params }

// Horizon returns the length of e's survival table.
func (e *Estimator) Horizon() int { return len(e.survival) }

// Survival returns a copy of e's survival table.
func (e *Estimator) Survival() []float64 {
	return append([]float64(nil), e.survival...)
}

// Residual returns the survival probability on the last day of the table.
// Anyone still infected after that is dropped from the estimate.
func (e *Estimator) Residual() float64 {
	return e.survival[len(e.survival)-1]
}

// Infected returns the estimated number of people infected on each day, given
// the number of new cases reported on each day:
//
//	I[t] = Σ cases[s]·S[t-s] for max(0, t-H+1) ≤ s ≤ t
//
// Missing (NaN or infinite) and negative case counts are treated as zero.
func (e *Estimator) Infected(cases []float64) []float64 {
	n, h := len(cases), len(e.survival)
	if n > h && e.Residual() > NegligibleResidual {
		slog.Warn("infect: series exceeds survival horizon; infected counts biased low",
			"days", n, "horizon", h, "residual", e.Residual())
	}

	clean := cleanCases(cases)
	infected := make([]float64, n)
	for t := range infected {
		first := t - h + 1
		if first < 0 {
			first = 0
		}
		var sum float64
		for s := first; s <= t; s++ {
			sum += clean[s] * e.survival[t-s]
		}
		infected[t] = sum
	}
	return infected
}

// Result holds the estimates for a single case series.
type Result struct {
	I []float64 `json:"i"` // estimated infected count per day
	R []Value   `json:"r"` // reproduction rate per day
}

// Estimate computes the infected count for cases and the reproduction rate derived from it.
// Both are computed from the same series, in which missing and negative
// counts are zero.
func (e *Estimator) Estimate(cases []float64) Result {
	clean := cleanCases(cases)
	inf := e.Infected(clean)
	return Result{I: inf, R: Rates(clean, inf, e.params.MeanDuration())}
}

// cleanCases returns a copy of cases with NaN, infinite and negative counts
// replaced by zero.
func cleanCases(cases []float64) []float64 {
	clean := make([]float64, len(cases))
	for i, c := range cases {
		if c > 0 && !math.IsInf(c, 1) {
			clean[i] = c
		}
	}
	return clean
}

// Rates returns R[t] = cases[t+1] / infected[t] * mu.
// R is undefined on the last day, on days when infected is zero, and
// wherever the next day's count is missing. cases and infected must have
// the same length.
func Rates(cases, infected []float64, mu float64) []Value {
	return RatesOf(Values(cases), infected, mu)
}

// RatesOf is like Rates but accepts a case series containing undefined values,
// e.g. a rolling average.
func RatesOf(cases []Value, infected []float64, mu float64) []Value {
	if len(cases) != len(infected) {
		panic(fmt.Sprintf("infect: %d case(s) but %d infected count(s)", len(cases), len(infected)))
	}
	rates := make([]Value, len(cases))
	for t := 0; t+1 < len(cases); t++ {
		next, inf := cases[t+1], infected[t]
		if !next.Valid || inf == 0 || math.IsNaN(inf) || math.IsInf(inf, 0) {
			continue
		}
		rates[t] = Defined(next.V / inf * mu)
	}
	return rates
}
