// Copyright 2020 Daniel Erat <dan@erat.org>.
// All rights reserved.

package infect

import (
	"errors"
	"fmt"
	"math"
)

// Published estimates used when nothing else is configured.
const (
	DefaultMeanRecovery = 24.7 // days from onset to recovery
	DefaultCVRecovery   = 0.35
	DefaultMeanDeath    = 18.8 // days from onset to death
	DefaultCVDeath      = 0.45
	DefaultIFR          = 0.00657 // infection-fatality ratio
)

// ErrInvalidParams is wrapped by errors returned from Params.Validate.
var ErrInvalidParams = errors.New("invalid model parameters")

// Params describes how long infected people remain infected.
// A fraction Delta of them die after a Gamma(KD, ThetaD)-distributed duration,
// and the rest recover after a Gamma(KR, ThetaR)-distributed duration.
type Params struct {
	KR     float64 `json:"k_r"`     // shape of recovery duration
	ThetaR float64 `json:"theta_r"` // scale of recovery duration, in days
	KD     float64 `json:"k_d"`     // shape of death duration
	ThetaD float64 `json:"theta_d"` // scale of death duration, in days
	Delta  float64 `json:"delta"`   // infection-fatality ratio
}

// ParamsFromMeans returns Params for gamma distributions with the supplied means
// and coefficients of variation. A gamma distribution with shape k and scale θ has
// mean kθ and CV 1/√k, so k = 1/cv² and θ = mean/k.
func ParamsFromMeans(meanR, cvR, meanD, cvD, delta float64) Params {
	kr := 1 / (cvR * cvR)
	kd := 1 / (cvD * cvD)
	return Params{
		KR:     kr,
		ThetaR: meanR / kr,
		KD:     kd,
		ThetaD: meanD / kd,
		Delta:  delta,
	}
}

// DefaultParams returns Params built from the Default* constants.
func DefaultParams() Params {
	return ParamsFromMeans(DefaultMeanRecovery, DefaultCVRecovery,
		DefaultMeanDeath, DefaultCVDeath, DefaultIFR)
}

// Validate returns an error wrapping ErrInvalidParams if p can't be used.
// Values are never clamped.
func (p Params) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"k_r", p.KR},
		{"theta_r", p.ThetaR},
		{"k_d", p.KD},
		{"theta_d", p.ThetaD},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) || f.v <= 0 {
			return fmt.Errorf("%w: %v must be positive and finite (got %v)", ErrInvalidParams, f.name, f.v)
		}
	}
	if math.IsNaN(p.Delta) || p.Delta < 0 || p.Delta > 1 {
		return fmt.Errorf("%w: delta must be in [0, 1] (got %v)", ErrInvalidParams, p.Delta)
	}
	return nil
}

// MeanDuration returns the mean number of days that an infected person remains infected,
// i.e. meanR·(1−δ) + meanD·δ.
func (p Params) MeanDuration() float64 {
	return p.KR*p.ThetaR*(1-p.Delta) + p.KD*p.ThetaD*p.Delta
}
