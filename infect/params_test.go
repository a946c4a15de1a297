// Copyright 2020 Daniel Erat <dan@erat.org>.
// All rights reserved.

package infect

import (
	"errors"
	"math"
	"testing"
)

func TestParamsFromMeans(t *testing.T) {
	p := DefaultParams()
	for _, tc := range []struct {
		name      string
		got, want float64
	}{
		{"KR", p.KR, 1 / (0.35 * 0.35)},
		{"ThetaR", p.ThetaR, 24.7 * 0.35 * 0.35},
		{"KD", p.KD, 1 / (0.45 * 0.45)},
		{"ThetaD", p.ThetaD, 18.8 * 0.45 * 0.45},
		{"Delta", p.Delta, 0.00657},
		{"MeanDuration", p.MeanDuration(), 24.7*(1-0.00657) + 18.8*0.00657},
	} {
		if math.Abs(tc.got-tc.want) > 1e-9 {
			t.Errorf("%v = %v; want %v", tc.name, tc.got, tc.want)
		}
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Validate() on default params failed: %v", err)
	}
}

func TestParams_Validate(t *testing.T) {
	base := DefaultParams()
	for _, tc := range []struct {
		name  string
		mod   func(p *Params)
		valid bool
	}{
		{"default", func(p *Params) {}, true},
		{"delta=0", func(p *Params) { p.Delta = 0 }, true},
		{"delta=1", func(p *Params) { p.Delta = 1 }, true},
		{"delta<0", func(p *Params) { p.Delta = -0.01 }, false},
		{"delta>1", func(p *Params) { p.Delta = 1.5 }, false},
		{"delta=NaN", func(p *Params) { p.Delta = math.NaN() }, false},
		{"k_r=0", func(p *Params) { p.KR = 0 }, false},
		{"theta_r<0", func(p *Params) { p.ThetaR = -2 }, false},
		{"k_d=Inf", func(p *Params) { p.KD = math.Inf(1) }, false},
		{"theta_d=NaN", func(p *Params) { p.ThetaD = math.NaN() }, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := base
			tc.mod(&p)
			err := p.Validate()
			if tc.valid && err != nil {
				t.Errorf("Validate() = %v; want nil", err)
			} else if !tc.valid && !errors.Is(err, ErrInvalidParams) {
				t.Errorf("Validate() = %v; want ErrInvalidParams", err)
			}
		})
	}
}
