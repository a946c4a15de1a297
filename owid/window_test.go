// Copyright 2020 Daniel Erat <dan@erat.org>.
// All rights reserved.

package owid

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/derat/covidtraj/infect"
)

var (
	u      = infect.Undefined
	d      = infect.Defined
	approx = cmpopts.EquateApprox(0, 1e-12)
)

func TestRolling(t *testing.T) {
	vals := []float64{1, 2, 3, 4, 5, 6}
	if diff := cmp.Diff([]infect.Value{u, u, d(2), d(3), d(4), d(5)}, Rolling(vals, 3), approx); diff != "" {
		t.Error("Rolling(3) differs:\n" + diff)
	}
	if diff := cmp.Diff(infect.Values(vals), Rolling(vals, 1), approx); diff != "" {
		t.Error("Rolling(1) differs:\n" + diff)
	}
	if diff := cmp.Diff([]infect.Value{u, u}, Rolling([]float64{1, 2}, 7)); diff != "" {
		t.Error("Rolling(7) on short series differs:\n" + diff)
	}
}

func TestRollingSum(t *testing.T) {
	vals := []float64{1, 0, 3, 0, 5}
	if diff := cmp.Diff([]infect.Value{u, d(1), d(3), d(3), d(5)}, RollingSum(vals, 2), approx); diff != "" {
		t.Error("RollingSum(2) differs:\n" + diff)
	}
	if diff := cmp.Diff([]infect.Value{u, u, u, u, u}, RollingSum(vals, 0)); diff != "" {
		t.Error("RollingSum(0) differs:\n" + diff)
	}
}

func TestShift(t *testing.T) {
	vals := []infect.Value{d(1), d(2), u, d(4)}
	for _, tc := range []struct {
		n    int
		want []infect.Value
	}{
		{0, vals},
		{1, []infect.Value{u, d(1), d(2), u}},
		{2, []infect.Value{u, u, d(1), d(2)}},
		{-1, []infect.Value{d(2), u, d(4), u}},
		{10, []infect.Value{u, u, u, u}},
	} {
		if diff := cmp.Diff(tc.want, Shift(vals, tc.n)); diff != "" {
			t.Errorf("Shift(%d) differs:\n%v", tc.n, diff)
		}
	}
}
