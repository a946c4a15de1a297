// Copyright 2020 Daniel Erat <dan@erat.org>.
// All rights reserved.

package analysis

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/derat/covidtraj/cache"
	"github.com/derat/covidtraj/infect"
	"github.com/derat/covidtraj/owid"
)

var (
	u      = infect.Undefined
	d      = infect.Defined
	approx = cmpopts.EquateApprox(0, 1e-9)
)

// makeDataset returns a dataset with two 20-day locations.
func makeDataset(t *testing.T) *owid.Dataset {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("location,date,new_cases,new_deaths,reproduction_rate,population\n")
	start := time.Date(2020, 2, 20, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 20; i++ {
		date := start.AddDate(0, 0, i).Format(owid.DateLayout)
		fmt.Fprintf(&sb, "Testland,%s,%d,%d,1.1,2000000\n", date, 10*(i+1), i%3)
		fmt.Fprintf(&sb, "Nowhere,%s,%d,0,,\n", date, 100)
	}
	ds, err := owid.Read(strings.NewReader(sb.String()))
	if err != nil {
		t.Fatal("Read failed: ", err)
	}
	ds.Digest = "test-digest"
	return ds
}

func newEstimator(t *testing.T) *infect.Estimator {
	t.Helper()
	est, err := infect.NewEstimator(infect.DefaultParams(), infect.DefaultHorizon)
	if err != nil {
		t.Fatal("NewEstimator failed: ", err)
	}
	return est
}

// memStore is an in-memory Store.
type memStore struct {
	mu   sync.Mutex
	data map[string]infect.Result
}

func (m *memStore) Get(ctx context.Context, key string) (infect.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if res, ok := m.data[key]; ok {
		return res, nil
	}
	return infect.Result{}, cache.ErrMiss
}

func (m *memStore) Put(ctx context.Context, key string, res infect.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = res
	return nil
}

func TestCompute(t *testing.T) {
	ctx := context.Background()
	ds := makeDataset(t)
	est := newEstimator(t)

	seq, err := Compute(ctx, est, ds, Options{Workers: 1})
	if err != nil {
		t.Fatal("Compute failed: ", err)
	}
	par, err := Compute(ctx, est, ds, Options{Workers: 8})
	if err != nil {
		t.Fatal("Compute failed: ", err)
	}
	if diff := cmp.Diff(seq, par); diff != "" {
		t.Error("Concurrent frames differ from sequential ones:\n" + diff)
	}

	f := seq["Testland"]
	loc := ds.Locations["Testland"]
	want := est.Estimate(loc.NewCases)
	if diff := cmp.Diff(want.I, f.I); diff != "" {
		t.Error("I differs from direct estimate:\n" + diff)
	}
	if diff := cmp.Diff(want.R, f.R); diff != "" {
		t.Error("R differs from direct estimate:\n" + diff)
	}

	// The smoothed rate uses the next day's 7-day average over the same I.
	for i := 0; i < AverageDays-2; i++ {
		if f.R7[i].Valid {
			t.Errorf("R7[%d] = %v; want undefined", i, f.R7[i])
		}
	}
	i := AverageDays
	wantR7 := f.Cases7[i+1].V / f.I[i] * est.Params().MeanDuration()
	if diff := cmp.Diff(d(wantR7), f.R7[i], approx); diff != "" {
		t.Errorf("R7[%d] differs:\n%v", i, diff)
	}
	if v := f.R7[len(f.R7)-1]; v.Valid {
		t.Errorf("Last R7 = %v; want undefined", v)
	}
}

func TestCompute_Store(t *testing.T) {
	ctx := context.Background()
	ds := makeDataset(t)
	est := newEstimator(t)
	st := &memStore{data: make(map[string]infect.Result)}

	var mu sync.Mutex
	hits, misses := 0, 0
	opts := Options{Workers: 2, Store: st, OnLookup: func(hit bool) {
		mu.Lock()
		defer mu.Unlock()
		if hit {
			hits++
		} else {
			misses++
		}
	}}

	first, err := Compute(ctx, est, ds, opts)
	if err != nil {
		t.Fatal("Compute failed: ", err)
	}
	if hits != 0 || misses != 2 {
		t.Errorf("First run got %d hit(s) and %d miss(es); want 0 and 2", hits, misses)
	}
	second, err := Compute(ctx, est, ds, opts)
	if err != nil {
		t.Fatal("Compute failed: ", err)
	}
	if hits != 2 || misses != 2 {
		t.Errorf("Second run left %d hit(s) and %d miss(es); want 2 and 2", hits, misses)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Error("Cached frames differ:\n" + diff)
	}
	if diff := cmp.Diff(Keys(est, ds), keysOf(st)); diff != "" {
		t.Error("Keys() differs from stored keys:\n" + diff)
	}
}

func keysOf(st *memStore) map[string]struct{} {
	keys := make(map[string]struct{})
	for k := range st.data {
		keys[k] = struct{}{}
	}
	return keys
}

func TestCompute_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Compute(ctx, newEstimator(t), makeDataset(t), Options{Workers: 1}); err == nil {
		t.Error("Compute with cancelled context unexpectedly succeeded")
	}
}
