// Copyright 2020 Daniel Erat <dan@erat.org>.
// All rights reserved.

// Package analysis derives per-location estimates from an OWID dataset and
// arranges them into figures for the dashboard and infplot.
package analysis

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/derat/covidtraj/cache"
	"github.com/derat/covidtraj/infect"
	"github.com/derat/covidtraj/owid"
)

// AverageDays is the window used for smoothed series.
const AverageDays = 7

// Frame holds a location's reported series together with derived ones.
// All slices are indexed by day.
type Frame struct {
	Location   string
	Population float64
	Dates      []time.Time
	Cases      []float64
	Deaths     []float64
	Cases7     []infect.Value // AverageDays-day mean of Cases
	Deaths7    []infect.Value // AverageDays-day mean of Deaths
	I          []float64      // estimated infected count
	R          []infect.Value // reproduction rate from Cases and I
	R7         []infect.Value // reproduction rate from Cases7 and I
	ReportedR  []infect.Value // OWID's reproduction rate
}

// Store persists estimates between runs. *cache.Cache implements it.
type Store interface {
	Get(ctx context.Context, key string) (infect.Result, error)
	Put(ctx context.Context, key string, res infect.Result) error
}

// Options configures Compute.
type Options struct {
	// Workers is the maximum number of locations processed concurrently.
	// Values below 1 mean 1.
	Workers int

	// Store is consulted before estimating a location. May be nil.
	Store Store

	// OnLookup, if non-nil, is called after each Store lookup with whether it hit.
	OnLookup func(hit bool)
}

// Compute returns a Frame for every location in ds, keyed by name.
// Locations are independent, so they're estimated concurrently. The results
// don't depend on Workers.
func Compute(ctx context.Context, est *infect.Estimator, ds *owid.Dataset, opts Options) (map[string]*Frame, error) {
	g, ctx := errgroup.WithContext(ctx)
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	g.SetLimit(opts.Workers)

	var mu sync.Mutex
	frames := make(map[string]*Frame, len(ds.Locations))
	for _, name := range ds.Names() {
		loc := ds.Locations[name]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res := estimate(ctx, est, ds.Digest, loc, opts)
			f := newFrame(loc, res, est.Params().MeanDuration())
			mu.Lock()
			frames[name] = f
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return frames, nil
}

// estimate returns est's result for loc, going through opts.Store when possible.
// Store failures are logged and otherwise ignored.
func estimate(ctx context.Context, est *infect.Estimator, digest string, loc *owid.Location, opts Options) infect.Result {
	if opts.Store == nil || digest == "" {
		return est.Estimate(loc.NewCases)
	}
	key := cache.Key(digest, loc.Name, est.Params(), est.Horizon())
	res, err := opts.Store.Get(ctx, key)
	if err == nil && len(res.I) == loc.Days() && len(res.R) == loc.Days() {
		if opts.OnLookup != nil {
			opts.OnLookup(true)
		}
		return res
	}
	if err != nil && !errors.Is(err, cache.ErrMiss) {
		slog.Warn("estimate cache lookup failed", "location", loc.Name, "err", err)
	}
	if opts.OnLookup != nil {
		opts.OnLookup(false)
	}

	res = est.Estimate(loc.NewCases)
	if err := opts.Store.Put(ctx, key, res); err != nil {
		slog.Warn("estimate cache store failed", "location", loc.Name, "err", err)
	}
	return res
}

func newFrame(loc *owid.Location, res infect.Result, mu float64) *Frame {
	cases7 := owid.Rolling(loc.NewCases, AverageDays)
	return &Frame{
		Location:   loc.Name,
		Population: loc.Population,
		Dates:      loc.Dates,
		Cases:      loc.NewCases,
		Deaths:     loc.NewDeaths,
		Cases7:     cases7,
		Deaths7:    owid.Rolling(loc.NewDeaths, AverageDays),
		I:          res.I,
		R:          res.R,
		R7:         infect.RatesOf(cases7, res.I, mu),
		ReportedR:  loc.ReportedR,
	}
}

// Keys returns the cache keys for every location in ds.
// Callers can pass them to cache.Cache.Prune after a reload.
func Keys(est *infect.Estimator, ds *owid.Dataset) map[string]struct{} {
	keys := make(map[string]struct{}, len(ds.Locations))
	for name := range ds.Locations {
		keys[cache.Key(ds.Digest, name, est.Params(), est.Horizon())] = struct{}{}
	}
	return keys
}
