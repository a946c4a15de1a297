// Copyright 2020 Daniel Erat <dan@erat.org>.
// All rights reserved.

// Package main implements a web dashboard that plots Covid-19 trajectories
// along with estimated infection counts and reproduction rates.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/derat/covidtraj/cache"
	"github.com/derat/covidtraj/config"
	"github.com/derat/covidtraj/infect"
)

func main() {
	cfgPath := flag.String("config", "", "YAML config file (defaults are used if empty)")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(*cfgPath); err != nil {
		slog.Error("dashboard failed", "err", err)
		os.Exit(1)
	}
}

func run(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	est, err := infect.NewEstimator(cfg.Model.Params(), cfg.Model.Horizon)
	if err != nil {
		return err
	}

	var c *cache.Cache
	if cfg.Cache.Path != "" {
		if c, err = cache.Open(cfg.Cache.Path); err != nil {
			return err
		}
		defer c.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	src := cfg.Dataset.Source()
	srv := newServer(src, est, cfg.Server.Workers, c, reg, cfg.Server.BroadcastInterval)
	if err := srv.reload(ctx); err != nil {
		return fmt.Errorf("initial load: %w", err)
	}
	go srv.hub.run(ctx)

	reload := func() {
		if err := srv.reload(ctx); err != nil {
			slog.Error("reload failed; keeping previous data", "err", err)
		}
	}
	stopWatch := watchDataset(ctx, cfg.Dataset, reload)

	if cfgPath != "" {
		go func() {
			// Callbacks run sequentially on this goroutine.
			prev := cfg
			err := config.Watch(ctx, cfgPath, func(nc *config.Config) {
				ne, err := infect.NewEstimator(nc.Model.Params(), nc.Model.Horizon)
				if err != nil {
					slog.Error("ignoring config change", "err", err)
					return
				}
				if fields := restartFields(cfg, nc); len(fields) > 0 {
					slog.Warn("config changes take effect after restart", "fields", fields)
				}
				if nc.Dataset != prev.Dataset {
					stopWatch()
					stopWatch = watchDataset(ctx, nc.Dataset, reload)
				}
				prev = nc
				slog.Info("config changed; reloading", "params", nc.Model.Params())
				srv.setModel(nc.Dataset.Source(), ne)
				reload()
			})
			if err != nil {
				slog.Error("config watcher stopped", "path", cfgPath, "err", err)
			}
		}()
	}

	hs := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", hs.Addr)
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		slog.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := hs.Shutdown(sctx); err != nil {
			return err
		}
	}
	return nil
}

// watchDataset calls reload whenever d's data may have changed: on writes to a
// watched local file, or every refresh interval for remote sources.
// The returned func stops watching.
func watchDataset(ctx context.Context, d config.DatasetConfig, reload func()) context.CancelFunc {
	ctx, cancel := context.WithCancel(ctx)
	src := d.Source()
	switch {
	case !src.Remote() && d.Watch:
		go func() {
			if err := config.WatchFile(ctx, src.Location, reload); err != nil {
				slog.Error("dataset watcher stopped", "path", src.Location, "err", err)
			}
		}()
	case src.Remote() && d.RefreshInterval > 0:
		go refreshEvery(ctx, d.RefreshInterval, reload)
	}
	return cancel
}

// restartFields returns the names of settings that differ between old and nc
// but are only read at startup.
func restartFields(old, nc *config.Config) []string {
	var fields []string
	if old.Server.HTTPPort != nc.Server.HTTPPort {
		fields = append(fields, "server.http_port")
	}
	if old.Server.BroadcastInterval != nc.Server.BroadcastInterval {
		fields = append(fields, "server.broadcast_interval")
	}
	if old.Server.Workers != nc.Server.Workers {
		fields = append(fields, "server.workers")
	}
	if old.Cache.Path != nc.Cache.Path {
		fields = append(fields, "cache.path")
	}
	return fields
}

// refreshEvery calls f every d until ctx is cancelled.
func refreshEvery(ctx context.Context, d time.Duration, f func()) {
	t := time.NewTicker(d)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			f()
		}
	}
}
