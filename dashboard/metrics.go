// Copyright 2020 Daniel Erat <dan@erat.org>.
// All rights reserved.

package main

import "github.com/prometheus/client_golang/prometheus"

const metricsNamespace = "covidtraj"

type metrics struct {
	reloads       *prometheus.CounterVec // by result: "ok", "error"
	reloadSeconds prometheus.Histogram
	cacheLookups  *prometheus.CounterVec // by result: "hit", "miss"
	locations     prometheus.Gauge
}

// newMetrics registers the dashboard's collectors with reg.
// clients reports the number of connected WebSocket clients.
func newMetrics(reg prometheus.Registerer, clients func() float64) *metrics {
	m := &metrics{
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "dataset_reloads_total",
			Help:      "Dataset reloads, by result.",
		}, []string{"result"}),
		reloadSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "dataset_reload_seconds",
			Help:      "Time taken to load the dataset and estimate all locations.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "estimate_cache_lookups_total",
			Help:      "Estimate cache lookups, by result.",
		}, []string{"result"}),
		locations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "locations",
			Help:      "Locations in the loaded dataset.",
		}),
	}
	reg.MustRegister(m.reloads, m.reloadSeconds, m.cacheLookups, m.locations,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "websocket_clients",
			Help:      "Connected WebSocket clients.",
		}, clients))
	return m
}

func (m *metrics) observeLookup(hit bool) {
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
	} else {
		m.cacheLookups.WithLabelValues("miss").Inc()
	}
}
