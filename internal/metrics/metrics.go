// Copyright 2026 dhcpv6d Authors. All rights reserved
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree.

// Package metrics provides optional Prometheus instrumentation for the
// core (§10.4): datagrams received/parsed/dropped per interface, handler
// latency, and worker-pool occupancy. Grounded on athena-dhcpd's
// internal/metrics package/metric-name conventions, but constructed
// rather than package-level promauto singletons, consistent with the
// core's no-global-state design (§9).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dhcpv6d"

// Metrics is an optional instrumentation sink. A nil *Metrics is valid
// everywhere it's accepted; every method is a safe no-op on a nil
// receiver so callers need not branch on whether metrics are enabled.
type Metrics struct {
	registry *prometheus.Registry

	datagramsReceived *prometheus.CounterVec
	datagramsParsed   *prometheus.CounterVec
	datagramsDropped  *prometheus.CounterVec
	handlerLatency    *prometheus.HistogramVec
	workerOccupancy   prometheus.Gauge
}

// New builds a Metrics sink registered against its own fresh registry,
// so the core never touches the global default registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		datagramsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datagrams_received_total",
			Help:      "Total datagrams read off a listening socket, by interface.",
		}, []string{"interface"}),
		datagramsParsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datagrams_parsed_total",
			Help:      "Total datagrams successfully parsed, by interface.",
		}, []string{"interface"}),
		datagramsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datagrams_dropped_total",
			Help:      "Total datagrams dropped, by interface and reason.",
		}, []string{"interface", "reason"}),
		handlerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handler_duration_seconds",
			Help:      "Handler invocation latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"interface"}),
		workerOccupancy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "worker_pool_occupancy",
			Help:      "Number of worker-pool slots currently running a job.",
		}),
	}
	reg.MustRegister(m.datagramsReceived, m.datagramsParsed, m.datagramsDropped, m.handlerLatency, m.workerOccupancy)
	return m
}

// Handler returns an http.Handler exposing this sink's registry in the
// Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ReceivedDatagram(iface string) {
	if m == nil {
		return
	}
	m.datagramsReceived.WithLabelValues(iface).Inc()
}

func (m *Metrics) ParsedDatagram(iface string) {
	if m == nil {
		return
	}
	m.datagramsParsed.WithLabelValues(iface).Inc()
}

func (m *Metrics) DroppedDatagram(iface, reason string) {
	if m == nil {
		return
	}
	m.datagramsDropped.WithLabelValues(iface, reason).Inc()
}

func (m *Metrics) ObserveHandlerLatency(iface string, seconds float64) {
	if m == nil {
		return
	}
	m.handlerLatency.WithLabelValues(iface).Observe(seconds)
}

func (m *Metrics) IncWorkerOccupancy() {
	if m == nil {
		return
	}
	m.workerOccupancy.Inc()
}

func (m *Metrics) DecWorkerOccupancy() {
	if m == nil {
		return
	}
	m.workerOccupancy.Dec()
}
