// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package prometheus builds the go-kit Prometheus instruments shared by the service middlewares.
package prometheus

import (
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

// MakeMetrics returns an instance of Prometheus implementations for metrics.
// It returns a request counter and a request latency summary.
//
//	counter, latency := prometheus.MakeMetrics("shadow", "gateway")
func MakeMetrics(namespace, subsystem string) (*kitprometheus.Counter, *kitprometheus.Summary) {
	counter := kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request_count",
		Help:      "Number of requests received.",
	}, []string{"method"})
	latency := kitprometheus.NewSummaryFrom(stdprometheus.SummaryOpts{
		Namespace:  namespace,
		Subsystem:  subsystem,
		Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		Name:       "request_latency_microseconds",
		Help:       "Total duration of requests in microseconds.",
	}, []string{"method"})

	return counter, latency
}

// MakeOutcomeMetrics returns a counter of command outcomes labelled by status
// and a histogram of the number of polls a synchronous command needed.
func MakeOutcomeMetrics(namespace, subsystem string) (*kitprometheus.Counter, *kitprometheus.Histogram) {
	outcomes := kitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "command_outcomes_total",
		Help:      "Number of issued commands by outcome status.",
	}, []string{"mode", "status"})
	polls := kitprometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "command_polls",
		Help:      "Number of shadow fetches before a synchronous command resolved.",
		Buckets:   []float64{0, 1, 2, 3, 5, 8, 10, 15, 20},
	}, []string{"mode"})

	return outcomes, polls
}
