// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package middleware

import (
	"context"
	"time"

	"github.com/absmach/shadowrpc/shadow"
	"github.com/go-kit/kit/metrics"
)

var _ shadow.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter  metrics.Counter
	latency  metrics.Histogram
	outcomes metrics.Counter
	polls    metrics.Histogram
	svc      shadow.Service
}

// MetricsMiddleware instruments the gateway by tracking request count, latency,
// command outcomes and the polls synchronous commands needed.
func MetricsMiddleware(svc shadow.Service, counter metrics.Counter, latency metrics.Histogram, outcomes metrics.Counter, polls metrics.Histogram) shadow.Service {
	return &metricsMiddleware{
		counter:  counter,
		latency:  latency,
		outcomes: outcomes,
		polls:    polls,
		svc:      svc,
	}
}

func (mm *metricsMiddleware) Issue(ctx context.Context, key string, cmd shadow.Command, mode shadow.Mode, opts ...shadow.IssueOption) (out shadow.Outcome, err error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "issue").Add(1)
		mm.latency.With("method", "issue").Observe(time.Since(begin).Seconds())
		mm.outcomes.With("mode", mode.String(), "status", shadow.Status(err)).Add(1)
		if mode == shadow.Sync {
			mm.polls.With("mode", mode.String()).Observe(float64(out.Polls))
		}
	}(time.Now())

	return mm.svc.Issue(ctx, key, cmd, mode, opts...)
}

func (mm *metricsMiddleware) ViewShadow(ctx context.Context, key string) (shadow.Document, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "view_shadow").Add(1)
		mm.latency.With("method", "view_shadow").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ViewShadow(ctx, key)
}

func (mm *metricsMiddleware) ClearShadow(ctx context.Context, key string) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "clear_shadow").Add(1)
		mm.latency.With("method", "clear_shadow").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.ClearShadow(ctx, key)
}
