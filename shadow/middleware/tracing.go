// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package middleware

import (
	"context"
	"fmt"

	"github.com/absmach/shadowrpc/pkg/tracing"
	"github.com/absmach/shadowrpc/shadow"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var _ shadow.Service = (*tracingMiddleware)(nil)

type tracingMiddleware struct {
	tracer trace.Tracer
	svc    shadow.Service
}

// TracingMiddleware traces the gateway operations.
func TracingMiddleware(svc shadow.Service, tracer trace.Tracer) shadow.Service {
	return &tracingMiddleware{
		tracer: tracer,
		svc:    svc,
	}
}

func (tm *tracingMiddleware) Issue(ctx context.Context, key string, cmd shadow.Command, mode shadow.Mode, opts ...shadow.IssueOption) (shadow.Outcome, error) {
	ctx, span := tracing.StartSpan(ctx, tm.tracer, "issue_command", trace.WithAttributes(
		attribute.String("device_key", key),
		attribute.String("method", cmd.Method),
		attribute.String("id", fmt.Sprint(cmd.ID)),
		attribute.String("mode", mode.String()),
	))

	out, err := tm.svc.Issue(ctx, key, cmd, mode, opts...)
	span.SetAttributes(attribute.Int("polls", int(out.Polls)))
	tracing.EndSpan(span, shadow.Status(err), err)

	return out, err
}

func (tm *tracingMiddleware) ViewShadow(ctx context.Context, key string) (shadow.Document, error) {
	ctx, span := tracing.StartSpan(ctx, tm.tracer, "view_shadow", trace.WithAttributes(
		attribute.String("device_key", key),
	))
	defer span.End()

	return tm.svc.ViewShadow(ctx, key)
}

func (tm *tracingMiddleware) ClearShadow(ctx context.Context, key string) error {
	ctx, span := tracing.StartSpan(ctx, tm.tracer, "clear_shadow", trace.WithAttributes(
		attribute.String("device_key", key),
	))
	defer span.End()

	return tm.svc.ClearShadow(ctx, key)
}
