// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package tracing contains span helpers shared by the tracing middlewares.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartSpan starts a server span named after the operation.
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	opts = append(opts, trace.WithSpanKind(trace.SpanKindServer))
	return tracer.Start(ctx, name, opts...)
}

// EndSpan records err on the span, tags the outcome status and ends it.
func EndSpan(span trace.Span, status string, err error) {
	span.SetAttributes(attribute.String("status", status))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
