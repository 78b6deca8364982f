// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/absmach/shadowrpc/shadow"
)

var _ shadow.Service = (*loggingMiddleware)(nil)

type loggingMiddleware struct {
	logger *slog.Logger
	svc    shadow.Service
}

// LoggingMiddleware adds logging facilities to the gateway.
func LoggingMiddleware(svc shadow.Service, logger *slog.Logger) shadow.Service {
	return &loggingMiddleware{logger, svc}
}

func (lm *loggingMiddleware) Issue(ctx context.Context, key string, cmd shadow.Command, mode shadow.Mode, opts ...shadow.IssueOption) (out shadow.Outcome, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("device_key", key),
			slog.Group("command",
				slog.Any("id", cmd.ID),
				slog.String("method", cmd.Method),
			),
			slog.String("mode", mode.String()),
			slog.Uint64("polls", uint64(out.Polls)),
		}
		if err != nil {
			args = append(args,
				slog.String("status", shadow.Status(err)),
				slog.String("error", err.Error()),
			)
			lm.logger.Warn("Issue command failed", args...)
			return
		}
		lm.logger.Info("Issue command completed successfully", args...)
	}(time.Now())

	return lm.svc.Issue(ctx, key, cmd, mode, opts...)
}

func (lm *loggingMiddleware) ViewShadow(ctx context.Context, key string) (doc shadow.Document, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("device_key", key),
			slog.Bool("pending", doc.Pending()),
			slog.Int64("version", doc.Version),
		}
		if err != nil {
			args = append(args, slog.String("error", err.Error()))
			lm.logger.Warn("View shadow failed", args...)
			return
		}
		lm.logger.Info("View shadow completed successfully", args...)
	}(time.Now())

	return lm.svc.ViewShadow(ctx, key)
}

func (lm *loggingMiddleware) ClearShadow(ctx context.Context, key string) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("device_key", key),
		}
		if err != nil {
			args = append(args, slog.String("error", err.Error()))
			lm.logger.Warn("Clear shadow failed", args...)
			return
		}
		lm.logger.Info("Clear shadow completed successfully", args...)
	}(time.Now())

	return lm.svc.ClearShadow(ctx, key)
}
