// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package events announces the outcome of every issued command on the event bus.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/absmach/shadowrpc/pkg/events"
	"github.com/absmach/shadowrpc/shadow"
)

var _ shadow.Service = (*eventStore)(nil)

type eventStore struct {
	events.Publisher
	svc      shadow.Service
	instance string
	logger   *slog.Logger
}

// NewEventStoreMiddleware returns a wrapper around the gateway that publishes
// an event per issued command. Publish failures are logged and never change
// the command's outcome.
func NewEventStoreMiddleware(svc shadow.Service, publisher events.Publisher, instance string, logger *slog.Logger) shadow.Service {
	return &eventStore{
		Publisher: publisher,
		svc:       svc,
		instance:  instance,
		logger:    logger,
	}
}

func (es *eventStore) Issue(ctx context.Context, key string, cmd shadow.Command, mode shadow.Mode, opts ...shadow.IssueOption) (shadow.Outcome, error) {
	out, err := es.svc.Issue(ctx, key, cmd, mode, opts...)

	event := commandEvent{
		deviceKey:  key,
		id:         cmd.ID,
		method:     cmd.Method,
		mode:       mode.String(),
		status:     shadow.Status(err),
		polls:      out.Polls,
		occurredAt: time.Now(),
		instance:   es.instance,
	}
	if perr := es.Publish(context.WithoutCancel(ctx), Subject(key), event); perr != nil {
		es.logger.Warn(fmt.Sprintf("failed to publish command event for device %s: %s", key, perr))
	}

	return out, err
}

func (es *eventStore) ViewShadow(ctx context.Context, key string) (shadow.Document, error) {
	return es.svc.ViewShadow(ctx, key)
}

func (es *eventStore) ClearShadow(ctx context.Context, key string) error {
	return es.svc.ClearShadow(ctx, key)
}

// Subject returns the event subject for a device key. Characters that carry
// meaning in subjects are replaced with underscores.
func Subject(key string) string {
	if key == "" {
		key = "_"
	}
	return subjectPrefix + strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, key)
}
