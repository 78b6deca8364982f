// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package nats publishes events as JSON on NATS subjects.
package nats

import (
	"context"
	"encoding/json"

	"github.com/absmach/shadowrpc/pkg/errors"
	"github.com/absmach/shadowrpc/pkg/events"
	broker "github.com/nats-io/nats.go"
)

const (
	// A maximum number of reconnect attempts before NATS connection closes permanently.
	// Value -1 represents an unlimited number of reconnect retries, i.e. the client
	// will never give up on retrying to re-establish connection to NATS server.
	maxReconnects = -1

	// reconnectBufSize is obtained from the maximum number of unpublished events
	// multiplied by the approximate maximum size of a single event.
	reconnectBufSize = events.MaxUnpublishedEvents * 1024
)

var (
	// ErrEmptySubject indicates a publish without a subject.
	ErrEmptySubject = errors.New("empty subject")

	errEncodeEvent = errors.New("failed to encode event")
)

var _ events.Publisher = (*publisher)(nil)

type publisher struct {
	conn *broker.Conn
}

// NewPublisher connects to the NATS server at url.
func NewPublisher(url string) (events.Publisher, error) {
	conn, err := broker.Connect(url, broker.MaxReconnects(maxReconnects), broker.ReconnectBufSize(int(reconnectBufSize)))
	if err != nil {
		return nil, err
	}

	return &publisher{conn: conn}, nil
}

func (pub *publisher) Publish(ctx context.Context, subject string, event events.Event) error {
	if subject == "" {
		return ErrEmptySubject
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	values, err := event.Encode()
	if err != nil {
		return errors.Wrap(errEncodeEvent, err)
	}
	data, err := json.Marshal(values)
	if err != nil {
		return errors.Wrap(errEncodeEvent, err)
	}

	return pub.conn.Publish(subject, data)
}

func (pub *publisher) Close() error {
	return pub.conn.Drain()
}
