// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package events contains the event publishing API used to announce command outcomes.
package events

import (
	"context"
)

// MaxUnpublishedEvents bounds the events buffered while the broker is unreachable.
const MaxUnpublishedEvents uint64 = 1e4

// Event represents an event.
type Event interface {
	// Encode encodes event to map.
	Encode() (map[string]interface{}, error)
}

// Publisher specifies events publishing API.
type Publisher interface {
	// Publish publishes event on the given subject.
	Publish(ctx context.Context, subject string, event Event) error

	// Close gracefully closes event publisher's connection.
	Close() error
}

// Read reads value from event map.
// If value is not of type T, returns default value.
func Read[T any](event map[string]interface{}, key string, def T) T {
	val, ok := event[key].(T)
	if !ok {
		return def
	}

	return val
}
