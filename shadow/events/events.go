// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"time"

	"github.com/absmach/shadowrpc/pkg/events"
)

const (
	subjectPrefix = "shadow.commands."
	issueEvent    = "command.issue"
)

var _ events.Event = (*commandEvent)(nil)

type commandEvent struct {
	deviceKey  string
	id         any
	method     string
	mode       string
	status     string
	polls      uint
	occurredAt time.Time
	instance   string
}

func (ce commandEvent) Encode() (map[string]interface{}, error) {
	val := map[string]interface{}{
		"operation":   issueEvent,
		"device_key":  ce.deviceKey,
		"method":      ce.method,
		"mode":        ce.mode,
		"status":      ce.status,
		"polls":       ce.polls,
		"occurred_at": ce.occurredAt.UnixNano(),
	}
	if ce.id != nil {
		val["id"] = ce.id
	}
	if ce.instance != "" {
		val["instance"] = ce.instance
	}

	return val, nil
}
