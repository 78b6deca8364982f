// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package shadow

import (
	"bytes"
	"context"
	"encoding/json"
	"reflect"
	"strings"

	"github.com/absmach/shadowrpc/pkg/errors"
)

// JSONRPCVersion is the protocol version stamped on commands that omit it.
const JSONRPCVersion = "2.0"

// Command is a JSON-RPC request addressed to a device. Params holds
// either named parameters (an object) or positional ones (an array).
type Command struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// Validate returns an error if the command cannot be dispatched.
func (cmd Command) Validate() error {
	if strings.TrimSpace(cmd.Method) == "" {
		return errors.Wrap(ErrMalformedCommand, errMissingMethod)
	}
	if cmd.JSONRPC != "" && cmd.JSONRPC != JSONRPCVersion {
		return errors.Wrap(ErrMalformedCommand, errInvalidVersion)
	}
	return nil
}

// normalize validates the command and returns a deep copy decoded from its
// wire form, so later mutation of the caller's params cannot leak into a
// dispatched command.
func (cmd Command) normalize() (Command, error) {
	if err := cmd.Validate(); err != nil {
		return Command{}, err
	}
	if cmd.JSONRPC == "" {
		cmd.JSONRPC = JSONRPCVersion
	}
	data, err := json.Marshal(cmd)
	if err != nil {
		return Command{}, errors.Wrap(ErrMalformedCommand, err)
	}
	var c Command
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&c); err != nil {
		return Command{}, errors.Wrap(ErrMalformedCommand, err)
	}
	switch c.Params.(type) {
	case nil, map[string]any, []any:
	default:
		return Command{}, errors.Wrap(ErrMalformedCommand, errInvalidParams)
	}
	return c, nil
}

// Reported is the device's answer to the last consumed command.
// A present Result holds even when it is JSON null; an Error of JSON null
// counts as absent.
type Reported struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  json.RawMessage `json:"error,omitempty"`
}

// Failed reports whether the device answered with an error.
func (r *Reported) Failed() bool {
	if r == nil {
		return false
	}
	e := bytes.TrimSpace(r.Error)
	return len(e) > 0 && !bytes.Equal(e, []byte("null"))
}

// Answered reports whether the device answered at all.
func (r *Reported) Answered() bool {
	return r != nil && (r.Result != nil || r.Failed())
}

// State holds the two halves of a shadow document.
type State struct {
	Desired  *Command  `json:"desired"`
	Reported *Reported `json:"reported"`
}

// Document is the shadow document held per device key.
type Document struct {
	State     State `json:"state"`
	Version   int64 `json:"version,omitempty"`
	Timestamp int64 `json:"timestamp,omitempty"`
}

// Pending reports whether a command is waiting for the device.
func (doc Document) Pending() bool {
	return doc.State.Desired != nil
}

// Stale reports whether the document must be cleared before a new dispatch.
func (doc Document) Stale() bool {
	return doc.Pending() || doc.State.Reported.Failed()
}

// Empty reports whether the document has neither desired nor reported state.
func (doc Document) Empty() bool {
	return doc.State.Desired == nil && doc.State.Reported == nil
}

// ParseDocument decodes a stored shadow document. Numbers are kept in their
// textual form so command params survive the round trip unchanged.
func ParseDocument(data []byte) (Document, error) {
	var doc Document
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return Document{}, errors.Wrap(ErrMalformedDocument, err)
	}
	return doc, nil
}

// Outcome is the result of a successful Issue call. After a dispatch it
// also accompanies failures, carrying the mode and the number of polls.
type Outcome struct {
	Mode    Mode            `json:"mode"`
	Desired *Command        `json:"desired,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Polls   uint            `json:"polls"`
}

// Store is the shadow document store consumed by the gateway.
// Reads observe earlier writes to the same key; there are no multi-key
// transactions and no compare-and-swap.
type Store interface {
	// Fetch returns the current document. A missing document is returned empty.
	Fetch(ctx context.Context, key string) (Document, error)

	// Replace writes the desired state, clears reported state and returns
	// the document acknowledged by the store.
	Replace(ctx context.Context, key string, doc Document) (Document, error)

	// Clear removes the document. Clearing a missing document succeeds.
	Clear(ctx context.Context, key string) error
}

// Service specifies the command gateway API.
type Service interface {
	// Issue dispatches cmd to the device and, in synchronous mode, waits for its answer.
	Issue(ctx context.Context, key string, cmd Command, mode Mode, opts ...IssueOption) (Outcome, error)

	// ViewShadow returns the device's current shadow document.
	ViewShadow(ctx context.Context, key string) (Document, error)

	// ClearShadow resets the device's shadow document.
	ClearShadow(ctx context.Context, key string) error
}

// dispatched reports whether ack holds exactly cmd as desired state and no reported state.
func dispatched(cmd Command, ack Document) bool {
	if ack.State.Desired == nil {
		return false
	}
	if r := ack.State.Reported; r != nil && (r.Result != nil || len(r.Error) > 0) {
		return false
	}
	return equalJSON(cmd, *ack.State.Desired)
}

func equalJSON(a, b any) bool {
	var va, vb any
	if !decodeGeneric(a, &va) || !decodeGeneric(b, &vb) {
		return false
	}
	return reflect.DeepEqual(va, vb)
}

func decodeGeneric(v any, out *any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, out) == nil
}
