// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package nats_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/absmach/shadowrpc/pkg/errors"
	"github.com/absmach/shadowrpc/pkg/events/nats"
	broker "github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFailedEncode = errors.New("failed to encode")

type testEvent struct {
	data map[string]interface{}
	err  error
}

func (te testEvent) Encode() (map[string]interface{}, error) {
	return te.data, te.err
}

func TestPublish(t *testing.T) {
	pub, err := nats.NewPublisher(natsURL)
	require.Nil(t, err, fmt.Sprintf("got unexpected error on creating event store: %s", err))
	defer pub.Close()

	conn, err := broker.Connect(natsURL)
	require.Nil(t, err)
	defer conn.Close()

	received := make(chan *broker.Msg, 10)
	sub, err := conn.ChanSubscribe("shadow.commands.>", received)
	require.Nil(t, err)
	defer func() {
		assert.Nil(t, sub.Unsubscribe())
	}()
	require.Nil(t, conn.Flush())

	cases := []struct {
		desc    string
		subject string
		event   testEvent
		err     error
	}{
		{
			desc:    "publish event",
			subject: "shadow.commands.livingroom",
			event: testEvent{data: map[string]interface{}{
				"device_key": "livingroom",
				"method":     "Player.Stop",
				"status":     "success",
			}},
			err: nil,
		},
		{
			desc:    "publish event with empty subject",
			subject: "",
			event:   testEvent{data: map[string]interface{}{"status": "success"}},
			err:     nats.ErrEmptySubject,
		},
		{
			desc:    "publish event that fails to encode",
			subject: "shadow.commands.livingroom",
			event:   testEvent{err: errFailedEncode},
			err:     errFailedEncode,
		},
		{
			desc:    "publish event with unmarshalable value",
			subject: "shadow.commands.livingroom",
			event:   testEvent{data: map[string]interface{}{"fn": func() {}}},
			err:     errors.New("failed to encode event"),
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			err := pub.Publish(context.Background(), tc.subject, tc.event)
			assert.True(t, errors.Contains(err, tc.err), fmt.Sprintf("%s: expected %s got %s\n", tc.desc, tc.err, err))
			if tc.err != nil {
				return
			}

			select {
			case msg := <-received:
				assert.Equal(t, tc.subject, msg.Subject)
				var got map[string]interface{}
				require.Nil(t, json.Unmarshal(msg.Data, &got))
				assert.Equal(t, tc.event.data, got)
			case <-time.After(5 * time.Second):
				assert.Fail(t, fmt.Sprintf("%s: event not received", tc.desc))
			}
		})
	}
}
