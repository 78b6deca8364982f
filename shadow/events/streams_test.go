// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package events_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/absmach/shadowrpc/logger"
	"github.com/absmach/shadowrpc/pkg/errors"
	"github.com/absmach/shadowrpc/pkg/events"
	pubmocks "github.com/absmach/shadowrpc/pkg/events/mocks"
	"github.com/absmach/shadowrpc/shadow"
	shadowevents "github.com/absmach/shadowrpc/shadow/events"
	"github.com/absmach/shadowrpc/shadow/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	stopCmd    = shadow.Command{ID: "7", Method: "Player.Stop", Params: map[string]any{"playerid": 1}}
	errPublish = errors.New("nats: connection closed")
)

func TestIssuePublishesEvent(t *testing.T) {
	cases := []struct {
		desc       string
		out        shadow.Outcome
		err        error
		publishErr error
		status     string
	}{
		{
			desc:   "successful command",
			out:    shadow.Outcome{Mode: shadow.Sync, Result: json.RawMessage(`"OK"`), Polls: 3},
			status: shadow.StatusSuccess,
		},
		{
			desc:   "timed out command",
			out:    shadow.Outcome{Mode: shadow.Sync, Polls: 10},
			err:    shadow.ErrTimeout,
			status: shadow.StatusTimeout,
		},
		{
			desc:   "remote error",
			out:    shadow.Outcome{Mode: shadow.Sync, Polls: 1},
			err:    &shadow.RemoteError{Payload: json.RawMessage(`{"code":-32100}`)},
			status: shadow.StatusRemoteError,
		},
		{
			desc:       "publish failure does not change the outcome",
			out:        shadow.Outcome{Mode: shadow.Sync, Result: json.RawMessage(`"OK"`), Polls: 1},
			publishErr: errPublish,
			status:     shadow.StatusSuccess,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			svc := new(mocks.Service)
			pub := new(pubmocks.Publisher)
			es := shadowevents.NewEventStoreMiddleware(svc, pub, "instance-1", logger.NewMock())

			svc.On("Issue", mock.Anything, "livingroom", stopCmd, shadow.Sync).Return(tc.out, tc.err)

			var published map[string]interface{}
			pub.On("Publish", mock.Anything, "shadow.commands.livingroom", mock.Anything).Run(func(args mock.Arguments) {
				var err error
				published, err = args.Get(2).(events.Event).Encode()
				require.Nil(t, err)
			}).Return(tc.publishErr)

			out, err := es.Issue(context.Background(), "livingroom", stopCmd, shadow.Sync)
			assert.Equal(t, tc.err, err, fmt.Sprintf("%s: expected %v got %v", tc.desc, tc.err, err))
			assert.Equal(t, tc.out, out)

			pub.AssertNumberOfCalls(t, "Publish", 1)
			assert.Equal(t, "livingroom", published["device_key"])
			assert.Equal(t, "7", published["id"])
			assert.Equal(t, "Player.Stop", published["method"])
			assert.Equal(t, "sync", published["mode"])
			assert.Equal(t, tc.status, published["status"])
			assert.Equal(t, tc.out.Polls, published["polls"])
			assert.Equal(t, "instance-1", published["instance"])
			assert.NotZero(t, published["occurred_at"])
		})
	}
}

func TestViewAndClearDoNotPublish(t *testing.T) {
	svc := new(mocks.Service)
	pub := new(pubmocks.Publisher)
	es := shadowevents.NewEventStoreMiddleware(svc, pub, "", logger.NewMock())

	svc.On("ViewShadow", mock.Anything, "livingroom").Return(shadow.Document{}, nil)
	svc.On("ClearShadow", mock.Anything, "livingroom").Return(nil)

	_, err := es.ViewShadow(context.Background(), "livingroom")
	assert.Nil(t, err)
	assert.Nil(t, es.ClearShadow(context.Background(), "livingroom"))
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubject(t *testing.T) {
	cases := []struct {
		desc    string
		key     string
		subject string
	}{
		{desc: "plain key", key: "livingroom", subject: "shadow.commands.livingroom"},
		{desc: "dotted key", key: "kodi.livingroom", subject: "shadow.commands.kodi_livingroom"},
		{desc: "wildcards", key: "a*b>c", subject: "shadow.commands.a_b_c"},
		{desc: "spaces", key: "living room", subject: "shadow.commands.living_room"},
		{desc: "empty key", key: "", subject: "shadow.commands._"},
	}

	for _, tc := range cases {
		subject := shadowevents.Subject(tc.key)
		assert.Equal(t, tc.subject, subject, fmt.Sprintf("%s: expected %s got %s", tc.desc, tc.subject, subject))
	}
}
