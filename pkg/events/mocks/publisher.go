// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package mocks

import (
	"context"

	"github.com/absmach/shadowrpc/pkg/events"
	"github.com/stretchr/testify/mock"
)

var _ events.Publisher = (*Publisher)(nil)

type Publisher struct {
	mock.Mock
}

func (pub *Publisher) Publish(ctx context.Context, subject string, event events.Event) error {
	ret := pub.Called(ctx, subject, event)

	return ret.Error(0)
}

func (pub *Publisher) Close() error {
	ret := pub.Called()

	return ret.Error(0)
}
