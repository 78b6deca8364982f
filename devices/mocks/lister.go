// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package mocks

import (
	"context"

	"github.com/absmach/shadowrpc/devices"
	"github.com/stretchr/testify/mock"
)

var _ devices.Lister = (*Lister)(nil)

type Lister struct {
	mock.Mock
}

func (l *Lister) ListDevices(ctx context.Context, filter devices.Filter) ([]devices.Device, error) {
	ret := l.Called(ctx, filter)

	return ret.Get(0).([]devices.Device), ret.Error(1)
}
