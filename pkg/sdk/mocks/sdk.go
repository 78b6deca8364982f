// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package mocks

import (
	"github.com/absmach/shadowrpc/pkg/errors"
	sdk "github.com/absmach/shadowrpc/pkg/sdk/go"
	"github.com/stretchr/testify/mock"
)

var _ sdk.SDK = (*SDK)(nil)

// SDK is a mock of the gateway SDK.
type SDK struct {
	mock.Mock
}

func (m *SDK) Issue(key string, cmd sdk.Command, opts sdk.IssueOptions) (sdk.Outcome, errors.SDKError) {
	ret := m.Called(key, cmd, opts)

	return ret.Get(0).(sdk.Outcome), sdkErr(ret.Get(1))
}

func (m *SDK) Shadow(key string) (sdk.Document, errors.SDKError) {
	ret := m.Called(key)

	return ret.Get(0).(sdk.Document), sdkErr(ret.Get(1))
}

func (m *SDK) ClearShadow(key string) errors.SDKError {
	ret := m.Called(key)

	return sdkErr(ret.Get(0))
}

func (m *SDK) Devices(deviceType string) (sdk.DevicesPage, errors.SDKError) {
	ret := m.Called(deviceType)

	return ret.Get(0).(sdk.DevicesPage), sdkErr(ret.Get(1))
}

func (m *SDK) Health() (sdk.HealthInfo, errors.SDKError) {
	ret := m.Called()

	return ret.Get(0).(sdk.HealthInfo), sdkErr(ret.Get(1))
}

func sdkErr(v interface{}) errors.SDKError {
	if v == nil {
		return nil
	}
	return v.(errors.SDKError)
}
