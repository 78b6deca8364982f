// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package mocks

import (
	"context"

	"github.com/absmach/shadowrpc/shadow"
	"github.com/stretchr/testify/mock"
)

var _ shadow.Service = (*Service)(nil)

type Service struct {
	mock.Mock
}

func (svc *Service) Issue(ctx context.Context, key string, cmd shadow.Command, mode shadow.Mode, opts ...shadow.IssueOption) (shadow.Outcome, error) {
	ret := svc.Called(ctx, key, cmd, mode)

	return ret.Get(0).(shadow.Outcome), ret.Error(1)
}

func (svc *Service) ViewShadow(ctx context.Context, key string) (shadow.Document, error) {
	ret := svc.Called(ctx, key)

	return ret.Get(0).(shadow.Document), ret.Error(1)
}

func (svc *Service) ClearShadow(ctx context.Context, key string) error {
	ret := svc.Called(ctx, key)

	return ret.Error(0)
}
