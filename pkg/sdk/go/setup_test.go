// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package sdk_test

import (
	"net/http/httptest"

	dmocks "github.com/absmach/shadowrpc/devices/mocks"
	"github.com/absmach/shadowrpc/logger"
	"github.com/absmach/shadowrpc/pkg/uuid"
	"github.com/absmach/shadowrpc/shadow/api"
	"github.com/absmach/shadowrpc/shadow/mocks"
)

const (
	deviceKey  = "livingroom"
	instanceID = "5de9b29a-feb9-11ed-be56-0242ac120002"
)

func setupGateway() (*httptest.Server, *mocks.Service, *dmocks.Lister) {
	svc := new(mocks.Service)
	lister := new(dmocks.Lister)
	mux := api.MakeHandler(svc, lister, uuid.NewMock(), logger.NewMock(), instanceID)

	return httptest.NewServer(mux), svc, lister
}
