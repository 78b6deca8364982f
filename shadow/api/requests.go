// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"strings"

	"github.com/absmach/shadowrpc/internal/api"
	"github.com/absmach/shadowrpc/pkg/apiutil"
	"github.com/absmach/shadowrpc/shadow"
)

type issueCommandReq struct {
	key        string
	mode       shadow.Mode
	maxRetries *uint
	cmd        shadow.Command
}

func (req issueCommandReq) validate() error {
	if strings.TrimSpace(req.key) == "" {
		return apiutil.ErrMissingDeviceKey
	}
	if strings.TrimSpace(req.cmd.Method) == "" {
		return apiutil.ErrMissingMethod
	}
	if req.maxRetries != nil && *req.maxRetries > api.MaxRetriesLimit {
		return apiutil.ErrLimitSize
	}

	return nil
}

type shadowReq struct {
	key string
}

func (req shadowReq) validate() error {
	if strings.TrimSpace(req.key) == "" {
		return apiutil.ErrMissingDeviceKey
	}

	return nil
}

type listDevicesReq struct {
	deviceType string
}

func (req listDevicesReq) validate() error {
	return nil
}
