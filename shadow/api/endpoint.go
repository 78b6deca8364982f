// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"

	"github.com/absmach/shadowrpc"
	"github.com/absmach/shadowrpc/devices"
	"github.com/absmach/shadowrpc/pkg/apiutil"
	"github.com/absmach/shadowrpc/pkg/errors"
	"github.com/absmach/shadowrpc/shadow"
	"github.com/go-kit/kit/endpoint"
)

func issueCommandEndpoint(svc shadow.Service, ids shadowrpc.IDProvider) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(issueCommandReq)
		if err := req.validate(); err != nil {
			return nil, errors.Wrap(apiutil.ErrValidation, err)
		}

		cmd := req.cmd
		if cmd.ID == nil {
			id, err := ids.ID()
			if err != nil {
				return nil, err
			}
			cmd.ID = id
		}

		opts := []shadow.IssueOption{}
		if req.maxRetries != nil {
			opts = append(opts, shadow.WithMaxRetries(*req.maxRetries))
		}

		out, err := svc.Issue(ctx, req.key, cmd, req.mode, opts...)
		if err != nil {
			return nil, err
		}

		return issueCommandRes{
			Mode:    out.Mode,
			Desired: out.Desired,
			Result:  out.Result,
			Polls:   out.Polls,
		}, nil
	}
}

func viewShadowEndpoint(svc shadow.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(shadowReq)
		if err := req.validate(); err != nil {
			return nil, errors.Wrap(apiutil.ErrValidation, err)
		}

		doc, err := svc.ViewShadow(ctx, req.key)
		if err != nil {
			return nil, err
		}

		return viewShadowRes{Document: doc}, nil
	}
}

func clearShadowEndpoint(svc shadow.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(shadowReq)
		if err := req.validate(); err != nil {
			return nil, errors.Wrap(apiutil.ErrValidation, err)
		}

		if err := svc.ClearShadow(ctx, req.key); err != nil {
			return nil, err
		}

		return clearShadowRes{}, nil
	}
}

func listDevicesEndpoint(lister devices.Lister) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(listDevicesReq)
		if err := req.validate(); err != nil {
			return nil, errors.Wrap(apiutil.ErrValidation, err)
		}

		devs, err := lister.ListDevices(ctx, devices.Filter{Type: req.deviceType})
		if err != nil {
			return nil, err
		}

		return listDevicesRes{Total: len(devs), Devices: devs}, nil
	}
}
