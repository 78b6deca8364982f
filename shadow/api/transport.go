// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package api contains the HTTP transport of the command gateway.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/absmach/shadowrpc"
	"github.com/absmach/shadowrpc/devices"
	"github.com/absmach/shadowrpc/internal/api"
	"github.com/absmach/shadowrpc/pkg/apiutil"
	"github.com/absmach/shadowrpc/pkg/errors"
	"github.com/absmach/shadowrpc/shadow"
	"github.com/go-chi/chi/v5"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	keyParam    = "key"
	maxBodySize = 1 << 20
)

// MakeHandler returns a HTTP handler for the gateway API endpoints.
func MakeHandler(svc shadow.Service, lister devices.Lister, ids shadowrpc.IDProvider, logger *slog.Logger, instanceID string) http.Handler {
	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(apiutil.LoggingErrorEncoder(logger, api.EncodeError)),
	}

	mux := chi.NewRouter()

	mux.Route("/devices", func(r chi.Router) {
		r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
			listDevicesEndpoint(lister),
			decodeListDevices,
			api.EncodeResponse,
			opts...,
		), "list_devices").ServeHTTP)

		r.Route("/{key}", func(r chi.Router) {
			r.Post("/commands", otelhttp.NewHandler(kithttp.NewServer(
				issueCommandEndpoint(svc, ids),
				decodeIssueCommand,
				api.EncodeResponse,
				opts...,
			), "issue_command").ServeHTTP)
			r.Get("/shadow", otelhttp.NewHandler(kithttp.NewServer(
				viewShadowEndpoint(svc),
				decodeShadowReq,
				api.EncodeResponse,
				opts...,
			), "view_shadow").ServeHTTP)
			r.Delete("/shadow", otelhttp.NewHandler(kithttp.NewServer(
				clearShadowEndpoint(svc),
				decodeShadowReq,
				api.EncodeResponse,
				opts...,
			), "clear_shadow").ServeHTTP)
		})
	})

	mux.Get("/health", shadowrpc.Health("shadowrpc", instanceID))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func decodeIssueCommand(_ context.Context, r *http.Request) (interface{}, error) {
	if !strings.Contains(r.Header.Get("Content-Type"), api.ContentType) {
		return nil, errors.Wrap(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	m, err := apiutil.ReadStringQuery(r, api.ModeKey, api.DefMode)
	if err != nil {
		return nil, errors.Wrap(apiutil.ErrValidation, err)
	}
	mode, err := shadow.ParseMode(m)
	if err != nil {
		return nil, errors.Wrap(apiutil.ErrValidation, errors.Wrap(apiutil.ErrInvalidMode, err))
	}

	req := issueCommandReq{
		key:  chi.URLParam(r, keyParam),
		mode: mode,
	}
	if r.URL.Query().Has(api.MaxRetriesKey) {
		n, err := apiutil.ReadNumQuery[uint](r, api.MaxRetriesKey, 0)
		if err != nil {
			return nil, errors.Wrap(apiutil.ErrValidation, err)
		}
		req.maxRetries = &n
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return nil, errors.Wrap(apiutil.ErrValidation, errors.Wrap(apiutil.ErrMalformedBody, err))
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&req.cmd); err != nil {
		return nil, errors.Wrap(apiutil.ErrValidation, errors.Wrap(apiutil.ErrMalformedBody, err))
	}

	return req, nil
}

func decodeShadowReq(_ context.Context, r *http.Request) (interface{}, error) {
	return shadowReq{key: chi.URLParam(r, keyParam)}, nil
}

func decodeListDevices(_ context.Context, r *http.Request) (interface{}, error) {
	t, err := apiutil.ReadStringQuery(r, api.TypeKey, "")
	if err != nil {
		return nil, errors.Wrap(apiutil.ErrValidation, err)
	}

	return listDevicesReq{deviceType: t}, nil
}
