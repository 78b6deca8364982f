// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/absmach/shadowrpc"
	"github.com/absmach/shadowrpc/pkg/apiutil"
	"github.com/absmach/shadowrpc/pkg/errors"
	"github.com/absmach/shadowrpc/shadow"
)

const (
	ModeKey       = "mode"
	MaxRetriesKey = "max_retries"
	TypeKey       = "type"
	DefMode       = "sync"

	// ContentType represents JSON content type.
	ContentType = "application/json"

	// MaxRetriesLimit bounds the retry budget a caller may request.
	MaxRetriesLimit = 100
)

// EncodeResponse encodes successful response.
func EncodeResponse(_ context.Context, w http.ResponseWriter, response interface{}) error {
	if ar, ok := response.(shadowrpc.Response); ok {
		for k, v := range ar.Headers() {
			w.Header().Set(k, v)
		}
		w.Header().Set("Content-Type", ContentType)
		w.WriteHeader(ar.Code())

		if ar.Empty() {
			return nil
		}
	}

	return json.NewEncoder(w).Encode(response)
}

// EncodeError encodes an error response.
func EncodeError(_ context.Context, err error, w http.ResponseWriter) {
	var wrapper error
	if errors.Contains(err, apiutil.ErrValidation) {
		wrapper, err = errors.Unwrap(err)
	}

	w.Header().Set("Content-Type", ContentType)
	switch {
	case errors.Contains(err, errors.ErrMalformedEntity),
		errors.Contains(err, apiutil.ErrValidation),
		errors.Contains(err, apiutil.ErrMissingDeviceKey),
		errors.Contains(err, apiutil.ErrMissingMethod),
		errors.Contains(err, apiutil.ErrInvalidMode),
		errors.Contains(err, apiutil.ErrInvalidQueryParams),
		errors.Contains(err, apiutil.ErrMalformedBody),
		errors.Contains(err, apiutil.ErrLimitSize),
		errors.Contains(err, shadow.ErrMalformedCommand),
		errors.Contains(err, shadow.ErrEmptyKey):
		err = unwrap(err)
		w.WriteHeader(http.StatusBadRequest)

	case errors.Contains(err, apiutil.ErrUnsupportedContentType),
		errors.Contains(err, errors.ErrUnsupportedContentType):
		err = unwrap(err)
		w.WriteHeader(http.StatusUnsupportedMediaType)

	case errors.Contains(err, errors.ErrNotFound):
		err = unwrap(err)
		w.WriteHeader(http.StatusNotFound)

	case errors.Contains(err, shadow.ErrDispatchMismatch),
		errors.Contains(err, shadow.ErrDeviceBusy):
		w.WriteHeader(http.StatusConflict)

	case errors.Contains(err, shadow.ErrTimeout):
		w.WriteHeader(http.StatusGatewayTimeout)

	case errors.Contains(err, shadow.ErrRemote),
		errors.Contains(err, shadow.ErrProtocolViolation):
		w.WriteHeader(http.StatusBadGateway)

	case errors.Contains(err, shadow.ErrStoreUnavailable),
		errors.Contains(err, shadow.ErrCleanupFailed):
		w.WriteHeader(http.StatusServiceUnavailable)

	default:
		w.WriteHeader(http.StatusInternalServerError)
	}

	if wrapper != nil {
		err = errors.Wrap(wrapper, err)
	}

	if errorVal, ok := err.(errors.Error); ok {
		if err := json.NewEncoder(w).Encode(errorVal); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}
}

func unwrap(err error) error {
	wrapper, err := errors.Unwrap(err)
	if wrapper != nil {
		return wrapper
	}
	return err
}
