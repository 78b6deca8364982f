// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package apiutil

import "github.com/absmach/shadowrpc/pkg/errors"

// Errors defined in this file are used by the LoggingErrorEncoder decorator
// to distinguish and log API request validation errors and avoid that service
// errors are logged twice.
var (
	// ErrValidation indicates that an error was returned by the API.
	ErrValidation = errors.New("something went wrong with the request")

	// ErrMissingDeviceKey indicates a missing device key in the request path.
	ErrMissingDeviceKey = errors.New("missing device key")

	// ErrMissingMethod indicates a command without a JSON-RPC method.
	ErrMissingMethod = errors.New("missing command method")

	// ErrInvalidMode indicates a mode other than sync or async.
	ErrInvalidMode = errors.New("invalid command mode")

	// ErrInvalidQueryParams indicates invalid query parameters.
	ErrInvalidQueryParams = errors.New("invalid query parameters")

	// ErrMalformedBody indicates a request body that is not valid JSON.
	ErrMalformedBody = errors.New("malformed request body")

	// ErrUnsupportedContentType indicates unacceptable or lack of Content-Type.
	ErrUnsupportedContentType = errors.New("unsupported content type")

	// ErrLimitSize indicates that an invalid limit.
	ErrLimitSize = errors.New("invalid limit size")
)
