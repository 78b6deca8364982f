// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package shadow

import (
	"encoding/json"

	"github.com/absmach/shadowrpc/pkg/errors"
)

var (
	// ErrStoreUnavailable indicates the shadow store could not be read or written.
	ErrStoreUnavailable = errors.New("shadow store unavailable")

	// ErrCleanupFailed indicates stale shadow state could not be cleared.
	ErrCleanupFailed = errors.New("failed to clear stale shadow state")

	// ErrDispatchMismatch indicates the store acknowledged a different document than requested.
	ErrDispatchMismatch = errors.New("acknowledged shadow does not match dispatched command")

	// ErrTimeout indicates the device did not consume the command within the retry budget.
	ErrTimeout = errors.New("timed out waiting for device to answer")

	// ErrRemote indicates the device answered with an error.
	ErrRemote = errors.New("device reported an error")

	// ErrProtocolViolation indicates the device consumed the command without reporting an outcome.
	ErrProtocolViolation = errors.New("device cleared desired state without reporting an outcome")

	// ErrMalformedCommand indicates a command that cannot be dispatched.
	ErrMalformedCommand = errors.New("malformed command")

	// ErrMalformedDocument indicates a shadow document that cannot be decoded.
	ErrMalformedDocument = errors.New("malformed shadow document")

	// ErrEmptyKey indicates a missing device key.
	ErrEmptyKey = errors.New("empty device key")

	// ErrCanceled indicates the caller stopped waiting. The command stays dispatched.
	ErrCanceled = errors.New("canceled while waiting for device")

	// ErrDeviceBusy indicates the caller gave up waiting for another command to the same device.
	ErrDeviceBusy = errors.New("device is busy with another command")

	errMissingMethod  = errors.New("missing method")
	errInvalidVersion = errors.New("unsupported jsonrpc version")
	errInvalidParams  = errors.New("params must be an object or an array")
	errInvalidMode    = errors.New("unknown mode")
)

var _ errors.Error = (*RemoteError)(nil)

// RemoteError carries the error payload reported by the device.
type RemoteError struct {
	Payload json.RawMessage
}

func (re *RemoteError) Error() string {
	return ErrRemote.Msg() + " : " + string(re.Payload)
}

func (re *RemoteError) Msg() string {
	return ErrRemote.Msg()
}

func (re *RemoteError) Err() errors.Error {
	return nil
}

// Is reports ErrRemote as a match.
func (re *RemoteError) Is(target error) bool {
	return errors.Contains(ErrRemote, target)
}

// MarshalJSON keeps the standard error body and adds the raw device payload.
func (re *RemoteError) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Err     string          `json:"error"`
		Msg     string          `json:"message"`
		Payload json.RawMessage `json:"payload,omitempty"`
	}{
		Err:     string(re.Payload),
		Msg:     re.Msg(),
		Payload: re.Payload,
	})
}

// Status values name the outcome of an Issue call.
const (
	StatusSuccess           = "success"
	StatusStoreUnavailable  = "store_unavailable"
	StatusCleanupFailed     = "cleanup_failed"
	StatusDispatchMismatch  = "dispatch_mismatch"
	StatusTimeout           = "timeout"
	StatusRemoteError       = "remote_error"
	StatusProtocolViolation = "protocol_violation"
	StatusCanceled          = "canceled"
	StatusMalformedCommand  = "malformed_command"
	StatusDeviceBusy        = "device_busy"
	StatusUnknown           = "unknown"
)

// Status maps an Issue error to its outcome status.
func Status(err error) string {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Contains(err, ErrMalformedCommand), errors.Contains(err, ErrEmptyKey):
		return StatusMalformedCommand
	case errors.Contains(err, ErrCleanupFailed):
		return StatusCleanupFailed
	case errors.Contains(err, ErrDispatchMismatch):
		return StatusDispatchMismatch
	case errors.Contains(err, ErrTimeout):
		return StatusTimeout
	case errors.Contains(err, ErrRemote):
		return StatusRemoteError
	case errors.Contains(err, ErrProtocolViolation):
		return StatusProtocolViolation
	case errors.Contains(err, ErrCanceled):
		return StatusCanceled
	case errors.Contains(err, ErrDeviceBusy):
		return StatusDeviceBusy
	case errors.Contains(err, ErrStoreUnavailable):
		return StatusStoreUnavailable
	default:
		return StatusUnknown
	}
}
