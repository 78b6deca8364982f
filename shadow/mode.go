// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package shadow

import (
	"strings"

	"github.com/absmach/shadowrpc/pkg/errors"
)

// Mode selects whether Issue waits for the device's answer.
type Mode uint8

const (
	// Sync blocks until the device answers or the retries run out.
	Sync Mode = iota
	// Async returns as soon as the store acknowledges the dispatch.
	Async
)

const (
	syncMode  = "sync"
	asyncMode = "async"
)

// ParseMode parses "sync" or "async", case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case syncMode:
		return Sync, nil
	case asyncMode:
		return Async, nil
	default:
		return Sync, errors.Wrap(ErrMalformedCommand, errInvalidMode)
	}
}

func (m Mode) String() string {
	switch m {
	case Sync:
		return syncMode
	case Async:
		return asyncMode
	default:
		return "unknown"
	}
}

func (m Mode) valid() bool {
	return m == Sync || m == Async
}

func (m Mode) MarshalText() ([]byte, error) {
	if !m.valid() {
		return nil, errInvalidMode
	}
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	mode, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}
