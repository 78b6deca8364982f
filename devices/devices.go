// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package devices discovers the devices reachable through the gateway.
package devices

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultType is the device type discovered when none is requested.
const DefaultType = "Kodi"

// Device is a device addressable by its key.
type Device struct {
	Key        string            `json:"key"`
	Name       string            `json:"name"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Filter narrows device discovery.
type Filter struct {
	Type string
}

// Lister discovers devices.
type Lister interface {
	// ListDevices returns the devices matching the filter.
	ListDevices(ctx context.Context, filter Filter) ([]Device, error)
}

// Name returns the display name of a device key.
func Name(key string) string {
	return cases.Title(language.Und).String(strings.NewReplacer("_", " ", "-", " ").Replace(key))
}

var _ Lister = (*static)(nil)

type static struct {
	devices []Device
}

// NewStatic returns a Lister over a fixed set of keys of the given type.
func NewStatic(deviceType string, keys []string) Lister {
	devs := make([]Device, 0, len(keys))
	seen := make(map[string]struct{})
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		devs = append(devs, Device{Key: k, Name: Name(k), Type: deviceType})
	}
	sort.Slice(devs, func(i, j int) bool { return devs[i].Key < devs[j].Key })

	return &static{devices: devs}
}

func (s *static) ListDevices(_ context.Context, filter Filter) ([]Device, error) {
	devs := []Device{}
	for _, d := range s.devices {
		if filter.Type != "" && !strings.EqualFold(filter.Type, d.Type) {
			continue
		}
		devs = append(devs, d)
	}
	return devs, nil
}
