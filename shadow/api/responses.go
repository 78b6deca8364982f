// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"encoding/json"
	"net/http"

	"github.com/absmach/shadowrpc"
	"github.com/absmach/shadowrpc/devices"
	"github.com/absmach/shadowrpc/shadow"
)

var (
	_ shadowrpc.Response = (*issueCommandRes)(nil)
	_ shadowrpc.Response = (*viewShadowRes)(nil)
	_ shadowrpc.Response = (*clearShadowRes)(nil)
	_ shadowrpc.Response = (*listDevicesRes)(nil)
)

type issueCommandRes struct {
	Mode    shadow.Mode     `json:"mode"`
	Desired *shadow.Command `json:"desired,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Polls   uint            `json:"polls"`
}

func (res issueCommandRes) Code() int {
	return http.StatusOK
}

func (res issueCommandRes) Headers() map[string]string {
	return map[string]string{}
}

func (res issueCommandRes) Empty() bool {
	return false
}

type viewShadowRes struct {
	shadow.Document `json:",inline"`
}

func (res viewShadowRes) Code() int {
	return http.StatusOK
}

func (res viewShadowRes) Headers() map[string]string {
	return map[string]string{}
}

func (res viewShadowRes) Empty() bool {
	return false
}

type clearShadowRes struct{}

func (res clearShadowRes) Code() int {
	return http.StatusNoContent
}

func (res clearShadowRes) Headers() map[string]string {
	return map[string]string{}
}

func (res clearShadowRes) Empty() bool {
	return true
}

type listDevicesRes struct {
	Total   int              `json:"total"`
	Devices []devices.Device `json:"devices"`
}

func (res listDevicesRes) Code() int {
	return http.StatusOK
}

func (res listDevicesRes) Headers() map[string]string {
	return map[string]string{}
}

func (res listDevicesRes) Empty() bool {
	return false
}
