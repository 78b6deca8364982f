// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package sdk contains the gateway HTTP client.
package sdk

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/absmach/shadowrpc/pkg/errors"
)

const (
	// CTJSON represents JSON content type.
	CTJSON ContentType = "application/json"

	// ModeSync blocks until the device answers.
	ModeSync = "sync"

	// ModeAsync returns once the command is dispatched.
	ModeAsync = "async"

	jsonrpcVersion  = "2.0"
	devicesEndpoint = "devices"
)

// ContentType represents all possible content types.
type ContentType string

var _ SDK = (*gwSDK)(nil)

var (
	// ErrMissingKey indicates a request without a device key.
	ErrMissingKey = errors.New("missing device key")

	// ErrMissingMethod indicates a command without a method.
	ErrMissingMethod = errors.New("missing command method")
)

// Command is a JSON-RPC request for a device.
type Command struct {
	JSONRPC string `json:"jsonrpc,omitempty"`
	ID      any    `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// Outcome is the gateway answer to an issued command.
type Outcome struct {
	Mode    string          `json:"mode"`
	Desired *Command        `json:"desired,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Polls   uint            `json:"polls"`
}

// Reported holds the device answer.
type Reported struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  json.RawMessage `json:"error,omitempty"`
}

// State is the desired and reported pair of a shadow.
type State struct {
	Desired  *Command  `json:"desired"`
	Reported *Reported `json:"reported"`
}

// Document is a device shadow.
type Document struct {
	State     State `json:"state"`
	Version   int64 `json:"version,omitempty"`
	Timestamp int64 `json:"timestamp,omitempty"`
}

// Device is a discovered device.
type Device struct {
	Key        string            `json:"key"`
	Name       string            `json:"name"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// DevicesPage contains a list of devices.
type DevicesPage struct {
	Total   int      `json:"total"`
	Devices []Device `json:"devices"`
}

// IssueOptions tunes an Issue call.
type IssueOptions struct {
	// Async returns on dispatch instead of waiting for the device.
	Async bool

	// MaxRetries bounds the number of polls. Zero keeps the gateway default.
	MaxRetries uint
}

// SDK contains the gateway API definition.
//
// Example:
//
//	conf := sdk.Config{GatewayURL: "http://localhost:9030"}
//	gw := sdk.NewSDK(conf)
//	out, _ := gw.Issue("livingroom", sdk.Command{Method: "JSONRPC.Ping"}, sdk.IssueOptions{})
//	fmt.Println(string(out.Result))
type SDK interface {
	// Issue sends a command to the device and, unless async, waits for its result.
	Issue(key string, cmd Command, opts IssueOptions) (Outcome, errors.SDKError)

	// Shadow returns the current shadow document of the device.
	Shadow(key string) (Document, errors.SDKError)

	// ClearShadow clears the shadow document of the device.
	ClearShadow(key string) errors.SDKError

	// Devices lists the discoverable devices, optionally of a single type.
	Devices(deviceType string) (DevicesPage, errors.SDKError)

	// Health returns the gateway health info.
	Health() (HealthInfo, errors.SDKError)
}

type gwSDK struct {
	gatewayURL string
	client     *http.Client
}

// Config contains sdk configuration parameters.
type Config struct {
	GatewayURL      string
	TLSVerification bool
}

// NewSDK returns new gateway SDK instance.
func NewSDK(conf Config) SDK {
	return &gwSDK{
		gatewayURL: conf.GatewayURL,
		client: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: !conf.TLSVerification,
				},
			},
		},
	}
}

func (sdk gwSDK) Issue(key string, cmd Command, opts IssueOptions) (Outcome, errors.SDKError) {
	if key == "" {
		return Outcome{}, errors.NewSDKError(ErrMissingKey)
	}
	if cmd.Method == "" {
		return Outcome{}, errors.NewSDKError(ErrMissingMethod)
	}
	if cmd.JSONRPC == "" {
		cmd.JSONRPC = jsonrpcVersion
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return Outcome{}, errors.NewSDKError(err)
	}

	q := url.Values{}
	q.Set("mode", ModeSync)
	if opts.Async {
		q.Set("mode", ModeAsync)
	}
	if opts.MaxRetries > 0 {
		q.Set("max_retries", strconv.FormatUint(uint64(opts.MaxRetries), 10))
	}
	reqURL := fmt.Sprintf("%s/%s/%s/commands?%s", sdk.gatewayURL, devicesEndpoint, url.PathEscape(key), q.Encode())

	_, body, sdkerr := sdk.processRequest(http.MethodPost, reqURL, data, http.StatusOK)
	if sdkerr != nil {
		return Outcome{}, sdkerr
	}

	var out Outcome
	if err := json.Unmarshal(body, &out); err != nil {
		return Outcome{}, errors.NewSDKError(err)
	}

	return out, nil
}

func (sdk gwSDK) Shadow(key string) (Document, errors.SDKError) {
	if key == "" {
		return Document{}, errors.NewSDKError(ErrMissingKey)
	}
	reqURL := fmt.Sprintf("%s/%s/%s/shadow", sdk.gatewayURL, devicesEndpoint, url.PathEscape(key))

	_, body, sdkerr := sdk.processRequest(http.MethodGet, reqURL, nil, http.StatusOK)
	if sdkerr != nil {
		return Document{}, sdkerr
	}

	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return Document{}, errors.NewSDKError(err)
	}

	return doc, nil
}

func (sdk gwSDK) ClearShadow(key string) errors.SDKError {
	if key == "" {
		return errors.NewSDKError(ErrMissingKey)
	}
	reqURL := fmt.Sprintf("%s/%s/%s/shadow", sdk.gatewayURL, devicesEndpoint, url.PathEscape(key))

	_, _, sdkerr := sdk.processRequest(http.MethodDelete, reqURL, nil, http.StatusNoContent)

	return sdkerr
}

func (sdk gwSDK) Devices(deviceType string) (DevicesPage, errors.SDKError) {
	reqURL := fmt.Sprintf("%s/%s", sdk.gatewayURL, devicesEndpoint)
	if deviceType != "" {
		reqURL = fmt.Sprintf("%s?%s", reqURL, url.Values{"type": []string{deviceType}}.Encode())
	}

	_, body, sdkerr := sdk.processRequest(http.MethodGet, reqURL, nil, http.StatusOK)
	if sdkerr != nil {
		return DevicesPage{}, sdkerr
	}

	var page DevicesPage
	if err := json.Unmarshal(body, &page); err != nil {
		return DevicesPage{}, errors.NewSDKError(err)
	}

	return page, nil
}

// processRequest creates and send a new HTTP request, and checks for errors in the HTTP response.
// It then returns the response headers, the response body, and the associated error(s) (if any).
func (sdk gwSDK) processRequest(method, reqURL string, data []byte, expectedRespCodes ...int) (http.Header, []byte, errors.SDKError) {
	req, err := http.NewRequest(method, reqURL, bytes.NewReader(data))
	if err != nil {
		return make(http.Header), []byte{}, errors.NewSDKError(err)
	}
	req.Header.Add("Content-Type", string(CTJSON))

	resp, err := sdk.client.Do(req)
	if err != nil {
		return make(http.Header), []byte{}, errors.NewSDKError(err)
	}
	defer resp.Body.Close()

	sdkerr := errors.CheckError(resp, expectedRespCodes...)
	if sdkerr != nil {
		return make(http.Header), []byte{}, sdkerr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return make(http.Header), []byte{}, errors.NewSDKError(err)
	}

	return resp.Header, body, nil
}
