// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package alexa translates Alexa Smart Home directives into media center
// commands issued through the gateway.
package alexa

import "encoding/json"

const (
	payloadVersion = "3"

	nsAlexa        = "Alexa"
	nsDiscovery    = "Alexa.Discovery"
	nsVideoPlayer  = "Alexa.RemoteVideoPlayer"
	nsPlayback     = "Alexa.PlaybackController"
	nsSpeaker      = "Alexa.Speaker"
	nsSeek         = "Alexa.SeekController"
	interfaceType  = "AlexaInterface"
	nameResponse   = "Response"
	nameError      = "ErrorResponse"
	nameDiscover   = "Discover"
	nameDiscovered = "Discover.Response"
)

// Error types reported in Alexa.ErrorResponse events.
const (
	ErrEndpointUnreachable = "ENDPOINT_UNREACHABLE"
	ErrInvalidDirective    = "INVALID_DIRECTIVE"
	ErrInvalidValue        = "INVALID_VALUE"
	ErrNoSuchEndpoint      = "NO_SUCH_ENDPOINT"
	ErrInternal            = "INTERNAL_ERROR"
)

// Header identifies a directive or an event.
type Header struct {
	Namespace        string `json:"namespace"`
	Name             string `json:"name"`
	PayloadVersion   string `json:"payloadVersion"`
	MessageID        string `json:"messageId"`
	CorrelationToken string `json:"correlationToken,omitempty"`
}

// Scope carries the account linking token.
type Scope struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// Endpoint addresses a device.
type Endpoint struct {
	Scope      *Scope            `json:"scope,omitempty"`
	EndpointID string            `json:"endpointId"`
	Cookie     map[string]string `json:"cookie,omitempty"`
}

// Directive is an instruction sent by Alexa.
type Directive struct {
	Header   Header          `json:"header"`
	Endpoint *Endpoint       `json:"endpoint,omitempty"`
	Payload  json.RawMessage `json:"payload"`
}

// Request is the Lambda input.
type Request struct {
	Directive Directive `json:"directive"`
}

// Event is the answer to a directive.
type Event struct {
	Header   Header    `json:"header"`
	Endpoint *Endpoint `json:"endpoint,omitempty"`
	Payload  any       `json:"payload"`
}

// Response is the Lambda output.
type Response struct {
	Event Event `json:"event"`
}

// Capability is an interface an endpoint supports.
type Capability struct {
	Type                string   `json:"type"`
	Interface           string   `json:"interface"`
	Version             string   `json:"version"`
	SupportedOperations []string `json:"supportedOperations,omitempty"`
}

// DiscoveredEndpoint describes a device in a discovery response.
type DiscoveredEndpoint struct {
	EndpointID        string            `json:"endpointId"`
	ManufacturerName  string            `json:"manufacturerName"`
	FriendlyName      string            `json:"friendlyName"`
	Description       string            `json:"description"`
	DisplayCategories []string          `json:"displayCategories"`
	Cookie            map[string]string `json:"cookie,omitempty"`
	Capabilities      []Capability      `json:"capabilities"`
}

// DiscoveryPayload lists discovered endpoints.
type DiscoveryPayload struct {
	Endpoints []DiscoveredEndpoint `json:"endpoints"`
}

// ErrorPayload explains an Alexa.ErrorResponse.
type ErrorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Entity is a resolved slot in a SearchAndPlay directive.
type Entity struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type searchPayload struct {
	Entities []Entity `json:"entities"`
}

type mutePayload struct {
	Mute bool `json:"mute"`
}

type seekPayload struct {
	DeltaPositionMilliseconds int `json:"deltaPositionMilliseconds"`
}

func capabilities() []Capability {
	return []Capability{
		{Type: interfaceType, Interface: nsAlexa, Version: payloadVersion},
		{Type: interfaceType, Interface: nsVideoPlayer, Version: "1.0"},
		{
			Type:                interfaceType,
			Interface:           nsPlayback,
			Version:             payloadVersion,
			SupportedOperations: []string{"Play", "Pause", "Stop", "Next", "Previous", "FastForward", "Rewind"},
		},
		{Type: interfaceType, Interface: nsSpeaker, Version: payloadVersion},
		{Type: interfaceType, Interface: nsSeek, Version: payloadVersion},
	}
}
