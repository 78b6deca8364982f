// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package alexa

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/absmach/shadowrpc"
	"github.com/absmach/shadowrpc/devices"
	"github.com/absmach/shadowrpc/kodi"
	"github.com/absmach/shadowrpc/pkg/errors"
	"github.com/absmach/shadowrpc/shadow"
)

const (
	manufacturer = "OSMC"
	description  = "Kodi Media Player"
	category     = "TV"
)

var (
	errUnknownDirective = errors.New("unsupported directive")
	errMissingEndpoint  = errors.New("directive has no endpoint")
	errMalformedPayload = errors.New("malformed directive payload")
	errNoTitle          = errors.New("no title in search")
	errNothingFound     = errors.New("no matching title in library")
)

// Handler answers Alexa directives.
type Handler struct {
	issuer kodi.Issuer
	lister devices.Lister
	ids    shadowrpc.IDProvider
	logger *slog.Logger
}

// NewHandler returns a directive handler issuing commands through issuer.
func NewHandler(issuer kodi.Issuer, lister devices.Lister, ids shadowrpc.IDProvider, logger *slog.Logger) *Handler {
	return &Handler{
		issuer: issuer,
		lister: lister,
		ids:    ids,
		logger: logger,
	}
}

// Handle answers a directive. Failures are reported as Alexa.ErrorResponse
// events; the returned error is set only when no event could be built.
func (h *Handler) Handle(ctx context.Context, req Request) (Response, error) {
	d := req.Directive
	h.logger.Debug("Handling directive",
		slog.String("namespace", d.Header.Namespace),
		slog.String("name", d.Header.Name),
	)

	if d.Header.Namespace == nsDiscovery {
		if d.Header.Name != nameDiscover {
			return h.fail(d, ErrInvalidDirective, errUnknownDirective)
		}
		return h.discover(ctx, d)
	}

	if d.Endpoint == nil || d.Endpoint.EndpointID == "" {
		return h.fail(d, ErrNoSuchEndpoint, errMissingEndpoint)
	}
	player := kodi.NewPlayer(h.issuer, d.Endpoint.EndpointID)

	var err error
	switch d.Header.Namespace {
	case nsVideoPlayer:
		err = h.videoPlayer(ctx, player, d)
	case nsPlayback:
		err = h.playback(ctx, player, d.Header.Name)
	case nsSpeaker:
		err = h.speaker(ctx, player, d)
	case nsSeek:
		err = h.seek(ctx, player, d)
	default:
		err = errUnknownDirective
	}
	if err != nil {
		return h.fail(d, errorType(err), err)
	}

	return h.respond(d, nsAlexa, nameResponse, struct{}{})
}

func (h *Handler) discover(ctx context.Context, d Directive) (Response, error) {
	devs, err := h.lister.ListDevices(ctx, devices.Filter{})
	if err != nil {
		return h.fail(d, ErrInternal, err)
	}

	endpoints := make([]DiscoveredEndpoint, 0, len(devs))
	for _, dev := range devs {
		endpoints = append(endpoints, DiscoveredEndpoint{
			EndpointID:        dev.Key,
			ManufacturerName:  manufacturer,
			FriendlyName:      dev.Name,
			Description:       description,
			DisplayCategories: []string{category},
			Capabilities:      capabilities(),
		})
	}

	return h.respond(d, nsDiscovery, nameDiscovered, DiscoveryPayload{Endpoints: endpoints})
}

func (h *Handler) videoPlayer(ctx context.Context, player *kodi.Player, d Directive) error {
	if d.Header.Name != "SearchAndPlay" {
		return errUnknownDirective
	}
	var pl searchPayload
	if err := json.Unmarshal(d.Payload, &pl); err != nil {
		return errors.Wrap(errMalformedPayload, err)
	}

	var titles []string
	var season, episode *int
	for _, e := range pl.Entities {
		switch e.Type {
		case "Video", "Franchise", "Title":
			titles = append(titles, e.Value)
		case "Season":
			if n, err := strconv.Atoi(e.Value); err == nil {
				season = &n
			}
		case "Episode":
			if n, err := strconv.Atoi(e.Value); err == nil {
				episode = &n
			}
		}
	}
	if len(titles) == 0 {
		return errNoTitle
	}

	found, err := player.Search(ctx, titles)
	if err != nil {
		return err
	}
	switch {
	case len(found.TVShows) > 0 && (season != nil || episode != nil || len(found.Movies) == 0):
		id, ok, err := player.NextEpisode(ctx, found.TVShows[0].ID, season, episode)
		if err != nil {
			return err
		}
		if !ok {
			return errNothingFound
		}
		return player.PlayEpisode(ctx, id)
	case len(found.Movies) > 0:
		return player.PlayMovie(ctx, found.Movies[0].ID)
	default:
		return errNothingFound
	}
}

func (h *Handler) playback(ctx context.Context, player *kodi.Player, name string) error {
	switch name {
	case "Play":
		return player.Resume(ctx)
	case "Pause":
		return player.Pause(ctx)
	case "Stop":
		return player.Stop(ctx)
	case "Next":
		return player.Next(ctx)
	case "Previous":
		return player.Previous(ctx)
	case "FastForward":
		return player.FastForward(ctx)
	case "Rewind":
		return player.Rewind(ctx)
	default:
		return errUnknownDirective
	}
}

func (h *Handler) speaker(ctx context.Context, player *kodi.Player, d Directive) error {
	if d.Header.Name != "SetMute" {
		return errUnknownDirective
	}
	var pl mutePayload
	if err := json.Unmarshal(d.Payload, &pl); err != nil {
		return errors.Wrap(errMalformedPayload, err)
	}

	return player.SetMute(ctx, pl.Mute)
}

func (h *Handler) seek(ctx context.Context, player *kodi.Player, d Directive) error {
	if d.Header.Name != "AdjustSeekPosition" {
		return errUnknownDirective
	}
	var pl seekPayload
	if err := json.Unmarshal(d.Payload, &pl); err != nil {
		return errors.Wrap(errMalformedPayload, err)
	}

	return player.SeekSeconds(ctx, pl.DeltaPositionMilliseconds/1000)
}

func (h *Handler) respond(d Directive, namespace, name string, payload any) (Response, error) {
	id, err := h.ids.ID()
	if err != nil {
		return Response{}, err
	}

	return Response{
		Event: Event{
			Header: Header{
				Namespace:        namespace,
				Name:             name,
				PayloadVersion:   payloadVersion,
				MessageID:        id,
				CorrelationToken: d.Header.CorrelationToken,
			},
			Endpoint: d.Endpoint,
			Payload:  payload,
		},
	}, nil
}

func (h *Handler) fail(d Directive, errType string, err error) (Response, error) {
	h.logger.Warn(fmt.Sprintf("Directive %s.%s failed: %s", d.Header.Namespace, d.Header.Name, err),
		slog.String("error_type", errType),
	)
	msg := err.Error()
	if ce, ok := err.(errors.Error); ok {
		msg = ce.Msg()
	}

	return h.respond(d, nsAlexa, nameError, ErrorPayload{Type: errType, Message: msg})
}

func errorType(err error) string {
	switch {
	case errors.Contains(err, shadow.ErrTimeout),
		errors.Contains(err, shadow.ErrStoreUnavailable),
		errors.Contains(err, shadow.ErrDeviceBusy):
		return ErrEndpointUnreachable
	case errors.Contains(err, errUnknownDirective),
		errors.Contains(err, errMalformedPayload):
		return ErrInvalidDirective
	case errors.Contains(err, errNoTitle),
		errors.Contains(err, errNothingFound):
		return ErrInvalidValue
	default:
		return ErrInternal
	}
}
