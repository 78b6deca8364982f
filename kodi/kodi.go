// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package kodi drives a Kodi media center through the command gateway.
package kodi

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/absmach/shadowrpc/pkg/errors"
	"github.com/absmach/shadowrpc/shadow"
)

const (
	requestID  = 1
	videoType  = "video"
	searchSize = 1
)

// ErrUnexpectedResult indicates a device answer that does not match the method's result shape.
var ErrUnexpectedResult = errors.New("unexpected result from media center")

// Issuer dispatches commands to devices.
type Issuer interface {
	Issue(ctx context.Context, key string, cmd shadow.Command, mode shadow.Mode, opts ...shadow.IssueOption) (shadow.Outcome, error)
}

// Movie is a library movie.
type Movie struct {
	ID    int    `json:"movieid"`
	Title string `json:"title"`
}

// TVShow is a library TV show.
type TVShow struct {
	ID    int    `json:"tvshowid"`
	Title string `json:"title"`
}

// SearchResult holds the library matches for a title search.
type SearchResult struct {
	Movies  []Movie  `json:"movies,omitempty"`
	TVShows []TVShow `json:"tvshows,omitempty"`
}

// Player controls the media center bound to one device key.
type Player struct {
	issuer Issuer
	key    string
}

// NewPlayer returns a Player for the device key.
func NewPlayer(issuer Issuer, key string) *Player {
	return &Player{issuer: issuer, key: key}
}

// Key returns the device key the player is bound to.
func (p *Player) Key() string {
	return p.key
}

// Muted reports whether the media center is muted.
func (p *Player) Muted(ctx context.Context) (bool, error) {
	var res struct {
		Muted bool `json:"muted"`
	}
	err := p.query(ctx, "Application.GetProperties", map[string]any{
		"properties": []string{"muted"},
	}, &res)

	return res.Muted, err
}

// SetMute mutes or unmutes the media center and waits for it to apply.
func (p *Player) SetMute(ctx context.Context, mute bool) error {
	var muted bool
	return p.query(ctx, "Application.SetMute", map[string]any{"mute": mute}, &muted)
}

// ActivePlayer returns the id of the active video player, if any.
func (p *Player) ActivePlayer(ctx context.Context) (int, bool, error) {
	var players []struct {
		ID   int    `json:"playerid"`
		Type string `json:"type"`
	}
	if err := p.query(ctx, "Player.GetActivePlayers", nil, &players); err != nil {
		return 0, false, err
	}
	for _, pl := range players {
		if pl.Type == videoType {
			return pl.ID, true, nil
		}
	}

	return 0, false, nil
}

// IsPlaying reports whether the player is playing at non-zero speed.
func (p *Player) IsPlaying(ctx context.Context, playerID int) (bool, error) {
	var res struct {
		Speed *float64 `json:"speed"`
	}
	err := p.query(ctx, "Player.GetProperties", map[string]any{
		"playerid":   playerID,
		"properties": []string{"speed"},
	}, &res)
	if err != nil {
		return false, err
	}

	return res.Speed != nil && *res.Speed != 0, nil
}

// FindMovie returns the id of the first movie whose title contains any of titles.
func (p *Player) FindMovie(ctx context.Context, titles []string) (int, bool, error) {
	var res SearchResult
	if err := p.query(ctx, "VideoLibrary.GetMovies", searchParams(titles, false), &res); err != nil {
		return 0, false, err
	}
	if len(res.Movies) == 0 {
		return 0, false, nil
	}

	return res.Movies[0].ID, true, nil
}

// Search looks titles up among both movies and TV shows.
func (p *Player) Search(ctx context.Context, titles []string) (SearchResult, error) {
	var sr SearchResult
	if err := p.query(ctx, "VideoLibrary.GetMovies", searchParams(titles, true), &sr); err != nil {
		return SearchResult{}, err
	}
	var shows SearchResult
	if err := p.query(ctx, "VideoLibrary.GetTVShows", searchParams(titles, true), &shows); err != nil {
		return SearchResult{}, err
	}
	sr.TVShows = shows.TVShows

	return sr, nil
}

// NextEpisode returns the episode to play for a TV show. Without an episode
// number it picks the first unwatched episode, optionally within season.
func (p *Player) NextEpisode(ctx context.Context, tvshowID int, season, episode *int) (int, bool, error) {
	params := map[string]any{
		"tvshowid":   tvshowID,
		"limits":     map[string]any{"start": 0, "end": searchSize},
		"sort":       map[string]any{"method": "episode", "order": "ascending"},
		"properties": []string{"playcount", "episode"},
	}
	if season != nil {
		params["season"] = *season
	}
	if episode != nil {
		params["filter"] = map[string]any{"operator": "is", "field": "episode", "value": strconv.Itoa(*episode)}
	} else {
		params["filter"] = map[string]any{"operator": "lessthan", "field": "playcount", "value": "1"}
	}

	var res struct {
		Episodes []struct {
			ID int `json:"episodeid"`
		} `json:"episodes"`
	}
	if err := p.query(ctx, "VideoLibrary.GetEpisodes", params, &res); err != nil {
		return 0, false, err
	}
	if len(res.Episodes) == 0 {
		return 0, false, nil
	}

	return res.Episodes[0].ID, true, nil
}

// PlayMovie starts playing a movie, resuming where it was left.
func (p *Player) PlayMovie(ctx context.Context, movieID int) error {
	return p.open(ctx, map[string]any{"movieid": movieID})
}

// PlayEpisode starts playing an episode, resuming where it was left.
func (p *Player) PlayEpisode(ctx context.Context, episodeID int) error {
	return p.open(ctx, map[string]any{"episodeid": episodeID})
}

// Pause pauses playback when something is playing.
func (p *Player) Pause(ctx context.Context) error {
	id, ok, err := p.ActivePlayer(ctx)
	if err != nil || !ok {
		return err
	}
	playing, err := p.IsPlaying(ctx, id)
	if err != nil || !playing {
		return err
	}

	return p.control(ctx, "Player.PlayPause", map[string]any{"playerid": id})
}

// Resume resumes playback when it is paused.
func (p *Player) Resume(ctx context.Context) error {
	id, ok, err := p.ActivePlayer(ctx)
	if err != nil || !ok {
		return err
	}
	playing, err := p.IsPlaying(ctx, id)
	if err != nil || playing {
		return err
	}

	return p.control(ctx, "Player.PlayPause", map[string]any{"playerid": id})
}

// Stop stops playback.
func (p *Player) Stop(ctx context.Context) error {
	return p.withPlayer(ctx, "Player.Stop", nil)
}

// Next skips to the next item.
func (p *Player) Next(ctx context.Context) error {
	return p.withPlayer(ctx, "Player.GoTo", map[string]any{"to": "next"})
}

// Previous goes back to the previous item.
func (p *Player) Previous(ctx context.Context) error {
	return p.withPlayer(ctx, "Player.GoTo", map[string]any{"to": "previous"})
}

// FastForward increases playback speed.
func (p *Player) FastForward(ctx context.Context) error {
	return p.withPlayer(ctx, "Player.SetSpeed", map[string]any{"speed": "increment"})
}

// Rewind decreases playback speed.
func (p *Player) Rewind(ctx context.Context) error {
	return p.withPlayer(ctx, "Player.SetSpeed", map[string]any{"speed": "decrement"})
}

// SeekPercentage seeks to a position given as a percentage of the item.
func (p *Player) SeekPercentage(ctx context.Context, percentage float64) error {
	return p.withPlayer(ctx, "Player.Seek", map[string]any{"value": map[string]any{"percentage": percentage}})
}

// SeekSeconds seeks relative to the current position.
func (p *Player) SeekSeconds(ctx context.Context, seconds int) error {
	return p.withPlayer(ctx, "Player.Seek", map[string]any{"value": map[string]any{"seconds": seconds}})
}

// withPlayer sends an asynchronous control to the active player. Without an
// active player the control is dropped.
func (p *Player) withPlayer(ctx context.Context, method string, params map[string]any) error {
	id, ok, err := p.ActivePlayer(ctx)
	if err != nil || !ok {
		return err
	}
	if params == nil {
		params = map[string]any{}
	}
	params["playerid"] = id

	return p.control(ctx, method, params)
}

func (p *Player) open(ctx context.Context, item map[string]any) error {
	return p.control(ctx, "Player.Open", map[string]any{
		"item":    item,
		"options": map[string]any{"resume": true},
	})
}

func (p *Player) control(ctx context.Context, method string, params map[string]any) error {
	_, err := p.issuer.Issue(ctx, p.key, command(method, params), shadow.Async)
	return err
}

func (p *Player) query(ctx context.Context, method string, params map[string]any, res any) error {
	out, err := p.issuer.Issue(ctx, p.key, command(method, params), shadow.Sync)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(out.Result, res); err != nil {
		return errors.Wrap(ErrUnexpectedResult, err)
	}

	return nil
}

func command(method string, params map[string]any) shadow.Command {
	cmd := shadow.Command{
		JSONRPC: shadow.JSONRPCVersion,
		ID:      requestID,
		Method:  method,
	}
	if params != nil {
		cmd.Params = params
	}
	return cmd
}

func searchParams(titles []string, ignoreArticle bool) map[string]any {
	filters := make([]map[string]any, 0, len(titles))
	for _, t := range titles {
		filters = append(filters, map[string]any{"operator": "contains", "field": "title", "value": t})
	}
	sort := map[string]any{"order": "ascending", "method": "title"}
	if ignoreArticle {
		sort["ignorearticle"] = true
	}

	return map[string]any{
		"limits":     map[string]any{"start": 0, "end": searchSize},
		"sort":       sort,
		"filter":     map[string]any{"or": filters},
		"properties": []string{"title"},
	}
}
