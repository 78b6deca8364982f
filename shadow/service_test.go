// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package shadow_test

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/absmach/shadowrpc/logger"
	"github.com/absmach/shadowrpc/pkg/errors"
	"github.com/absmach/shadowrpc/shadow"
	"github.com/absmach/shadowrpc/shadow/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	devKey   = "livingroom"
	otherKey = "bedroom"
)

var (
	errStore = errors.New("connection refused")

	muteCmd = shadow.Command{
		JSONRPC: shadow.JSONRPCVersion,
		ID:      "1",
		Method:  "Application.SetMute",
		Params:  map[string]any{"mute": true},
	}
	stopCmd = shadow.Command{
		ID:     "2",
		Method: "Player.Stop",
		Params: map[string]any{"playerid": 1},
	}

	cfg = shadow.Config{
		MaxRetries:  10,
		BackoffBase: time.Microsecond,
		BackoffMax:  time.Millisecond,
	}
)

func newService() (shadow.Service, *mocks.Store) {
	store := mocks.NewStore()
	return shadow.NewService(store, logger.NewMock(), cfg), store
}

func commandJSON(t *testing.T, cmd *shadow.Command) string {
	require.NotNil(t, cmd)
	data, err := json.Marshal(cmd)
	require.Nil(t, err)
	return string(data)
}

func TestIssueAsync(t *testing.T) {
	cases := []struct {
		desc   string
		key    string
		cmd    shadow.Command
		mode   shadow.Mode
		seed   func(store *mocks.Store)
		ops    []string
		err    error
		status string
	}{
		{
			desc:   "dispatch mute to empty store",
			key:    devKey,
			cmd:    muteCmd,
			mode:   shadow.Async,
			ops:    []string{mocks.OpFetch, mocks.OpReplace},
			err:    nil,
			status: shadow.StatusSuccess,
		},
		{
			desc: "dispatch onto document holding a previous result",
			key:  devKey,
			cmd:  muteCmd,
			mode: shadow.Async,
			seed: func(store *mocks.Store) {
				store.Seed(devKey, shadow.Document{State: shadow.State{Reported: &shadow.Reported{Result: json.RawMessage(`"OK"`)}}})
			},
			ops:    []string{mocks.OpFetch, mocks.OpReplace},
			err:    nil,
			status: shadow.StatusSuccess,
		},
		{
			desc: "store rewrites desired state",
			key:  devKey,
			cmd:  muteCmd,
			mode: shadow.Async,
			seed: func(store *mocks.Store) {
				store.Tamper(devKey, func(doc shadow.Document) shadow.Document {
					doc.State.Desired.Params = map[string]any{"mute": false}
					return doc
				})
			},
			ops:    []string{mocks.OpFetch, mocks.OpReplace},
			err:    shadow.ErrDispatchMismatch,
			status: shadow.StatusDispatchMismatch,
		},
		{
			desc: "store drops desired state",
			key:  devKey,
			cmd:  muteCmd,
			mode: shadow.Async,
			seed: func(store *mocks.Store) {
				store.Tamper(devKey, func(doc shadow.Document) shadow.Document {
					doc.State.Desired = nil
					return doc
				})
			},
			ops:    []string{mocks.OpFetch, mocks.OpReplace},
			err:    shadow.ErrDispatchMismatch,
			status: shadow.StatusDispatchMismatch,
		},
		{
			desc: "store keeps reported state",
			key:  devKey,
			cmd:  muteCmd,
			mode: shadow.Async,
			seed: func(store *mocks.Store) {
				store.Tamper(devKey, func(doc shadow.Document) shadow.Document {
					doc.State.Reported = &shadow.Reported{Result: json.RawMessage(`"OK"`)}
					return doc
				})
			},
			ops:    []string{mocks.OpFetch, mocks.OpReplace},
			err:    shadow.ErrDispatchMismatch,
			status: shadow.StatusDispatchMismatch,
		},
		{
			desc: "pre-flight fetch fails",
			key:  devKey,
			cmd:  muteCmd,
			mode: shadow.Async,
			seed: func(store *mocks.Store) {
				store.SetHook(func(_, op string, _ int) error {
					if op == mocks.OpFetch {
						return errStore
					}
					return nil
				})
			},
			ops:    []string{mocks.OpFetch},
			err:    shadow.ErrStoreUnavailable,
			status: shadow.StatusStoreUnavailable,
		},
		{
			desc: "pre-flight fetch returns malformed document",
			key:  devKey,
			cmd:  muteCmd,
			mode: shadow.Async,
			seed: func(store *mocks.Store) {
				store.SetHook(func(_, op string, _ int) error {
					if op == mocks.OpFetch {
						return errors.Wrap(shadow.ErrMalformedDocument, errStore)
					}
					return nil
				})
			},
			ops:    []string{mocks.OpFetch},
			err:    shadow.ErrStoreUnavailable,
			status: shadow.StatusStoreUnavailable,
		},
		{
			desc: "replace fails",
			key:  devKey,
			cmd:  muteCmd,
			mode: shadow.Async,
			seed: func(store *mocks.Store) {
				store.SetHook(func(_, op string, _ int) error {
					if op == mocks.OpReplace {
						return errStore
					}
					return nil
				})
			},
			ops:    []string{mocks.OpFetch, mocks.OpReplace},
			err:    shadow.ErrStoreUnavailable,
			status: shadow.StatusStoreUnavailable,
		},
		{
			desc:   "command without method",
			key:    devKey,
			cmd:    shadow.Command{ID: "3", Params: map[string]any{"mute": true}},
			mode:   shadow.Async,
			ops:    nil,
			err:    shadow.ErrMalformedCommand,
			status: shadow.StatusMalformedCommand,
		},
		{
			desc:   "command with unsupported jsonrpc version",
			key:    devKey,
			cmd:    shadow.Command{JSONRPC: "1.0", Method: "Player.Stop"},
			mode:   shadow.Async,
			ops:    nil,
			err:    shadow.ErrMalformedCommand,
			status: shadow.StatusMalformedCommand,
		},
		{
			desc:   "command with unserializable params",
			key:    devKey,
			cmd:    shadow.Command{Method: "Player.Stop", Params: map[string]any{"callback": func() {}}},
			mode:   shadow.Async,
			ops:    nil,
			err:    shadow.ErrMalformedCommand,
			status: shadow.StatusMalformedCommand,
		},
		{
			desc:   "command with positional params",
			key:    devKey,
			cmd:    shadow.Command{Method: "Player.Seek", Params: []any{1, map[string]any{"seconds": 30}}},
			mode:   shadow.Async,
			ops:    []string{mocks.OpFetch, mocks.OpReplace},
			status: shadow.StatusSuccess,
		},
		{
			desc:   "command with scalar params",
			key:    devKey,
			cmd:    shadow.Command{Method: "Player.Stop", Params: 1},
			mode:   shadow.Async,
			ops:    nil,
			err:    shadow.ErrMalformedCommand,
			status: shadow.StatusMalformedCommand,
		},
		{
			desc:   "unknown mode",
			key:    devKey,
			cmd:    muteCmd,
			mode:   shadow.Mode(7),
			ops:    nil,
			err:    shadow.ErrMalformedCommand,
			status: shadow.StatusMalformedCommand,
		},
		{
			desc:   "empty device key",
			key:    "",
			cmd:    muteCmd,
			mode:   shadow.Async,
			ops:    nil,
			err:    shadow.ErrEmptyKey,
			status: shadow.StatusMalformedCommand,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			svc, store := newService()
			if tc.seed != nil {
				tc.seed(store)
			}

			out, err := svc.Issue(context.Background(), tc.key, tc.cmd, tc.mode)
			assert.True(t, errors.Contains(err, tc.err), fmt.Sprintf("%s: expected %s got %s\n", tc.desc, tc.err, err))
			assert.Equal(t, tc.status, shadow.Status(err), fmt.Sprintf("%s: expected status %s got %s\n", tc.desc, tc.status, shadow.Status(err)))
			assert.Equal(t, tc.ops, store.Ops(tc.key), fmt.Sprintf("%s: unexpected store operations", tc.desc))
			if err != nil {
				return
			}
			assert.Equal(t, shadow.Async, out.Mode)
			assert.Zero(t, out.Polls, fmt.Sprintf("%s: async dispatch must not poll", tc.desc))
			assert.JSONEq(t, commandJSON(t, &tc.cmd), commandJSON(t, out.Desired))
			doc := store.Document(tc.key)
			assert.JSONEq(t, commandJSON(t, &tc.cmd), commandJSON(t, doc.State.Desired))
			assert.Nil(t, doc.State.Reported, fmt.Sprintf("%s: dispatch must clear reported state", tc.desc))
		})
	}
}

func TestIssueMuteScenario(t *testing.T) {
	svc, store := newService()

	cmd := shadow.Command{Method: "Mute", Params: map[string]any{"mute": true}}
	out, err := svc.Issue(context.Background(), "dev1", cmd, shadow.Async)
	require.Nil(t, err, fmt.Sprintf("unexpected error: %s", err))

	require.NotNil(t, out.Desired)
	assert.Equal(t, "Mute", out.Desired.Method)
	assert.Equal(t, map[string]any{"mute": true}, out.Desired.Params)
	assert.Equal(t, 1, store.Count("dev1", mocks.OpFetch), "expected no polling after dispatch")
}

func TestIssueCommandImmutable(t *testing.T) {
	svc, store := newService()

	params := map[string]any{"mute": true}
	cmd := shadow.Command{Method: "Application.SetMute", Params: params}
	out, err := svc.Issue(context.Background(), devKey, cmd, shadow.Async)
	require.Nil(t, err, fmt.Sprintf("unexpected error: %s", err))

	params["mute"] = false
	assert.Equal(t, map[string]any{"mute": true}, out.Desired.Params)
	assert.Equal(t, map[string]any{"mute": true}, store.Document(devKey).State.Desired.Params)
}

func TestIssueStaleCleanup(t *testing.T) {
	cases := []struct {
		desc string
		seed shadow.Document
		hook mocks.Hook
		ops  []string
		err  error
	}{
		{
			desc: "lingering desired command is cleared before dispatch",
			seed: shadow.Document{State: shadow.State{Desired: &stopCmd}},
			ops:  []string{mocks.OpFetch, mocks.OpClear, mocks.OpReplace},
			err:  nil,
		},
		{
			desc: "reported error is cleared before dispatch",
			seed: shadow.Document{State: shadow.State{Reported: &shadow.Reported{Error: json.RawMessage(`{"code":-32601,"message":"Method not found."}`)}}},
			ops:  []string{mocks.OpFetch, mocks.OpClear, mocks.OpReplace},
			err:  nil,
		},
		{
			desc: "reported null error is not stale",
			seed: shadow.Document{State: shadow.State{Reported: &shadow.Reported{Result: json.RawMessage(`"OK"`), Error: json.RawMessage(`null`)}}},
			ops:  []string{mocks.OpFetch, mocks.OpReplace},
			err:  nil,
		},
		{
			desc: "failed cleanup aborts dispatch",
			seed: shadow.Document{State: shadow.State{Desired: &stopCmd}},
			hook: func(_, op string, _ int) error {
				if op == mocks.OpClear {
					return errStore
				}
				return nil
			},
			ops: []string{mocks.OpFetch, mocks.OpClear},
			err: shadow.ErrCleanupFailed,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			svc, store := newService()
			store.Seed(devKey, tc.seed)
			store.SetHook(tc.hook)

			out, err := svc.Issue(context.Background(), devKey, muteCmd, shadow.Async)
			assert.True(t, errors.Contains(err, tc.err), fmt.Sprintf("%s: expected %s got %s\n", tc.desc, tc.err, err))
			assert.Equal(t, tc.ops, store.Ops(devKey))
			if err != nil {
				assert.JSONEq(t, commandJSON(t, &stopCmd), commandJSON(t, store.Document(devKey).State.Desired), "document must be untouched")
				return
			}
			assert.JSONEq(t, commandJSON(t, &muteCmd), commandJSON(t, out.Desired))
			assert.Nil(t, store.Document(devKey).State.Reported)
		})
	}
}

func TestIssueStuckDeviceScenario(t *testing.T) {
	svc, store := newService()

	_, err := svc.Issue(context.Background(), devKey, stopCmd, shadow.Async)
	require.Nil(t, err, fmt.Sprintf("unexpected error: %s", err))

	_, err = svc.Issue(context.Background(), devKey, muteCmd, shadow.Async)
	require.Nil(t, err, fmt.Sprintf("unexpected error: %s", err))

	ops := store.Ops(devKey)
	assert.Equal(t, []string{mocks.OpFetch, mocks.OpReplace, mocks.OpFetch, mocks.OpClear, mocks.OpReplace}, ops)
	assert.Equal(t, 1, store.Count(devKey, mocks.OpClear))
	assert.JSONEq(t, commandJSON(t, &muteCmd), commandJSON(t, store.Document(devKey).State.Desired))
}

type recorder struct {
	mu      sync.Mutex
	retries []uint
	delays  []time.Duration
	policy  shadow.BackoffPolicy
}

func (r *recorder) backoff(retry uint) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	d := r.policy(retry)
	r.retries = append(r.retries, retry)
	r.delays = append(r.delays, d)
	return d
}

func TestIssueSyncTimeout(t *testing.T) {
	cases := []struct {
		desc       string
		maxRetries uint
	}{
		{desc: "no polling budget", maxRetries: 0},
		{desc: "single poll", maxRetries: 1},
		{desc: "default budget", maxRetries: 10},
		{desc: "long budget", maxRetries: 16},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			svc, store := newService()
			rec := &recorder{policy: shadow.Exponential(time.Microsecond, 200*time.Microsecond)}

			out, err := svc.Issue(context.Background(), devKey, muteCmd, shadow.Sync, shadow.WithMaxRetries(tc.maxRetries), shadow.WithBackoff(rec.backoff))
			assert.True(t, errors.Contains(err, shadow.ErrTimeout), fmt.Sprintf("%s: expected %s got %s\n", tc.desc, shadow.ErrTimeout, err))
			assert.Equal(t, tc.maxRetries, out.Polls)
			assert.Equal(t, int(tc.maxRetries)+1, store.Count(devKey, mocks.OpFetch), "expected pre-flight fetch plus exactly maxRetries polls")

			expected := int(tc.maxRetries) - 1
			if expected < 0 {
				expected = 0
			}
			assert.Len(t, rec.delays, expected, "expected one wait between consecutive polls")
			for i := 1; i < len(rec.delays); i++ {
				assert.GreaterOrEqual(t, rec.delays[i], rec.delays[i-1], "delays must not decrease")
				assert.Equal(t, rec.retries[i-1]+1, rec.retries[i])
			}
			assert.True(t, store.Document(devKey).Pending(), "timeout must leave the command dispatched")
		})
	}
}

func TestIssueSyncResult(t *testing.T) {
	cases := []struct {
		desc     string
		answerOn int
		reported shadow.Reported
		result   string
		err      error
	}{
		{
			desc:     "device answers on first poll",
			answerOn: 1,
			reported: shadow.Reported{Result: json.RawMessage(`"OK"`)},
			result:   `"OK"`,
		},
		{
			desc:     "device answers on fourth poll",
			answerOn: 4,
			reported: shadow.Reported{Result: json.RawMessage(`{"muted":true}`)},
			result:   `{"muted":true}`,
		},
		{
			desc:     "device answers on last poll",
			answerOn: 10,
			reported: shadow.Reported{Result: json.RawMessage(`[{"playerid":1,"type":"video"}]`)},
			result:   `[{"playerid":1,"type":"video"}]`,
		},
		{
			desc:     "device answers with null result",
			answerOn: 2,
			reported: shadow.Reported{Result: json.RawMessage(`null`)},
			result:   `null`,
		},
		{
			desc:     "device clears desired without reporting",
			answerOn: 2,
			reported: shadow.Reported{},
			err:      shadow.ErrProtocolViolation,
		},
		{
			desc:     "device reports null error only",
			answerOn: 2,
			reported: shadow.Reported{Error: json.RawMessage(`null`)},
			err:      shadow.ErrProtocolViolation,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			svc, store := newService()
			store.Respond(devKey, tc.answerOn, tc.reported)

			out, err := svc.Issue(context.Background(), devKey, muteCmd, shadow.Sync)
			assert.True(t, errors.Contains(err, tc.err), fmt.Sprintf("%s: expected %s got %s\n", tc.desc, tc.err, err))
			assert.Equal(t, uint(tc.answerOn), out.Polls)
			assert.Equal(t, tc.answerOn+1, store.Count(devKey, mocks.OpFetch), "no fetch expected after the answer")
			if tc.err != nil {
				return
			}
			assert.JSONEq(t, tc.result, string(out.Result))
			assert.Equal(t, shadow.Sync, out.Mode)
		})
	}
}

func TestIssueRemoteError(t *testing.T) {
	payload := json.RawMessage(`{"code":-32602,"message":"Invalid params."}`)

	cases := []struct {
		desc  string
		hook  mocks.Hook
		empty bool
	}{
		{
			desc:  "remote error clears the document",
			empty: true,
		},
		{
			desc: "failed cleanup after remote error is not escalated",
			hook: func(_, op string, _ int) error {
				if op == mocks.OpClear {
					return errStore
				}
				return nil
			},
			empty: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			svc, store := newService()
			store.Respond(devKey, 2, shadow.Reported{Error: payload})
			store.SetHook(tc.hook)

			_, err := svc.Issue(context.Background(), devKey, muteCmd, shadow.Sync)
			assert.True(t, errors.Contains(err, shadow.ErrRemote), fmt.Sprintf("%s: expected %s got %s\n", tc.desc, shadow.ErrRemote, err))
			assert.True(t, stderrors.Is(err, shadow.ErrRemote))

			var re *shadow.RemoteError
			require.True(t, stderrors.As(err, &re), "expected a RemoteError")
			assert.JSONEq(t, string(payload), string(re.Payload))

			ops := store.Ops(devKey)
			assert.Equal(t, mocks.OpClear, ops[len(ops)-1], "expected cleanup after remote error")
			assert.Equal(t, tc.empty, store.Document(devKey).Empty())
		})
	}
}

func TestIssuePollingFailures(t *testing.T) {
	cases := []struct {
		desc string
		err  error
		want error
	}{
		{
			desc: "store unreachable while polling",
			err:  errStore,
			want: shadow.ErrStoreUnavailable,
		},
		{
			desc: "malformed document while polling",
			err:  errors.Wrap(shadow.ErrMalformedDocument, errStore),
			want: shadow.ErrProtocolViolation,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			svc, store := newService()
			store.SetHook(func(_, op string, n int) error {
				if op == mocks.OpFetch && n == 3 {
					return tc.err
				}
				return nil
			})

			out, err := svc.Issue(context.Background(), devKey, muteCmd, shadow.Sync)
			assert.True(t, errors.Contains(err, tc.want), fmt.Sprintf("%s: expected %s got %s\n", tc.desc, tc.want, err))
			assert.Equal(t, uint(1), out.Polls)
			assert.Equal(t, 3, store.Count(devKey, mocks.OpFetch))
		})
	}
}

func TestIssueCanceled(t *testing.T) {
	svc, store := newService()

	ctx, cancel := context.WithCancel(context.Background())
	waiting := make(chan struct{})
	policy := func(uint) time.Duration {
		close(waiting)
		return time.Hour
	}
	go func() {
		<-waiting
		cancel()
	}()

	out, err := svc.Issue(ctx, devKey, muteCmd, shadow.Sync, shadow.WithBackoff(policy))
	assert.True(t, errors.Contains(err, shadow.ErrCanceled), fmt.Sprintf("expected %s got %s\n", shadow.ErrCanceled, err))
	assert.Equal(t, shadow.StatusCanceled, shadow.Status(err))
	assert.Equal(t, uint(1), out.Polls)
	assert.True(t, store.Document(devKey).Pending(), "cancellation must not un-dispatch the command")
	assert.Zero(t, store.Count(devKey, mocks.OpClear))
}

func TestIssueDistinctKeysConcurrently(t *testing.T) {
	svc, store := newService()
	store.Respond(devKey, 3, shadow.Reported{Result: json.RawMessage(`"living"`)})
	store.Respond(otherKey, 5, shadow.Reported{Result: json.RawMessage(`"bed"`)})

	otherStore := mocks.NewStore()
	otherStore.Respond(devKey, 2, shadow.Reported{Result: json.RawMessage(`"other"`)})
	otherSvc := shadow.NewService(otherStore, logger.NewMock(), cfg)

	type call struct {
		svc    shadow.Service
		key    string
		result string
	}
	calls := []call{
		{svc: svc, key: devKey, result: `"living"`},
		{svc: svc, key: otherKey, result: `"bed"`},
		{svc: otherSvc, key: devKey, result: `"other"`},
	}

	var wg sync.WaitGroup
	for _, c := range calls {
		wg.Add(1)
		go func(c call) {
			defer wg.Done()
			out, err := c.svc.Issue(context.Background(), c.key, muteCmd, shadow.Sync)
			assert.Nil(t, err, fmt.Sprintf("%s: unexpected error %s", c.key, err))
			assert.JSONEq(t, c.result, string(out.Result))
		}(c)
	}
	wg.Wait()

	assert.Equal(t, []string{mocks.OpFetch, mocks.OpReplace, mocks.OpFetch, mocks.OpFetch, mocks.OpFetch}, store.Ops(devKey))
	assert.Equal(t, 6, store.Count(otherKey, mocks.OpFetch))
	assert.Equal(t, 3, otherStore.Count(devKey, mocks.OpFetch))
}

func TestViewShadow(t *testing.T) {
	cases := []struct {
		desc string
		key  string
		seed *shadow.Document
		hook mocks.Hook
		err  error
	}{
		{
			desc: "view existing shadow",
			key:  devKey,
			seed: &shadow.Document{State: shadow.State{Desired: &stopCmd}},
			err:  nil,
		},
		{
			desc: "view missing shadow",
			key:  devKey,
			err:  nil,
		},
		{
			desc: "view with empty key",
			key:  "",
			err:  shadow.ErrEmptyKey,
		},
		{
			desc: "view with unreachable store",
			key:  devKey,
			hook: func(string, string, int) error { return errStore },
			err:  shadow.ErrStoreUnavailable,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			svc, store := newService()
			if tc.seed != nil {
				store.Seed(devKey, *tc.seed)
			}
			store.SetHook(tc.hook)

			doc, err := svc.ViewShadow(context.Background(), tc.key)
			assert.True(t, errors.Contains(err, tc.err), fmt.Sprintf("%s: expected %s got %s\n", tc.desc, tc.err, err))
			if tc.seed != nil && err == nil {
				assert.JSONEq(t, commandJSON(t, tc.seed.State.Desired), commandJSON(t, doc.State.Desired))
			}
		})
	}
}

func TestClearShadow(t *testing.T) {
	cases := []struct {
		desc string
		key  string
		hook mocks.Hook
		err  error
	}{
		{
			desc: "clear shadow",
			key:  devKey,
			err:  nil,
		},
		{
			desc: "clear with empty key",
			key:  "",
			err:  shadow.ErrEmptyKey,
		},
		{
			desc: "clear with unreachable store",
			key:  devKey,
			hook: func(string, string, int) error { return errStore },
			err:  shadow.ErrCleanupFailed,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			svc, store := newService()
			store.Seed(devKey, shadow.Document{State: shadow.State{Desired: &stopCmd}})
			store.SetHook(tc.hook)

			err := svc.ClearShadow(context.Background(), tc.key)
			assert.True(t, errors.Contains(err, tc.err), fmt.Sprintf("%s: expected %s got %s\n", tc.desc, tc.err, err))
			if tc.err == nil {
				assert.True(t, store.Document(devKey).Empty())
			}
		})
	}
}
