// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package shadow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/absmach/shadowrpc/pkg/errors"
)

// Config holds the gateway defaults applied when Issue is called without options.
type Config struct {
	MaxRetries  uint          `env:"MAX_RETRIES"  envDefault:"10"`
	BackoffBase time.Duration `env:"BACKOFF_BASE" envDefault:"1ms"`
	BackoffMax  time.Duration `env:"BACKOFF_MAX"  envDefault:"5s"`
}

// IssueOption overrides a gateway default for a single Issue call.
type IssueOption func(*issueConfig)

type issueConfig struct {
	maxRetries uint
	backoff    BackoffPolicy
}

// WithMaxRetries sets the number of polling fetches in synchronous mode.
func WithMaxRetries(n uint) IssueOption {
	return func(ic *issueConfig) {
		ic.maxRetries = n
	}
}

// WithBackoff sets the wait between polling fetches.
func WithBackoff(policy BackoffPolicy) IssueOption {
	return func(ic *issueConfig) {
		if policy != nil {
			ic.backoff = policy
		}
	}
}

type service struct {
	store  Store
	logger *slog.Logger
	config Config
}

var _ Service = (*service)(nil)

// NewService returns the shadow command gateway backed by store.
func NewService(store Store, logger *slog.Logger, config Config) Service {
	return &service{
		store:  store,
		logger: logger,
		config: config,
	}
}

func (svc *service) Issue(ctx context.Context, key string, cmd Command, mode Mode, opts ...IssueOption) (Outcome, error) {
	if key == "" {
		return Outcome{}, ErrEmptyKey
	}
	if !mode.valid() {
		return Outcome{}, errors.Wrap(ErrMalformedCommand, errInvalidMode)
	}
	cmd, err := cmd.normalize()
	if err != nil {
		return Outcome{}, err
	}

	ic := issueConfig{
		maxRetries: svc.config.MaxRetries,
		backoff:    Exponential(svc.config.BackoffBase, svc.config.BackoffMax),
	}
	for _, opt := range opts {
		opt(&ic)
	}

	doc, err := svc.store.Fetch(ctx, key)
	if err != nil {
		return Outcome{}, errors.Wrap(ErrStoreUnavailable, err)
	}

	if doc.Stale() {
		if err := svc.store.Clear(ctx, key); err != nil {
			return Outcome{}, errors.Wrap(ErrCleanupFailed, err)
		}
	}

	ack, err := svc.store.Replace(ctx, key, Document{State: State{Desired: &cmd}})
	if err != nil {
		return Outcome{}, errors.Wrap(ErrStoreUnavailable, err)
	}
	if !dispatched(cmd, ack) {
		return Outcome{}, ErrDispatchMismatch
	}

	if mode == Async {
		return Outcome{Mode: Async, Desired: ack.State.Desired}, nil
	}

	return svc.await(ctx, key, ack, ic)
}

// await polls the document until the device has consumed the command.
// There is no wait before the first fetch and none after the last.
func (svc *service) await(ctx context.Context, key string, doc Document, ic issueConfig) (Outcome, error) {
	out := Outcome{Mode: Sync}
	for doc.Pending() && out.Polls < ic.maxRetries {
		if out.Polls > 0 {
			if err := sleep(ctx, ic.backoff(out.Polls)); err != nil {
				return out, errors.Wrap(ErrCanceled, err)
			}
		}
		fetched, err := svc.store.Fetch(ctx, key)
		if err != nil {
			switch {
			case ctx.Err() != nil:
				return out, errors.Wrap(ErrCanceled, ctx.Err())
			case errors.Contains(err, ErrMalformedDocument):
				return out, errors.Wrap(ErrProtocolViolation, err)
			default:
				return out, errors.Wrap(ErrStoreUnavailable, err)
			}
		}
		doc = fetched
		out.Polls++
	}

	if doc.Pending() {
		return out, ErrTimeout
	}

	reported := doc.State.Reported
	if !reported.Answered() {
		return out, ErrProtocolViolation
	}
	if reported.Failed() {
		if err := svc.store.Clear(context.WithoutCancel(ctx), key); err != nil {
			svc.logger.Warn(fmt.Sprintf("failed to clear shadow of device %s after remote error: %s", key, err))
		}
		return out, &RemoteError{Payload: reported.Error}
	}

	out.Result = reported.Result
	return out, nil
}

func (svc *service) ViewShadow(ctx context.Context, key string) (Document, error) {
	if key == "" {
		return Document{}, ErrEmptyKey
	}
	doc, err := svc.store.Fetch(ctx, key)
	if err != nil {
		return Document{}, errors.Wrap(ErrStoreUnavailable, err)
	}
	return doc, nil
}

func (svc *service) ClearShadow(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := svc.store.Clear(ctx, key); err != nil {
		return errors.Wrap(ErrCleanupFailed, err)
	}
	return nil
}
