// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package middleware

import (
	"context"
	"sync"

	"github.com/absmach/shadowrpc/pkg/errors"
	"github.com/absmach/shadowrpc/shadow"
	"golang.org/x/sync/semaphore"
)

var _ shadow.Service = (*keyLock)(nil)

type lockEntry struct {
	sem  *semaphore.Weighted
	refs int
}

type keyLock struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
	svc   shadow.Service
}

// KeyLock serializes Issue and ClearShadow calls per device key. Waiting for
// the key honours the caller's context; ViewShadow is never blocked.
func KeyLock(svc shadow.Service) shadow.Service {
	return &keyLock{
		locks: make(map[string]*lockEntry),
		svc:   svc,
	}
}

func (kl *keyLock) Issue(ctx context.Context, key string, cmd shadow.Command, mode shadow.Mode, opts ...shadow.IssueOption) (shadow.Outcome, error) {
	release, err := kl.acquire(ctx, key)
	if err != nil {
		return shadow.Outcome{Mode: mode}, err
	}
	defer release()

	return kl.svc.Issue(ctx, key, cmd, mode, opts...)
}

func (kl *keyLock) ViewShadow(ctx context.Context, key string) (shadow.Document, error) {
	return kl.svc.ViewShadow(ctx, key)
}

func (kl *keyLock) ClearShadow(ctx context.Context, key string) error {
	release, err := kl.acquire(ctx, key)
	if err != nil {
		return err
	}
	defer release()

	return kl.svc.ClearShadow(ctx, key)
}

func (kl *keyLock) acquire(ctx context.Context, key string) (func(), error) {
	kl.mu.Lock()
	e, ok := kl.locks[key]
	if !ok {
		e = &lockEntry{sem: semaphore.NewWeighted(1)}
		kl.locks[key] = e
	}
	e.refs++
	kl.mu.Unlock()

	if err := e.sem.Acquire(ctx, 1); err != nil {
		kl.unref(key, e)
		return nil, errors.Wrap(shadow.ErrDeviceBusy, err)
	}

	return func() {
		e.sem.Release(1)
		kl.unref(key, e)
	}, nil
}

func (kl *keyLock) unref(key string, e *lockEntry) {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(kl.locks, key)
	}
}

func (kl *keyLock) held() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	return len(kl.locks)
}
