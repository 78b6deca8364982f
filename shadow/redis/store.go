// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package redis contains the shadow store backed by Redis.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/absmach/shadowrpc/pkg/errors"
	"github.com/absmach/shadowrpc/shadow"
	"github.com/go-redis/redis/v8"
)

const (
	keyPrefix    = "shadow"
	maxTxRetries = 10
)

var errConflict = errors.New("shadow document changed concurrently")

var _ shadow.Store = (*shadowStore)(nil)

type shadowStore struct {
	client *redis.Client
}

// NewStore returns a Redis shadow store keeping one JSON document per device.
func NewStore(client *redis.Client) shadow.Store {
	return &shadowStore{client: client}
}

func (ss *shadowStore) Fetch(ctx context.Context, key string) (shadow.Document, error) {
	data, err := ss.client.Get(ctx, docKey(key)).Bytes()
	switch {
	case err == redis.Nil:
		return shadow.Document{}, nil
	case err != nil:
		return shadow.Document{}, err
	}

	return shadow.ParseDocument(data)
}

func (ss *shadowStore) Replace(ctx context.Context, key string, doc shadow.Document) (shadow.Document, error) {
	k := docKey(key)
	var written []byte

	txf := func(tx *redis.Tx) error {
		var version int64
		cur, err := tx.Get(ctx, k).Bytes()
		switch {
		case err == redis.Nil:
		case err != nil:
			return err
		default:
			prev, err := shadow.ParseDocument(cur)
			if err != nil {
				return err
			}
			version = prev.Version
		}

		next := shadow.Document{
			State:     shadow.State{Desired: doc.State.Desired},
			Version:   version + 1,
			Timestamp: time.Now().Unix(),
		}
		data, err := json.Marshal(next)
		if err != nil {
			return errors.Wrap(shadow.ErrMalformedDocument, err)
		}
		if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, data, 0)
			return nil
		}); err != nil {
			return err
		}
		written = data

		return nil
	}

	for i := 0; i < maxTxRetries; i++ {
		err := ss.client.Watch(ctx, txf, k)
		switch {
		case err == nil:
			return shadow.ParseDocument(written)
		case err == redis.TxFailedErr:
			continue
		default:
			return shadow.Document{}, err
		}
	}

	return shadow.Document{}, errConflict
}

func (ss *shadowStore) Clear(ctx context.Context, key string) error {
	return ss.client.Del(ctx, docKey(key)).Err()
}

func docKey(key string) string {
	return fmt.Sprintf("%s:%s", keyPrefix, key)
}
