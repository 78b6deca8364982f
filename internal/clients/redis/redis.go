// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package redis connects to the Redis shadow store.
package redis

import (
	"context"

	"github.com/absmach/shadowrpc/internal/env"
	"github.com/absmach/shadowrpc/pkg/errors"
	"github.com/go-redis/redis/v8"
)

var (
	errConfig  = errors.New("failed to load redis client configuration")
	errConnect = errors.New("failed to connect to redis server")
)

// Config defines the options that are used when connecting to a Redis instance.
type Config struct {
	URL  string `env:"URL"  envDefault:"localhost:6379"`
	Pass string `env:"PASS" envDefault:""`
	DB   int    `env:"DB"   envDefault:"0"`
}

// Connect creates a Redis client and checks the server is reachable.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.URL,
		Password: cfg.Pass,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(errConnect, err)
	}

	return client, nil
}

// Setup loads configuration from environment and connects to the Redis server.
func Setup(ctx context.Context, envPrefix string) (*redis.Client, error) {
	cfg := Config{}
	if err := env.Parse(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, errors.Wrap(errConfig, err)
	}

	return Connect(ctx, cfg)
}
