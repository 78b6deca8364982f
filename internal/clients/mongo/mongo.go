// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package mongodb connects to the MongoDB shadow store.
package mongodb

import (
	"context"
	"fmt"

	"github.com/absmach/shadowrpc/internal/env"
	"github.com/absmach/shadowrpc/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	errConfig  = errors.New("failed to load mongodb configuration")
	errConnect = errors.New("failed to connect to mongodb server")
)

// Config defines the options that are used when connecting to a MongoDB instance.
type Config struct {
	Host string `env:"HOST" envDefault:"localhost"`
	Port string `env:"PORT" envDefault:"27017"`
	Name string `env:"NAME" envDefault:"shadows"`
}

// Connect creates a connection to the MongoDB instance.
func Connect(ctx context.Context, cfg Config) (*mongo.Database, error) {
	addr := fmt.Sprintf("mongodb://%s:%s", cfg.Host, cfg.Port)
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(addr))
	if err != nil {
		return nil, errors.Wrap(errConnect, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errConnect, err)
	}

	return client.Database(cfg.Name), nil
}

// Setup load configuration from environment, create new MongoDB client and connect to MongoDB server.
func Setup(ctx context.Context, envPrefix string) (*mongo.Database, error) {
	cfg := Config{}
	if err := env.Parse(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, errors.Wrap(errConfig, err)
	}

	return Connect(ctx, cfg)
}
