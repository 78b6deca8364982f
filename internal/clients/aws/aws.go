// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package aws loads the AWS SDK configuration shared by the IoT clients.
package aws

import (
	"context"

	"github.com/absmach/shadowrpc/internal/env"
	"github.com/absmach/shadowrpc/pkg/errors"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/iot"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"
)

var (
	errConfig = errors.New("failed to load AWS configuration")
	errLoad   = errors.New("failed to load AWS credentials")
)

// Config defines the options used to reach AWS IoT.
type Config struct {
	Region     string `env:"REGION"      envDefault:"ap-southeast-2"`
	Endpoint   string `env:"ENDPOINT"    envDefault:""`
	ShadowName string `env:"SHADOW_NAME" envDefault:""`
}

// Load resolves credentials from the default chain for the configured region.
func Load(ctx context.Context, cfg Config) (aws.Config, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return aws.Config{}, errors.Wrap(errLoad, err)
	}
	return awsCfg, nil
}

// Setup loads configuration from environment and resolves AWS credentials.
func Setup(ctx context.Context, envPrefix string) (Config, aws.Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return Config{}, aws.Config{}, errors.Wrap(errConfig, err)
	}
	awsCfg, err := Load(ctx, cfg)
	if err != nil {
		return Config{}, aws.Config{}, err
	}
	return cfg, awsCfg, nil
}

// DataPlane returns the device shadow data plane client. An empty endpoint
// uses the account's default data endpoint.
func DataPlane(awsCfg aws.Config, endpoint string) *iotdataplane.Client {
	return iotdataplane.NewFromConfig(awsCfg, func(o *iotdataplane.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}

// Registry returns the IoT registry client used for device discovery.
func Registry(awsCfg aws.Config) *iot.Client {
	return iot.NewFromConfig(awsCfg)
}
