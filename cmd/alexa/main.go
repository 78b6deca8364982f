// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package main contains the Alexa Smart Home skill Lambda entry point.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/absmach/shadowrpc/alexa"
	devawsiot "github.com/absmach/shadowrpc/devices/awsiot"
	awsclient "github.com/absmach/shadowrpc/internal/clients/aws"
	"github.com/absmach/shadowrpc/internal/env"
	mglog "github.com/absmach/shadowrpc/logger"
	"github.com/absmach/shadowrpc/pkg/uuid"
	"github.com/absmach/shadowrpc/shadow"
	"github.com/absmach/shadowrpc/shadow/awsiot"
	"github.com/absmach/shadowrpc/shadow/middleware"
	"github.com/aws/aws-lambda-go/lambda"
)

const (
	svcName      = "alexa"
	envPrefix    = "MG_SHADOW_"
	envPrefixAWS = "MG_SHADOW_AWS_"
)

type config struct {
	LogLevel   string `env:"MG_ALEXA_LOG_LEVEL"    envDefault:"info"`
	DeviceType string `env:"MG_SHADOW_DEVICE_TYPE" envDefault:"Kodi"`
}

func main() {
	ctx := context.Background()

	cfg := config{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("failed to load %s configuration : %s", svcName, err)
	}

	logger, err := mglog.New(os.Stdout, cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to init logger: %s", err)
	}
	var exitCode int
	defer mglog.ExitWithError(&exitCode)

	gwConfig := shadow.Config{}
	if err := env.Parse(&gwConfig, env.Options{Prefix: envPrefix}); err != nil {
		logger.Error(fmt.Sprintf("failed to load gateway configuration : %s", err))
		exitCode = 1
		return
	}

	awsCfg, sdkCfg, err := awsclient.Setup(ctx, envPrefixAWS)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to load AWS configuration : %s", err))
		exitCode = 1
		return
	}

	store := awsiot.NewStore(awsclient.DataPlane(sdkCfg, awsCfg.Endpoint), awsCfg.ShadowName)
	svc := shadow.NewService(store, logger, gwConfig)
	svc = middleware.KeyLock(svc)
	svc = middleware.LoggingMiddleware(svc, logger)

	lister := devawsiot.NewLister(awsclient.Registry(sdkCfg), cfg.DeviceType)
	h := alexa.NewHandler(svc, lister, uuid.New(), logger)

	lambda.Start(h.Handle)
}
