// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package main contains the command gateway main function to start the service.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/absmach/shadowrpc/devices"
	devawsiot "github.com/absmach/shadowrpc/devices/awsiot"
	awsclient "github.com/absmach/shadowrpc/internal/clients/aws"
	mongoclient "github.com/absmach/shadowrpc/internal/clients/mongo"
	redisclient "github.com/absmach/shadowrpc/internal/clients/redis"
	"github.com/absmach/shadowrpc/internal/env"
	"github.com/absmach/shadowrpc/internal/server"
	httpserver "github.com/absmach/shadowrpc/internal/server/http"
	mglog "github.com/absmach/shadowrpc/logger"
	"github.com/absmach/shadowrpc/pkg/errors"
	"github.com/absmach/shadowrpc/pkg/events"
	natsevents "github.com/absmach/shadowrpc/pkg/events/nats"
	"github.com/absmach/shadowrpc/pkg/jaeger"
	"github.com/absmach/shadowrpc/pkg/prometheus"
	"github.com/absmach/shadowrpc/pkg/ulid"
	"github.com/absmach/shadowrpc/pkg/uuid"
	"github.com/absmach/shadowrpc/shadow"
	"github.com/absmach/shadowrpc/shadow/api"
	"github.com/absmach/shadowrpc/shadow/awsiot"
	shadowevents "github.com/absmach/shadowrpc/shadow/events"
	"github.com/absmach/shadowrpc/shadow/middleware"
	shadowmongo "github.com/absmach/shadowrpc/shadow/mongodb"
	shadowmqtt "github.com/absmach/shadowrpc/shadow/mqtt"
	shadowredis "github.com/absmach/shadowrpc/shadow/redis"
	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const (
	svcName        = "shadowrpc"
	envPrefix      = "MG_SHADOW_"
	envPrefixHTTP  = "MG_SHADOW_HTTP_"
	envPrefixAWS   = "MG_SHADOW_AWS_"
	envPrefixMQTT  = "MG_SHADOW_MQTT_"
	envPrefixRedis = "MG_SHADOW_REDIS_"
	envPrefixMongo = "MG_SHADOW_MONGO_"
	defSvcHTTPPort = "9030"

	storeAWSIoT  = "awsiot"
	storeMQTT    = "mqtt"
	storeRedis   = "redis"
	storeMongoDB = "mongodb"

	discoveryStatic = "static"
	discoveryAWSIoT = "awsiot"
)

var errUnknownStore = errors.New("unknown shadow store")

type config struct {
	LogLevel   string   `env:"MG_SHADOW_LOG_LEVEL"     envDefault:"info"`
	InstanceID string   `env:"MG_SHADOW_INSTANCE_ID"   envDefault:""`
	Store      string   `env:"MG_SHADOW_STORE"         envDefault:"awsiot"`
	Discovery  string   `env:"MG_SHADOW_DISCOVERY"     envDefault:""`
	DeviceType string   `env:"MG_SHADOW_DEVICE_TYPE"   envDefault:"Kodi"`
	Devices    []string `env:"MG_SHADOW_DEVICES"       envDefault:""`
	NatsURL    string   `env:"MG_NATS_URL"             envDefault:""`
	JaegerURL  url.URL  `env:"MG_JAEGER_URL"           envDefault:"http://localhost:14268/api/traces"`
	TraceRatio float64  `env:"MG_JAEGER_TRACE_RATIO"   envDefault:"1.0"`
}

type mqttConfig struct {
	URL        string        `env:"URL"         envDefault:"tcp://localhost:1883"`
	ClientID   string        `env:"CLIENT_ID"   envDefault:""`
	ShadowName string        `env:"SHADOW_NAME" envDefault:""`
	Timeout    time.Duration `env:"TIMEOUT"     envDefault:"5s"`
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

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

	if cfg.InstanceID == "" {
		if cfg.InstanceID, err = uuid.New().ID(); err != nil {
			logger.Error(fmt.Sprintf("failed to generate instanceID: %s", err))
			exitCode = 1
			return
		}
	}

	gwConfig := shadow.Config{}
	if err := env.Parse(&gwConfig, env.Options{Prefix: envPrefix}); err != nil {
		logger.Error(fmt.Sprintf("failed to load %s gateway configuration : %s", svcName, err))
		exitCode = 1
		return
	}

	var (
		store      shadow.Store
		registry   devices.Lister
		closeStore func()
	)
	notify := func(e error, next time.Duration) {
		logger.Info(fmt.Sprintf("%s store not ready: %s, next try in %s", cfg.Store, e.Error(), next))
	}
	connect := func() error {
		var err error
		store, registry, closeStore, err = setupStore(ctx, cfg, logger)
		return err
	}
	if err := backoff.RetryNotify(connect, backoff.WithContext(backoff.NewExponentialBackOff(), ctx), notify); err != nil {
		logger.Error(fmt.Sprintf("failed to set up %s store: %s", cfg.Store, err))
		exitCode = 1
		return
	}
	defer closeStore()

	lister := newLister(cfg, registry)

	tp, err := jaeger.NewProvider(ctx, svcName, cfg.JaegerURL, cfg.InstanceID, cfg.TraceRatio)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to init Jaeger: %s", err))
		exitCode = 1
		return
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("error shutting down tracer provider: %v", err))
		}
	}()
	tracer := tp.Tracer(svcName)

	var publisher events.Publisher
	if cfg.NatsURL != "" {
		publisher, err = natsevents.NewPublisher(cfg.NatsURL)
		if err != nil {
			logger.Error(fmt.Sprintf("failed to connect to event bus: %s", err))
			exitCode = 1
			return
		}
		defer publisher.Close()
	}

	svc := newService(store, gwConfig, publisher, tracer, cfg.InstanceID, logger)

	httpServerConfig := server.Config{Port: defSvcHTTPPort}
	if err := env.Parse(&httpServerConfig, env.Options{Prefix: envPrefixHTTP}); err != nil {
		logger.Error(fmt.Sprintf("failed to load %s HTTP server configuration : %s", svcName, err))
		exitCode = 1
		return
	}
	hs := httpserver.New(ctx, cancel, svcName, httpServerConfig, api.MakeHandler(svc, lister, uuid.New(), logger, cfg.InstanceID), logger)

	g.Go(func() error {
		return hs.Start()
	})

	g.Go(func() error {
		return server.StopSignalHandler(ctx, cancel, logger, svcName, hs)
	})

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("%s service terminated: %s", svcName, err))
	}
}

func newService(store shadow.Store, gwConfig shadow.Config, publisher events.Publisher, tracer trace.Tracer, instanceID string, logger *slog.Logger) shadow.Service {
	svc := shadow.NewService(store, logger, gwConfig)
	svc = middleware.KeyLock(svc)
	if publisher != nil {
		svc = shadowevents.NewEventStoreMiddleware(svc, publisher, instanceID, logger)
	}
	svc = middleware.TracingMiddleware(svc, tracer)
	svc = middleware.LoggingMiddleware(svc, logger)
	counter, latency := prometheus.MakeMetrics(svcName, "api")
	outcomes, polls := prometheus.MakeOutcomeMetrics(svcName, "api")
	svc = middleware.MetricsMiddleware(svc, counter, latency, outcomes, polls)

	return svc
}

// setupStore connects the configured shadow store. The AWS IoT store also
// returns the thing registry used for discovery.
func setupStore(ctx context.Context, cfg config, logger *slog.Logger) (shadow.Store, devices.Lister, func(), error) {
	switch cfg.Store {
	case storeAWSIoT:
		awsCfg, sdkCfg, err := awsclient.Setup(ctx, envPrefixAWS)
		if err != nil {
			return nil, nil, nil, err
		}
		store := awsiot.NewStore(awsclient.DataPlane(sdkCfg, awsCfg.Endpoint), awsCfg.ShadowName)
		registry := devawsiot.NewLister(awsclient.Registry(sdkCfg), cfg.DeviceType)
		logger.Info(fmt.Sprintf("Using AWS IoT shadows in %s", awsCfg.Region))
		return store, registry, func() {}, nil

	case storeMQTT:
		mc := mqttConfig{}
		if err := env.Parse(&mc, env.Options{Prefix: envPrefixMQTT}); err != nil {
			return nil, nil, nil, backoff.Permanent(err)
		}
		if mc.ClientID == "" {
			mc.ClientID = fmt.Sprintf("%s-%s", svcName, cfg.InstanceID)
		}
		store, err := shadowmqtt.Connect(mc.URL, mc.ClientID, ulid.New(), mc.ShadowName, mc.Timeout, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		closer := func() {
			if err := store.Close(); err != nil {
				logger.Warn(fmt.Sprintf("failed to unsubscribe shadow topics: %s", err))
			}
		}
		logger.Info("Successfully connected to MQTT broker " + mc.URL)
		return store, nil, closer, nil

	case storeRedis:
		client, err := redisclient.Setup(ctx, envPrefixRedis)
		if err != nil {
			return nil, nil, nil, err
		}
		closer := func() {
			if err := client.Close(); err != nil {
				logger.Warn(fmt.Sprintf("failed to close redis client: %s", err))
			}
		}
		logger.Info("Successfully connected to redis")
		return shadowredis.NewStore(client), nil, closer, nil

	case storeMongoDB:
		db, err := mongoclient.Setup(ctx, envPrefixMongo)
		if err != nil {
			return nil, nil, nil, err
		}
		closer := func() {
			if err := db.Client().Disconnect(context.Background()); err != nil {
				logger.Warn(fmt.Sprintf("failed to disconnect from mongodb: %s", err))
			}
		}
		logger.Info("Successfully connected to mongodb database " + db.Name())
		return shadowmongo.NewStore(db), nil, closer, nil

	default:
		return nil, nil, nil, backoff.Permanent(errors.Wrap(errUnknownStore, errors.New(cfg.Store)))
	}
}

// newLister picks device discovery. The thing registry is used when the
// store provides one, unless a static list is requested.
func newLister(cfg config, registry devices.Lister) devices.Lister {
	if registry != nil && cfg.Discovery != discoveryStatic && (cfg.Discovery == "" || cfg.Discovery == discoveryAWSIoT) {
		return registry
	}

	return devices.NewStatic(cfg.DeviceType, cfg.Devices)
}
