package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dmitrymomot/storekit/pkg/authstore"
	"github.com/dmitrymomot/storekit/pkg/backend"
	"github.com/dmitrymomot/storekit/pkg/billing"
	"github.com/dmitrymomot/storekit/pkg/clientip"
	"github.com/dmitrymomot/storekit/pkg/httpserver"
	"github.com/dmitrymomot/storekit/pkg/logger"
	"github.com/dmitrymomot/storekit/pkg/ratelimiter"
	"github.com/dmitrymomot/storekit/pkg/requestid"
	"github.com/dmitrymomot/storekit/pkg/secrets"
	"github.com/dmitrymomot/storekit/svc/subscriptions"
)

var errUnknownStorage = errors.New("unknown storage backend")

// app is the wired engine shared by every command.
type app struct {
	cfg      appConfig
	log      *slog.Logger
	registry *prometheus.Registry
	repo     *authstore.Repository
	source   billing.Source
	memory   *billing.MemorySource // set when Paddle is not configured
	paddle   *billing.PaddleSource
	manager  *subscriptions.Manager
	checks   []httpserver.Check

	limitStore *ratelimiter.MemoryStore
	limiter    *ratelimiter.Bucket // nil when rate limiting is off
}

func newLogger(cfg appConfig, out io.Writer) *slog.Logger {
	opts := []logger.Option{
		logger.WithEnvironment(cfg.Env, "storekit"),
		logger.WithOutput(out),
		logger.WithContextExtractors(requestid.LoggerExtractor(), clientip.LoggerExtractor()),
	}
	if cfg.LogLevel != "" {
		opts = append(opts, logger.WithLevelName(cfg.LogLevel))
	}
	if cfg.LogFormat != "" {
		opts = append(opts, logger.WithFormat(logger.Format(cfg.LogFormat)))
	}
	return logger.New(opts...)
}

func newApp(ctx context.Context, cfg appConfig, log *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	storage, check, err := openStorage(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if cfg.StorageKey != "" {
		if storage, err = sealStorage(storage, cfg.StorageKey); err != nil {
			return nil, err
		}
	}
	if check != nil {
		a.checks = append(a.checks, httpserver.Check{Name: "storage", Fn: check})
	}

	a.repo, err = authstore.Open(ctx, storage, authstore.WithLogger(log))
	if err != nil {
		_ = storage.Close()
		return nil, err
	}

	if cfg.Paddle.Enabled() {
		a.paddle, err = billing.NewPaddleSource(cfg.Paddle, billing.WithPaddleLogger(log))
		if err != nil {
			_ = a.repo.Close()
			return nil, err
		}
		a.source = a.paddle
	} else {
		log.InfoContext(ctx, "paddle not configured, using in-memory billing source", logger.Component("storekit"))
		a.memory = billing.NewMemorySource()
		a.source = a.memory
	}

	// One option set so both clients share the circuit breaker.
	clientOpts := append(cfg.Backend.Options(), backend.WithLogger(log))
	auth, err := backend.NewAuthClient(cfg.Backend.AuthURL, clientOpts...)
	if err != nil {
		a.closeSource()
		_ = a.repo.Close()
		return nil, err
	}
	subs, err := backend.NewSubscriptionsClient(cfg.Backend.SubscriptionsURL, clientOpts...)
	if err != nil {
		a.closeSource()
		_ = a.repo.Close()
		return nil, err
	}

	if cfg.RateLimit.Enabled() {
		a.limitStore = ratelimiter.NewMemoryStore()
		a.limiter, err = ratelimiter.NewBucket(a.limitStore, cfg.RateLimit)
		if err != nil {
			a.limitStore.Close()
			a.closeSource()
			_ = a.repo.Close()
			return nil, err
		}
	}

	a.manager = subscriptions.New(cfg.Subscriptions, a.repo, a.source, auth, subs,
		subscriptions.WithLogger(log),
		subscriptions.WithMetrics(a.registry),
	)
	return a, nil
}

func openStorage(ctx context.Context, cfg appConfig, log *slog.Logger) (authstore.Storage, func(context.Context) error, error) {
	switch cfg.Storage {
	case storageMemory:
		return authstore.NewMemoryStorage(), nil, nil
	case storageSQL, "":
		s, err := authstore.OpenSQL(ctx, cfg.SQL, log)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Healthcheck(), nil
	case storageRedis:
		client, err := authstore.ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		s := authstore.NewRedisStorage(client, cfg.Redis.KeyPrefix)
		return s, s.Healthcheck(), nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", errUnknownStorage, cfg.Storage)
	}
}

func sealStorage(s authstore.Storage, encodedKey string) (authstore.Storage, error) {
	key, err := secrets.ParseKey(encodedKey)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("storage key: %w", err)
	}
	sealer, err := secrets.NewSealer(key, "authstore")
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	return authstore.NewSealedStorage(s, sealer), nil
}

func (a *app) closeSource() {
	switch {
	case a.paddle != nil:
		_ = a.paddle.Close()
	case a.memory != nil:
		_ = a.memory.Close()
	}
}

// Close stops the manager, then the billing source, then the repository.
func (a *app) Close() error {
	err := a.manager.Close()
	if a.limitStore != nil {
		a.limitStore.Close()
	}
	a.closeSource()
	return errors.Join(err, a.repo.Close())
}
