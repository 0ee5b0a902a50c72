// Package httpserver runs the storekit HTTP surface: health probes, the
// Prometheus endpoint, the status API and provider webhooks.
//
// Run is driven by a context instead of its own signal handler, so the
// serve command can stop the server, the subscription manager and the
// pending checker from one signal.NotifyContext:
//
//	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
//	defer stop()
//
//	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
//	err := srv.Run(ctx, router)
//
// HealthCheckHandler answers liveness with no checks and readiness when
// given storage or backend checks.
package httpserver
