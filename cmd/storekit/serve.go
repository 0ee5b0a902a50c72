package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/storekit/pkg/httpserver"
	"github.com/dmitrymomot/storekit/pkg/logger"
	"github.com/dmitrymomot/storekit/svc/subscriptions"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the engine with its HTTP API until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)

			return withApp(cmd, opts, serve)
		},
	}
}

// serve starts the manager, the pending checker and the HTTP server, and
// returns when ctx is done or one of them fails.
func serve(ctx context.Context, a *app) error {
	if err := a.manager.Start(ctx); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	if interval := a.cfg.Subscriptions.PendingCheckInterval; interval > 0 {
		checker, err := subscriptions.NewPendingChecker(a.manager, interval, subscriptions.WithCheckerLogger(a.log))
		if err != nil {
			return err
		}
		g.Go(func() error {
			if err := checker.Run(ctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	} else {
		a.log.InfoContext(ctx, "pending checker disabled, no interval configured", logger.Component("storekit"))
	}

	srv := httpserver.NewFromConfig(a.cfg.HTTP, httpserver.WithLogger(a.log))
	g.Go(func() error {
		return srv.Run(ctx, a.router())
	})

	return g.Wait()
}
