// Command storekit runs the subscription engine as a service and exposes
// one-shot maintenance commands against the same storage and backends.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/storekit/pkg/logger"
	"github.com/dmitrymomot/storekit/pkg/subscription"
)

// Version is set at build time with -ldflags.
var Version = "dev"

type rootOptions struct {
	configPath string
	envFiles   []string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "storekit",
		Short:         "Subscription purchase and entitlement engine",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")
	root.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", nil, "dotenv files loaded before parsing config")

	root.AddCommand(
		newServeCmd(opts),
		newStatusCmd(opts),
		newRestoreCmd(opts),
		newConfirmPendingCmd(opts),
		newPortalCmd(opts),
		newSignOutCmd(opts),
		newDeleteAccountCmd(opts),
	)
	return root
}

// withApp loads the config, wires the engine, runs fn and tears it down.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig(opts.configPath, opts.envFiles...)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx := cmd.Context()
	log := newLogger(cfg, cmd.ErrOrStderr())

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.ErrorContext(ctx, "shutdown failed", logger.Error(err))
		}
	}()
	return fn(ctx, a)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// purchaseFlags lets one-shot commands hand a store purchase token to the
// in-memory billing source, standing in for the device's purchase history.
type purchaseFlags struct {
	token       string
	packageName string
}

func (f *purchaseFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.token, "purchase-token", "", "store purchase token to recover from")
	cmd.Flags().StringVar(&f.packageName, "package", "", "package name of the purchase (defaults to config)")
}

func (f *purchaseFlags) apply(ctx context.Context, a *app) {
	if f.token == "" {
		return
	}
	if a.memory == nil {
		a.log.WarnContext(ctx, "--purchase-token is ignored with the paddle billing source", logger.Component("storekit"))
		return
	}
	a.memory.AddPurchase(subscription.PurchaseRecord{
		Token:       f.token,
		ProductID:   subscription.MonthlyPlan,
		PackageName: f.packageName,
		PurchasedAt: time.Now(),
	})
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
