package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Refresh and print the account and subscription state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if !offline {
					a.manager.FetchAndStoreAllData(ctx)
				}
				return printJSON(cmd, a.status())
			})
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "print the cached state without calling the backend")
	return cmd
}

func newRestoreCmd(opts *rootOptions) *cobra.Command {
	var pf purchaseFlags
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Restore the account that owns the latest store purchase",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				pf.apply(ctx, a)
				if _, err := a.manager.RecoverSubscriptionFromStore(ctx); err != nil {
					return err
				}
				return printJSON(cmd, a.status())
			})
		},
	}
	pf.register(cmd)
	return cmd
}

func newConfirmPendingCmd(opts *rootOptions) *cobra.Command {
	var pf purchaseFlags
	cmd := &cobra.Command{
		Use:   "confirm-pending",
		Short: "Re-confirm a purchase left waiting for the backend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				pf.apply(ctx, a)
				if err := a.manager.ConfirmPending(ctx); err != nil {
					return err
				}
				return printJSON(cmd, a.status())
			})
		},
	}
	pf.register(cmd)
	return cmd
}

func newPortalCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "portal",
		Short: "Print the customer portal URL",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				url, err := a.manager.GetPortalURL(ctx)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), url)
				return err
			})
		},
	}
}

func newSignOutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sign-out",
		Short: "Forget the local account and cached subscription",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.manager.SignOut(ctx); err != nil {
					return err
				}
				return printJSON(cmd, a.status())
			})
		},
	}
}

func newDeleteAccountCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-account",
		Short: "Delete the backend account, then sign out",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if err := a.manager.DeleteAccount(ctx); err != nil {
					return err
				}
				return a.manager.SignOut(ctx)
			})
		},
	}
}
