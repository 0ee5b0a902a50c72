// Package subscriptions is the purchase and entitlement orchestrator.
//
// A Manager turns billing events into an authenticated account state. It
// composes the auth repository, a billing source and the two backend
// clients into:
//
//   - a purchase flow state machine (Purchase, CurrentPurchaseState)
//   - access token refresh with store recovery as fallback (GetAuthToken)
//   - purchase recovery (RecoverSubscriptionFromStore)
//   - observable signed-in, status and entitlement streams
//
// Typical wiring:
//
//	repo, _ := authstore.Open(ctx, storage)
//	m := subscriptions.New(cfg, repo, source, authClient, subsClient,
//		subscriptions.WithLogger(log),
//		subscriptions.WithMetrics(prometheus.DefaultRegisterer),
//	)
//	if err := m.Start(ctx); err != nil {
//		return err
//	}
//	defer m.Close()
//
//	checker, err := subscriptions.NewPendingChecker(m, cfg.PendingCheckInterval)
//	if err != nil {
//		return err
//	}
//	go checker.Run(ctx)
//
// Remote failures never reach the streams as raw errors. Methods return
// errors joined with the sentinels of package subscription, and the purchase
// stream only carries CurrentPurchase{State, Reason}.
//
// Confirmation is level-triggered: a purchase confirmed while the process
// was gone is picked up again from the store history by ConfirmPending,
// which Start runs once and PendingChecker runs on its interval.
package subscriptions
