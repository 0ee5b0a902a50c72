// Package billing abstracts the billing provider the subscription engine
// buys through.
//
// A Source exposes the purchase history, the offer catalog, a stream of
// purchase lifecycle events and the command that opens the provider's
// checkout. The engine treats a Source purely as a supplier of purchase
// tokens; payments and pricing stay with the provider.
//
// MemorySource is scriptable and backs tests and demo hosts. PaddleSource
// opens a Paddle hosted checkout for the configured prices, passing the
// backend external id in the transaction custom data, and turns verified
// Paddle webhooks into EventPurchased and EventCanceled. Mount it on the
// webhook route:
//
//	src, err := billing.NewPaddleSource(cfg.Paddle)
//	if err != nil {
//		return err
//	}
//	r.Post("/v1/webhooks/paddle", src.ServeHTTP)
package billing
