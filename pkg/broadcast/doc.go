// Package broadcast provides type-safe one-to-many delivery of values.
//
// MemoryBroadcaster fans out discrete events. Every subscriber gets its own
// buffered channel; a subscriber whose buffer stays full is dropped, either
// immediately or after WithDeliveryTimeout expires.
//
//	events := broadcast.NewMemoryBroadcaster[billing.Event](16)
//	defer events.Close()
//
//	sub := events.Subscribe(ctx)
//	for msg := range sub.Receive(ctx) {
//		handle(msg.Data)
//	}
//
// Value holds state. New subscribers immediately receive the current value
// and then every later change. Readers that fall behind skip intermediate
// values and always observe the latest one.
//
//	state := broadcast.NewValue(subscription.PurchaseInactive)
//	state.Store(subscription.PurchaseInProgress)
//	current := state.Load()
//
// Subscriptions end when their context is cancelled, when they are closed,
// or when the source is closed.
package broadcast
