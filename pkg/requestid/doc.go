// Package requestid correlates the HTTP requests served by storekit with the
// backend calls they trigger.
//
// Middleware attaches an id to every inbound request, reusing a valid
// X-Request-ID header. The backend clients read it back with
// FromContextOrNew, so a webhook that leads to a purchase confirmation
// shows one id across the inbound log line and the outgoing confirm call.
// LoggerExtractor puts the id on every slog record written with that
// context.
//
//	r := chi.NewRouter()
//	r.Use(requestid.Middleware)
//
//	log := logger.New(logger.WithContextExtractors(requestid.LoggerExtractor()))
package requestid
