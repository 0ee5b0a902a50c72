// Package logger builds *slog.Logger values with functional options and
// provides attribute constructors shared by the subscription engine.
//
// New wraps the JSON or text handler so the registered ContextExtractor
// callbacks run on every record and values logged under DefaultSecretKeys
// (or the keys given to WithSecretKeys) are masked:
//
//	log := logger.New(
//		logger.WithEnvironment("production", "storekit"),
//		logger.WithContextValue("request_id", requestIDKey{}),
//	)
//	log.InfoContext(ctx, "purchase confirmed",
//		logger.ExternalID(account.ExternalID),
//		logger.PurchaseToken(token),
//	)
//
// Error, ExternalID and PurchaseToken return an empty attribute for zero
// input, so callers can pass them without nil checks. PurchaseToken never
// logs more than the first four characters of the token.
package logger
