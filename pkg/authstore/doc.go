// Package authstore persists the device session: the account group
// (access token, auth token, external id, email) and the cached subscription
// group (status, dates, product, platform, entitlements).
//
// Repository is the only writer. It keeps both groups in memory, writes every
// change to a Storage backend as one atomic unit and then publishes it, so a
// reader never pairs a new access token with a stale external id. It also
// exposes replaying streams of the signed-in flag, the status and the
// entitlement list.
//
// Storage backends:
//
//   - MemoryStorage for tests and ephemeral hosts.
//   - SQLStorage on database/sql with embedded goose migrations. The sqlite
//     driver (modernc.org/sqlite) is the device-local default; postgres goes
//     through a pgx pool.
//   - RedisStorage keeps each group in a hash and writes through MULTI/EXEC.
//
// Usage:
//
//	storage, err := authstore.OpenSQL(ctx, cfg, log)
//	if err != nil {
//		return err
//	}
//	repo, err := authstore.Open(ctx, storage, authstore.WithLogger(log))
//	if err != nil {
//		return err
//	}
//	defer repo.Close()
package authstore
