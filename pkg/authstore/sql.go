package authstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/dmitrymomot/storekit/pkg/subscription"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// SQLStorage persists both groups in two single-row tables. Each Apply runs
// in one transaction.
type SQLStorage struct {
	db      *sql.DB
	pool    *pgxpool.Pool // set for postgres only
	dialect string
}

// NewSQLStorage wraps an already migrated database.
func NewSQLStorage(db *sql.DB, driver string) (*SQLStorage, error) {
	if db == nil {
		panic("authstore: db is required")
	}
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
	return &SQLStorage{db: db, dialect: driver}, nil
}

// OpenSQL connects to the configured database with retries, applies the
// embedded migrations and returns the storage.
func OpenSQL(ctx context.Context, cfg SQLConfig, log migrationLogger) (*SQLStorage, error) {
	var (
		s   *SQLStorage
		err error
	)
	switch cfg.Driver {
	case DriverSQLite, "":
		s, err = openSQLite(ctx, cfg)
	case DriverPostgres:
		s, err = openPostgres(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := migrate(ctx, s.db, s.dialect, cfg.MigrationsTable, log); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func openSQLite(ctx context.Context, cfg SQLConfig) (*SQLStorage, error) {
	dsn := cfg.DSN
	if !strings.Contains(dsn, "_pragma=") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, errors.Join(ErrFailedToOpenDB, err)
	}
	// A device-local file has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := pingWithRetry(ctx, cfg, db.PingContext); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLStorage{db: db, dialect: DriverSQLite}, nil
}

func openPostgres(ctx context.Context, cfg SQLConfig) (*SQLStorage, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, errors.Join(ErrFailedToOpenDB, err)
	}
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = cfg.MaxOpenConns
	}

	attempts := max(cfg.RetryAttempts, 1)
	for i := range attempts {
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return &SQLStorage{db: stdlib.OpenDBFromPool(pool), pool: pool, dialect: DriverPostgres}, nil
			}
			pool.Close()
		}
		if i < attempts-1 {
			if err := sleepCtx(ctx, time.Duration(i+1)*cfg.RetryInterval); err != nil {
				return nil, errors.Join(ErrFailedToOpenDB, err)
			}
		}
	}
	return nil, ErrFailedToOpenDB
}

func pingWithRetry(ctx context.Context, cfg SQLConfig, ping func(context.Context) error) error {
	attempts := max(cfg.RetryAttempts, 1)
	var lastErr error
	for i := range attempts {
		if lastErr = ping(ctx); lastErr == nil {
			return nil
		}
		if i < attempts-1 {
			if err := sleepCtx(ctx, time.Duration(i+1)*cfg.RetryInterval); err != nil {
				return errors.Join(ErrFailedToOpenDB, err)
			}
		}
	}
	return errors.Join(ErrFailedToOpenDB, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *SQLStorage) Load(ctx context.Context) (Snapshot, error) {
	var snap Snapshot

	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT access_token, auth_token, external_id, email FROM auth_account WHERE id = 1`,
	)).Scan(&snap.Account.AccessToken, &snap.Account.AuthToken, &snap.Account.ExternalID, &snap.Account.Email)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("load account: %w", err)
	}

	var (
		sub              subscription.Subscription
		platform, status string
		started, expires int64
		ents             string
	)
	err = s.db.QueryRowContext(ctx, s.rebind(
		`SELECT product_id, platform, status, started_at, expires_or_renews_at, entitlements
		 FROM auth_subscription WHERE id = 1`,
	)).Scan(&sub.ProductID, &platform, &status, &started, &expires, &ents)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return snap, nil
	case err != nil:
		return Snapshot{}, fmt.Errorf("load subscription: %w", err)
	}

	if err := json.Unmarshal([]byte(ents), &sub.Entitlements); err != nil {
		return Snapshot{}, errors.Join(ErrCorruptRecord, err)
	}
	sub.Platform = subscription.Platform(platform)
	sub.Status = subscription.ParseStatus(status)
	sub.StartedAt = fromMillis(started)
	sub.ExpiresOrRenewsAt = fromMillis(expires)
	snap.Subscription = &sub
	return snap, nil
}

func (s *SQLStorage) Apply(ctx context.Context, u Update) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixMilli()

	switch {
	case u.ClearAccount:
		if _, err := tx.ExecContext(ctx, `DELETE FROM auth_account`); err != nil {
			return fmt.Errorf("clear account: %w", err)
		}
	case u.Account != nil:
		a := u.Account
		_, err := tx.ExecContext(ctx, s.rebind(`
			INSERT INTO auth_account (id, access_token, auth_token, external_id, email, updated_at)
			VALUES (1, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				access_token = excluded.access_token,
				auth_token = excluded.auth_token,
				external_id = excluded.external_id,
				email = excluded.email,
				updated_at = excluded.updated_at`),
			a.AccessToken, a.AuthToken, a.ExternalID, a.Email, now)
		if err != nil {
			return fmt.Errorf("save account: %w", err)
		}
	}

	switch {
	case u.ClearSubscription:
		if _, err := tx.ExecContext(ctx, `DELETE FROM auth_subscription`); err != nil {
			return fmt.Errorf("clear subscription: %w", err)
		}
	case u.Subscription != nil:
		sub := u.Subscription
		ents, err := json.Marshal(entitlementsOrEmpty(sub.Entitlements))
		if err != nil {
			return fmt.Errorf("encode entitlements: %w", err)
		}
		_, err = tx.ExecContext(ctx, s.rebind(`
			INSERT INTO auth_subscription (id, product_id, platform, status, started_at, expires_or_renews_at, entitlements, updated_at)
			VALUES (1, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				product_id = excluded.product_id,
				platform = excluded.platform,
				status = excluded.status,
				started_at = excluded.started_at,
				expires_or_renews_at = excluded.expires_or_renews_at,
				entitlements = excluded.entitlements,
				updated_at = excluded.updated_at`),
			sub.ProductID, string(sub.Platform), string(sub.Status),
			toMillis(sub.StartedAt), toMillis(sub.ExpiresOrRenewsAt), string(ents), now)
		if err != nil {
			return fmt.Errorf("save subscription: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Healthcheck returns a closure suitable for health endpoints.
func (s *SQLStorage) Healthcheck() func(context.Context) error {
	return func(ctx context.Context) error {
		if err := s.db.PingContext(ctx); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}

func (s *SQLStorage) Close() error {
	err := s.db.Close()
	if s.pool != nil {
		s.pool.Close()
	}
	return err
}

// rebind converts ? placeholders to $n for postgres.
func (s *SQLStorage) rebind(query string) string {
	if s.dialect != DriverPostgres {
		return query
	}
	var (
		b strings.Builder
		n int
	)
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func entitlementsOrEmpty(ents []subscription.Entitlement) []subscription.Entitlement {
	if ents == nil {
		return []subscription.Entitlement{}
	}
	return ents
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
