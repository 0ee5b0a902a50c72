package authstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/storekit/pkg/subscription"
)

// RedisStorage keeps each group in its own hash. Writes run inside
// MULTI/EXEC so every touched group changes together.
type RedisStorage struct {
	db     redis.UniversalClient
	prefix string
}

// NewRedisStorage wraps a connected client. Keys are namespaced by prefix.
func NewRedisStorage(client redis.UniversalClient, prefix string) *RedisStorage {
	if client == nil {
		panic("authstore: redis client is required")
	}
	if prefix == "" {
		prefix = "storekit"
	}
	return &RedisStorage{db: client, prefix: prefix}
}

// ConnectRedis parses cfg.ConnectionURL and pings the server until it answers
// or the retries run out.
func ConnectRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	opts, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseRedisURL, err)
	}

	for range max(cfg.RetryAttempts, 1) {
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err == nil {
			return client, nil
		}
		_ = client.Close()

		if err := sleepCtx(ctx, cfg.RetryInterval); err != nil {
			return nil, errors.Join(ErrRedisNotReady, err)
		}
	}
	return nil, ErrRedisNotReady
}

func (s *RedisStorage) accountKey() string      { return s.prefix + ":account" }
func (s *RedisStorage) subscriptionKey() string { return s.prefix + ":subscription" }

func (s *RedisStorage) Load(ctx context.Context) (Snapshot, error) {
	var snap Snapshot

	acc, err := s.db.HGetAll(ctx, s.accountKey()).Result()
	if err != nil {
		return Snapshot{}, fmt.Errorf("load account: %w", err)
	}
	snap.Account = AccountState{
		AccessToken: acc["access_token"],
		AuthToken:   acc["auth_token"],
		ExternalID:  acc["external_id"],
		Email:       acc["email"],
	}

	h, err := s.db.HGetAll(ctx, s.subscriptionKey()).Result()
	if err != nil {
		return Snapshot{}, fmt.Errorf("load subscription: %w", err)
	}
	if len(h) == 0 {
		return snap, nil
	}

	sub := &subscription.Subscription{
		ProductID: h["product_id"],
		Platform:  subscription.Platform(h["platform"]),
		Status:    subscription.ParseStatus(h["status"]),
	}
	if sub.StartedAt, err = parseMillis(h["started_at"]); err != nil {
		return Snapshot{}, errors.Join(ErrCorruptRecord, err)
	}
	if sub.ExpiresOrRenewsAt, err = parseMillis(h["expires_or_renews_at"]); err != nil {
		return Snapshot{}, errors.Join(ErrCorruptRecord, err)
	}
	if raw := h["entitlements"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &sub.Entitlements); err != nil {
			return Snapshot{}, errors.Join(ErrCorruptRecord, err)
		}
	}
	snap.Subscription = sub
	return snap, nil
}

func (s *RedisStorage) Apply(ctx context.Context, u Update) error {
	var ents []byte
	if !u.ClearSubscription && u.Subscription != nil {
		var err error
		if ents, err = json.Marshal(entitlementsOrEmpty(u.Subscription.Entitlements)); err != nil {
			return fmt.Errorf("encode entitlements: %w", err)
		}
	}

	_, err := s.db.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		switch {
		case u.ClearAccount:
			pipe.Del(ctx, s.accountKey())
		case u.Account != nil:
			pipe.Del(ctx, s.accountKey())
			pipe.HSet(ctx, s.accountKey(), map[string]any{
				"access_token": u.Account.AccessToken,
				"auth_token":   u.Account.AuthToken,
				"external_id":  u.Account.ExternalID,
				"email":        u.Account.Email,
			})
		}

		switch {
		case u.ClearSubscription:
			pipe.Del(ctx, s.subscriptionKey())
		case u.Subscription != nil:
			sub := u.Subscription
			pipe.Del(ctx, s.subscriptionKey())
			pipe.HSet(ctx, s.subscriptionKey(), map[string]any{
				"product_id":           sub.ProductID,
				"platform":             string(sub.Platform),
				"status":               string(sub.Status),
				"started_at":           toMillis(sub.StartedAt),
				"expires_or_renews_at": toMillis(sub.ExpiresOrRenewsAt),
				"entitlements":         string(ents),
			})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis transaction: %w", err)
	}
	return nil
}

// Healthcheck returns a closure suitable for health endpoints.
func (s *RedisStorage) Healthcheck() func(context.Context) error {
	return func(ctx context.Context) error {
		if err := s.db.Ping(ctx).Err(); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}

// Close closes the underlying client.
func (s *RedisStorage) Close() error {
	return s.db.Close()
}

func parseMillis(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return fromMillis(ms), nil
}
