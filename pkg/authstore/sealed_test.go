package authstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storekit/pkg/authstore"
	"github.com/dmitrymomot/storekit/pkg/secrets"
)

func newSealer(t *testing.T) *secrets.Sealer {
	t.Helper()
	key, err := secrets.GenerateKey()
	require.NoError(t, err)
	s, err := secrets.NewSealer(key, "authstore")
	require.NoError(t, err)
	return s
}

func TestSealedStorage(t *testing.T) {
	sealer := newSealer(t)
	runStorageContract(t, func(t *testing.T) authstore.Storage {
		return authstore.NewSealedStorage(authstore.NewMemoryStorage(), sealer)
	})
}

func TestSealedStorage_EncryptsAtRest(t *testing.T) {
	ctx := context.Background()
	inner := authstore.NewMemoryStorage()
	s := authstore.NewSealedStorage(inner, newSealer(t))

	acc := signedInAccount()
	require.NoError(t, s.Apply(ctx, authstore.Update{Account: &acc, Subscription: activeSubscription()}))

	raw, err := inner.Load(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, acc.AccessToken, raw.Account.AccessToken)
	assert.NotEqual(t, acc.AuthToken, raw.Account.AuthToken)
	assert.NotEqual(t, acc.Email, raw.Account.Email)
	assert.Equal(t, acc.ExternalID, raw.Account.ExternalID)

	snap, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, acc, snap.Account)

	t.Run("caller's account is not modified", func(t *testing.T) {
		assert.Equal(t, signedInAccount(), acc)
	})
}

func TestSealedStorage_WrongKeyIsCorrupt(t *testing.T) {
	ctx := context.Background()
	inner := authstore.NewMemoryStorage()

	acc := signedInAccount()
	require.NoError(t, authstore.NewSealedStorage(inner, newSealer(t)).Apply(ctx, authstore.Update{Account: &acc}))

	_, err := authstore.NewSealedStorage(inner, newSealer(t)).Load(ctx)
	assert.ErrorIs(t, err, authstore.ErrCorruptRecord)
}

func TestSealedStorage_WithSQLite(t *testing.T) {
	ctx := context.Background()
	repo := openRepo(t, authstore.NewSealedStorage(newSQLiteStorage(t), newSealer(t)))

	require.NoError(t, repo.SaveSession(ctx, signedInAccount(), activeSubscription()))
	require.NoError(t, repo.SetAuthToken(ctx, "authToken2"))

	assert.Equal(t, "authToken2", repo.AuthToken())
	assert.Equal(t, "user@example.com", repo.Email())
}
