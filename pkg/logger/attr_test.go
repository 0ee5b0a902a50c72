package logger_test

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storekit/pkg/logger"
)

func TestGroup(t *testing.T) {
	attr := logger.Group("purchase", logger.ProductID("basic_subscription"), logger.PurchaseState("success"))
	require.Equal(t, "purchase", attr.Key)
	require.Equal(t, slog.KindGroup, attr.Value.Kind())
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, "product_id", g[0].Key)
	assert.Equal(t, "purchase_state", g[1].Key)
}

func TestErrors(t *testing.T) {
	err1 := errors.New("first")
	err2 := errors.New("second")

	attr := logger.Errors(err1, nil, err2)
	require.Equal(t, "errors", attr.Key)
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, err1, g[0].Value.Any())
	assert.Equal(t, err2, g[1].Value.Any())

	assert.True(t, logger.Errors(nil).Equal(slog.Attr{}))
}

func TestError(t *testing.T) {
	err := errors.New("boom")
	attr := logger.Error(err)
	require.Equal(t, "error", attr.Key)
	assert.Equal(t, err, attr.Value.Any())

	assert.True(t, logger.Error(nil).Equal(slog.Attr{}))
}

func TestExternalID(t *testing.T) {
	attr := logger.ExternalID("1234")
	require.Equal(t, "external_id", attr.Key)
	assert.Equal(t, "1234", attr.Value.String())

	assert.True(t, logger.ExternalID("").Equal(slog.Attr{}))
}

func TestPurchaseToken(t *testing.T) {
	attr := logger.PurchaseToken("validToken")
	require.Equal(t, "purchase_token", attr.Key)
	assert.Equal(t, "vali****", attr.Value.String())
	assert.NotContains(t, attr.Value.String(), "Token")

	assert.True(t, logger.PurchaseToken("").Equal(slog.Attr{}))
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "****", logger.Redact("abc"))
	assert.Equal(t, "****", logger.Redact("abcd"))
	assert.Equal(t, "abcd****", logger.Redact("abcdefgh"))
}
