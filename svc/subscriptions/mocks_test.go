package subscriptions

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/storekit/pkg/backend"
)

// MockAuthAPI is a mock implementation of AuthAPI.
type MockAuthAPI struct {
	mock.Mock
}

func (m *MockAuthAPI) CreateAccount(ctx context.Context, bearer string) (backend.CreateAccountResponse, error) {
	args := m.Called(ctx, bearer)
	return args.Get(0).(backend.CreateAccountResponse), args.Error(1)
}

func (m *MockAuthAPI) StoreLogin(ctx context.Context, req backend.StoreLoginRequest) (backend.StoreLoginResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(backend.StoreLoginResponse), args.Error(1)
}

func (m *MockAuthAPI) AccessToken(ctx context.Context, authToken string) (backend.AccessTokenResponse, error) {
	args := m.Called(ctx, authToken)
	return args.Get(0).(backend.AccessTokenResponse), args.Error(1)
}

func (m *MockAuthAPI) ValidateToken(ctx context.Context, accessToken string) (backend.ValidateTokenResponse, error) {
	args := m.Called(ctx, accessToken)
	return args.Get(0).(backend.ValidateTokenResponse), args.Error(1)
}

func (m *MockAuthAPI) DeleteAccount(ctx context.Context, accessToken string) error {
	args := m.Called(ctx, accessToken)
	return args.Error(0)
}

// MockSubscriptionsAPI is a mock implementation of SubscriptionsAPI.
type MockSubscriptionsAPI struct {
	mock.Mock
}

func (m *MockSubscriptionsAPI) Subscription(ctx context.Context, accessToken string) (backend.SubscriptionResponse, error) {
	args := m.Called(ctx, accessToken)
	return args.Get(0).(backend.SubscriptionResponse), args.Error(1)
}

func (m *MockSubscriptionsAPI) Confirm(ctx context.Context, accessToken string, req backend.ConfirmRequest) (backend.ConfirmResponse, error) {
	args := m.Called(ctx, accessToken, req)
	return args.Get(0).(backend.ConfirmResponse), args.Error(1)
}

func (m *MockSubscriptionsAPI) Portal(ctx context.Context, accessToken string) (backend.PortalResponse, error) {
	args := m.Called(ctx, accessToken)
	return args.Get(0).(backend.PortalResponse), args.Error(1)
}
