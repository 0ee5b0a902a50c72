package backend

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrymomot/storekit/pkg/subscription"
)

// Store identifiers sent with a store login.
const (
	StoreGooglePlay = "google_play_store"
	StorePaddle     = "paddle"
)

// CreateAccountResponse is returned by the account creation endpoint.
type CreateAccountResponse struct {
	AuthToken  string `json:"auth_token"`
	ExternalID string `json:"external_id"`
	Status     string `json:"status"`
}

// StoreLoginRequest binds a store purchase to a backend account.
type StoreLoginRequest struct {
	Method      string `json:"method"`
	Signature   string `json:"signature"` // the purchase token
	Source      string `json:"source"`
	PackageName string `json:"package_name,omitempty"`
}

// NewStoreLoginRequest builds a signature login for purchaseToken.
func NewStoreLoginRequest(purchaseToken, store, packageName string) StoreLoginRequest {
	if store == "" {
		store = StoreGooglePlay
	}
	return StoreLoginRequest{
		Method:      "signature",
		Signature:   purchaseToken,
		Source:      store,
		PackageName: packageName,
	}
}

type StoreLoginResponse struct {
	AuthToken  string `json:"auth_token"`
	ExternalID string `json:"external_id"`
	Email      string `json:"email"`
	Status     string `json:"status"`
}

type AccessTokenResponse struct {
	AccessToken string `json:"access_token"`
}

// ValidateTokenResponse describes the account behind an access token.
type ValidateTokenResponse struct {
	Account AccountResponse `json:"account"`
}

type AccountResponse struct {
	Email        string                     `json:"email"`
	ExternalID   string                     `json:"external_id"`
	Entitlements []subscription.Entitlement `json:"entitlements"`
}

// AuthClient talks to the account and authentication backend.
type AuthClient struct {
	c *client
}

// NewAuthClient creates a client for the auth API rooted at baseURL,
// e.g. https://example.com/api/auth.
func NewAuthClient(baseURL string, opts ...Option) (*AuthClient, error) {
	c, err := newClient(baseURL, opts...)
	if err != nil {
		return nil, err
	}
	return &AuthClient{c: c}, nil
}

// CreateAccount creates a new backend identity. bearer is optional and links
// the new account to an existing session when set.
func (a *AuthClient) CreateAccount(ctx context.Context, bearer string) (CreateAccountResponse, error) {
	var resp CreateAccountResponse
	err := a.c.do(ctx, http.MethodPost, "/account/create", bearer, nil, &resp)
	return resp, err
}

// StoreLogin exchanges a store purchase token for an auth token of the
// account that owns the purchase.
func (a *AuthClient) StoreLogin(ctx context.Context, req StoreLoginRequest) (StoreLoginResponse, error) {
	var resp StoreLoginResponse
	err := a.c.do(ctx, http.MethodPost, "/store-login", "", req, &resp)
	return resp, err
}

// AccessToken exchanges a single-use auth token for a long-lived access token.
func (a *AuthClient) AccessToken(ctx context.Context, authToken string) (AccessTokenResponse, error) {
	if authToken == "" {
		return AccessTokenResponse{}, ErrMissingToken
	}
	var resp AccessTokenResponse
	err := a.c.do(ctx, http.MethodGet, "/access-token", authToken, nil, &resp)
	return resp, err
}

// ValidateToken checks accessToken. An expired token fails with
// subscription.ErrAuthExpired.
func (a *AuthClient) ValidateToken(ctx context.Context, accessToken string) (ValidateTokenResponse, error) {
	if accessToken == "" {
		return ValidateTokenResponse{}, ErrMissingToken
	}
	var resp ValidateTokenResponse
	err := a.c.do(ctx, http.MethodGet, "/validate-token", accessToken, nil, &resp)
	return resp, err
}

// DeleteAccount deletes the account behind accessToken.
func (a *AuthClient) DeleteAccount(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return ErrMissingToken
	}
	var resp struct {
		Status string `json:"status"`
	}
	if err := a.c.do(ctx, http.MethodPost, "/account/delete", accessToken, nil, &resp); err != nil {
		return err
	}
	if resp.Status != "" && resp.Status != "deleted" {
		return errors.Join(subscription.ErrTransport, &APIError{StatusCode: http.StatusOK, Code: resp.Status})
	}
	return nil
}
