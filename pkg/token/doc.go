// Package token inspects and issues the JWT access tokens exchanged with the
// subscription backend.
//
// Expiry and IsExpired read the exp claim without verifying the signature,
// which lets the client refresh a token shortly before the backend would
// reject it. Tokens that are not JWTs are treated as never expiring locally.
//
// Sign and Subject use HS256 and exist for the in-memory backend and tests.
package token
