package authstore

import "errors"

var (
	ErrStorage                 = errors.New("auth storage failure")
	ErrRepositoryClosed        = errors.New("auth repository is closed")
	ErrUnsupportedDriver       = errors.New("unsupported database driver")
	ErrFailedToOpenDB          = errors.New("failed to open auth database")
	ErrFailedToApplyMigrations = errors.New("failed to apply auth database migrations")
	ErrFailedToParseRedisURL   = errors.New("failed to parse redis connection string")
	ErrRedisNotReady           = errors.New("redis did not become ready within the given time period")
	ErrHealthcheckFailed       = errors.New("auth storage healthcheck failed")
	ErrCorruptRecord           = errors.New("stored auth record is corrupt")
)
