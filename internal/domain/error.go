package domain

import "errors"

var (
	// Common domain errors
	ErrInvalidInput       = errors.New("invalid input")
	ErrUserNotFound       = errors.New("user not found")
	ErrAccountNotFound    = errors.New("account not found")
	ErrCodeInvalidOrUsed  = errors.New("activation code invalid or already used")
	ErrCodeExpired        = errors.New("activation code expired")
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrStoreUnavailable   = errors.New("store unavailable")

	// Infrastructure-side errors
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrRateLimited        = errors.New("too many requests")
	ErrInvalidExecContext = errors.New("invalid executor context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
)
