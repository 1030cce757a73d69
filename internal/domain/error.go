package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound         = errors.New("entity not found")
	ErrMerchantNotFound = errors.New("merchant not found")
	ErrInvalidArgument  = errors.New("invalid argument")
	// ErrInvalidInput marks user supplied data (search terms, callback payloads)
	// that cannot be processed as-is.
	ErrInvalidInput = errors.New("invalid input")

	// Infra level
	ErrInvalidExecContext = errors.New("invalid database execution context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrQueueFull          = errors.New("worker queue full")
	ErrLocked             = errors.New("resource is locked")
)
