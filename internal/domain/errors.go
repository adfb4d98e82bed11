package domain

import "errors"

// Sentinel errors for domain operations
var (
	// ErrBusy indicates the cache refused a mutation because a resync is running
	ErrBusy = errors.New("cache is busy with a sync")

	// ErrPostNotFound indicates the requested post does not exist on the board
	ErrPostNotFound = errors.New("post not found")

	// ErrServerOffline indicates the board is unreachable
	ErrServerOffline = errors.New("board is unreachable")

	// ErrAuthFailed indicates the login or API key was rejected
	ErrAuthFailed = errors.New("authentication failed")

	// ErrInvalidImport indicates an imported file failed validation
	ErrInvalidImport = errors.New("invalid import file")
)
