package service

import "errors"

// Common service errors - sentinel errors used across service implementations.
// Callers check these with errors.Is(); the API layer maps them to HTTP status
// codes.
var (
	// ErrNotOwned indicates a task is owned by a different user than the one
	// making the request. The API layer maps this to HTTP 404 so task ids
	// leak no existence information across owners.
	ErrNotOwned = errors.New("task is owned by another user")

	// ErrTaskNotFound indicates the requested task does not exist.
	ErrTaskNotFound = errors.New("task not found")

	// ErrVariationNotFound indicates the requested variation does not exist.
	ErrVariationNotFound = errors.New("variation not found")
)
