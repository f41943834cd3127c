package domain

import "errors"

// Sentinel errors for domain operations
var (
	// ErrServerOffline indicates the manga server is unreachable
	ErrServerOffline = errors.New("manga server is unreachable")

	// ErrAuthFailed indicates the API token was rejected
	ErrAuthFailed = errors.New("authentication token is invalid")

	// ErrSeriesNotFound indicates the requested series does not exist
	ErrSeriesNotFound = errors.New("series not found")

	// ErrChapterNotFound indicates the requested chapter does not exist
	ErrChapterNotFound = errors.New("chapter not found")

	// ErrConflict indicates the server's state is incompatible with the
	// optimistic assumption (e.g. the chapter was deleted server-side)
	ErrConflict = errors.New("server state conflicts with local projection")

	// ErrInvalidMutation indicates the server rejected a malformed mutation
	ErrInvalidMutation = errors.New("invalid progress mutation")
)
