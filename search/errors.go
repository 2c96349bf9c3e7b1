package search

import "errors"

// ErrUnavailable is returned when the vector store is unreachable or the
// collection cannot be resolved. Fatal for the current request, retryable
// on the next.
var ErrUnavailable = errors.New("search: vector store unavailable")

// ErrQueryFailed is returned when the store accepted the connection but the
// query or get call itself failed.
var ErrQueryFailed = errors.New("search: query failed")

// ErrInsufficientInput is returned for an empty or whitespace-only query,
// before any external call is attempted.
var ErrInsufficientInput = errors.New("search: empty query")
