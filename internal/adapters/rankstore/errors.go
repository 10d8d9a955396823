package rankstore

import "errors"

// Sentinel kinds for ranking store errors.
var (
	// ErrUnavailable marks a backend that could not be reached. Callers on
	// the write path log and swallow it: the durable record already exists
	// and the cache self-heals on the next rebuild or successful write.
	ErrUnavailable = errors.New("ranking store unavailable")

	// ErrInvalidWindow marks a negative offset or non-positive limit.
	ErrInvalidWindow = errors.New("invalid range window")
)
