package store

import "errors"

// Normalized store errors.
var (
	// ErrUnavailable indicates the store could not be queried at all. A
	// rebuild pass aborts on this error and retries on the next trigger.
	ErrUnavailable = errors.New("STORE_UNAVAILABLE")

	// ErrMalformedRow indicates a single row could not be converted into a
	// profile. The row is skipped; the rebuild continues.
	ErrMalformedRow = errors.New("MALFORMED_PROFILE_ROW")
)
