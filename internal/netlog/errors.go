package netlog

import "errors"

var (
	// ErrNoEntries is returned when the log contains no entries.
	ErrNoEntries = errors.New("network log has no entries")

	// ErrMainResourceNotFound is returned when no entry can be identified
	// as the main document response.
	ErrMainResourceNotFound = errors.New("unable to identify the main resource")

	// ErrNoBody is returned when an entry did not record its response body.
	ErrNoBody = errors.New("entry has no recorded response body")
)
