package fetch

import "errors"

var (
	// ErrUnsupportedScheme is returned for URLs that are not http or https.
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")

	// ErrServerError is returned when the server answers with a 5xx status
	// on every attempt.
	ErrServerError = errors.New("server error")

	// ErrTooManyRedirects is returned when the redirect hop limit is exceeded.
	ErrTooManyRedirects = errors.New("too many redirects")
)
