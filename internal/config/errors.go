package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoTarget is returned when there is nothing to audit: no URL, no
	// --har network log and no --file document.
	ErrNoTarget = errors.New("no target specified: provide a URL, --har or --file")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// Use 0 for the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidRateLimit is returned when the request rate is negative.
	// Use 0 for no limit.
	ErrInvalidRateLimit = errors.New("invalid rate limit: must be non-negative")

	// ErrConflictingSources is returned when --har and --file are combined,
	// or when --file is given more than one URL.
	ErrConflictingSources = errors.New("conflicting sources: use either --har or --file, and at most one URL with --file")

	// ErrConflictingTransports is returned when both --proxy and --tor are set.
	ErrConflictingTransports = errors.New("conflicting transports: --proxy and --tor cannot be used together")

	// ErrHeaderWithoutFile is returned when --header is used without --file.
	// Headers of fetched pages and HAR entries come from the response itself.
	ErrHeaderWithoutFile = errors.New("--header can only be used with --file")

	// ErrInvalidHeader is returned when a --header value is not "name:value".
	ErrInvalidHeader = errors.New("invalid header: expected name:value")
)
