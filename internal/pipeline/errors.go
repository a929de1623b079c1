package pipeline

import "errors"

var (
	// ErrNoArtifacts is returned by AuditStep when no loading step ran.
	ErrNoArtifacts = errors.New("no page artifacts to audit")

	// ErrNoReport is returned when a step receives a State without a report.
	ErrNoReport = errors.New("state has no report")
)
