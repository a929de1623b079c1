package audit

import "errors"

var (
	// ErrMissingArtifact is returned when an audit requires an artifact that
	// was not gathered for the page.
	ErrMissingArtifact = errors.New("required artifact is missing")

	// ErrNilResource is returned when a MainResourceSource reports success
	// but returns no resource.
	ErrNilResource = errors.New("main resource source returned no resource")
)
