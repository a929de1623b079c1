package audit

import (
	"context"

	"github.com/nao1215/charscan/internal/model"
)

// Artifact names used in Meta.RequiredArtifacts.
const (
	// ArtifactMainResource is the main document response record.
	ArtifactMainResource = "MainResource"
	// ArtifactMainDocumentContent is the decoded markup of the main document.
	ArtifactMainDocumentContent = "MainDocumentContent"
)

// Meta describes an audit.
//
// Design decision: RequiredArtifacts is plain data rather than a type
// hierarchy. The Runner only needs the names to check presence, and new
// artifacts can be added without touching existing audits.
type Meta struct {
	// ID is the stable audit identifier used in reports and the database.
	ID string

	// Title is shown when the audit passes.
	Title string

	// FailureTitle is shown when the audit fails.
	FailureTitle string

	// Description explains what the audit checks.
	Description string

	// RequiredArtifacts lists the artifact names the audit reads.
	RequiredArtifacts []string
}

// MainResourceSource supplies the main resource of a page load.
// Implementations may perform I/O, for example locating the document entry
// in a network log. Errors are returned to the caller unchanged.
type MainResourceSource interface {
	MainResource(ctx context.Context) (*model.MainResource, error)
}

// MainResourceFunc adapts an ordinary function to a MainResourceSource.
type MainResourceFunc func(ctx context.Context) (*model.MainResource, error)

// MainResource calls f(ctx).
func (f MainResourceFunc) MainResource(ctx context.Context) (*model.MainResource, error) {
	return f(ctx)
}

// StaticResource is a MainResourceSource for a resource that is already known.
type StaticResource struct {
	Resource *model.MainResource
}

// MainResource returns the wrapped resource.
func (s StaticResource) MainResource(_ context.Context) (*model.MainResource, error) {
	if s.Resource == nil {
		return nil, ErrNilResource
	}
	return s.Resource, nil
}

// Artifacts holds everything gathered for one page.
type Artifacts struct {
	// URL is the page URL.
	URL string

	// MainDocumentContent is the decoded markup of the main document.
	MainDocumentContent string

	// MainResource supplies the main document response.
	MainResource MainResourceSource

	// hasContent records whether MainDocumentContent was gathered.
	// An empty document is valid content.
	hasContent bool
}

// NewArtifacts creates artifacts for a page whose document content is known.
func NewArtifacts(url, content string, source MainResourceSource) *Artifacts {
	return &Artifacts{
		URL:                 url,
		MainDocumentContent: content,
		MainResource:        source,
		hasContent:          true,
	}
}

// SetContent records the decoded document markup.
func (a *Artifacts) SetContent(content string) {
	a.MainDocumentContent = content
	a.hasContent = true
}

// Has reports whether the named artifact is available.
func (a *Artifacts) Has(name string) bool {
	if a == nil {
		return false
	}
	switch name {
	case ArtifactMainResource:
		return a.MainResource != nil
	case ArtifactMainDocumentContent:
		return a.hasContent
	default:
		return false
	}
}

// Audit is a single check run against a page.
//
// Design decision: We use an interface rather than concrete types so new
// audits can be registered with the Runner and tests can use stubs.
type Audit interface {
	// Meta returns the audit's description and required artifacts.
	Meta() Meta

	// Audit runs the check. Errors from collaborators are returned unchanged.
	Audit(ctx context.Context, artifacts *Artifacts) (*model.AuditOutcome, error)
}
