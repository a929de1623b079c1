package netlog

import (
	"context"

	"github.com/nao1215/charscan/internal/model"
)

// Source looks up the main resource of a page in a network log.
// It satisfies audit.MainResourceSource.
type Source struct {
	// Log is the parsed network log.
	Log *Log

	// URL is the page URL. Empty selects the first HTML entry.
	URL string
}

// NewSource creates a Source for pageURL.
func NewSource(log *Log, pageURL string) *Source {
	return &Source{Log: log, URL: pageURL}
}

// MainResource locates the main resource. Lookup errors wrap
// ErrNoEntries or ErrMainResourceNotFound.
func (s *Source) MainResource(ctx context.Context) (*model.MainResource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Log.MainResource(s.URL)
}
