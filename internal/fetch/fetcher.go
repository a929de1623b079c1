package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/nao1215/charscan/internal/audit"
	"github.com/nao1215/charscan/internal/model"
)

// Default fetcher settings.
const (
	// DefaultUserAgent identifies charscan to servers.
	DefaultUserAgent = "charscan/1.0 (+https://github.com/nao1215/charscan)"

	// DefaultMaxBodySize caps the number of body bytes read per page.
	DefaultMaxBodySize = int64(model.MaxContentSize)

	// DefaultMaxAttempts includes the initial attempt.
	DefaultMaxAttempts = 3

	// DefaultRedirectMaxHops caps redirect following.
	DefaultRedirectMaxHops = 10

	// defaultRetryBackoff is multiplied by the attempt number between retries.
	defaultRetryBackoff = 200 * time.Millisecond
)

// Fetcher retrieves pages over HTTP.
//
// Design decision: We use a single GET per page rather than a browser
// because only the main document response is audited: its headers and
// its markup. Subresources never affect the charset declaration.
type Fetcher struct {
	// client is the HTTP client, configured for a proxy if needed.
	client *http.Client

	// userAgent is the User-Agent header to use.
	userAgent string

	// maxBodySize limits the size of response bodies to read.
	maxBodySize int64

	// maxAttempts is the number of attempts per page, including the first.
	maxAttempts int

	// perRequestTimeout bounds each attempt. Zero means no extra bound.
	perRequestTimeout time.Duration

	// retryBackoff is the base delay between attempts.
	retryBackoff time.Duration

	// redirectMaxHops caps redirect following.
	redirectMaxHops int

	// limiter spaces out requests. Nil means unlimited.
	limiter *rate.Limiter

	// header holds extra headers sent with every request.
	header http.Header

	// logger receives debug output.
	logger *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxBodySize sets the maximum body size to read.
func WithMaxBodySize(size int64) Option {
	return func(f *Fetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// WithMaxAttempts sets the number of attempts per page.
func WithMaxAttempts(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxAttempts = n
		}
	}
}

// WithTimeout bounds each attempt.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.perRequestTimeout = d
	}
}

// WithRetryBackoff sets the base delay between attempts.
func WithRetryBackoff(d time.Duration) Option {
	return func(f *Fetcher) {
		f.retryBackoff = d
	}
}

// WithRedirectMaxHops caps redirect following.
func WithRedirectMaxHops(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.redirectMaxHops = n
		}
	}
}

// WithRateLimit limits requests to rps per second with the given burst.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(f *Fetcher) {
		if rps <= 0 {
			f.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(name, value string) Option {
	return func(f *Fetcher) {
		f.header.Add(name, value)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// New creates a Fetcher using client. A nil client uses http.DefaultClient.
func New(client *http.Client, opts ...Option) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	f := &Fetcher{
		client:          client,
		userAgent:       DefaultUserAgent,
		maxBodySize:     DefaultMaxBodySize,
		maxAttempts:     DefaultMaxAttempts,
		retryBackoff:    defaultRetryBackoff,
		redirectMaxHops: DefaultRedirectMaxHops,
		header:          make(http.Header),
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Request describes one page retrieval.
type Request struct {
	// URL is the page to fetch.
	URL string

	// Header holds extra request headers for this page only.
	// They override the fetcher-wide headers of the same name.
	Header http.Header
}

// Result is a fetched page.
type Result struct {
	// Page is the retrieved document.
	Page *model.Page

	// Attempts is the number of attempts made.
	Attempts int
}

// Artifacts converts the result into audit artifacts.
func (r *Result) Artifacts() *audit.Artifacts {
	return audit.NewArtifacts(r.Page.URL(), r.Page.Content, audit.StaticResource{Resource: r.Page.Resource})
}

// Fetch retrieves pageURL with the fetcher-wide settings.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*Result, error) {
	return f.Do(ctx, Request{URL: pageURL})
}

// Do retrieves a page, retrying transient failures.
func (f *Fetcher) Do(ctx context.Context, req Request) (*Result, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", req.URL, err)
	}
	if !isHTTPScheme(u) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}

	var lastErr error
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		page, err := f.fetchPage(ctx, u.String(), req.Header)
		if err == nil {
			f.logger.Debug("page fetched",
				"url", page.URL(),
				"status", page.Resource.StatusCode,
				"attempt", attempt,
			)
			return &Result{Page: page, Attempts: attempt}, nil
		}

		lastErr = err
		if ctx.Err() != nil || !isTransient(err) || attempt == f.maxAttempts {
			break
		}

		f.logger.Debug("retrying fetch", "url", req.URL, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * f.retryBackoff):
		}
	}

	return nil, lastErr
}

// fetchPage performs a single attempt.
func (f *Fetcher) fetchPage(ctx context.Context, pageURL string, extra http.Header) (*model.Page, error) {
	if f.perRequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.perRequestTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	for name, values := range f.header {
		req.Header[name] = append([]string(nil), values...)
	}
	for name, values := range extra {
		req.Header.Del(name)
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}

	resp, err := f.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: %d", ErrServerError, resp.StatusCode)
	}

	// Read one byte past the cap so truncation can be detected.
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	finalURL := pageURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	resource := &model.MainResource{
		URL:             finalURL,
		StatusCode:      resp.StatusCode,
		MIMEType:        MediaType(resp.Header.Get("Content-Type")),
		ResponseHeaders: model.FromHTTP(resp.Header),
	}

	page := &model.Page{
		Resource: resource,
		Content:  string(body),
	}
	page.TruncateContent(int(f.maxBodySize))
	page.ComputeHash()

	if resource.IsHTML() {
		page.Title = ExtractTitle(page.Content)
	}

	return page, nil
}

// httpClient returns a copy of the client with the redirect policy attached.
func (f *Fetcher) httpClient() *http.Client {
	c := *f.client
	hops := f.redirectMaxHops
	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= hops {
			return ErrTooManyRedirects
		}
		if !isHTTPScheme(req.URL) {
			return fmt.Errorf("%w: redirect to %q", ErrUnsupportedScheme, req.URL.Scheme)
		}
		return nil
	}
	return &c
}

// isTransient reports whether err is worth retrying.
// Server errors and timeouts are transient.
func isTransient(err error) bool {
	if errors.Is(err, ErrServerError) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

// MediaType returns the media type of a Content-Type value without parameters.
func MediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		if i := strings.IndexByte(contentType, ';'); i >= 0 {
			contentType = contentType[:i]
		}
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}
