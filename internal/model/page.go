package model

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"sort"
	"strings"
	"unicode/utf8"
)

// ResponseHeader is a single HTTP response header as received on the wire.
// Multiple headers may share a name.
type ResponseHeader struct {
	// Name is the header name. Comparisons are case-insensitive.
	Name string `json:"name"`

	// Value is the raw header value.
	Value string `json:"value"`
}

// Headers is an ordered sequence of response headers.
//
// Design decision: We keep headers as a slice rather than http.Header because:
//  1. Network logs (HAR) record headers in wire order, and lookups must
//     honour "first match wins" across duplicates
//  2. http.Header canonicalizes names and loses the relative order of
//     different header names
type Headers []ResponseHeader

// Get returns the value of the first header whose name matches name
// case-insensitively. The boolean is false when no such header exists.
func (h Headers) Get(name string) (string, bool) {
	for _, header := range h {
		if strings.EqualFold(header.Name, name) {
			return header.Value, true
		}
	}
	return "", false
}

// Values returns all values for the named header in received order.
// Returns nil if the header is not present.
func (h Headers) Values(name string) []string {
	var values []string
	for _, header := range h {
		if strings.EqualFold(header.Name, name) {
			values = append(values, header.Value)
		}
	}
	return values
}

// FromHTTP converts an http.Header into an ordered Headers sequence.
// http.Header does not record the order of distinct names, so names are
// sorted to keep the result deterministic. Values of one name keep their
// received order.
func FromHTTP(header http.Header) Headers {
	names := make([]string, 0, len(header))
	for name := range header {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(Headers, 0, len(header))
	for _, name := range names {
		for _, value := range header[name] {
			out = append(out, ResponseHeader{Name: strings.ToLower(name), Value: value})
		}
	}
	return out
}

// MainResource is the primary navigation response of a page load, as
// distinct from its subresources.
type MainResource struct {
	// URL is the final URL of the document response.
	URL string `json:"url"`

	// StatusCode is the HTTP response status code.
	// Zero when the source (for example a local file) has no status.
	StatusCode int `json:"status_code,omitempty"`

	// MIMEType is the media type of the response without parameters.
	MIMEType string `json:"mime_type,omitempty"`

	// ResponseHeaders contains the response headers in received order.
	// May be empty.
	ResponseHeaders Headers `json:"response_headers,omitempty"`
}

// ContentType returns the first Content-Type header value, or an empty string.
func (r *MainResource) ContentType() string {
	if r == nil {
		return ""
	}
	v, _ := r.ResponseHeaders.Get("content-type")
	return v
}

// IsHTML returns true if the resource media type indicates HTML.
func (r *MainResource) IsHTML() bool {
	if r == nil {
		return false
	}
	mime := strings.ToLower(r.MIMEType)
	if mime == "" {
		mime = strings.ToLower(r.ContentType())
	}
	return strings.HasPrefix(mime, "text/html") || strings.HasPrefix(mime, "application/xhtml+xml")
}

// Page is a retrieved document together with its main resource record.
//
// Design decision: We keep the decoded markup as a string rather than raw
// bytes because every check on a page works on characters, not bytes.
// A UTF-8 byte-order mark therefore appears as the U+FEFF rune.
type Page struct {
	// Resource is the main resource record for the document.
	Resource *MainResource `json:"resource"`

	// Content is the decoded document markup.
	Content string `json:"-"` // Excluded from JSON to reduce report size

	// Title is the page title extracted from the <title> tag.
	// Empty for non-HTML content.
	Title string `json:"title,omitempty"`

	// Hash is the SHA-256 hash of the content.
	// Used for deduplication and change detection.
	Hash string `json:"hash,omitempty"`

	// Truncated is true if the content was cut to MaxContentSize.
	Truncated bool `json:"truncated,omitempty"`
}

// MaxContentSize is the maximum size of document content to keep in bytes.
const MaxContentSize = 5 * 1024 * 1024 // 5 MB

// ComputeHash calculates and sets the SHA-256 hash of the page content.
func (p *Page) ComputeHash() {
	if p.Content == "" {
		p.Hash = ""
		return
	}

	hash := sha256.Sum256([]byte(p.Content))
	p.Hash = hex.EncodeToString(hash[:])
}

// TruncateContent ensures the content does not exceed maxSize bytes.
// The cut is moved back to a rune boundary so the content stays valid text.
// A non-positive maxSize uses MaxContentSize.
func (p *Page) TruncateContent(maxSize int) {
	if maxSize <= 0 {
		maxSize = MaxContentSize
	}
	if len(p.Content) <= maxSize {
		return
	}

	cut := maxSize
	for cut > 0 && !utf8.RuneStart(p.Content[cut]) {
		cut--
	}
	p.Content = p.Content[:cut]
	p.Truncated = true
}

// URL returns the page URL, or an empty string when no resource is set.
func (p *Page) URL() string {
	if p == nil || p.Resource == nil {
		return ""
	}
	return p.Resource.URL
}
