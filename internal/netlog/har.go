package netlog

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/charscan/internal/model"
)

// Log is the "log" object of a HAR file.
type Log struct {
	Version string  `json:"version"`
	Creator Creator `json:"creator"`
	Pages   []Page  `json:"pages,omitempty"`
	Entries []Entry `json:"entries"`
}

// Creator identifies the tool that recorded the log.
type Creator struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Page is a page record in the log.
type Page struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Entry is a single request/response pair.
type Entry struct {
	PageRef  string   `json:"pageref,omitempty"`
	Request  Request  `json:"request"`
	Response Response `json:"response"`
}

// Request is the recorded request.
type Request struct {
	Method string `json:"method"`
	URL    string `json:"url"`
}

// Response is the recorded response.
type Response struct {
	Status      int         `json:"status"`
	RedirectURL string      `json:"redirectURL,omitempty"` //nolint:tagliatelle // HAR field name
	Headers     []NameValue `json:"headers"`
	Content     Content     `json:"content"`
}

// NameValue is a HAR header pair.
type NameValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Content describes the response body.
type Content struct {
	Size     int64  `json:"size"`
	MIMEType string `json:"mimeType"` //nolint:tagliatelle // HAR field name
	Text     string `json:"text,omitempty"`
	Encoding string `json:"encoding,omitempty"`
}

// file is the top-level HAR document.
type file struct {
	Log *Log `json:"log"`
}

// Parse decodes a HAR document from r.
func Parse(r io.Reader) (*Log, error) {
	var f file
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode HAR: %w", err)
	}
	if f.Log == nil || len(f.Log.Entries) == 0 {
		return nil, ErrNoEntries
	}
	return f.Log, nil
}

// ParseFile reads and decodes the HAR file at path.
func ParseFile(path string) (*Log, error) {
	fh, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open HAR file: %w", err)
	}
	defer fh.Close()

	return Parse(fh)
}

// IsHTML reports whether the entry's response is an HTML document.
func (e *Entry) IsHTML() bool {
	mime := strings.ToLower(strings.TrimSpace(e.Response.Content.MIMEType))
	return strings.HasPrefix(mime, "text/html") || strings.HasPrefix(mime, "application/xhtml+xml")
}

// Resource converts the entry into a main resource record.
func (e *Entry) Resource() *model.MainResource {
	headers := make(model.Headers, 0, len(e.Response.Headers))
	for _, h := range e.Response.Headers {
		headers = append(headers, model.ResponseHeader{Name: h.Name, Value: h.Value})
	}

	mime := e.Response.Content.MIMEType
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}

	return &model.MainResource{
		URL:             e.Request.URL,
		StatusCode:      e.Response.Status,
		MIMEType:        strings.TrimSpace(mime),
		ResponseHeaders: headers,
	}
}

// Body returns the recorded response body as text.
// Base64-encoded bodies are decoded.
func (e *Entry) Body() (string, error) {
	c := e.Response.Content
	if c.Text == "" {
		return "", ErrNoBody
	}
	if strings.EqualFold(c.Encoding, "base64") {
		raw, err := base64.StdEncoding.DecodeString(c.Text)
		if err != nil {
			return "", fmt.Errorf("failed to decode base64 body: %w", err)
		}
		return string(raw), nil
	}
	return c.Text, nil
}

// MainEntry locates the main document entry for pageURL.
//
// With a non-empty pageURL the first HTML entry whose request URL equals
// pageURL (fragments ignored) is returned. With an empty pageURL the first
// HTML entry is returned.
func (l *Log) MainEntry(pageURL string) (*Entry, error) {
	if l == nil || len(l.Entries) == 0 {
		return nil, ErrNoEntries
	}

	want := stripFragment(pageURL)
	for i := range l.Entries {
		e := &l.Entries[i]
		if !e.IsHTML() {
			continue
		}
		if want == "" || stripFragment(e.Request.URL) == want {
			return e, nil
		}
	}

	if want == "" {
		return nil, ErrMainResourceNotFound
	}
	return nil, fmt.Errorf("%w: %s", ErrMainResourceNotFound, want)
}

// MainResource returns the main resource record for pageURL.
func (l *Log) MainResource(pageURL string) (*model.MainResource, error) {
	e, err := l.MainEntry(pageURL)
	if err != nil {
		return nil, err
	}
	return e.Resource(), nil
}

// stripFragment removes a "#fragment" suffix.
func stripFragment(u string) string {
	if i := strings.IndexByte(u, '#'); i >= 0 {
		return u[:i]
	}
	return u
}
