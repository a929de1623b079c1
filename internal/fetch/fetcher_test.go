package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/charscan/internal/audit"
)

// TestFetch tests fetching a page.
func TestFetch(t *testing.T) {
	t.Parallel()

	t.Run("builds page and artifacts", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("User-Agent") != "test-agent" {
				t.Errorf("expected custom user agent, got %q", r.Header.Get("User-Agent"))
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(`<html><head><title>Hello  World</title></head></html>`))
		}))
		defer server.Close()

		f := New(server.Client(), WithUserAgent("test-agent"))
		result, err := f.Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		page := result.Page
		if page.Resource.StatusCode != http.StatusOK {
			t.Errorf("expected status 200, got %d", page.Resource.StatusCode)
		}
		if page.Resource.MIMEType != "text/html" {
			t.Errorf("expected MIME type text/html, got %q", page.Resource.MIMEType)
		}
		if v, _ := page.Resource.ResponseHeaders.Get("content-type"); v != "text/html; charset=utf-8" {
			t.Errorf("unexpected content-type %q", v)
		}
		if page.Title != "Hello World" {
			t.Errorf("expected title 'Hello World', got %q", page.Title)
		}
		if page.Hash == "" {
			t.Error("expected hash to be computed")
		}
		if result.Attempts != 1 {
			t.Errorf("expected 1 attempt, got %d", result.Attempts)
		}

		artifacts := result.Artifacts()
		if !artifacts.Has(audit.ArtifactMainResource) || !artifacts.Has(audit.ArtifactMainDocumentContent) {
			t.Error("expected artifacts to be complete")
		}
	})

	t.Run("keeps byte-order mark", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("\xEF\xBB\xBF<html></html>"))
		}))
		defer server.Close()

		result, err := New(server.Client()).Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(result.Page.Content, "\uFEFF") {
			t.Errorf("expected content to start with U+FEFF, got %q", result.Page.Content[:3])
		}
	})

	t.Run("sends extra headers", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Cookie") != "session=abc" {
				t.Errorf("expected cookie header, got %q", r.Header.Get("Cookie"))
			}
			if r.Header.Get("X-Test") != "per-request" {
				t.Errorf("expected per-request header to override, got %q", r.Header.Get("X-Test"))
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		f := New(server.Client(), WithHeader("X-Test", "global"), WithHeader("Cookie", "session=abc"))
		_, err := f.Do(context.Background(), Request{
			URL:    server.URL,
			Header: http.Header{"X-Test": {"per-request"}},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("truncates large body", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(strings.Repeat("a", 100)))
		}))
		defer server.Close()

		result, err := New(server.Client(), WithMaxBodySize(10)).Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Page.Content) != 10 || !result.Page.Truncated {
			t.Errorf("expected 10 bytes and Truncated, got %d bytes truncated=%v",
				len(result.Page.Content), result.Page.Truncated)
		}
	})

	t.Run("not found is still a page", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.NotFoundHandler())
		defer server.Close()

		result, err := New(server.Client()).Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Page.Resource.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404, got %d", result.Page.Resource.StatusCode)
		}
	})

	t.Run("unsupported scheme", func(t *testing.T) {
		t.Parallel()

		_, err := New(nil).Fetch(context.Background(), "ftp://example.com/")
		if !errors.Is(err, ErrUnsupportedScheme) {
			t.Errorf("expected ErrUnsupportedScheme, got %v", err)
		}
	})
}

// TestFetchRetry tests bounded retry on server errors.
func TestFetchRetry(t *testing.T) {
	t.Parallel()

	t.Run("recovers after transient error", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<meta charset=utf-8>"))
		}))
		defer server.Close()

		f := New(server.Client(), WithRetryBackoff(time.Millisecond))
		result, err := f.Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Attempts != 2 {
			t.Errorf("expected 2 attempts, got %d", result.Attempts)
		}
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		f := New(server.Client(), WithMaxAttempts(2), WithRetryBackoff(time.Millisecond))
		_, err := f.Fetch(context.Background(), server.URL)
		if !errors.Is(err, ErrServerError) {
			t.Errorf("expected ErrServerError, got %v", err)
		}
		if calls.Load() != 2 {
			t.Errorf("expected 2 calls, got %d", calls.Load())
		}
	})
}

// TestFetchRedirects tests the redirect hop limit.
func TestFetchRedirects(t *testing.T) {
	t.Parallel()

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, server.URL+r.URL.Path+"x", http.StatusFound)
	}))
	defer server.Close()

	_, err := New(server.Client(), WithRedirectMaxHops(3), WithMaxAttempts(1)).Fetch(context.Background(), server.URL+"/")
	if !errors.Is(err, ErrTooManyRedirects) {
		t.Errorf("expected ErrTooManyRedirects, got %v", err)
	}
}

// TestFetchFinalURL tests that the resource records the URL after redirects.
func TestFetchFinalURL(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	result, err := New(server.Client()).Fetch(context.Background(), server.URL+"/old")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Page.URL() != server.URL+"/new" {
		t.Errorf("expected final URL, got %q", result.Page.URL())
	}
}

// TestFetchRateLimitCancelled tests that a cancelled context stops a rate-limited fetch.
func TestFetchRateLimitCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(nil, WithRateLimit(1, 1)).Fetch(ctx, "http://127.0.0.1:1/")
	if err == nil {
		t.Error("expected error for cancelled context")
	}
}

// TestExtractTitle tests title extraction.
func TestExtractTitle(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		content  string
		expected string
	}{
		{"simple", "<title>Example</title>", "Example"},
		{"whitespace collapsed", "<title>\n  A \t B\n</title>", "A B"},
		{"entity decoded", "<title>Tom &amp; Jerry</title>", "Tom & Jerry"},
		{"no title", "<html><body>x</body></html>", ""},
		{"first title wins", "<title>one</title><title>two</title>", "one"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := ExtractTitle(tc.content); got != tc.expected {
				t.Errorf("got %q, expected %q", got, tc.expected)
			}
		})
	}
}

// TestMediaType tests Content-Type parsing.
func TestMediaType(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in       string
		expected string
	}{
		{"text/html; charset=utf-8", "text/html"},
		{"Text/HTML", "text/html"},
		{"", ""},
		{"text/html; charset", "text/html"},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			if got := MediaType(tc.in); got != tc.expected {
				t.Errorf("got %q, expected %q", got, tc.expected)
			}
		})
	}
}
