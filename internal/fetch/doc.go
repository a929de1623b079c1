// Package fetch retrieves web pages and turns them into audit artifacts.
//
// The Fetcher performs a single GET per page with a capped body size,
// bounded retry on transient failures, an optional request rate limit, and
// a redirect hop limit. The response headers become the page's main
// resource record and the body, decoded as UTF-8 text, becomes the main
// document content.
package fetch
