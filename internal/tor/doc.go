// Package tor provides the network transports charscan fetches pages through.
//
// Clearnet pages are fetched with a direct HTTP client. A SOCKS5 proxy can be
// configured for any target, and .onion targets always need one: either a
// running Tor daemon's SOCKS port or an embedded daemon started with tornago.
//
// The package is designed to be used with dependency injection: create the
// client once and pass the resulting *http.Client to the fetcher.
package tor
