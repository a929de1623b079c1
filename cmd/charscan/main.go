// Package main provides the entry point for the charscan CLI.
//
// charscan audits web pages for a character encoding declaration: a
// charset parameter in the Content-Type header, a byte-order mark, or a
// <meta> element early in the document.
//
// Usage:
//
//	charscan audit <url>...
//	charscan audit --har recording.har
//	charscan audit --file index.html --header "Content-Type: text/html"
//
// See --help for all available options.
package main

// main is the entry point for charscan.
func main() {
	Execute()
}
