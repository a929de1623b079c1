// Package netlog reads HAR 1.2 network logs and locates the main resource
// of a page load.
//
// A HAR file records every request a browser made while loading a page.
// The main resource is the navigation response for the document itself:
// the first HTML entry whose request URL matches the page URL. Header order
// is kept exactly as recorded so that "first header wins" lookups behave as
// they did on the wire.
package netlog
