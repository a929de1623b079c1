// Package config provides configuration structures and utilities for charscan.
// It defines the options for retrieving pages, choosing a transport,
// persisting results and rendering reports, plus the optional .charscan
// file with per-site request settings.
package config
