// Package model defines the core data structures used throughout charscan.
//
// This package contains the following main types:
//   - Headers / ResponseHeader: Ordered HTTP response headers
//   - MainResource: The primary navigation response of a page load
//   - Page: A retrieved document with its decoded markup
//   - AuditReport: The result of auditing one target
//   - Finding / Severity: Issues raised by audits
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (charset, audit, fetch, report, database)
// need these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
