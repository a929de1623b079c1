// Package log provides structured logging for charscan on top of log/slog,
// with sensitive values masked before they reach the output.
//
// charscan logs request and response headers while auditing pages. Those
// headers routinely carry cookies and credentials from the .charscan site
// configuration, so every logger built here wraps its handler in a
// SecureHandler:
//   - Attributes named like credentials (cookie, authorization, token, ...)
//     are replaced with MaskValue
//   - String values that look like secrets (bearer tokens, JWTs, long API
//     keys) are replaced regardless of their key
//   - Groups are sanitized recursively, so HeadersAttr can log a whole
//     header list safely
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Debug("main resource",
//	    "url", resource.URL,
//	    log.HeadersAttr("headers", resource.ResponseHeaders),
//	)
package log
