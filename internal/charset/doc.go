// Package charset decides whether a web page properly declares its character
// encoding.
//
// # Signals
//
// Three independent signals are inspected:
//   - The Content-Type response header carrying a non-empty charset parameter
//   - A U+FEFF byte-order mark as the first character of the document
//   - A <meta> declaration fully contained in the first 1024 characters of
//     the markup, either <meta charset=...> or the http-equiv="Content-Type"
//     form with a charset parameter in its content attribute
//
// The page passes if any signal is present. The result is binary.
//
// # Design
//
// The header and meta grammars are implemented as small hand-written
// scanners rather than regular expressions. This keeps the edge cases
// explicit: empty values are rejected, spaces around "=" are accepted,
// and attribute order inside a <meta> tag does not matter.
//
// The 1024 window is measured in characters (runes), not encoded bytes.
// Browsers look at the first 1024 bytes; for ASCII markup the two agree.
//
// # Usage
//
//	ok := charset.Detect(headers, content)
//	result := charset.Evaluate(headers, content) // result.Score is 1 or 0
//	decl := charset.Inspect(headers, content)    // which signals fired
//
// All functions are pure and safe for concurrent use.
package charset
