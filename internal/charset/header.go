package charset

import "github.com/nao1215/charscan/internal/model"

// contentTypeHeader is the header carrying the charset parameter.
const contentTypeHeader = "content-type"

// charsetKey is the parameter name searched for in header and meta values.
const charsetKey = "charset"

// headerCharset returns the charset label declared by the first
// Content-Type header in headers.
func headerCharset(headers model.Headers) (string, bool) {
	value, ok := headers.Get(contentTypeHeader)
	if !ok {
		return "", false
	}
	return charsetParam(value)
}

// charsetParam finds "charset" followed by optional whitespace, "=",
// optional whitespace and a non-empty token in value. Matching of the
// parameter name is ASCII case-insensitive and every occurrence is tried,
// so "x; charset=; charset=utf-8" still yields "utf-8".
//
// The token ends at whitespace, ';' or ','. A quoted token ends at its
// closing quote. An empty or whitespace-only token is not a declaration.
func charsetParam(value string) (string, bool) {
	for i := 0; i+len(charsetKey) <= len(value); i++ {
		if !hasPrefixFold(value[i:], charsetKey) {
			continue
		}

		j := skipSpace(value, i+len(charsetKey))
		if j >= len(value) || value[j] != '=' {
			continue
		}
		j = skipSpace(value, j+1)

		if label := readToken(value, j); label != "" {
			return label, true
		}
	}
	return "", false
}

// readToken reads a parameter value starting at i.
func readToken(s string, i int) string {
	if i >= len(s) {
		return ""
	}

	if q := s[i]; q == '"' || q == '\'' {
		start := i + 1
		end := start
		for end < len(s) && s[end] != q {
			end++
		}
		return trimSpace(s[start:end])
	}

	end := i
	for end < len(s) && !isSpace(s[end]) && s[end] != ';' && s[end] != ',' {
		end++
	}
	return s[i:end]
}

// hasPrefixFold reports whether s begins with prefix, ignoring ASCII case.
// prefix must be lower case.
func hasPrefixFold(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	for i := 0; i < len(prefix); i++ {
		if lower(s[i]) != prefix[i] {
			return false
		}
	}
	return true
}

// equalFold reports whether s equals target ignoring ASCII case.
// target must be lower case.
func equalFold(s, target string) bool {
	return len(s) == len(target) && hasPrefixFold(s, target)
}

func lower(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}

// isSpace matches the HTML whitespace set, which includes HTTP's SP and HTAB.
func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f':
		return true
	}
	return false
}

func skipSpace(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i
}

func trimSpace(s string) string {
	start := skipSpace(s, 0)
	end := len(s)
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}
