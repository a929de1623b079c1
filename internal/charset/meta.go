package charset

import "unicode/utf8"

// MetaWindow is the number of leading characters searched for a <meta>
// charset declaration.
const MetaWindow = 1024

// window returns the first n runes of content.
func window(content string, n int) string {
	count := 0
	for i := range content {
		if count == n {
			return content[:i]
		}
		count++
	}
	return content
}

// metaCharset returns the label of the first <meta> tag inside the window
// that declares a charset.
func metaCharset(content string) (string, bool) {
	return scanMeta(window(content, MetaWindow))
}

// scanMeta looks for complete <meta> tags in s. A tag without its closing
// '>' inside s never matches.
//
// A quoted attribute value runs to its closing quote even across '>', as in
// the browser prescan. A <meta> tag with an unterminated quote therefore
// swallows the rest of s, and no later tag in the window is considered:
// `<meta content="a> <meta charset="utf-8">` declares nothing.
func scanMeta(s string) (string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] != '<' || !isMetaOpen(s[i+1:]) {
			continue
		}

		attrs, end, ok := scanAttributes(s, i+1+len("meta"))
		if !ok {
			// The rest of the window is an unterminated tag.
			return "", false
		}
		if label, ok := declaredByAttributes(attrs); ok {
			return label, true
		}
		i = end
	}
	return "", false
}

// isMetaOpen reports whether s starts with "meta" followed by a tag
// boundary, so "<metadata>" is not mistaken for a meta tag.
func isMetaOpen(s string) bool {
	if !hasPrefixFold(s, "meta") {
		return false
	}
	if len(s) == len("meta") {
		// Boundary unknown; the tag cannot be complete anyway.
		return true
	}
	c := s[len("meta")]
	return isSpace(c) || c == '/' || c == '>'
}

// attribute is a single name/value pair from a start tag.
type attribute struct {
	name  string
	value string
}

// scanAttributes parses attributes starting at i until the closing '>'.
// It returns the attributes, the index of '>' and false if s ends first.
//
// The grammar follows the HTML attribute syntax: names end at whitespace,
// '/', '>' or '='; whitespace is allowed around '='; values are quoted
// with '"' or '\'' or bare up to whitespace or '>'.
func scanAttributes(s string, i int) ([]attribute, int, bool) {
	var attrs []attribute
	for {
		for i < len(s) && (isSpace(s[i]) || s[i] == '/') {
			i++
		}
		if i >= len(s) {
			return nil, 0, false
		}
		if s[i] == '>' {
			return attrs, i, true
		}

		start := i
		for i < len(s) && !isSpace(s[i]) && s[i] != '/' && s[i] != '>' && s[i] != '=' {
			i++
		}
		attr := attribute{name: s[start:i]}

		j := skipSpace(s, i)
		if j >= len(s) {
			return nil, 0, false
		}
		if s[j] != '=' {
			attrs = append(attrs, attr)
			continue
		}
		i = skipSpace(s, j+1)
		if i >= len(s) {
			return nil, 0, false
		}

		switch q := s[i]; q {
		case '"', '\'':
			end := i + 1
			for end < len(s) && s[end] != q {
				end++
			}
			if end >= len(s) {
				return nil, 0, false
			}
			attr.value = s[i+1 : end]
			i = end + 1
		case '>':
			// "name=>" has an empty value; '>' closes the tag.
		default:
			end := i
			for end < len(s) && !isSpace(s[end]) && s[end] != '>' {
				end++
			}
			attr.value = s[i:end]
			i = end
		}
		attrs = append(attrs, attr)
	}
}

// declaredByAttributes applies the two meta declaration forms to the
// attributes of one tag. Only the first occurrence of each name counts.
func declaredByAttributes(attrs []attribute) (string, bool) {
	var httpEquiv, content string
	var seenEquiv, seenContent, seenCharset bool

	for _, a := range attrs {
		switch {
		case equalFold(a.name, "charset") && !seenCharset:
			seenCharset = true
			if label := trimSpace(a.value); label != "" {
				return label, true
			}
		case equalFold(a.name, "http-equiv") && !seenEquiv:
			seenEquiv = true
			httpEquiv = a.value
		case equalFold(a.name, "content") && !seenContent:
			seenContent = true
			content = a.value
		}
	}

	if seenEquiv && seenContent && equalFold(trimSpace(httpEquiv), contentTypeHeader) {
		return charsetParam(content)
	}
	return "", false
}

// metaBeyondWindow reports whether a <meta> charset declaration exists in
// content but not inside the window.
func metaBeyondWindow(content string) bool {
	if utf8.RuneCountInString(content) <= MetaWindow {
		return false
	}
	if _, ok := metaCharset(content); ok {
		return false
	}
	_, ok := scanMeta(content)
	return ok
}
