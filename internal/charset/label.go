package charset

import "golang.org/x/text/encoding/htmlindex"

// Canonical returns the WHATWG canonical name of the encoding identified by
// label, or an empty string if the label is unknown. Matching is
// case-insensitive and ignores surrounding whitespace.
//
// The result is informational. An unknown label still counts as a
// declaration.
func Canonical(label string) string {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return ""
	}
	name, err := htmlindex.Name(enc)
	if err != nil {
		return ""
	}
	return name
}
