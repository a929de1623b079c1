package fetch

import (
	"strings"

	"golang.org/x/net/html"
)

// ExtractTitle returns the text of the first <title> element, or an empty
// string when there is none.
//
// Design decision: We use the golang.org/x/net/html tokenizer rather than
// a full parse because only the title is needed and the tokenizer copes
// with malformed markup without building a tree.
func ExtractTitle(content string) string {
	z := html.NewTokenizer(strings.NewReader(content))
	inTitle := false
	var b strings.Builder

	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken:
			name, _ := z.TagName()
			if string(name) == "title" {
				inTitle = true
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if inTitle && string(name) == "title" {
				return strings.Join(strings.Fields(b.String()), " ")
			}
		case html.TextToken:
			if inTitle {
				b.Write(z.Text())
			}
		case html.SelfClosingTagToken, html.CommentToken, html.DoctypeToken:
		}
	}
}
