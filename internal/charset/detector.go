package charset

import (
	"unicode/utf8"

	"github.com/nao1215/charscan/internal/model"
)

// byteOrderMark is the decoded byte-order mark character.
const byteOrderMark = '\uFEFF'

// Result is the scored outcome of a detection.
// Score is 1 when the charset is declared and 0 otherwise.
type Result struct {
	Score int `json:"score"`
}

// Passed returns true if the score is 1.
func (r Result) Passed() bool {
	return r.Score == 1
}

// Detect reports whether the page declares its character encoding through
// the Content-Type header, a byte-order mark, or an early <meta> tag.
//
// headers may be nil. Detect never fails: missing or malformed input only
// means the corresponding signal is absent.
func Detect(headers model.Headers, content string) bool {
	return HasBOM(content) || HeaderDeclares(headers) || MetaDeclares(content)
}

// Evaluate runs Detect and converts the verdict into a Result.
func Evaluate(headers model.Headers, content string) Result {
	return Result{Score: ScoreOf(Detect(headers, content))}
}

// ScoreOf converts a verdict into a binary score.
func ScoreOf(declared bool) int {
	if declared {
		return 1
	}
	return 0
}

// HasBOM reports whether the first character of content is U+FEFF.
func HasBOM(content string) bool {
	r, _ := utf8.DecodeRuneInString(content)
	return r == byteOrderMark
}

// HeaderDeclares reports whether the first Content-Type header carries a
// non-empty charset parameter.
func HeaderDeclares(headers model.Headers) bool {
	_, ok := headerCharset(headers)
	return ok
}

// MetaDeclares reports whether a complete <meta> charset declaration lies
// within the first MetaWindow characters of content.
func MetaDeclares(content string) bool {
	_, ok := metaCharset(content)
	return ok
}

// MetaBeyondWindow reports whether content holds a <meta> charset
// declaration that only completes after the first MetaWindow characters.
func MetaBeyondWindow(content string) bool {
	return metaBeyondWindow(content)
}

// Inspect evaluates every signal and describes the declaration.
// Signals are listed in the order a browser gives them precedence:
// byte-order mark, then header, then meta.
func Inspect(headers model.Headers, content string) model.Declaration {
	var decl model.Declaration

	if HasBOM(content) {
		decl.Signals = append(decl.Signals, model.SignalBOM)
	}
	if label, ok := headerCharset(headers); ok {
		decl.Signals = append(decl.Signals, model.SignalHeader)
		decl.Label = label
	}
	if label, ok := metaCharset(content); ok {
		decl.Signals = append(decl.Signals, model.SignalMeta)
		if decl.Label == "" {
			decl.Label = label
		}
	}

	if decl.Label != "" {
		decl.Encoding = Canonical(decl.Label)
	}
	return decl
}
