package audit

import (
	"context"
	"fmt"

	"github.com/nao1215/charscan/internal/charset"
	"github.com/nao1215/charscan/internal/model"
)

// CharsetAuditID is the identifier of the charset audit.
const CharsetAuditID = "charset"

// CharsetAudit checks that a page declares its character encoding.
// It holds no state between calls.
type CharsetAudit struct{}

// NewCharsetAudit creates a new CharsetAudit.
func NewCharsetAudit() *CharsetAudit {
	return &CharsetAudit{}
}

// Meta returns the audit description.
func (a *CharsetAudit) Meta() Meta {
	return Meta{
		ID:           CharsetAuditID,
		Title:        "Charset declaration",
		FailureTitle: "Charset declaration is missing or occurs too late in the HTML",
		Description: "A character encoding declaration is required. It can be done with a " +
			"<meta> tag in the first 1024 bytes of the HTML or in the Content-Type " +
			"HTTP response header.",
		RequiredArtifacts: []string{ArtifactMainResource, ArtifactMainDocumentContent},
	}
}

// Audit scores the page. The main resource lookup is the only step that
// can fail, and its error is returned as is.
func (a *CharsetAudit) Audit(ctx context.Context, artifacts *Artifacts) (*model.AuditOutcome, error) {
	resource, err := artifacts.MainResource.MainResource(ctx)
	if err != nil {
		return nil, err
	}

	var headers model.Headers
	if resource != nil {
		headers = resource.ResponseHeaders
	}
	content := artifacts.MainDocumentContent

	decl := charset.Inspect(headers, content)
	result := charset.Result{Score: charset.ScoreOf(decl.Declared())}

	meta := a.Meta()
	outcome := &model.AuditOutcome{
		ID:          meta.ID,
		Title:       meta.Title,
		Score:       result.Score,
		Declaration: &decl,
	}
	if !result.Passed() {
		outcome.Title = meta.FailureTitle
	}

	location := artifacts.URL
	if location == "" && resource != nil {
		location = resource.URL
	}
	outcome.Findings = charsetFindings(decl, content, location)

	return outcome, nil
}

// charsetFindings explains the declaration in terms of findings.
func charsetFindings(decl model.Declaration, content, location string) []model.Finding {
	var findings []model.Finding

	if !decl.Declared() {
		findings = append(findings, model.NewFinding(
			model.FindingCharsetUndeclared,
			"No character encoding declaration",
			"Neither the Content-Type header, a byte-order mark, nor an early <meta> tag declares the charset.",
			"",
			location,
		))
		if charset.MetaBeyondWindow(content) {
			findings = append(findings, model.NewFinding(
				model.FindingCharsetMetaLate,
				"<meta> charset declaration occurs too late",
				fmt.Sprintf("A <meta> charset declaration completes after the first %d characters.", charset.MetaWindow),
				"",
				location,
			))
		}
		return findings
	}

	if len(decl.Signals) == 1 && decl.Has(model.SignalBOM) {
		findings = append(findings, model.NewFinding(
			model.FindingCharsetBOMOnly,
			"Charset only declared by a byte-order mark",
			"",
			"U+FEFF",
			location,
		))
	}

	if decl.Label != "" && decl.Encoding == "" {
		findings = append(findings, model.NewFinding(
			model.FindingCharsetUnknownLabel,
			"Unrecognised charset label",
			fmt.Sprintf("The label %q is not a known encoding name.", decl.Label),
			decl.Label,
			location,
		))
	}

	return findings
}
