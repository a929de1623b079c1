package model

import "time"

// Charset declaration signal names.
const (
	// SignalHeader is a charset parameter in the Content-Type response header.
	SignalHeader = "header"
	// SignalBOM is a U+FEFF byte-order mark at the start of the document.
	SignalBOM = "bom"
	// SignalMeta is a <meta> declaration within the first 1024 characters.
	SignalMeta = "meta"
)

// Declaration describes how a document declares its character encoding.
type Declaration struct {
	// Signals lists the declaration signals that were found, in
	// precedence order (bom, header, meta).
	Signals []string `json:"signals,omitempty"`

	// Label is the charset label of the highest-precedence signal that
	// carries one. A byte-order mark carries no label.
	Label string `json:"label,omitempty"`

	// Encoding is the canonical encoding name for Label, or empty if the
	// label is not a known encoding. Informational only.
	Encoding string `json:"encoding,omitempty"`
}

// Declared returns true if at least one signal declares the charset.
func (d *Declaration) Declared() bool {
	return d != nil && len(d.Signals) > 0
}

// Has returns true if the named signal was found.
func (d *Declaration) Has(signal string) bool {
	if d == nil {
		return false
	}
	for _, s := range d.Signals {
		if s == signal {
			return true
		}
	}
	return false
}

// Finding represents a single finding produced by an audit.
type Finding struct {
	// Type is the finding type identifier.
	// This maps to findingInfoMapping in severity.go.
	Type string `json:"type"`

	// Severity is the risk level.
	Severity Severity `json:"severity"`

	// SeverityText is the human-readable severity.
	SeverityText string `json:"severity_text"`

	// Title is a short description of the finding.
	Title string `json:"title"`

	// Description provides more detail about the finding.
	Description string `json:"description,omitempty"`

	// Impact explains why this finding matters.
	Impact string `json:"impact,omitempty"`

	// Recommendation provides guidance on how to address this finding.
	Recommendation string `json:"recommendation,omitempty"`

	// Value is the specific value found (header value, label, etc.).
	Value string `json:"value,omitempty"`

	// Location is where the finding was discovered.
	Location string `json:"location,omitempty"`
}

// AuditOutcome is the result of running one audit against a page.
type AuditOutcome struct {
	// ID is the audit identifier (e.g. "charset").
	ID string `json:"id"`

	// Title is the human-readable audit title for the outcome.
	Title string `json:"title"`

	// Score is 1 when the audit passed and 0 otherwise.
	Score int `json:"score"`

	// Declaration holds charset declaration details, if the audit produced any.
	Declaration *Declaration `json:"declaration,omitempty"`

	// Findings are the issues raised by the audit.
	Findings []Finding `json:"findings,omitempty"`

	// Error is set when the audit could not run.
	Error string `json:"error,omitempty"` //nolint:tagliatelle // error is conventional
}

// Passed returns true if the audit ran and scored 1.
func (o *AuditOutcome) Passed() bool {
	return o.Error == "" && o.Score >= 1
}

// AuditReport is the result of auditing a single target.
//
// Design decision: We use a single struct rather than many small ones
// to simplify serialization and database storage.
type AuditReport struct {
	// Target is the audited URL or file path as given by the user.
	Target string `json:"target"`

	// DateAudited is the timestamp when the audit was performed.
	DateAudited time.Time `json:"date_audited"`

	// Page is the retrieved document.
	Page *Page `json:"page,omitempty"`

	// Audits contains one outcome per audit that ran.
	Audits []AuditOutcome `json:"audits,omitempty"`

	// Findings contains all findings across audits.
	Findings []Finding `json:"findings,omitempty"`

	// TimedOut is true if the audit was cancelled before completing.
	TimedOut bool `json:"timed_out"`

	// PerformedSteps lists the pipeline steps that were executed.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Error contains any error that occurred during the audit.
	Error error `json:"-"` // Excluded from JSON

	// ErrorMessage is the string representation of Error for serialization.
	ErrorMessage string `json:"error,omitempty"` //nolint:tagliatelle // error is conventional
}

// NewAuditReport creates a new report for the given target.
func NewAuditReport(target string) *AuditReport {
	return &AuditReport{
		Target:      target,
		DateAudited: time.Now(),
		Audits:      make([]AuditOutcome, 0),
		Findings:    make([]Finding, 0),
	}
}

// SetError records err on the report.
func (r *AuditReport) SetError(err error) {
	r.Error = err
	if err != nil {
		r.ErrorMessage = err.Error()
	} else {
		r.ErrorMessage = ""
	}
}

// AddOutcome appends an audit outcome and merges its findings into the report.
func (r *AuditReport) AddOutcome(outcome AuditOutcome) {
	r.Audits = append(r.Audits, outcome)
	for _, f := range outcome.Findings {
		r.AddFinding(f)
	}
}

// AddFinding adds a finding, skipping duplicates with the same type, value and location.
func (r *AuditReport) AddFinding(finding Finding) {
	for _, f := range r.Findings {
		if f.Type == finding.Type && f.Value == finding.Value && f.Location == finding.Location {
			return
		}
	}
	r.Findings = append(r.Findings, finding)
}

// Outcome returns the outcome for the audit with the given ID, or nil.
func (r *AuditReport) Outcome(id string) *AuditOutcome {
	for i := range r.Audits {
		if r.Audits[i].ID == id {
			return &r.Audits[i]
		}
	}
	return nil
}

// Score returns the score of the audit with the given ID.
// Returns 0 when the audit did not run.
func (r *AuditReport) Score(id string) int {
	if o := r.Outcome(id); o != nil {
		return o.Score
	}
	return 0
}

// Passed returns true if at least one audit ran, every audit passed, and
// the report has no error.
func (r *AuditReport) Passed() bool {
	if r.Error != nil || r.ErrorMessage != "" || len(r.Audits) == 0 {
		return false
	}
	for i := range r.Audits {
		if !r.Audits[i].Passed() {
			return false
		}
	}
	return true
}

// CountBySeverity returns the number of findings with the given severity.
func (r *AuditReport) CountBySeverity(severity Severity) int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity == severity {
			n++
		}
	}
	return n
}

// FindingsBySeverity returns findings filtered by severity.
func (r *AuditReport) FindingsBySeverity(severity Severity) []Finding {
	var result []Finding
	for _, f := range r.Findings {
		if f.Severity == severity {
			result = append(result, f)
		}
	}
	return result
}

// HasFindings returns true if there are any findings.
func (r *AuditReport) HasFindings() bool {
	return len(r.Findings) > 0
}
