package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/charscan/internal/audit"
	"github.com/nao1215/charscan/internal/model"
)

// JSONWriter outputs reports in JSON format.
// This format is designed for tool integration and programmatic processing.
//
// Design decision: We use standard encoding/json rather than a third-party
// JSON library because the reports are small and the output must match
// the struct tags of the model package exactly.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in JSON format.
func (w *JSONWriter) Write(report *model.AuditReport) (int, error) {
	return w.writeJSON(report)
}

// WriteAll outputs the reports as a JSON array.
func (w *JSONWriter) WriteAll(reports []*model.AuditReport) (int, error) {
	return w.writeJSON(nonNil(reports))
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}

// JSONResult pairs a report with its headline charset score.
type JSONResult struct {
	// Target is the audited URL or file path.
	Target string `json:"target"`

	// Score is the charset audit score (1 or 0).
	Score int `json:"score"`

	// Passed is true when every audit of the target passed.
	Passed bool `json:"passed"`

	// Report is the full audit report.
	Report *model.AuditReport `json:"report"`
}

// JSONReport is the document written by FullJSONWriter.
//
// Design decision: We wrap the reports rather than adding fields to
// AuditReport so output-specific metadata stays out of the core model
// and out of the database.
type JSONReport struct {
	// Version is the charscan version that generated this report.
	Version string `json:"version"`

	// Summary counts the results.
	Summary Summary `json:"summary"`

	// Results holds one entry per audited target.
	Results []JSONResult `json:"results"`
}

// NewJSONReport creates a JSONReport wrapper with version information.
func NewJSONReport(reports []*model.AuditReport, version string) *JSONReport {
	reports = nonNil(reports)
	results := make([]JSONResult, 0, len(reports))
	for _, r := range reports {
		results = append(results, JSONResult{
			Target: r.Target,
			Score:  r.Score(audit.CharsetAuditID),
			Passed: r.Passed(),
			Report: r,
		})
	}
	return &JSONReport{
		Version: version,
		Summary: Summarize(reports),
		Results: results,
	}
}

// FullJSONWriter outputs complete reports with metadata wrapper.
type FullJSONWriter struct {
	*JSONWriter

	// version is the charscan version string.
	version string
}

// NewFullJSONWriter creates a writer for complete reports with metadata.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write outputs a single report wrapped with metadata.
func (w *FullJSONWriter) Write(report *model.AuditReport) (int, error) {
	return w.WriteAll([]*model.AuditReport{report})
}

// WriteAll outputs the reports wrapped with metadata.
func (w *FullJSONWriter) WriteAll(reports []*model.AuditReport) (int, error) {
	return w.writeJSON(NewJSONReport(reports, w.version))
}
