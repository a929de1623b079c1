package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/nao1215/charscan/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with color-coded verdicts
// and clear section formatting.
//
// Design decision: Colors are off unless WithColor(true) is given. The
// caller decides, because only it knows whether output goes to a terminal;
// files, pipes and tests get plain text.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no findings are shown.
	showEmpty bool

	// verbose enables additional detail in the output.
	verbose bool

	// colorize enables ANSI colors.
	colorize bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// WithColor enables or disables ANSI colors.
func WithColor(enabled bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.colorize = enabled
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// paint returns a sprint function for the given attributes that honours
// the writer's color setting rather than the global color.NoColor.
func (w *SimpleWriter) paint(attrs ...color.Attribute) func(a ...any) string {
	c := color.New(attrs...)
	if w.colorize {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c.SprintFunc()
}

// Write outputs a single report in human-readable format.
func (w *SimpleWriter) Write(report *model.AuditReport) (int, error) {
	var sb strings.Builder
	w.writeReport(&sb, report)
	w.writeFooter(&sb)
	return io.WriteString(w.output, sb.String())
}

// WriteAll outputs every report followed by a batch summary.
func (w *SimpleWriter) WriteAll(reports []*model.AuditReport) (int, error) {
	reports = nonNil(reports)

	var sb strings.Builder
	for _, r := range reports {
		w.writeReport(&sb, r)
	}
	w.writeSummary(&sb, Summarize(reports))
	w.writeFooter(&sb)
	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeReport(sb *strings.Builder, report *model.AuditReport) {
	if report == nil {
		return
	}
	w.writeHeader(sb, report)
	w.writeAudits(sb, report)
	w.writeFindings(sb, report)
}

// writeHeader writes the report header with target information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.AuditReport) {
	bold := w.paint(color.Bold)
	red := w.paint(color.FgRed, color.Bold)
	yellow := w.paint(color.FgYellow)

	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString(bold("                         CHARSCAN REPORT"))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Target:         %s\n", report.Target)
	fmt.Fprintf(sb, "Audit Date:     %s\n", report.DateAudited.Format("2006-01-02 15:04:05 MST"))

	if page := report.Page; page != nil && page.Resource != nil {
		if page.Resource.URL != "" && page.Resource.URL != report.Target {
			fmt.Fprintf(sb, "Final URL:      %s\n", page.Resource.URL)
		}
		if page.Resource.StatusCode != 0 {
			fmt.Fprintf(sb, "HTTP Status:    %d\n", page.Resource.StatusCode)
		}
		if ct := page.Resource.ContentType(); ct != "" {
			fmt.Fprintf(sb, "Content-Type:   %s\n", ct)
		}
		if w.verbose && page.Title != "" {
			fmt.Fprintf(sb, "Title:          %s\n", page.Title)
		}
		if w.verbose && page.Truncated {
			sb.WriteString("Content:        truncated\n")
		}
	}

	switch {
	case report.TimedOut:
		fmt.Fprintf(sb, "Status:         %s\n", yellow("TIMED OUT"))
	case report.ErrorMessage != "":
		fmt.Fprintf(sb, "Status:         %s\n", red("ERROR - "+report.ErrorMessage))
	default:
		sb.WriteString("Status:         Complete\n")
	}

	sb.WriteString("\n")
}

// writeAudits writes one line per audit outcome with its verdict.
func (w *SimpleWriter) writeAudits(sb *strings.Builder, report *model.AuditReport) {
	if len(report.Audits) == 0 && !w.showEmpty {
		return
	}

	green := w.paint(color.FgGreen, color.Bold)
	red := w.paint(color.FgRed, color.Bold)

	w.writeSection(sb, "AUDITS")

	if len(report.Audits) == 0 {
		sb.WriteString("  No audits ran\n\n")
		return
	}

	for _, o := range report.Audits {
		verdict := green("PASS")
		if !o.Passed() {
			verdict = red("FAIL")
		}
		fmt.Fprintf(sb, "  [%s] %s (score %d)\n", verdict, o.Title, o.Score)

		if d := o.Declaration; d.Declared() {
			fmt.Fprintf(sb, "         Declared by: %s\n", strings.Join(d.Signals, ", "))
		}
		if d := o.Declaration; d != nil && d.Label != "" {
			if d.Encoding != "" && d.Encoding != d.Label {
				fmt.Fprintf(sb, "         Charset:     %s (%s)\n", d.Label, d.Encoding)
			} else {
				fmt.Fprintf(sb, "         Charset:     %s\n", d.Label)
			}
		}
		if o.Error != "" {
			fmt.Fprintf(sb, "         Error:       %s\n", o.Error)
		}
	}
	sb.WriteString("\n")
}

// writeFindings writes all findings grouped by severity.
func (w *SimpleWriter) writeFindings(sb *strings.Builder, report *model.AuditReport) {
	if !report.HasFindings() && !w.showEmpty {
		return
	}

	w.writeSection(sb, "FINDINGS")

	// Write findings in order of severity (critical first)
	severities := []model.Severity{
		model.SeverityCritical,
		model.SeverityHigh,
		model.SeverityMedium,
		model.SeverityLow,
		model.SeverityInfo,
	}

	for _, severity := range severities {
		findings := report.FindingsBySeverity(severity)
		if len(findings) == 0 && !w.showEmpty {
			continue
		}

		w.writeFindingsForSeverity(sb, severity, findings)
	}
}

// writeFindingsForSeverity writes findings of a specific severity level.
func (w *SimpleWriter) writeFindingsForSeverity(sb *strings.Builder, severity model.Severity, findings []model.Finding) {
	paint := w.paint(w.severityColor(severity)...)
	fmt.Fprintf(sb, "[%s] %s\n", w.getSeverityIndicator(severity), paint(severity.String()))

	if len(findings) == 0 {
		sb.WriteString("  No findings\n\n")
		return
	}

	for _, finding := range findings {
		fmt.Fprintf(sb, "  * %s\n", finding.Title)
		if finding.Value != "" {
			fmt.Fprintf(sb, "    Value: %s\n", finding.Value)
		}
		if finding.Location != "" {
			fmt.Fprintf(sb, "    Location: %s\n", finding.Location)
		}
		if w.verbose && finding.Description != "" {
			fmt.Fprintf(sb, "    Description: %s\n", finding.Description)
		}
		if w.verbose && finding.Recommendation != "" {
			fmt.Fprintf(sb, "    Recommendation: %s\n", finding.Recommendation)
		}
	}
	sb.WriteString("\n")
}

// writeSummary writes the batch summary section.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, summary Summary) {
	green := w.paint(color.FgGreen)
	red := w.paint(color.FgRed)

	w.writeSection(sb, "SUMMARY")

	fmt.Fprintf(sb, "  AUDITED:  %d\n", summary.Total)
	fmt.Fprintf(sb, "  PASSED:   %s\n", green(summary.Passed))
	fmt.Fprintf(sb, "  FAILED:   %s\n", red(summary.Failed))
	if summary.Errors > 0 {
		fmt.Fprintf(sb, "  ERRORS:   %d\n", summary.Errors)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// getSeverityIndicator returns a visual indicator for the severity level.
func (w *SimpleWriter) getSeverityIndicator(severity model.Severity) string {
	switch severity {
	case model.SeverityCritical:
		return "!!!"
	case model.SeverityHigh:
		return "!!"
	case model.SeverityMedium:
		return "!"
	case model.SeverityLow:
		return "-"
	case model.SeverityInfo:
		return "i"
	default:
		return "?"
	}
}

// severityColor returns the color attributes for a severity level.
func (w *SimpleWriter) severityColor(severity model.Severity) []color.Attribute {
	switch severity {
	case model.SeverityCritical:
		return []color.Attribute{color.FgRed, color.Bold}
	case model.SeverityHigh:
		return []color.Attribute{color.FgRed}
	case model.SeverityMedium:
		return []color.Attribute{color.FgYellow}
	case model.SeverityLow:
		return []color.Attribute{color.FgCyan}
	default:
		return []color.Attribute{color.FgHiBlack}
	}
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by charscan\n")
	sb.WriteString("https://github.com/nao1215/charscan\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
