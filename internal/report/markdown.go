package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/charscan/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing, for example as a
// CI job summary.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs a single report in Markdown format.
func (w *MarkdownWriter) Write(report *model.AuditReport) (int, error) {
	return w.WriteAll([]*model.AuditReport{report})
}

// WriteAll outputs the reports in Markdown format, summary first.
func (w *MarkdownWriter) WriteAll(reports []*model.AuditReport) (int, error) {
	reports = nonNil(reports)
	md := markdown.NewMarkdown(w.output)

	md.H1("charscan Report")
	md.PlainText("")

	w.writeSummary(md, Summarize(reports))

	for _, r := range reports {
		w.writeTarget(md, r)
	}

	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeSummary writes the batch summary table, chart and alert.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, summary Summary) {
	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Result", "Count"},
		Rows: [][]string{
			{"✅ Passed", strconv.Itoa(summary.Passed)},
			{"❌ Failed", strconv.Itoa(summary.Failed)},
			{"⚠️ Errors", strconv.Itoa(summary.Errors)},
			{"**Total**", "**" + strconv.Itoa(summary.Total) + "**"},
		},
	})
	md.PlainText("")

	if summary.Total > 1 {
		w.writePieChart(md, summary)
	}

	switch {
	case summary.Total == 0:
		md.Note("No targets were audited.")
	case summary.Errors > 0:
		md.Cautionf("%d target(s) could not be audited.", summary.Errors)
	case summary.Failed > 0:
		md.Warningf("%d of %d target(s) do not declare their character encoding.", summary.Failed, summary.Total)
	default:
		md.Tip("Every audited target declares its character encoding.")
	}
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart of passed and failed targets.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Audit Results"),
		piechart.WithShowData(true),
	)

	if summary.Passed > 0 {
		chart.LabelAndIntValue("Passed", uint64(summary.Passed))
	}
	if summary.Failed > 0 {
		chart.LabelAndIntValue("Failed", uint64(summary.Failed))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeTarget writes the section for one audited target.
func (w *MarkdownWriter) writeTarget(md *markdown.Markdown, report *model.AuditReport) {
	md.H2(report.Target)
	md.PlainText("")

	rows := [][]string{
		{"Audit Date", report.DateAudited.Format("2006-01-02 15:04:05 MST")},
	}
	if page := report.Page; page != nil && page.Resource != nil {
		if page.Resource.URL != "" && page.Resource.URL != report.Target {
			rows = append(rows, []string{"Final URL", "`" + page.Resource.URL + "`"})
		}
		if page.Resource.StatusCode != 0 {
			rows = append(rows, []string{"HTTP Status", strconv.Itoa(page.Resource.StatusCode)})
		}
		if ct := page.Resource.ContentType(); ct != "" {
			rows = append(rows, []string{"Content-Type", "`" + ct + "`"})
		}
	}
	rows = append(rows, []string{"Status", w.getStatusText(report)})

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writeAudits(md, report.Audits)
	w.writeFindings(md, report)
}

// getStatusText returns the status text based on report state.
func (w *MarkdownWriter) getStatusText(report *model.AuditReport) string {
	if report.TimedOut {
		return "⚠️ Timed Out"
	}
	if report.ErrorMessage != "" {
		return "❌ Error - " + report.ErrorMessage
	}
	if report.Passed() {
		return "✅ Passed"
	}
	return "❌ Failed"
}

// writeAudits writes a table with one row per audit outcome.
func (w *MarkdownWriter) writeAudits(md *markdown.Markdown, outcomes []model.AuditOutcome) {
	if len(outcomes) == 0 {
		return
	}

	md.H3("Audits")
	md.PlainText("")

	rows := make([][]string, len(outcomes))
	for i, o := range outcomes {
		declaredBy, label := "-", "-"
		if o.Declaration.Declared() {
			declaredBy = strings.Join(o.Declaration.Signals, ", ")
		}
		if o.Declaration != nil && o.Declaration.Label != "" {
			label = "`" + o.Declaration.Label + "`"
		}
		rows[i] = []string{o.Title, strconv.Itoa(o.Score), declaredBy, label}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Audit", "Score", "Declared By", "Charset"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFindings writes the findings of a report ordered by severity.
func (w *MarkdownWriter) writeFindings(md *markdown.Markdown, report *model.AuditReport) {
	md.H3("Findings")
	md.PlainText("")

	if !report.HasFindings() {
		md.PlainText("No findings.")
		md.PlainText("")
		return
	}

	severities := []struct {
		level model.Severity
		label string
	}{
		{model.SeverityCritical, "🔴 Critical"},
		{model.SeverityHigh, "🟠 High"},
		{model.SeverityMedium, "🟡 Medium"},
		{model.SeverityLow, "🔵 Low"},
		{model.SeverityInfo, "⚪ Info"},
	}

	var rows [][]string
	var detailed []model.Finding
	for _, sev := range severities {
		for _, f := range report.FindingsBySeverity(sev.level) {
			value := f.Value
			if value == "" {
				value = "-"
			}
			rec := f.Recommendation
			if rec == "" {
				rec = "-"
			}
			rows = append(rows, []string{
				sev.label,
				f.Title,
				truncateString(value, 50),
				truncateString(rec, 60),
			})
			if f.Description != "" {
				detailed = append(detailed, f)
			}
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Severity", "Title", "Value", "Recommendation"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, f := range detailed {
		md.Details(f.Title, f.Description)
	}
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [charscan](https://github.com/nao1215/charscan)*")
}
