package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/nao1215/charscan/internal/audit"
	"github.com/nao1215/charscan/internal/model"
)

// createTestReport creates a report with sample data for testing.
func createTestReport(target string, declared bool) *model.AuditReport {
	report := model.NewAuditReport(target)
	report.Page = &model.Page{
		Resource: &model.MainResource{
			URL:        target,
			StatusCode: 200,
			MIMEType:   "text/html",
			ResponseHeaders: model.Headers{
				{Name: "content-type", Value: "text/html; charset=utf-8"},
			},
		},
		Title: "Example",
	}

	outcome := model.AuditOutcome{
		ID:          audit.CharsetAuditID,
		Title:       "Charset declaration",
		Declaration: &model.Declaration{},
	}
	if declared {
		outcome.Score = 1
		outcome.Declaration.Signals = []string{model.SignalHeader}
		outcome.Declaration.Label = "UTF-8"
		outcome.Declaration.Encoding = "utf-8"
	} else {
		outcome.Title = "Charset declaration is missing or invalid"
		outcome.Findings = []model.Finding{
			model.NewFinding(model.FindingCharsetUndeclared,
				"No character encoding declared",
				"Neither the Content-Type header nor a <meta> element declares a charset.",
				"", target),
		}
	}
	report.AddOutcome(outcome)
	return report
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	failed := createTestReport("https://b.example/", false)
	errored := model.NewAuditReport("https://c.example/")
	errored.SetError(errors.New("connection refused"))

	s := Summarize([]*model.AuditReport{
		createTestReport("https://a.example/", true),
		failed,
		nil,
		errored,
	})

	if s.Total != 3 {
		t.Errorf("expected total 3, got %d", s.Total)
	}
	if s.Passed != 1 {
		t.Errorf("expected 1 passed, got %d", s.Passed)
	}
	if s.Failed != 2 {
		t.Errorf("expected 2 failed, got %d", s.Failed)
	}
	if s.Errors != 1 {
		t.Errorf("expected 1 error, got %d", s.Errors)
	}
}

func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header and passing verdict", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)

		if _, err := w.Write(createTestReport("https://a.example/", true)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"CHARSCAN REPORT",
			"https://a.example/",
			"HTTP Status:    200",
			"[PASS] Charset declaration (score 1)",
			"Declared by: header",
			"Charset:     UTF-8 (utf-8)",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
		if strings.Contains(output, "FINDINGS") {
			t.Error("expected no findings section for a passing report")
		}
	})

	t.Run("writes failing verdict and findings", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)

		if _, err := w.Write(createTestReport("https://b.example/", false)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "[FAIL]") {
			t.Error("expected FAIL verdict")
		}
		if !strings.Contains(output, "[!] MEDIUM") {
			t.Error("expected MEDIUM severity section")
		}
		if !strings.Contains(output, "No character encoding declared") {
			t.Error("expected finding title")
		}
		if strings.Contains(output, "Description:") {
			t.Error("expected description only in verbose mode")
		}
	})

	t.Run("verbose shows description and title", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithVerbose(true))

		if _, err := w.Write(createTestReport("https://b.example/", false)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "Description:") {
			t.Error("expected description in verbose mode")
		}
		if !strings.Contains(output, "Title:          Example") {
			t.Error("expected page title in verbose mode")
		}
	})

	t.Run("no color by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestReport("https://a.example/", true)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(buf.String(), "\x1b[") {
			t.Error("expected no ANSI escape codes")
		}
	})

	t.Run("color when enabled", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithColor(true)).Write(createTestReport("https://a.example/", true)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\x1b[") {
			t.Error("expected ANSI escape codes")
		}
	})

	t.Run("error status", func(t *testing.T) {
		t.Parallel()

		report := model.NewAuditReport("https://down.example/")
		report.SetError(errors.New("connection refused"))

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithShowEmpty(true)).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "ERROR - connection refused") {
			t.Error("expected error status")
		}
		if !strings.Contains(output, "No audits ran") {
			t.Error("expected empty audits section with WithShowEmpty")
		}
	})

	t.Run("write all adds summary", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)
		_, err := w.WriteAll([]*model.AuditReport{
			createTestReport("https://a.example/", true),
			createTestReport("https://b.example/", false),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if strings.Count(output, "CHARSCAN REPORT") != 2 {
			t.Error("expected one header per report")
		}
		if !strings.Contains(output, "AUDITED:  2") {
			t.Error("expected summary count")
		}
		if !strings.Contains(output, "PASSED:   1") {
			t.Error("expected passed count")
		}
	})
}

func TestSimpleWriterSeverityIndicators(t *testing.T) {
	t.Parallel()

	w := NewSimpleWriter(&bytes.Buffer{})
	tests := []struct {
		severity model.Severity
		want     string
	}{
		{model.SeverityCritical, "!!!"},
		{model.SeverityHigh, "!!"},
		{model.SeverityMedium, "!"},
		{model.SeverityLow, "-"},
		{model.SeverityInfo, "i"},
		{model.Severity(99), "?"},
	}

	for _, tt := range tests {
		if got := w.getSeverityIndicator(tt.severity); got != tt.want {
			t.Errorf("expected %q for %s, got %q", tt.want, tt.severity, got)
		}
	}
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes compact report", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestReport("https://a.example/", true)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded model.AuditReport
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if decoded.Target != "https://a.example/" {
			t.Errorf("expected target, got %q", decoded.Target)
		}
		if decoded.Score(audit.CharsetAuditID) != 1 {
			t.Error("expected score 1 in decoded report")
		}
		if strings.Contains(strings.TrimSpace(buf.String()), "\n") {
			t.Error("expected compact output")
		}
	})

	t.Run("pretty print", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createTestReport("https://a.example/", true)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"target\"") {
			t.Error("expected indented output")
		}
	})

	t.Run("custom indent", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithIndent("", "\t")).Write(createTestReport("https://a.example/", true)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n\t\"target\"") {
			t.Error("expected tab-indented output")
		}
	})

	t.Run("write all is an array without nils", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		_, err := NewJSONWriter(&buf).WriteAll([]*model.AuditReport{
			createTestReport("https://a.example/", true),
			nil,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded []model.AuditReport
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not a JSON array: %v", err)
		}
		if len(decoded) != 1 {
			t.Errorf("expected 1 report, got %d", len(decoded))
		}
	})
}

func TestFullJSONWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewFullJSONWriter(&buf, "1.2.3", WithPrettyPrint())
	_, err := w.WriteAll([]*model.AuditReport{
		createTestReport("https://a.example/", true),
		createTestReport("https://b.example/", false),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded struct {
		Version string `json:"version"`
		Summary Summary
		Results []struct {
			Target string `json:"target"`
			Score  int    `json:"score"`
			Passed bool   `json:"passed"`
		} `json:"results"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if decoded.Version != "1.2.3" {
		t.Errorf("expected version 1.2.3, got %q", decoded.Version)
	}
	if decoded.Summary.Total != 2 || decoded.Summary.Passed != 1 {
		t.Errorf("unexpected summary: %+v", decoded.Summary)
	}
	if len(decoded.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(decoded.Results))
	}
	if decoded.Results[0].Score != 1 || !decoded.Results[0].Passed {
		t.Errorf("expected first result to pass with score 1: %+v", decoded.Results[0])
	}
	if decoded.Results[1].Score != 0 || decoded.Results[1].Passed {
		t.Errorf("expected second result to fail with score 0: %+v", decoded.Results[1])
	}
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("single passing report", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestReport("https://a.example/", true)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"# charscan Report",
			"## Summary",
			"## https://a.example/",
			"### Audits",
			"✅ Passed",
			"`UTF-8`",
			"No findings.",
			"[!TIP]",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
		if strings.Contains(output, "pie") {
			t.Error("expected no chart for a single target")
		}
	})

	t.Run("batch with failure", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		_, err := NewMarkdownWriter(&buf).WriteAll([]*model.AuditReport{
			createTestReport("https://a.example/", true),
			createTestReport("https://b.example/", false),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"pie",
			"[!WARNING]",
			"🟡 Medium",
			"No character encoding declared",
			"<details>",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("error report", func(t *testing.T) {
		t.Parallel()

		report := model.NewAuditReport("https://down.example/")
		report.SetError(errors.New("timeout"))

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "❌ Error - timeout") {
			t.Error("expected error status")
		}
		if !strings.Contains(output, "[!CAUTION]") {
			t.Error("expected caution alert")
		}
	})
}

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var text, js bytes.Buffer
	m := NewMultiWriter(NewSimpleWriter(&text), NewJSONWriter(&js))

	n, err := m.Write(createTestReport("https://a.example/", true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != text.Len()+js.Len() {
		t.Errorf("expected %d bytes, got %d", text.Len()+js.Len(), n)
	}
	if text.Len() == 0 || js.Len() == 0 {
		t.Error("expected both writers to receive output")
	}

	text.Reset()
	js.Reset()
	if _, err := m.WriteAll([]*model.AuditReport{createTestReport("https://a.example/", true)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text.Len() == 0 || js.Len() == 0 {
		t.Error("expected both writers to receive batch output")
	}
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input  string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"abcdef", 3, "abc"},
		{"日本語のテキスト", 5, "日本..."},
	}

	for _, tt := range tests {
		if got := truncateString(tt.input, tt.maxLen); got != tt.want {
			t.Errorf("truncateString(%q, %d): expected %q, got %q", tt.input, tt.maxLen, tt.want, got)
		}
	}
}
