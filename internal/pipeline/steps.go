package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/nao1215/charscan/internal/audit"
	"github.com/nao1215/charscan/internal/config"
	"github.com/nao1215/charscan/internal/fetch"
	"github.com/nao1215/charscan/internal/log"
	"github.com/nao1215/charscan/internal/model"
	"github.com/nao1215/charscan/internal/netlog"
)

// Step names.
const (
	StepFetch    = "fetch"
	StepHAR      = "har"
	StepDocument = "document"
	StepAudit    = "audit"
	StepPersist  = "persist"
)

// FetchStep retrieves the target over HTTP and produces its artifacts.
type FetchStep struct {
	// fetcher retrieves the page.
	fetcher *fetch.Fetcher

	// sites supplies per-site request headers. May be nil.
	sites *config.File

	// logger for structured logging.
	logger *slog.Logger
}

// NewFetchStep creates a step that fetches pages with fetcher.
// Request headers for each target are looked up in sites, which may be nil.
func NewFetchStep(fetcher *fetch.Fetcher, sites *config.File, logger *slog.Logger) *FetchStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &FetchStep{fetcher: fetcher, sites: sites, logger: logger}
}

// Name returns the step name.
func (s *FetchStep) Name() string {
	return StepFetch
}

// Do fetches state.Target.
func (s *FetchStep) Do(ctx context.Context, state *State) error {
	req := fetch.Request{URL: state.Target}
	if s.sites != nil {
		site := s.sites.SiteFor(state.Target)
		if header := site.RequestHeader(); len(header) > 0 {
			req.Header = header
		}
	}

	result, err := s.fetcher.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", state.Target, err)
	}

	s.logger.Debug("page fetched",
		"target", state.Target,
		"url", result.Page.URL(),
		"status", result.Page.Resource.StatusCode,
		"attempts", result.Attempts,
	)

	state.Report.Page = result.Page
	state.Artifacts = result.Artifacts()
	return nil
}

// HARStep loads the target from a recorded network log.
//
// Design decision: The main resource is supplied to the audit through a
// netlog.Source rather than a copy, so the lookup rules live in one place.
type HARStep struct {
	// log is the parsed network log shared by every target.
	log *netlog.Log

	// path labels reports whose target URL is empty and cannot be resolved.
	path string

	// maxBodySize limits the kept document size in bytes.
	maxBodySize int
}

// NewHARStep creates a step that reads pages from log.
func NewHARStep(log *netlog.Log, path string, maxBodySize int) *HARStep {
	return &HARStep{log: log, path: path, maxBodySize: maxBodySize}
}

// Name returns the step name.
func (s *HARStep) Name() string {
	return StepHAR
}

// Do locates the main document for state.Target in the log. When the
// document cannot be found a main_resource_not_found finding is added.
func (s *HARStep) Do(_ context.Context, state *State) error {
	entry, err := s.log.MainEntry(state.Target)
	if err != nil {
		if state.Report.Target == "" {
			state.Report.Target = s.path
		}
		addMainResourceNotFound(state.Report, err)
		return err
	}

	if state.Target == "" {
		state.Target = entry.Request.URL
		state.Report.Target = entry.Request.URL
	}

	source := netlog.NewSource(s.log, state.Target)
	resource := entry.Resource()
	body, err := entry.Body()
	if err != nil && !errors.Is(err, netlog.ErrNoBody) {
		return fmt.Errorf("failed to read document body: %w", err)
	}

	state.Report.Page = newPage(resource, body, s.maxBodySize)
	if errors.Is(err, netlog.ErrNoBody) {
		// The empty document still lets the header declare the charset.
		state.Report.AddFinding(model.NewFinding(
			model.FindingDocumentBodyMissing,
			"Document body not recorded",
			"The network log has no response text for the main document, so only the Content-Type header was checked.",
			"",
			state.Target,
		))
	}
	state.Artifacts = audit.NewArtifacts(state.Target, state.Report.Page.Content, source)
	return nil
}

// DocumentStep loads the target from a local file.
type DocumentStep struct {
	// path is the document file.
	path string

	// headers are the response headers to pair with the document.
	headers model.Headers

	// maxBodySize limits the kept document size in bytes.
	maxBodySize int
}

// NewDocumentStep creates a step that reads the document at path and
// pairs it with headers as if they had been received from a server.
func NewDocumentStep(path string, headers model.Headers, maxBodySize int) *DocumentStep {
	return &DocumentStep{path: path, headers: headers, maxBodySize: maxBodySize}
}

// Name returns the step name.
func (s *DocumentStep) Name() string {
	return StepDocument
}

// Do reads the document file.
func (s *DocumentStep) Do(_ context.Context, state *State) error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}

	target := state.Target
	if target == "" {
		target = s.path
		state.Target = target
		state.Report.Target = target
	}

	mimeType := "text/html"
	if ct, ok := s.headers.Get("content-type"); ok {
		mimeType = fetch.MediaType(ct)
	}
	resource := &model.MainResource{
		URL:             target,
		MIMEType:        mimeType,
		ResponseHeaders: s.headers,
	}

	state.Report.Page = newPage(resource, string(data), s.maxBodySize)
	state.Artifacts = audit.NewArtifacts(target, state.Report.Page.Content, audit.StaticResource{Resource: resource})
	return nil
}

// AuditStep runs the registered audits against the loaded artifacts.
type AuditStep struct {
	// runner coordinates the audits.
	runner *audit.Runner

	// logger for structured logging.
	logger *slog.Logger
}

// NewAuditStep creates a step that runs runner's audits.
func NewAuditStep(runner *audit.Runner, logger *slog.Logger) *AuditStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditStep{runner: runner, logger: logger}
}

// Name returns the step name.
func (s *AuditStep) Name() string {
	return StepAudit
}

// Do runs the audits and records their outcomes. Every outcome is recorded
// even when some audits fail.
func (s *AuditStep) Do(ctx context.Context, state *State) error {
	if state.Artifacts == nil {
		return ErrNoArtifacts
	}

	if page := state.Report.Page; page != nil && page.Resource != nil {
		s.logger.Debug("auditing page",
			"target", state.Target,
			"mime_type", page.Resource.MIMEType,
			log.HeadersAttr("headers", page.Resource.ResponseHeaders),
		)
	}

	outcomes, err := s.runner.Run(ctx, state.Artifacts)
	for _, outcome := range outcomes {
		state.Report.AddOutcome(outcome)
	}

	if err != nil {
		if errors.Is(err, netlog.ErrMainResourceNotFound) || errors.Is(err, netlog.ErrNoEntries) {
			addMainResourceNotFound(state.Report, err)
		}
		return err
	}
	return nil
}

// ReportStore persists finished reports.
type ReportStore interface {
	SaveAuditReport(ctx context.Context, report *model.AuditReport) (string, error)
}

// PersistStep stores the report in the audit history.
type PersistStep struct {
	// store receives the report.
	store ReportStore

	// logger for structured logging.
	logger *slog.Logger
}

// NewPersistStep creates a step that saves reports to store.
func NewPersistStep(store ReportStore, logger *slog.Logger) *PersistStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &PersistStep{store: store, logger: logger}
}

// Name returns the step name.
func (s *PersistStep) Name() string {
	return StepPersist
}

// Do saves the report. A failed save is logged and does not change the
// audit result.
func (s *PersistStep) Do(ctx context.Context, state *State) error {
	id, err := s.store.SaveAuditReport(ctx, state.Report)
	if err != nil {
		s.logger.Warn("failed to save audit history",
			"target", state.Target,
			"error", err,
		)
		return nil
	}
	s.logger.Debug("audit saved", "target", state.Target, "id", id)
	return nil
}

// newPage builds a page from a resource and its decoded content.
func newPage(resource *model.MainResource, content string, maxBodySize int) *model.Page {
	page := &model.Page{
		Resource: resource,
		Content:  content,
	}
	page.TruncateContent(maxBodySize)
	page.ComputeHash()
	if resource.IsHTML() {
		page.Title = fetch.ExtractTitle(page.Content)
	}
	return page
}

// addMainResourceNotFound records that the main document could not be located.
func addMainResourceNotFound(report *model.AuditReport, err error) {
	report.AddFinding(model.NewFinding(
		model.FindingMainResourceNotFound,
		"Main document not found",
		err.Error(),
		"",
		report.Target,
	))
}
