package audit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/nao1215/charscan/internal/model"
)

// Runner coordinates audits for a page and collects their outcomes.
//
// Design decision: We use a coordinator rather than calling audits directly
// because:
//  1. Required artifacts are checked in one place
//  2. A failing audit is recorded and does not stop the others
//  3. Cancellation is handled consistently between audits
type Runner struct {
	// audits is the list of registered audits in run order.
	audits []Audit

	// options configures runner behavior.
	options RunnerOptions
}

// RunnerOptions configures the runner behavior.
type RunnerOptions struct {
	// Logger receives debug output about each audit. Defaults to a discard logger.
	Logger *slog.Logger

	// NoDefaults skips registering the built-in audits.
	NoDefaults bool
}

// NewRunner creates a Runner with the built-in audits registered.
func NewRunner(opts ...func(*RunnerOptions)) *Runner {
	var options RunnerOptions
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	r := &Runner{
		options: options,
		audits:  make([]Audit, 0),
	}
	if !options.NoDefaults {
		r.Register(NewCharsetAudit())
	}
	return r
}

// WithLogger sets the runner logger.
func WithLogger(logger *slog.Logger) func(*RunnerOptions) {
	return func(o *RunnerOptions) {
		o.Logger = logger
	}
}

// WithoutDefaults disables the built-in audits.
func WithoutDefaults() func(*RunnerOptions) {
	return func(o *RunnerOptions) {
		o.NoDefaults = true
	}
}

// Register adds an audit to the run list.
func (r *Runner) Register(audit Audit) {
	r.audits = append(r.audits, audit)
}

// Audits returns the registered audits.
func (r *Runner) Audits() []Audit {
	return r.audits
}

// Run executes every registered audit against artifacts.
//
// An outcome is returned for every audit that was attempted. When an audit
// fails, its outcome carries the error text and a zero score, and the error
// itself is included unchanged in the joined error returned by Run, so
// callers can still match it with errors.Is. Run stops early only when ctx
// is cancelled.
func (r *Runner) Run(ctx context.Context, artifacts *Artifacts) ([]model.AuditOutcome, error) {
	outcomes := make([]model.AuditOutcome, 0, len(r.audits))
	var errs []error

	for _, audit := range r.audits {
		select {
		case <-ctx.Done():
			return outcomes, errors.Join(append(errs, ctx.Err())...)
		default:
		}

		meta := audit.Meta()
		if err := checkArtifacts(meta, artifacts); err != nil {
			r.options.Logger.Debug("audit skipped", "audit", meta.ID, "error", err)
			outcomes = append(outcomes, failedOutcome(meta, err))
			errs = append(errs, err)
			continue
		}

		outcome, err := audit.Audit(ctx, artifacts)
		if err != nil {
			r.options.Logger.Debug("audit failed", "audit", meta.ID, "error", err)
			outcomes = append(outcomes, failedOutcome(meta, err))
			errs = append(errs, err)
			continue
		}
		if outcome == nil {
			outcome = &model.AuditOutcome{ID: meta.ID, Title: meta.FailureTitle}
		}

		r.options.Logger.Debug("audit completed", "audit", meta.ID, "score", outcome.Score)
		outcomes = append(outcomes, *outcome)
	}

	return outcomes, errors.Join(errs...)
}

// checkArtifacts verifies every required artifact is present.
func checkArtifacts(meta Meta, artifacts *Artifacts) error {
	for _, name := range meta.RequiredArtifacts {
		if !artifacts.Has(name) {
			return fmt.Errorf("%w: %s needs %s", ErrMissingArtifact, meta.ID, name)
		}
	}
	return nil
}

func failedOutcome(meta Meta, err error) model.AuditOutcome {
	return model.AuditOutcome{
		ID:    meta.ID,
		Title: meta.FailureTitle,
		Score: 0,
		Error: err.Error(),
	}
}
