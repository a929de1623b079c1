// Package pipeline provides a framework for executing audit steps in sequence.
//
// Each target goes through a loading step that produces the page and its
// audit artifacts (FetchStep, HARStep or DocumentStep), then AuditStep,
// and optionally PersistStep. Each stage is implemented as a Step that
// receives the shared State and can modify it.
//
// Design decision: We use a pipeline pattern instead of direct function calls
// because:
// 1. It allows the loading step to vary without touching the audit logic
// 2. It provides consistent error handling and logging across steps
// 3. It supports cancellation via context for slow or hung targets
//
// The pipeline supports both individual audits and batch processing with
// concurrency control using errgroup.
package pipeline
