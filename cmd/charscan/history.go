package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/charscan/internal/config"
	"github.com/nao1215/charscan/internal/database"
	"github.com/nao1215/charscan/internal/model"
	"github.com/nao1215/charscan/internal/report"
)

// Constants for score direction between two runs.
const (
	directionImproved  = "improved"
	directionRegressed = "regressed"
	directionUnchanged = "unchanged"
)

// defaultHistoryLimit is the number of runs listed when --limit is not given.
const defaultHistoryLimit = 10

// ErrTargetRequired is returned when history is asked for without a target.
var ErrTargetRequired = errors.New("target is required (use --list-targets to see audited targets)")

// NewHistoryCmd creates the history command.
// This command shows audit results stored in the database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [target]",
		Short: "Show stored audit results",
		Long: `History displays the audit results recorded by 'charscan audit'.

For a target it lists the most recent runs and compares the latest run with
the one before it:
- Whether the score improved, regressed or stayed the same
- Findings that appeared since the previous run
- Findings that were resolved

Examples:
  # Show recent runs for a page
  charscan history https://example.com/

  # List all audited targets
  charscan history --list-targets

  # Show the full stored report of one run
  charscan history --show 3f8a2c1e-5b7d-4e09-9a61-0c2d4f6b8e13

  # Output the history in JSON format
  charscan history --json https://example.com/`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list-targets", "L", false,
		"List all audited targets in the database")
	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of runs to list (0 lists all)")
	cmd.Flags().String("show", "",
		"Show the stored report of the run with this ID")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory holding the audit history database")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()

	listTargets, err := flags.GetBool("list-targets")
	if err != nil {
		return err
	}
	limit, err := flags.GetInt("limit")
	if err != nil {
		return err
	}
	showID, err := flags.GetString("show")
	if err != nil {
		return err
	}
	jsonOutput, err := flags.GetBool("json")
	if err != nil {
		return err
	}
	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database.
	if !listTargets && showID == "" && len(args) == 0 {
		return ErrTargetRequired
	}

	// History never creates a database; a missing one means nothing was saved.
	db, err := database.Open(dbDir, database.Options{EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	switch {
	case listTargets:
		return listAuditedTargets(ctx, db, out)
	case showID != "":
		return showRun(ctx, db, showID, jsonOutput, out)
	default:
		return showHistory(ctx, db, args[0], limit, jsonOutput, out)
	}
}

// listAuditedTargets lists every target that has runs in the database.
func listAuditedTargets(ctx context.Context, db *database.AuditDB, out io.Writer) error {
	targets, err := db.ListTargets(ctx)
	if err != nil {
		return err
	}

	if len(targets) == 0 {
		fmt.Fprintln(out, "No audited targets found in the database.")
		fmt.Fprintln(out, "\nUse 'charscan audit <url>' to audit a page.")
		return nil
	}

	fmt.Fprintf(out, "Audited targets (%d):\n\n", len(targets))
	for _, target := range targets {
		fmt.Fprintf(out, "  • %s\n", target)
	}
	fmt.Fprintln(out, "\nUse 'charscan history <target>' to see the runs for a target.")

	return nil
}

// showRun writes the stored report of a single run.
func showRun(ctx context.Context, db *database.AuditDB, id string, jsonOutput bool, out io.Writer) error {
	record, err := db.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get run %s: %w", id, err)
	}
	if record == nil || record.Report == nil {
		return fmt.Errorf("run %s not found", id)
	}

	var w report.Writer
	if jsonOutput {
		w = report.NewJSONWriter(out, report.WithPrettyPrint())
	} else {
		w = report.NewSimpleWriter(out, report.WithVerbose(true))
	}
	_, err = w.Write(record.Report)
	return err
}

// HistoryResult is the JSON form of a target's history.
type HistoryResult struct {
	// Target is the audited URL or file path.
	Target string `json:"target"`

	// Runs lists the stored runs, newest first.
	Runs []RunSummary `json:"runs"`

	// Change compares the latest run with the previous one.
	// Nil when fewer than two runs exist.
	Change *RunComparison `json:"change,omitempty"`
}

// RunSummary contains the stored columns of one run.
type RunSummary struct {
	ID         string   `json:"id"`
	Timestamp  string   `json:"timestamp"`
	Score      int      `json:"score"`
	DeclaredBy []string `json:"declared_by,omitempty"`
	Charset    string   `json:"charset,omitempty"`
}

// RunComparison holds the differences between two runs of one target.
type RunComparison struct {
	// Direction is "improved", "regressed", or "unchanged".
	Direction string `json:"direction"`

	// ScoreDelta is the current score minus the previous score.
	ScoreDelta int `json:"score_delta"`

	// NewFindings contains findings present only in the latest run.
	NewFindings []model.Finding `json:"new_findings,omitempty"`

	// ResolvedFindings contains findings present only in the previous run.
	ResolvedFindings []model.Finding `json:"resolved_findings,omitempty"`

	// UnchangedCount is the number of findings present in both runs.
	UnchangedCount int `json:"unchanged_count"`
}

// showHistory lists the recent runs for target.
func showHistory(ctx context.Context, db *database.AuditDB, target string, limit int, jsonOutput bool, out io.Writer) error {
	records, err := db.GetHistory(ctx, target, limit)
	if err != nil {
		return err
	}

	// Network audits store the normalized URL, so retry with it.
	if len(records) == 0 {
		if normalized := normalizeTarget(target); normalized != target {
			records, err = db.GetHistory(ctx, normalized, limit)
			if err != nil {
				return err
			}
			target = normalized
		}
	}

	if len(records) == 0 {
		fmt.Fprintf(out, "No audit history found for %s\n", target)
		fmt.Fprintln(out, "\nUse 'charscan audit' to audit this target.")
		return nil
	}

	result := HistoryResult{
		Target: target,
		Runs:   make([]RunSummary, 0, len(records)),
	}
	for _, r := range records {
		result.Runs = append(result.Runs, RunSummary{
			ID:         r.ID,
			Timestamp:  r.Timestamp.Format("2006-01-02 15:04:05"),
			Score:      r.Score,
			DeclaredBy: r.DeclaredBy,
			Charset:    r.Charset,
		})
	}
	if len(records) >= 2 {
		result.Change = compareRuns(&records[1], &records[0])
	}

	if jsonOutput {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}
	writeHistoryText(out, &result)
	return nil
}

// compareRuns compares two runs of the same target.
func compareRuns(previous, current *database.AuditRecord) *RunComparison {
	result := &RunComparison{
		ScoreDelta: current.Score - previous.Score,
	}

	switch {
	case result.ScoreDelta > 0:
		result.Direction = directionImproved
	case result.ScoreDelta < 0:
		result.Direction = directionRegressed
	default:
		result.Direction = directionUnchanged
	}

	previousFindings := findingsByKey(previous.Report)
	currentFindings := findingsByKey(current.Report)

	// Walk the reports rather than the maps so the output order is stable.
	if current.Report != nil {
		for _, f := range current.Report.Findings {
			if _, exists := previousFindings[findingKey(f)]; !exists {
				result.NewFindings = append(result.NewFindings, f)
			}
		}
	}
	if previous.Report != nil {
		for _, f := range previous.Report.Findings {
			if _, exists := currentFindings[findingKey(f)]; exists {
				result.UnchangedCount++
			} else {
				result.ResolvedFindings = append(result.ResolvedFindings, f)
			}
		}
	}

	return result
}

func findingsByKey(r *model.AuditReport) map[string]model.Finding {
	findings := make(map[string]model.Finding)
	if r == nil {
		return findings
	}
	for _, f := range r.Findings {
		findings[findingKey(f)] = f
	}
	return findings
}

// findingKey generates a unique key for a finding for comparison purposes.
func findingKey(f model.Finding) string {
	return f.Type + "|" + f.Value + "|" + f.Location
}

// writeHistoryText writes the history in human-readable text format.
func writeHistoryText(out io.Writer, result *HistoryResult) {
	fmt.Fprintf(out, "Audit history for %s (%d runs):\n\n", result.Target, len(result.Runs))
	fmt.Fprintf(out, "  %-36s  %-19s  %-5s  %-16s  %s\n", "ID", "Date", "Score", "Declared by", "Charset")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 90))

	for _, run := range result.Runs {
		declaredBy := strings.Join(run.DeclaredBy, ",")
		if declaredBy == "" {
			declaredBy = "-"
		}
		charset := run.Charset
		if charset == "" {
			charset = "-"
		}
		fmt.Fprintf(out, "  %-36s  %-19s  %-5d  %-16s  %s\n",
			run.ID, run.Timestamp, run.Score, declaredBy, charset)
	}

	if result.Change == nil {
		fmt.Fprintln(out, "\nRun 'charscan audit' again to compare with this run.")
		return
	}

	change := result.Change
	fmt.Fprintf(out, "\nSince previous run: %s (score %s)\n",
		formatDirection(change.Direction), formatDelta(change.ScoreDelta))

	if len(change.NewFindings) > 0 {
		fmt.Fprintf(out, "\nNew Findings (%d):\n", len(change.NewFindings))
		for _, f := range change.NewFindings {
			fmt.Fprintf(out, "  [+] [%s] %s\n", f.SeverityText, f.Title)
		}
	}

	if len(change.ResolvedFindings) > 0 {
		fmt.Fprintf(out, "\nResolved Findings (%d):\n", len(change.ResolvedFindings))
		for _, f := range change.ResolvedFindings {
			fmt.Fprintf(out, "  [-] [%s] %s\n", f.SeverityText, f.Title)
		}
	}

	if change.UnchangedCount > 0 {
		fmt.Fprintf(out, "\nUnchanged: %d findings\n", change.UnchangedCount)
	}
}

// formatDirection formats the score direction for display.
func formatDirection(direction string) string {
	switch direction {
	case directionImproved:
		return "IMPROVED"
	case directionRegressed:
		return "REGRESSED"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}
