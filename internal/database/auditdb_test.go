package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/charscan/internal/audit"
	"github.com/nao1215/charscan/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *AuditDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// newReport builds a report with a charset outcome.
func newReport(target string, at time.Time, declared bool) *model.AuditReport {
	report := model.NewAuditReport(target)
	report.DateAudited = at

	outcome := model.AuditOutcome{
		ID:          audit.CharsetAuditID,
		Title:       "Charset declaration",
		Declaration: &model.Declaration{},
	}
	if declared {
		outcome.Score = 1
		outcome.Declaration.Signals = []string{model.SignalHeader, model.SignalMeta}
		outcome.Declaration.Label = "utf-8"
		outcome.Declaration.Encoding = "utf-8"
	} else {
		outcome.Findings = []model.Finding{
			model.NewFinding(model.FindingCharsetUndeclared, "No charset declared", "", "", target),
		}
	}
	report.AddOutcome(outcome)
	return report
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		dbPath := filepath.Join(dbDir, FileName)
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != dbPath {
			t.Errorf("expected path %s, got %s", dbPath, db.Path())
		}
	})

	t.Run("CreateIfNotExists=false fails for missing database", func(t *testing.T) {
		t.Parallel()

		_, err := Open(t.TempDir(), Options{CreateIfNotExists: false})
		if !errors.Is(err, ErrDatabaseNotFound) {
			t.Errorf("expected ErrDatabaseNotFound, got %v", err)
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		dbDir := t.TempDir()
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		_ = db.Close()

		db, err = Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer db.Close()
	})
}

func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	if !opts.CreateIfNotExists {
		t.Error("expected CreateIfNotExists to be true by default")
	}
	if !opts.EnableWAL {
		t.Error("expected EnableWAL to be true by default")
	}
}

func TestSaveAuditReport(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	t.Run("stores extracted columns and report", func(t *testing.T) {
		at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		id, err := db.SaveAuditReport(ctx, newReport("https://a.example/", at, true))
		if err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		if id == "" {
			t.Fatal("expected a generated ID")
		}

		record, err := db.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("failed to get: %v", err)
		}
		if record == nil {
			t.Fatal("expected record, got nil")
		}
		if record.Score != 1 {
			t.Errorf("expected score 1, got %d", record.Score)
		}
		if record.Charset != "utf-8" {
			t.Errorf("expected charset utf-8, got %q", record.Charset)
		}
		if len(record.DeclaredBy) != 2 || record.DeclaredBy[0] != model.SignalHeader {
			t.Errorf("expected [header meta], got %v", record.DeclaredBy)
		}
		if !record.Timestamp.Equal(at) {
			t.Errorf("expected timestamp %v, got %v", at, record.Timestamp)
		}
		if record.Report == nil || record.Report.Score(audit.CharsetAuditID) != 1 {
			t.Error("expected decoded report with score 1")
		}
	})

	t.Run("undeclared report stores score 0", func(t *testing.T) {
		id, err := db.SaveAuditReport(ctx, newReport("https://b.example/", time.Now(), false))
		if err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		record, err := db.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("failed to get: %v", err)
		}
		if record.Score != 0 {
			t.Errorf("expected score 0, got %d", record.Score)
		}
		if len(record.DeclaredBy) != 0 {
			t.Errorf("expected no signals, got %v", record.DeclaredBy)
		}
		if len(record.Report.Findings) != 1 {
			t.Errorf("expected 1 finding, got %d", len(record.Report.Findings))
		}
	})

	t.Run("nil report", func(t *testing.T) {
		_, err := db.SaveAuditReport(ctx, nil)
		if !errors.Is(err, ErrNilReport) {
			t.Errorf("expected ErrNilReport, got %v", err)
		}
	})

	t.Run("unknown id returns nil", func(t *testing.T) {
		record, err := db.GetByID(ctx, "00000000-0000-0000-0000-000000000000")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if record != nil {
			t.Error("expected nil for unknown id")
		}
	})
}

func TestGetHistory(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, declared := range []bool{false, true, true} {
		report := newReport("https://site.example/", base.Add(time.Duration(i)*time.Hour), declared)
		if _, err := db.SaveAuditReport(ctx, report); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
	}
	if _, err := db.SaveAuditReport(ctx, newReport("https://other.example/", base, true)); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	t.Run("newest first", func(t *testing.T) {
		records, err := db.GetHistory(ctx, "https://site.example/", 0)
		if err != nil {
			t.Fatalf("failed to get history: %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("expected 3 records, got %d", len(records))
		}
		for i := 1; i < len(records); i++ {
			if records[i].Timestamp.After(records[i-1].Timestamp) {
				t.Errorf("records not in descending order at %d", i)
			}
		}
		if records[2].Score != 0 {
			t.Errorf("expected oldest record to score 0, got %d", records[2].Score)
		}
	})

	t.Run("limit", func(t *testing.T) {
		records, err := db.GetHistory(ctx, "https://site.example/", 2)
		if err != nil {
			t.Fatalf("failed to get history: %v", err)
		}
		if len(records) != 2 {
			t.Errorf("expected 2 records, got %d", len(records))
		}
	})

	t.Run("latest", func(t *testing.T) {
		record, err := db.GetLatest(ctx, "https://site.example/")
		if err != nil {
			t.Fatalf("failed to get latest: %v", err)
		}
		if record == nil {
			t.Fatal("expected record, got nil")
		}
		if !record.Timestamp.Equal(base.Add(2 * time.Hour)) {
			t.Errorf("expected newest timestamp, got %v", record.Timestamp)
		}
	})

	t.Run("latest for unknown target", func(t *testing.T) {
		record, err := db.GetLatest(ctx, "https://never.example/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if record != nil {
			t.Error("expected nil for unknown target")
		}
	})

	t.Run("list targets", func(t *testing.T) {
		targets, err := db.ListTargets(ctx)
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(targets) != 2 {
			t.Fatalf("expected 2 targets, got %v", targets)
		}
		if targets[0] != "https://other.example/" || targets[1] != "https://site.example/" {
			t.Errorf("unexpected target order: %v", targets)
		}
	})
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		zero  bool
	}{
		{name: "fixed width", input: "2026-01-02T03:04:05.000000000Z"},
		{name: "rfc3339", input: "2026-01-02T03:04:05Z"},
		{name: "sqlite default", input: "2026-01-02 03:04:05"},
		{name: "garbage", input: "yesterday", zero: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := parseTimestamp(tt.input)
			if got.IsZero() != tt.zero {
				t.Errorf("expected zero=%v for %q, got %v", tt.zero, tt.input, got)
			}
		})
	}
}
