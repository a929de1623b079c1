package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/charscan/internal/audit"
	"github.com/nao1215/charscan/internal/model"
)

// FileName is the name of the database file inside the database directory.
const FileName = "charscan.db"

// timestampLayout is fixed-width so that lexical order in SQLite matches
// chronological order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// AuditDB provides SQLite-based storage for audit reports.
//
// Design decision: We keep the full report as JSON next to a few extracted
// columns. The columns answer "history" queries without decoding JSON,
// while the JSON keeps every detail for later re-rendering.
type AuditDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures AuditDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates an AuditDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist,
// ErrDatabaseNotFound is returned.
func Open(dbDir string, opts Options) (*AuditDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	adb := &AuditDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := adb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return adb, nil
}

// Path returns the database file path.
func (adb *AuditDB) Path() string {
	return adb.dbPath
}

// Close closes the database connection.
func (adb *AuditDB) Close() error {
	return adb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
// timestamp is TEXT rather than DATETIME so the driver hands back the
// stored string unchanged.
func (adb *AuditDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS audits (
		id TEXT PRIMARY KEY,
		target TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		score INTEGER NOT NULL DEFAULT 0,
		declared_by TEXT,
		charset TEXT,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audits_target ON audits(target);
	CREATE INDEX IF NOT EXISTS idx_audits_timestamp ON audits(timestamp);
	`

	_, err := adb.db.ExecContext(context.Background(), schema)
	return err
}

// AuditRecord is one stored audit run.
type AuditRecord struct {
	// ID is the UUID assigned when the report was saved.
	ID string

	// Target is the audited URL or file path.
	Target string

	// Timestamp is when the audit was performed.
	Timestamp time.Time

	// Score is the charset audit score (1 or 0).
	Score int

	// DeclaredBy lists the charset declaration signals that were found.
	DeclaredBy []string

	// Charset is the declared charset label, if any.
	Charset string

	// Report is the full decoded report.
	Report *model.AuditReport
}

// SaveAuditReport stores report and returns the generated record ID.
func (adb *AuditDB) SaveAuditReport(ctx context.Context, report *model.AuditReport) (string, error) {
	if report == nil {
		return "", ErrNilReport
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("failed to serialize report: %w", err)
	}

	var declaredBy, label string
	if outcome := report.Outcome(audit.CharsetAuditID); outcome != nil && outcome.Declaration != nil {
		declaredBy = strings.Join(outcome.Declaration.Signals, ",")
		label = outcome.Declaration.Label
	}

	audited := report.DateAudited
	if audited.IsZero() {
		audited = time.Now()
	}

	id := uuid.NewString()
	query := `
	INSERT INTO audits (id, target, timestamp, score, declared_by, charset, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = adb.db.ExecContext(ctx, query,
		id,
		report.Target,
		audited.UTC().Format(timestampLayout),
		report.Score(audit.CharsetAuditID),
		declaredBy,
		label,
		string(reportJSON),
	)
	if err != nil {
		return "", fmt.Errorf("failed to save audit report: %w", err)
	}

	return id, nil
}

// GetHistory returns the stored runs for target, newest first.
// A non-positive limit returns every run.
func (adb *AuditDB) GetHistory(ctx context.Context, target string, limit int) ([]AuditRecord, error) {
	query := `
	SELECT id, target, timestamp, score, declared_by, charset, report_json
	FROM audits
	WHERE target = ?
	ORDER BY timestamp DESC, rowid DESC
	`
	args := []any{target}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := adb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit history: %w", err)
	}
	defer rows.Close()

	var records []AuditRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}

	return records, rows.Err()
}

// GetLatest returns the most recent run for target.
// Returns nil without error when the target was never audited.
func (adb *AuditDB) GetLatest(ctx context.Context, target string) (*AuditRecord, error) {
	records, err := adb.GetHistory(ctx, target, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// GetByID returns the run with the given ID, or nil when it does not exist.
func (adb *AuditDB) GetByID(ctx context.Context, id string) (*AuditRecord, error) {
	query := `
	SELECT id, target, timestamp, score, declared_by, charset, report_json
	FROM audits
	WHERE id = ?
	`

	record, err := scanRecord(adb.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ListTargets returns every audited target in alphabetical order.
func (adb *AuditDB) ListTargets(ctx context.Context) ([]string, error) {
	query := `
	SELECT DISTINCT target FROM audits
	ORDER BY target
	`

	rows, err := adb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}
	defer rows.Close()

	var targets []string
	for rows.Next() {
		var target string
		if err := rows.Scan(&target); err != nil {
			return nil, fmt.Errorf("failed to scan target: %w", err)
		}
		targets = append(targets, target)
	}

	return targets, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*AuditRecord, error) {
	var (
		record     AuditRecord
		timestamp  string
		declaredBy sql.NullString
		label      sql.NullString
		reportJSON string
	)

	err := row.Scan(
		&record.ID,
		&record.Target,
		&timestamp,
		&record.Score,
		&declaredBy,
		&label,
		&reportJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan audit record: %w", err)
	}

	record.Timestamp = parseTimestamp(timestamp)
	if declaredBy.String != "" {
		record.DeclaredBy = strings.Split(declaredBy.String, ",")
	}
	record.Charset = label.String

	var report model.AuditReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	record.Report = &report

	return &record, nil
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timestampLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05", // SQLite default datetime format
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
