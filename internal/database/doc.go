// Package database provides SQLite-based storage for charscan audit history.
//
// This package implements the AuditDB, which stores one row per audited
// target and run, with the charset verdict pulled out into columns and the
// complete report kept as JSON.
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. WAL mode lets "history" read while an audit run is writing
package database
