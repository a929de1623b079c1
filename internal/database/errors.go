package database

import "errors"

var (
	// ErrDatabaseNotFound is returned by Open when the database file does
	// not exist and creation was not requested.
	ErrDatabaseNotFound = errors.New("database not found")

	// ErrNilReport is returned when a nil report is saved.
	ErrNilReport = errors.New("report is nil")
)
