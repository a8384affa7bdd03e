package db

import (
	"context"
	"errors"

	"github.com/kailas-cloud/ragdex/internal/domain"
)

// Sentinel errors for database operations.
var (
	ErrKeyNotFound   = errors.New("db: key not found")
	ErrNotFound      = errors.New("db: row not found")
	ErrConflict      = errors.New("db: conflicting owner")
	ErrIndexNotFound = errors.New("db: index not found")
	ErrIndexExists   = errors.New("db: index already exists")
)

// Op names used for error context: SQL statement families and Redis commands.
const (
	OpOpen        = "OPEN"
	OpMigrate     = "MIGRATE"
	OpBegin       = "BEGIN"
	OpCommit      = "COMMIT"
	OpSelect      = "SELECT"
	OpInsert      = "INSERT"
	OpUpdate      = "UPDATE"
	OpDelete      = "DELETE"
	OpPing        = "PING"
	OpCreateIndex = "FT.CREATE"
	OpIndexInfo   = "FT.INFO"
	OpSearch      = "FT.SEARCH"
	OpDel         = "DEL"
	OpHSet        = "HSET"
	OpGet         = "GET"
	OpSet         = "SET"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// Is reports a driver failure as domain.ErrDBUnavailable so callers can
// classify it without seeing driver text. Lookup misses and cancellations are
// not storage failures.
func (e *Error) Is(target error) bool {
	if target != domain.ErrDBUnavailable {
		return false
	}
	switch {
	case errors.Is(e.Err, ErrNotFound),
		errors.Is(e.Err, ErrKeyNotFound),
		errors.Is(e.Err, ErrConflict),
		errors.Is(e.Err, ErrIndexNotFound),
		errors.Is(e.Err, ErrIndexExists),
		errors.Is(e.Err, context.Canceled),
		errors.Is(e.Err, context.DeadlineExceeded):
		return false
	}
	return true
}
