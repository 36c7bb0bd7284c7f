package db

import (
	"errors"
	"strings"

	pkgerrors "github.com/angelmondragon/tablebite-backend/pkg/errors"
)

const (
	sqlStateUniqueViolation      = "23505"
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateLockNotAvailable     = "55P03"
)

// IsUniqueViolation reports whether the provided error references a Postgres
// unique violation constraint. When constraintName is provided, the helper looks
// for the constraint text in the error chain.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if code := sqlState(err); code != "" && code != sqlStateUniqueViolation {
		return false
	}
	if constraintName != "" {
		return chainContains(err, constraintName)
	}
	return sqlState(err) == sqlStateUniqueViolation ||
		chainContains(err, "duplicate key value", "UNIQUE constraint failed")
}

// IsLockConflict reports lock timeouts, deadlocks and serialization failures.
func IsLockConflict(err error) bool {
	if err == nil {
		return false
	}
	switch sqlState(err) {
	case sqlStateSerializationFailure, sqlStateDeadlockDetected, sqlStateLockNotAvailable:
		return true
	}
	return chainContains(err, "database is locked", "database table is locked")
}

// IsRetryable reports whether re-running the transaction may succeed.
func IsRetryable(err error) bool {
	if pkgerrors.IsCode(err, pkgerrors.CodeConcurrency) {
		return true
	}
	return IsLockConflict(err) || IsUniqueViolation(err, "")
}

func chainContains(err error, needles ...string) bool {
	for e := err; e != nil; e = errors.Unwrap(e) {
		msg := e.Error()
		for _, needle := range needles {
			if strings.Contains(msg, needle) {
				return true
			}
		}
	}
	return false
}

func sqlState(err error) string {
	if pg := pkgerrors.Postgres(err); pg != nil {
		return pg.SQLState
	}
	return ""
}

func concurrencyConflict(err error) error {
	if err == nil || pkgerrors.IsCode(err, pkgerrors.CodeConcurrency) {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeConcurrency, err, "concurrent update conflict")
}
