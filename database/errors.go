package database

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "github.com/kbukum/fixturekit/errors"
)

// IsConnectionError checks if a database error is a connection error
// that might be resolved by retrying.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	patterns := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"i/o timeout",
		"no route to host",
		"network is unreachable",
		"connection closed",
		"driver: bad connection",
		"database is closed",
		"unable to open database",
	}
	for _, p := range patterns {
		if strings.Contains(errStr, p) {
			return true
		}
	}
	return false
}

// IsRetryableError determines if a database error should trigger a retry.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if IsConnectionError(err) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	patterns := []string{
		"deadlock",
		"lock timeout",
		"database is locked",
		"too many connections",
	}
	for _, p := range patterns {
		if strings.Contains(errStr, p) {
			return true
		}
	}
	return false
}

// IsNotFoundError checks if the error is a GORM record-not-found error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateError checks if the error is a duplicate-key violation.
// Requires gorm.Config.TranslateError, which Open sets.
func IsDuplicateError(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// FromDatabase converts a database error from operation op on resource into
// an AppError with the DATABASE_ERROR code.
func FromDatabase(err error, op, resource string) *apperrors.AppError {
	if err == nil {
		return nil
	}
	appErr := apperrors.DatabaseError(op, resource, err)
	switch {
	case IsNotFoundError(err):
		appErr.WithDetail("reason", "not_found")
	case IsDuplicateError(err):
		appErr.WithDetail("reason", "duplicate")
	case IsConnectionError(err):
		appErr.WithDetail("reason", "connection")
	}
	if IsRetryableError(err) {
		appErr.WithDetail("retryable", true)
	}
	return appErr
}
