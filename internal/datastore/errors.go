package datastore

import (
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	"github.com/Himson2006/Yolo-Gpu-2/internal/datastore/entities"
	"github.com/Himson2006/Yolo-Gpu-2/internal/errors"
)

// Sentinel errors for record store operations. They are wrapped by the
// categorized errors returned from the store so callers can use errors.Is.
var (
	// ErrEventNotFound indicates the requested event does not exist.
	ErrEventNotFound = errors.NewStd("event not found")

	// ErrDetectionNotFound indicates the event has no detection.
	ErrDetectionNotFound = errors.NewStd("detection not found")

	// ErrBehaviorNotFound indicates the requested behavior does not exist.
	ErrBehaviorNotFound = errors.NewStd("behavior not found")

	// ErrDuplicateKey indicates a unique constraint violation.
	ErrDuplicateKey = errors.NewStd("duplicate key")
)

// MySQL and PostgreSQL codes for unique constraint violations
const (
	mysqlDuplicateEntry     = 1062
	postgresUniqueViolation = "23505"
)

// isUniqueViolation reports whether err is a unique constraint violation on any supported backend.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlDuplicateEntry
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == postgresUniqueViolation
	}

	return false
}

// dbError creates a categorized store error with context.
func dbError(err error, operation string, context ...any) error {
	builder := errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation)

	for i := 0; i < len(context)-1; i += 2 {
		if key, ok := context[i].(string); ok {
			builder = builder.Context(key, context[i+1])
		}
	}

	return builder.Build()
}

// notFoundError wraps a sentinel as a not-found error for the given kind and id.
func notFoundError(sentinel error, kind string, id any) error {
	return errors.New(fmt.Errorf("%s %v: %w", kind, id, sentinel)).
		Component("datastore").
		Category(errors.CategoryNotFound).
		Context("kind", kind).
		Context("id", fmt.Sprintf("%v", id)).
		Build()
}

// conflictError reports a unique constraint violation.
func conflictError(err error, operation, kind string, key any) error {
	return errors.New(fmt.Errorf("%s %v already exists: %w", kind, key, errors.Join(ErrDuplicateKey, err))).
		Component("datastore").
		Category(errors.CategoryConflict).
		Context("operation", operation).
		Context("kind", kind).
		Build()
}

// validationError creates a validation error raised at the store boundary.
func validationError(err error, operation string) error {
	return errors.New(err).
		Component("datastore").
		Category(errors.CategoryValidation).
		Context("operation", operation).
		Build()
}

// translateWriteError maps a write failure to conflict, validation or store errors.
// Errors already categorized by the store pass through unchanged.
func translateWriteError(err error, operation, kind string, key any) error {
	var enhanced *errors.EnhancedError
	if errors.As(err, &enhanced) {
		return err
	}
	if errors.Is(err, entities.ErrInvalid) {
		return validationError(err, operation)
	}
	if isUniqueViolation(err) {
		return conflictError(err, operation, kind, key)
	}
	return dbError(err, operation, "kind", kind)
}
