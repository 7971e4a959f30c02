package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	apperrors "github.com/yourusername/teamquiz-api/internal/pkg/errors"
)

// Коды SQLSTATE, после которых результат операции неизвестен или ее можно повторить
var transientCodes = map[string]struct{}{
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
	"55P03": {}, // lock_not_available
	"57014": {}, // query_canceled
	"57P01": {}, // admin_shutdown
	"53300": {}, // too_many_connections
}

// isUniqueViolation проверяет Postgres unique violation (23505) для pgconn и lib/pq драйверов
func isUniqueViolation(err error) bool {
	return sqlState(err) == "23505"
}

// isCheckViolation проверяет нарушение CHECK (23514) и NOT NULL (23502)
func isCheckViolation(err error) bool {
	code := sqlState(err)
	return code == "23514" || code == "23502"
}

func sqlState(err error) string {
	// pgx/v5 driver (pgconn.PgError)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	// lib/pq driver
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// isTransient определяет временные ошибки хранилища
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	code := sqlState(err)
	if _, ok := transientCodes[code]; ok {
		return true
	}
	// класс 08: connection_exception
	if strings.HasPrefix(code, "08") {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	return pgconn.Timeout(err)
}

// classifyError приводит ошибку драйвера к ошибкам приложения.
// Уже классифицированные ошибки и context.Canceled возвращаются без изменений.
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, apperrors.ErrNotFound),
		errors.Is(err, apperrors.ErrValidation),
		errors.Is(err, apperrors.ErrConflict),
		errors.Is(err, apperrors.ErrPersistence):
		return err
	case isUniqueViolation(err):
		return fmt.Errorf("%s: %w: %v", op, apperrors.ErrConflict, err)
	case isCheckViolation(err):
		return fmt.Errorf("%s: %w: %v", op, apperrors.ErrValidation, err)
	case isTransient(err):
		return fmt.Errorf("%s: %w: %v", op, apperrors.ErrPersistence, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
