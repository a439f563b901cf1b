// Package repository provides data access layer implementations for the application.
package repository

import (
	"errors"
	"strings"

	"yatube/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// SQLSTATE codes reported by PostgreSQL for constraint violations.
const (
	pgCheckViolation      = "23514"
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgNotNullViolation    = "23502"
)

// classifyConstraint maps storage constraint violations to validation errors.
// Any other error becomes an internal error.
func classifyConstraint(err error) error {
	if err == nil {
		return nil
	}

	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, models.ErrSelfFollow) {
		return models.NewValidationError("You cannot follow yourself")
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgCheckViolation:
			return checkViolation(pgErr.ConstraintName, err)
		case pgUniqueViolation:
			return &models.AppError{Code: models.CodeValidation, Message: "Record already exists", Err: err}
		case pgForeignKeyViolation:
			return &models.AppError{Code: models.CodeValidation, Message: "Referenced record does not exist", Err: err}
		case pgNotNullViolation:
			return &models.AppError{Code: models.CodeValidation, Message: "Required field is missing", Err: err}
		}
		return models.NewInternalError(err)
	}

	// sqlite reports constraint failures only through the message text.
	msg := err.Error()
	switch {
	case strings.Contains(msg, "CHECK constraint failed"):
		name := strings.TrimSpace(msg[strings.Index(msg, "CHECK constraint failed")+len("CHECK constraint failed"):])
		return checkViolation(strings.TrimPrefix(name, ": "), err)
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return &models.AppError{Code: models.CodeValidation, Message: "Record already exists", Err: err}
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return &models.AppError{Code: models.CodeValidation, Message: "Referenced record does not exist", Err: err}
	case strings.Contains(msg, "NOT NULL constraint failed"):
		return &models.AppError{Code: models.CodeValidation, Message: "Required field is missing", Err: err}
	}

	return models.NewInternalError(err)
}

func checkViolation(constraint string, err error) error {
	if strings.Contains(constraint, models.FollowSelfConstraint) {
		return &models.AppError{Code: models.CodeValidation, Message: "You cannot follow yourself", Err: err}
	}
	return &models.AppError{Code: models.CodeValidation, Message: "Constraint violated", Err: err}
}

// notFoundOr converts gorm.ErrRecordNotFound into a NotFound error for resource/id.
func notFoundOr(err error, resource string, id interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return models.NewInternalError(err)
}
