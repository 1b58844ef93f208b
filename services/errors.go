package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrUnauthorized      = errors.New("invalid credentials")
	ErrValidation        = errors.New("invalid input")
	ErrConflict          = errors.New("already exists")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrQuoteExpired      = errors.New("quote has expired")
	ErrPDFUnavailable    = errors.New("pdf renderer unavailable")
)

func notFound(entity string) error {
	return fmt.Errorf("%s %w", entity, ErrNotFound)
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func forbiddenf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrForbidden, fmt.Sprintf(format, args...))
}

func transitionError(entity, from, to string) error {
	return fmt.Errorf("%w: %s is %s and cannot become %s", ErrInvalidTransition, entity, from, to)
}

// dbError maps gorm errors onto the service sentinels.
func dbError(err error, entity string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFound(entity)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s %w", entity, ErrConflict)
	default:
		return fmt.Errorf("%s: %w", entity, err)
	}
}
