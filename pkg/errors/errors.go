package errors

import (
	"errors"
	"fmt"
)

var (
	ErrUsage         = errors.New("usage error")
	ErrParse         = errors.New("parse error")
	ErrComparability = errors.New("results are not comparable")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInternal      = errors.New("internal error")
)

// Process exit codes. Usage errors exit 1 like the original tools.
const (
	ExitOK            = 0
	ExitUsage         = 1
	ExitParse         = 2
	ExitComparability = 3
	ExitFailure       = 4
)

type AppError struct {
	Err      error
	Message  string
	ExitCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, message string) *AppError {
	return &AppError{
		Err:      sentinel,
		Message:  message,
		ExitCode: exitCodeFor(sentinel),
	}
}

func Newf(sentinel error, format string, args ...any) *AppError {
	return &AppError{
		Err:      sentinel,
		Message:  fmt.Sprintf(format, args...),
		ExitCode: exitCodeFor(sentinel),
	}
}

// Usagef is shorthand for a usage error.
func Usagef(format string, args ...any) *AppError {
	return Newf(ErrUsage, format, args...)
}

// Parsef is shorthand for a parse error.
func Parsef(format string, args ...any) *AppError {
	return Newf(ErrParse, format, args...)
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.ExitCode
	}
	return exitCodeFor(err)
}

func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, ErrUsage), errors.Is(err, ErrInvalidInput):
		return ExitUsage
	case errors.Is(err, ErrParse):
		return ExitParse
	case errors.Is(err, ErrComparability):
		return ExitComparability
	default:
		return ExitFailure
	}
}

// Is and As re-export the standard helpers so callers need one import.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }
