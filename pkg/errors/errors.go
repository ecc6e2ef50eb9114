package errors

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentUnreadable = errors.New("document unreadable")
	ErrStopListUnreadable = errors.New("stop list unreadable")
	ErrSourceUnreadable   = errors.New("document source unreadable")
	ErrTermNotFound       = errors.New("term not present in corpus")
	ErrDocumentNotFound   = errors.New("document not present in corpus")
	ErrMalformedRecord    = errors.New("malformed index record")
	ErrStorage            = errors.New("index storage failure")
	ErrUnknownModel       = errors.New("unknown scoring model")
	ErrInvalidInput       = errors.New("invalid input")
)

type AppError struct {
	Err     error
	Message string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, message string) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: message,
	}
}

func Newf(sentinel error, format string, args ...any) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: fmt.Sprintf(format, args...),
	}
}

// Storage wraps an I/O failure of an index file so callers can tell build
// aborting failures apart from per-unit input errors.
func Storage(op string, path string, err error) error {
	return fmt.Errorf("%s %s: %w", op, path, &AppError{Err: ErrStorage, Message: err.Error()})
}

// IsLookupMiss reports whether err only says that a term or document is not
// part of the corpus.
func IsLookupMiss(err error) bool {
	return errors.Is(err, ErrTermNotFound) || errors.Is(err, ErrDocumentNotFound)
}

// IsStorage reports whether err originates from an index file operation.
func IsStorage(err error) bool {
	return errors.Is(err, ErrStorage)
}

// Is and As re-export the standard helpers so callers need a single import.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }
