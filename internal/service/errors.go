package service

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by DocumentService. Returned errors wrap one of these;
// match with errors.Is.
var (
	ErrValidation   = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("document already processed")
	ErrStorage      = errors.New("storage error")

	// ErrBlobMissing means the metadata row exists but its stored file does not.
	ErrBlobMissing = fmt.Errorf("document file %w in storage", ErrNotFound)
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func forbiddenError(msg string) error {
	return fmt.Errorf("%w: %s", ErrForbidden, msg)
}
