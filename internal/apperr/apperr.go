// Package apperr holds the error kinds shared by the catalog, cart,
// checkout and order packages. Every error a core operation returns wraps
// exactly one of the sentinels below, so callers can branch with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("invalid input")
	ErrNotFound   = errors.New("not found")
	ErrEmptyCart  = errors.New("cart empty")
	ErrStorage    = errors.New("storage fault")
)

// Validation reports malformed or out-of-range input.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFound reports a missing product, cart line or order.
func NotFound(what string, id int64) error {
	return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
}

// Storage wraps a failure of the durable store. Errors that already carry
// one of the kinds are returned unchanged.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	if Classified(err) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// Classified reports whether err already wraps one of the error kinds.
func Classified(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrEmptyCart) ||
		errors.Is(err, ErrStorage)
}
