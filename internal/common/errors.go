// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Storage errors.
	ErrNotFound = errors.New("not found")

	// Input errors.
	ErrInvalidInputFormat = errors.New("unrecognized input format")
	ErrColumnOutOfRange   = errors.New("column index out of range")
	ErrInvalidTID         = errors.New("invalid transaction id")

	// Verification errors.
	ErrEmptyDataset = errors.New("got an empty dataset: AR verifying is meaningless")
	ErrUnknownItem  = errors.New("item not found in item universe")
	ErrInvalidRule  = errors.New("invalid association rule")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsConfigurationError reports whether err was caused by bad user input
// rather than by the data or the environment.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrUnknownItem) ||
		errors.Is(err, ErrInvalidRule) ||
		errors.Is(err, ErrInvalidInputFormat) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingConfig)
}
