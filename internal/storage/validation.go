package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Tydik42/desbordante-core/internal/model"
)

// Validation errors.
var (
	ErrNilContext     = errors.New("context cannot be nil")
	ErrEmptyString    = errors.New("string parameter cannot be empty")
	ErrNilParameter   = errors.New("parameter cannot be nil")
	ErrInvalidDataset = errors.New("invalid dataset")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateDataset checks that every transaction only references items of the universe.
func validateDataset(data *model.TransactionalData) error {
	if data == nil {
		return fmt.Errorf("%w: dataset", ErrNilParameter)
	}
	numItems := len(data.ItemUniverse())
	for _, txn := range data.Transactions() {
		for _, item := range txn.Items {
			if item < 0 || item >= numItems {
				return fmt.Errorf("%w: transaction %d references unknown item %d", ErrInvalidDataset, txn.ID, item)
			}
		}
	}
	return nil
}
