package model

import (
	"fmt"
	"strings"
)

// InputFormat selects how a table is turned into transactions.
type InputFormat string

// Input formats.
const (
	// InputSingular has one row per (transaction id, item) pair.
	InputSingular InputFormat = "singular"
	// InputTabular has one row per transaction, every cell being an item.
	InputTabular InputFormat = "tabular"
)

// ParseInputFormat converts a user-supplied name into an InputFormat.
func ParseInputFormat(s string) (InputFormat, error) {
	switch InputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case InputSingular:
		return InputSingular, nil
	case InputTabular:
		return InputTabular, nil
	default:
		return "", fmt.Errorf("unknown input format %q (valid: singular, tabular)", s)
	}
}
