package bank

import (
	"fmt"
	"strings"
)

// UnsupportedFormatError reports an unknown bank format selector.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported bank format %q", e.Format)
}

// SchemaMismatchError reports that the input lacks required columns after
// header-skip and renaming. Non-retryable: the user picked the wrong format
// or the file is not a bank export.
type SchemaMismatchError struct {
	Missing []string
	Found   []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("csv is missing required columns [%s]; found [%s]",
		strings.Join(e.Missing, ", "), strings.Join(e.Found, ", "))
}

// MalformedAmountError reports an amount cell that is not numeric after the
// format-specific transforms. The row is rejected, not the whole file.
type MalformedAmountError struct {
	Cell string
	Err  error
}

func (e *MalformedAmountError) Error() string {
	return fmt.Sprintf("malformed amount %q: %v", e.Cell, e.Err)
}

func (e *MalformedAmountError) Unwrap() error { return e.Err }

// MalformedDateError reports a date cell that passed the row filter but could
// not be parsed into a calendar date.
type MalformedDateError struct {
	Cell string
	Err  error
}

func (e *MalformedDateError) Error() string {
	return fmt.Sprintf("malformed date %q: %v", e.Cell, e.Err)
}

func (e *MalformedDateError) Unwrap() error { return e.Err }
