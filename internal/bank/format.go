package bank

import "time"

// Format identifies a supported bank CSV dialect.
type Format string

const (
	// FormatStandard is the already-normalized CSV shape: comma separated,
	// header row with date/payee/notes/amount, ISO dates, decimal-point amounts.
	FormatStandard Format = "standard"
	// FormatDeutscheBank is the Deutsche Bank export: semicolon separated,
	// 7 metadata lines before the header, German dates and decimal commas.
	FormatDeutscheBank Format = "deutsche-bank"
	// FormatING is the ING export: semicolon separated, 13 metadata lines,
	// Latin-1 encoded, German number format with thousands separators.
	FormatING Format = "ing"
)

// Formats lists every supported format, in the order shown to users.
func Formats() []Format {
	return []Format{FormatStandard, FormatDeutscheBank, FormatING}
}

// ParseFormat validates a user-supplied format selector.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatStandard, FormatDeutscheBank, FormatING:
		return Format(s), nil
	}
	return "", &UnsupportedFormatError{Format: s}
}

// Transaction is one normalized row: the standard tabular shape every
// converter produces regardless of source dialect.
type Transaction struct {
	Date   time.Time
	Payee  string
	Notes  string
	Amount float64
}

// Result carries the normalized rows plus per-row diagnostics.
type Result struct {
	Transactions []Transaction
	// Dropped counts non-transaction rows removed by the date filter, e.g.
	// the "Kontostand" balance lines banks append after the data.
	Dropped int
	// RowErrors collects rows rejected because a date or amount cell could
	// not be parsed after the format-specific transforms.
	RowErrors []error
}
