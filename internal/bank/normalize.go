package bank

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// germanDateRx is the permissive row filter: anything that does not look like
// D.M.YYYY is a metadata or balance line, not a transaction.
var germanDateRx = regexp.MustCompile(`^\d{1,2}\.\d{1,2}\.\d{4}$`)

const germanDateLayout = "2.1.2006"

// Normalize converts a raw bank CSV export into the standard tabular shape.
// It is pure: the only side effect is reading r.
func Normalize(r io.Reader, format Format) (Result, error) {
	switch format {
	case FormatStandard:
		return normalizeStandard(r)
	case FormatDeutscheBank:
		return normalizeGerman(r, germanSpec{
			skipLines: 7,
			dateCol:   "Buchungstag",
			payeeCol:  "Begünstigter / Auftraggeber",
			notesCols: []string{"Verwendungszweck"},
			amountCol: "Betrag",
		})
	case FormatING:
		return normalizeGerman(r, germanSpec{
			skipLines: 13,
			latin1:    true,
			dateCol:   "Buchung",
			payeeCol:  "Auftraggeber/Empfänger",
			notesCols: []string{"Buchungstext", "Verwendungszweck"},
			amountCol: "Betrag",
		})
	}
	return Result{}, &UnsupportedFormatError{Format: string(format)}
}

// germanSpec describes one semicolon-separated German bank dialect.
type germanSpec struct {
	skipLines int
	latin1    bool
	dateCol   string
	payeeCol  string
	notesCols []string
	amountCol string
}

func normalizeGerman(r io.Reader, spec germanSpec) (Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Result{}, fmt.Errorf("read csv: %w", err)
	}
	if spec.latin1 {
		data = decodeLatin1(data)
	}

	body := skipLines(string(data), spec.skipLines)
	cr := csv.NewReader(strings.NewReader(body))
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return Result{}, &SchemaMismatchError{
			Missing: append([]string{spec.dateCol, spec.payeeCol, spec.amountCol}, spec.notesCols...),
		}
	}
	cols := headerIndex(header)

	wanted := append([]string{spec.dateCol, spec.payeeCol, spec.amountCol}, spec.notesCols...)
	var missing []string
	for _, name := range wanted {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return Result{}, &SchemaMismatchError{Missing: missing, Found: trimmedHeader(header)}
	}

	var res Result
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Ragged trailing lines are expected in these exports.
			res.Dropped++
			continue
		}

		dateRaw := cell(rec, cols[spec.dateCol])
		if !germanDateRx.MatchString(dateRaw) {
			res.Dropped++
			continue
		}
		amountRaw := cell(rec, cols[spec.amountCol])
		if amountRaw == "" {
			res.Dropped++
			continue
		}

		date, err := time.Parse(germanDateLayout, dateRaw)
		if err != nil {
			res.RowErrors = append(res.RowErrors, &MalformedDateError{Cell: dateRaw, Err: err})
			continue
		}
		amount, err := parseGermanAmount(amountRaw)
		if err != nil {
			res.RowErrors = append(res.RowErrors, &MalformedAmountError{Cell: amountRaw, Err: err})
			continue
		}

		payee := cell(rec, cols[spec.payeeCol])
		if payee == "" {
			payee = "Unknown"
		}

		res.Transactions = append(res.Transactions, Transaction{
			Date:   date,
			Payee:  payee,
			Notes:  joinNotes(rec, cols, spec.notesCols),
			Amount: amount,
		})
	}
	return finishResult(res)
}

func normalizeStandard(r io.Reader) (Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return Result{}, &SchemaMismatchError{Missing: []string{"date", "payee", "amount"}}
	}
	cols := headerIndex(header)

	var missing []string
	for _, name := range []string{"date", "payee", "amount"} {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return Result{}, &SchemaMismatchError{Missing: missing, Found: trimmedHeader(header)}
	}
	notesIdx, hasNotes := cols["notes"]

	var res Result
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			res.Dropped++
			continue
		}

		dateRaw := cell(rec, cols["date"])
		amountRaw := cell(rec, cols["amount"])
		if dateRaw == "" || amountRaw == "" {
			res.Dropped++
			continue
		}

		date, err := time.Parse("2006-01-02", dateRaw)
		if err != nil {
			res.RowErrors = append(res.RowErrors, &MalformedDateError{Cell: dateRaw, Err: err})
			continue
		}
		amount, err := strconv.ParseFloat(amountRaw, 64)
		if err != nil {
			res.RowErrors = append(res.RowErrors, &MalformedAmountError{Cell: amountRaw, Err: err})
			continue
		}

		notes := ""
		if hasNotes {
			notes = cell(rec, notesIdx)
		}
		res.Transactions = append(res.Transactions, Transaction{
			Date:   date,
			Payee:  cell(rec, cols["payee"]),
			Notes:  notes,
			Amount: amount,
		})
	}
	return finishResult(res)
}

// finishResult applies the shared tail of every converter: abort when nothing
// parsed but rows were rejected, otherwise sort date-ascending keeping the
// original order for equal dates.
func finishResult(res Result) (Result, error) {
	if len(res.Transactions) == 0 && len(res.RowErrors) > 0 {
		return Result{}, fmt.Errorf("no rows survived normalization (%d rejected): %w",
			len(res.RowErrors), res.RowErrors[0])
	}
	sort.SliceStable(res.Transactions, func(i, j int) bool {
		return res.Transactions[i].Date.Before(res.Transactions[j].Date)
	})
	return res, nil
}

// parseGermanAmount converts "1.234,56" to 1234.56.
func parseGermanAmount(s string) (float64, error) {
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	return strconv.ParseFloat(s, 64)
}

func skipLines(s string, n int) string {
	for i := 0; i < n; i++ {
		idx := strings.IndexByte(s, '\n')
		if idx < 0 {
			return ""
		}
		s = s[idx+1:]
	}
	return s
}

func headerIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\uFEFF"))
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	return cols
}

func trimmedHeader(header []string) []string {
	out := make([]string, 0, len(header))
	for _, name := range header {
		out = append(out, strings.TrimSpace(strings.TrimPrefix(name, "\uFEFF")))
	}
	return out
}

func cell(rec []string, idx int) string {
	if idx < len(rec) {
		return strings.TrimSpace(rec[idx])
	}
	return ""
}

// joinNotes concatenates the configured note columns with " - ". An empty part
// collapses the whole value, matching how the source exports null out blank
// metadata fields.
func joinNotes(rec []string, cols map[string]int, names []string) string {
	parts := make([]string, 0, len(names))
	for _, name := range names {
		v := cell(rec, cols[name])
		if v == "" {
			return ""
		}
		parts = append(parts, v)
	}
	return strings.Join(parts, " - ")
}

// decodeLatin1 reinterprets ISO-8859-1 bytes as UTF-8. Every Latin-1 byte maps
// directly to the code point of the same value.
func decodeLatin1(data []byte) []byte {
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return []byte(string(runes))
}
