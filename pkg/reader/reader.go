// pkg/reader/reader.go
package reader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/dropstream-io/order-ingress/pkg/model"
)

// ErrUnreadable is the sentinel returned when a file decodes under none of
// the supported encodings. Callers log and exclude the file; the error is
// never raised past them.
var ErrUnreadable = errors.New("file is not readable in any supported encoding")

// fallbackEncodings are tried in order after UTF-8.
var fallbackEncodings = []struct {
	name    string
	decoder func() *encoding.Decoder
}{
	{"ISO-8859-1", charmap.ISO8859_1.NewDecoder},
	{"Windows-1252", charmap.Windows1252.NewDecoder},
}

// ReadFile loads a delimited text file into tabular form. Every value is
// kept as text. Column headers have all internal whitespace removed and
// leading/trailing whitespace stripped; rows with no values at all are
// dropped; short rows read as empty strings through Table.Value.
func ReadFile(path string) (*model.Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	text, err := decode(raw)
	if err != nil {
		return nil, err
	}

	return parseCSV(text)
}

// decode tries UTF-8 first, then each fallback encoding, and uses the
// first that decodes without error.
func decode(raw []byte) (string, error) {
	if utf8.Valid(raw) {
		return string(raw), nil
	}

	for _, enc := range fallbackEncodings {
		decoded, err := enc.decoder().Bytes(raw)
		if err != nil {
			continue
		}
		return string(decoded), nil
	}

	return "", ErrUnreadable
}

func parseCSV(text string) (*model.Table, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse delimited content: %w", err)
	}
	if len(records) == 0 {
		return &model.Table{}, nil
	}

	table := &model.Table{
		Columns: make([]string, len(records[0])),
	}
	for i, col := range records[0] {
		table.Columns[i] = CleanHeader(col)
	}

	for _, row := range records[1:] {
		if rowIsEmpty(row) {
			continue
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

// CleanHeader removes all internal spaces from a column name and strips
// surrounding whitespace.
func CleanHeader(name string) string {
	return strings.TrimSpace(strings.ReplaceAll(name, " ", ""))
}

func rowIsEmpty(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// NormalizeHeaderInPlace rewrites a file so its header row carries cleaned
// column names. The validation chain calls this before row-level parsing
// reads the file again, so downstream readers always see clean headers.
func NormalizeHeaderInPlace(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	text, err := decode(raw)
	if err != nil {
		return err
	}

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to parse delimited content: %w", err)
	}
	if len(records) == 0 {
		return nil
	}

	for i, col := range records[0] {
		records[0][i] = CleanHeader(col)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("failed to rewrite %s: %w", path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	return os.WriteFile(path, buf.Bytes(), info.Mode().Perm())
}

// ColumnValues returns the non-empty values of one column, in row order.
// The column name is cleaned the same way headers are, so a configured
// name with spaces still matches a normalized header.
func ColumnValues(table *model.Table, column string) []string {
	idx, ok := table.ColumnIndex(CleanHeader(column))
	if !ok {
		return nil
	}

	values := make([]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		if idx >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[idx]); v != "" {
			values = append(values, row[idx])
		}
	}
	return values
}
