// pkg/transform/transform.go

// Package transform normalizes raw row fields into NormalizedRecords:
// casing, address composition, zip, phone, country/state resolution, date
// defaulting and numeric coercion.
package transform

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/dropstream-io/order-ingress/pkg/model"
)

// DateFormat is the timestamp layout used when a purchase order date is
// defaulted to the processing time.
const DateFormat = "2006-01-02 15:04:05"

var (
	reNonLetterSpace = regexp.MustCompile(`[^a-zA-Z ]+`)
	reNonDigit       = regexp.MustCompile(`[^0-9]+`)
)

// Transformer normalizes rows for one partner's files. The country/state
// index is immutable configuration loaded once at batch start.
type Transformer struct {
	countries   model.CountryStateIndex
	countryKeys []model.CountryKey
	now         func() time.Time
	logger      *zap.Logger
}

// New creates a Transformer over a country/state index.
func New(countries model.CountryStateIndex, logger *zap.Logger) *Transformer {
	return &Transformer{
		countries:   countries,
		countryKeys: sortedCountryKeys(countries),
		now:         time.Now,
		logger:      logger.Named("transform"),
	}
}

// WithClock overrides the processing-time source.
func (t *Transformer) WithClock(now func() time.Time) *Transformer {
	t.now = now
	return t
}

// TransformTable produces one NormalizedRecord per source row, tagged with
// the partner's id. Rows whose phone or quantity cannot be coerced fail
// individually and are returned as RowFailures; they never abort the
// batch.
func (t *Transformer) TransformTable(table *model.Table, dropshipperID int) ([]model.NormalizedRecord, []model.RowFailure) {
	records := make([]model.NormalizedRecord, 0, len(table.Rows))
	var failures []model.RowFailure

	for i := range table.Rows {
		rec, err := t.transformRow(table, i, dropshipperID)
		if err != nil {
			failures = append(failures, model.RowFailure{
				SourceRow:     i + 1,
				DropshipperID: dropshipperID,
				SKU:           table.Value(i, "sku"),
				Reason:        err.Error(),
			})
			continue
		}
		records = append(records, rec)
	}

	if len(failures) > 0 {
		t.logger.Warn("Rows failed field coercion",
			zap.Int("dropshipperID", dropshipperID),
			zap.Int("failed", len(failures)),
			zap.Int("total", len(table.Rows)))
	}

	return records, failures
}

func (t *Transformer) transformRow(table *model.Table, row, dropshipperID int) (model.NormalizedRecord, error) {
	rec := model.NormalizedRecord{
		PurchaseOrderNumber: table.Value(row, "purchase_order_number"),
		CustomerFirstName:   FormatText(table.Value(row, "customer_first_name")),
		CustomerLastName:    FormatText(table.Value(row, "customer_last_name")),
		City:                FormatText(table.Value(row, "city")),
		Zip:                 FormatZip(table.Value(row, "zip")),
		SKU:                 table.Value(row, "sku"),
		DropshipperID:       dropshipperID,
		SourceRow:           row + 1,
	}

	rec.AddressLine1 = table.Value(row, "address_1")
	rec.Address = composeAddress(rec.AddressLine1, table.Value(row, "address_2"))

	rec.Country, rec.State = t.ResolveCountryState(
		table.Value(row, "country"),
		table.Value(row, "state"),
	)

	phone, err := ParsePhone(table.Value(row, "phone"))
	if err != nil {
		return rec, err
	}
	rec.Phone = phone

	rec.PurchaseOrderDate = table.Value(row, "purchase_order_date")
	if rec.PurchaseOrderDate == "" {
		rec.PurchaseOrderDate = t.now().Format(DateFormat)
	}

	quantity := strings.TrimSpace(table.Value(row, "quantity"))
	qty, err := strconv.Atoi(quantity)
	if err != nil {
		return rec, fmt.Errorf("cannot parse quantity %q", quantity)
	}
	rec.Quantity = qty

	return rec, nil
}

// FormatText strips everything except letters and spaces. A fully
// upper-case value is converted to title case; anything else keeps its
// capitalization.
func FormatText(s string) string {
	cleaned := reNonLetterSpace.ReplaceAllString(s, "")
	if isUpper(cleaned) {
		return titleCase(cleaned)
	}
	return cleaned
}

// FormatZip pads short zips with leading zeros to five characters and
// truncates long ones to the first five.
func FormatZip(zip string) string {
	if len(zip) < 5 {
		return strings.Repeat("0", 5-len(zip)) + zip
	}
	if len(zip) > 5 {
		return zip[:5]
	}
	return zip
}

// ParsePhone strips all non-digit characters and parses the remainder. An
// absent phone is allowed (the column is optional); a value that leaves no
// parseable digits is a row failure, never silently coerced to zero.
func ParsePhone(raw string) (int64, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}

	digits := reNonDigit.ReplaceAllString(raw, "")
	phone, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("cannot parse phone %q", raw)
	}
	return phone, nil
}

func composeAddress(line1, line2 string) string {
	if line2 != "" {
		return line1 + " " + line2
	}
	return line1
}

// isUpper reports whether s contains at least one letter and no lower-case
// letters.
func isUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	return hasLetter
}

// titleCase upper-cases the first letter of each space-separated word and
// lower-cases the rest.
func titleCase(s string) string {
	words := strings.Split(s, " ")
	for i, word := range words {
		if word == "" {
			continue
		}
		runes := []rune(strings.ToLower(word))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
