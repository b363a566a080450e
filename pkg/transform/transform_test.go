// pkg/transform/transform_test.go
package transform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dropstream-io/order-ingress/pkg/model"
)

func usIndex() model.CountryStateIndex {
	return model.CountryStateIndex{
		{Name: "United States", TwoLetter: "US", ThreeLetter: "USA"}: {
			"Illinois": "IL",
			"New York": "NY",
		},
	}
}

func fixedClock() time.Time {
	return time.Date(2026, 8, 15, 10, 30, 0, 0, time.UTC)
}

func newTestTransformer() *Transformer {
	return New(usIndex(), zap.NewNop()).WithClock(fixedClock)
}

func TestFormatText(t *testing.T) {
	assert.Equal(t, "Jane", FormatText("Jane"))
	assert.Equal(t, "Jane Doe", FormatText("JANE DOE"))
	assert.Equal(t, "McDonald", FormatText("McDonald"))
	assert.Equal(t, "OBrien", FormatText("O'Brien!"))
	assert.Equal(t, "", FormatText("123"))
}

func TestFormatZip(t *testing.T) {
	assert.Equal(t, "00123", FormatZip("123"))
	assert.Equal(t, "12345", FormatZip("123456789"))
	assert.Equal(t, "62704", FormatZip("62704"))
}

func TestParsePhone(t *testing.T) {
	phone, err := ParsePhone("(555) 123-4567")
	require.NoError(t, err)
	assert.Equal(t, int64(5551234567), phone)

	phone, err = ParsePhone("")
	require.NoError(t, err)
	assert.Equal(t, int64(0), phone)

	_, err = ParsePhone("no digits here")
	assert.Error(t, err)
}

func orderTable(rows ...[]string) *model.Table {
	return &model.Table{
		Columns: []string{
			"purchase_order_number", "purchase_order_date",
			"customer_first_name", "customer_last_name",
			"address_1", "address_2", "city", "state", "zip", "country",
			"phone", "sku", "quantity",
		},
		Rows: rows,
	}
}

func TestTransformTable(t *testing.T) {
	table := orderTable(
		[]string{"PO-1", "2026-08-01 00:00:00", "JANE", "DOE",
			"12 Main St", "Apt 4", "SPRINGFIELD", "Illinois", "627", "USA",
			"555-123-4567", "ABC-1", "2"},
	)

	records, failures := newTestTransformer().TransformTable(table, 7)
	require.Empty(t, failures)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "PO-1", rec.PurchaseOrderNumber)
	assert.Equal(t, "Jane", rec.CustomerFirstName)
	assert.Equal(t, "Doe", rec.CustomerLastName)
	assert.Equal(t, "12 Main St Apt 4", rec.Address)
	assert.Equal(t, "12 Main St", rec.AddressLine1)
	assert.Equal(t, "Springfield", rec.City)
	assert.Equal(t, "US", rec.Country)
	assert.Equal(t, "IL", rec.State)
	assert.Equal(t, "00627", rec.Zip)
	assert.Equal(t, int64(5551234567), rec.Phone)
	assert.Equal(t, "ABC-1", rec.SKU)
	assert.Equal(t, 2, rec.Quantity)
	assert.Equal(t, 7, rec.DropshipperID)
	assert.Equal(t, 1, rec.SourceRow)
}

func TestTransformTable_DefaultsMissingDate(t *testing.T) {
	table := orderTable(
		[]string{"PO-1", "", "Jane", "Doe",
			"12 Main St", "", "Springfield", "IL", "62704", "US",
			"", "ABC-1", "1"},
	)

	records, failures := newTestTransformer().TransformTable(table, 7)
	require.Empty(t, failures)
	require.Len(t, records, 1)
	assert.Equal(t, "2026-08-15 10:30:00", records[0].PurchaseOrderDate)
}

func TestTransformTable_BadRowFailsAlone(t *testing.T) {
	table := orderTable(
		[]string{"PO-1", "", "Jane", "Doe",
			"12 Main St", "", "Springfield", "IL", "62704", "US",
			"", "ABC-1", "two"},
		[]string{"PO-2", "", "John", "Roe",
			"9 Ocean Ave", "", "Albany", "NY", "12207", "US",
			"", "XYZ-2", "3"},
	)

	records, failures := newTestTransformer().TransformTable(table, 7)
	require.Len(t, records, 1)
	assert.Equal(t, "PO-2", records[0].PurchaseOrderNumber)

	require.Len(t, failures, 1)
	assert.Equal(t, 1, failures[0].SourceRow)
	assert.Contains(t, failures[0].Reason, "quantity")
}

func TestTransformTable_MalformedPhoneFailsRow(t *testing.T) {
	table := orderTable(
		[]string{"PO-1", "", "Jane", "Doe",
			"12 Main St", "", "Springfield", "IL", "62704", "US",
			"call me", "ABC-1", "1"},
	)

	records, failures := newTestTransformer().TransformTable(table, 7)
	assert.Empty(t, records)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Reason, "phone")
}

func TestResolveCountryState(t *testing.T) {
	tr := newTestTransformer()

	tests := []struct {
		name            string
		country, state  string
		wantCountry     string
		wantState       string
	}{
		{"two letter code", "US", "IL", "US", "IL"},
		{"three letter code", "USA", "il", "US", "IL"},
		{"full name", "united states", "Illinois", "US", "IL"},
		{"state name lookup", "US", "new york", "US", "NY"},
		{"unknown country", "Atlantis", "IL", "", ""},
		{"unknown state name", "US", "Springfieldia", "", ""},
		{"punctuation stripped", "U.S.", "I-L", "US", "IL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			country, state := tr.ResolveCountryState(tt.country, tt.state)
			assert.Equal(t, tt.wantCountry, country)
			assert.Equal(t, tt.wantState, state)
		})
	}
}
