// pkg/aggregate/aggregate_test.go
package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dropstream-io/order-ingress/pkg/model"
)

func testAggregator() *Aggregator {
	partners := []model.Partner{
		{ID: 7, Name: "Acme Goods"},
	}
	return New(partners, zap.NewNop())
}

func record(po, sku string, qty int) model.NormalizedRecord {
	return model.NormalizedRecord{
		PurchaseOrderNumber: po,
		CustomerFirstName:   "Jane",
		AddressLine1:        "12 Main St",
		Address:             "12 Main St",
		City:                "Springfield",
		Country:             "US",
		State:               "IL",
		Zip:                 "62704",
		SKU:                 sku,
		Quantity:            qty,
		DropshipperID:       7,
		SourceRow:           1,
	}
}

func TestAggregate_GroupsRowsByOrderNumber(t *testing.T) {
	records := []model.NormalizedRecord{
		record("PO-1", "ABC-1", 2),
		record("PO-1", "XYZ-2", 1),
		record("PO-2", "DEF-3", 4),
	}

	result := testAggregator().Aggregate(records, nil)

	require.Len(t, result.Orders, 2)
	assert.Equal(t, map[string]int{"ABC-1": 2, "XYZ-2": 1}, result.Orders["PO-1"].Items)
	assert.Equal(t, map[string]int{"DEF-3": 4}, result.Orders["PO-2"].Items)
	assert.Empty(t, result.Unparsed)
}

func TestAggregate_RepeatedSKUOverwrites(t *testing.T) {
	records := []model.NormalizedRecord{
		record("PO-1", "ABC-1", 2),
		record("PO-1", "ABC-1", 5),
	}

	result := testAggregator().Aggregate(records, nil)

	assert.Equal(t, map[string]int{"ABC-1": 5}, result.Orders["PO-1"].Items)
}

func TestAggregate_FirstRowSnapshotWins(t *testing.T) {
	first := record("PO-1", "ABC-1", 2)
	second := record("PO-1", "XYZ-2", 1)
	second.City = "Somewhere Else"

	result := testAggregator().Aggregate([]model.NormalizedRecord{first, second}, nil)

	assert.Equal(t, "Springfield", result.Orders["PO-1"].City)
}

func TestAggregate_BadRowDoesNotAbortBatch(t *testing.T) {
	bad := record("PO-1", "ABC-1", 2)
	bad.City = ""

	records := []model.NormalizedRecord{
		bad,
		record("PO-2", "XYZ-2", 1),
	}

	result := testAggregator().Aggregate(records, nil)

	require.Len(t, result.Orders, 1)
	assert.Contains(t, result.Orders, "PO-2")

	failures := result.Unparsed["Acme Goods"]
	require.Len(t, failures, 1)
	assert.Equal(t, "missing required fields", failures[0].Reason)
	assert.Equal(t, []string{"city"}, failures[0].MissingFields)
}

func TestAggregate_InvalidSKUFormat(t *testing.T) {
	bad := record("PO-1", "ABC_1!", 2)

	result := testAggregator().Aggregate([]model.NormalizedRecord{bad}, nil)

	assert.Empty(t, result.Orders)
	failures := result.Unparsed["Acme Goods"]
	require.Len(t, failures, 1)
	assert.Equal(t, "invalid SKU format", failures[0].Reason)
}

func TestAggregate_SKUWhitespaceStripped(t *testing.T) {
	rec := record("PO-1", " ABC - 1 ", 2)

	result := testAggregator().Aggregate([]model.NormalizedRecord{rec}, nil)

	assert.Equal(t, map[string]int{"ABC-1": 2}, result.Orders["PO-1"].Items)
}

func TestAggregate_RoutesUpstreamFailures(t *testing.T) {
	upstream := []model.RowFailure{
		{SourceRow: 3, DropshipperID: 7, Reason: "cannot parse quantity \"two\""},
		{SourceRow: 9, DropshipperID: 42, Reason: "cannot parse phone \"n/a\""},
	}

	result := testAggregator().Aggregate(nil, upstream)

	assert.Len(t, result.Unparsed["Acme Goods"], 1)
	// Unknown dropshipper ids get their own bucket key.
	assert.Len(t, result.Unparsed["dropshipper:42"], 1)
}

func TestBucketKey(t *testing.T) {
	a := testAggregator()
	assert.Equal(t, "Acme Goods", a.BucketKey(7))
	assert.Equal(t, "dropshipper:42", a.BucketKey(42))
}

func TestResultMerge(t *testing.T) {
	a := NewResult()
	a.Orders["PO-1"] = &model.PurchaseOrder{
		PurchaseOrderNumber: "PO-1",
		City:                "Springfield",
		Items:               map[string]int{"ABC-1": 2},
	}
	a.Unparsed.Add("Acme Goods", model.RowFailure{SourceRow: 1})

	b := NewResult()
	b.Orders["PO-1"] = &model.PurchaseOrder{
		PurchaseOrderNumber: "PO-1",
		City:                "Elsewhere",
		Items:               map[string]int{"XYZ-2": 1},
	}
	b.Orders["PO-2"] = &model.PurchaseOrder{
		PurchaseOrderNumber: "PO-2",
		Items:               map[string]int{"DEF-3": 4},
	}
	b.Unparsed.Add("Acme Goods", model.RowFailure{SourceRow: 2})

	a.Merge(b)

	require.Len(t, a.Orders, 2)
	// The existing snapshot wins; the other result only contributes items.
	assert.Equal(t, "Springfield", a.Orders["PO-1"].City)
	assert.Equal(t, map[string]int{"ABC-1": 2, "XYZ-2": 1}, a.Orders["PO-1"].Items)
	assert.Len(t, a.Unparsed["Acme Goods"], 2)
}
