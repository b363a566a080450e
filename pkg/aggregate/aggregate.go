// pkg/aggregate/aggregate.go

// Package aggregate merges normalized rows into purchase-order aggregates
// keyed by order number. Rows that fail the required-field or SKU-format
// checks are isolated into a per-partner error bucket; a bad row never
// aborts the batch.
package aggregate

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/dropstream-io/order-ingress/pkg/model"
)

// validSKU is the only character class an SKU may contain.
var validSKU = regexp.MustCompile(`^[a-zA-Z0-9/-]*$`)

// Result holds a batch's aggregation output: one PurchaseOrder per
// distinct order number, plus the rows that could not be parsed.
type Result struct {
	Orders   map[string]*model.PurchaseOrder
	Unparsed model.RowErrorBucket
}

// NewResult returns an empty Result.
func NewResult() *Result {
	return &Result{
		Orders:   make(map[string]*model.PurchaseOrder),
		Unparsed: make(model.RowErrorBucket),
	}
}

// Merge folds another partner's partial result into this one. Orders for
// an order number already present keep the existing snapshot and only
// contribute line items, matching the single-stream semantics.
func (r *Result) Merge(other *Result) {
	for number, order := range other.Orders {
		existing, ok := r.Orders[number]
		if !ok {
			r.Orders[number] = order
			continue
		}
		for sku, qty := range order.Items {
			existing.Items[sku] = qty
		}
	}
	r.Unparsed.Merge(other.Unparsed)
}

// Aggregator consumes NormalizedRecords and builds the order map. Partner
// names are resolved up front so error buckets can be keyed by name.
type Aggregator struct {
	partnerNames map[int]string
	logger       *zap.Logger
}

// New creates an Aggregator over the batch's partner set.
func New(partners []model.Partner, logger *zap.Logger) *Aggregator {
	names := make(map[int]string, len(partners))
	for _, p := range partners {
		names[p.ID] = p.Name
	}
	return &Aggregator{
		partnerNames: names,
		logger:       logger.Named("aggregate"),
	}
}

// BucketKey resolves the error-bucket key for a dropshipper id. An id
// with no known partner gets its own key instead of borrowing a stale
// name from a previous row.
func (a *Aggregator) BucketKey(dropshipperID int) string {
	if name, ok := a.partnerNames[dropshipperID]; ok {
		return name
	}
	return fmt.Sprintf("dropshipper:%d", dropshipperID)
}

// Aggregate builds purchase-order aggregates from a record stream.
// Failures produced upstream (field coercion) are routed into the same
// unparsed bucket so callers see one row-failure view per partner.
func (a *Aggregator) Aggregate(records []model.NormalizedRecord, upstream []model.RowFailure) *Result {
	result := NewResult()

	for _, failure := range upstream {
		result.Unparsed.Add(a.BucketKey(failure.DropshipperID), failure)
	}

	for _, rec := range records {
		a.aggregateRow(rec, result)
	}

	a.logger.Info("Aggregated batch",
		zap.Int("rows", len(records)),
		zap.Int("orders", len(result.Orders)),
		zap.Int("unparsedKeys", len(result.Unparsed)))

	return result
}

func (a *Aggregator) aggregateRow(rec model.NormalizedRecord, result *Result) {
	sku := stripWhitespace(rec.SKU)

	if missing := missingRequiredFields(rec, sku); len(missing) > 0 {
		result.Unparsed.Add(a.BucketKey(rec.DropshipperID), model.RowFailure{
			SourceRow:     rec.SourceRow,
			DropshipperID: rec.DropshipperID,
			SKU:           sku,
			Reason:        "missing required fields",
			MissingFields: missing,
		})
		return
	}

	if !validSKU.MatchString(sku) {
		result.Unparsed.Add(a.BucketKey(rec.DropshipperID), model.RowFailure{
			SourceRow:     rec.SourceRow,
			DropshipperID: rec.DropshipperID,
			SKU:           sku,
			Reason:        "invalid SKU format",
		})
		return
	}

	if existing, ok := result.Orders[rec.PurchaseOrderNumber]; ok {
		// Later rows only contribute line items; a repeated SKU
		// overwrites, it does not sum.
		existing.Items[sku] = rec.Quantity
		return
	}

	rec.SKU = sku
	result.Orders[rec.PurchaseOrderNumber] = model.NewPurchaseOrder(rec)
}

// missingRequiredFields applies the file-level required-column list
// per-row. Quantity is validated at coercion time and cannot be empty
// here.
func missingRequiredFields(rec model.NormalizedRecord, sku string) []string {
	var missing []string

	check := func(name, value string) {
		if value == "" {
			missing = append(missing, name)
		}
	}

	check("purchase_order_number", rec.PurchaseOrderNumber)
	check("customer_first_name", rec.CustomerFirstName)
	check("address_1", rec.AddressLine1)
	check("city", rec.City)
	check("country", rec.Country)
	check("state", rec.State)
	check("zip", rec.Zip)
	check("sku", sku)

	return missing
}

func stripWhitespace(s string) string {
	return strings.Join(strings.Fields(s), "")
}
