// pkg/model/order.go
package model

// NormalizedRecord is one source row after alias resolution and field
// transformation, tagged with the partner that supplied it. Country and
// State are either both resolved or both empty; a half-resolved pair is
// never produced.
type NormalizedRecord struct {
	PurchaseOrderNumber string
	PurchaseOrderDate   string
	CustomerFirstName   string
	CustomerLastName    string

	// Address is address_1 and address_2 joined with a single space.
	// AddressLine1 is retained because the per-row required-field check
	// runs against address_1, not the composed value.
	Address      string
	AddressLine1 string

	City    string
	Country string
	State   string
	Zip     string
	Phone   int64

	SKU      string
	Quantity int

	DropshipperID int

	// SourceRow is the 1-based data row in the source file, for error
	// reporting.
	SourceRow int
}

// PurchaseOrder is the per-order-number aggregate. The customer and
// shipping snapshot comes from the first row seen for the order number;
// later rows only contribute line items.
type PurchaseOrder struct {
	PurchaseOrderNumber string
	PurchaseOrderDate   string
	CustomerFirstName   string
	CustomerLastName    string
	Address             string
	City                string
	Country             string
	State               string
	Zip                 string
	Phone               int64
	DropshipperID       int

	// Items maps SKU to quantity. A repeated SKU within the same order
	// overwrites the previous quantity rather than summing.
	Items map[string]int
}

// NewPurchaseOrder creates an aggregate from the first row seen for an
// order number.
func NewPurchaseOrder(rec NormalizedRecord) *PurchaseOrder {
	return &PurchaseOrder{
		PurchaseOrderNumber: rec.PurchaseOrderNumber,
		PurchaseOrderDate:   rec.PurchaseOrderDate,
		CustomerFirstName:   rec.CustomerFirstName,
		CustomerLastName:    rec.CustomerLastName,
		Address:             rec.Address,
		City:                rec.City,
		Country:             rec.Country,
		State:               rec.State,
		Zip:                 rec.Zip,
		Phone:               rec.Phone,
		DropshipperID:       rec.DropshipperID,
		Items:               map[string]int{rec.SKU: rec.Quantity},
	}
}
