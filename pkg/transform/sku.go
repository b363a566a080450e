// pkg/transform/sku.go
package transform

import (
	"regexp"
	"strings"

	"github.com/dropstream-io/order-ingress/pkg/model"
)

// skuMarkers matches a leading S and the catalog markers that denote
// repackaged or bundled variants of a base SKU.
var skuMarkers = regexp.MustCompile(`^S|(-R)|(-S)|(-P)|(-FBA)`)

// CleanSKU normalizes a catalog SKU. Entries carrying the literal "SKU "
// prefix are placeholders and are dropped (ok=false). A leading S and any
// -R/-S/-P/-FBA markers are stripped so the SKU matches the base catalog
// entry.
func CleanSKU(sku string) (string, bool) {
	if strings.HasPrefix(sku, "SKU ") {
		return "", false
	}

	if strings.HasPrefix(sku, "S") ||
		strings.Contains(sku, "-R") ||
		strings.Contains(sku, "-S") ||
		strings.Contains(sku, "-P") ||
		strings.Contains(sku, "-FBA") {
		return skuMarkers.ReplaceAllString(sku, ""), true
	}

	return sku, true
}

// CleanSKUCatalog rewrites every aggregated order's item map through
// CleanSKU, dropping placeholder entries. Orders left with no items are
// removed from the batch. Returns the number of orders removed.
func CleanSKUCatalog(orders map[string]*model.PurchaseOrder) int {
	removed := 0
	for number, order := range orders {
		items := make(map[string]int, len(order.Items))
		for sku, qty := range order.Items {
			cleaned, ok := CleanSKU(sku)
			if !ok || cleaned == "" {
				continue
			}
			items[cleaned] = qty
		}
		order.Items = items

		if len(order.Items) == 0 {
			delete(orders, number)
			removed++
		}
	}
	return removed
}
