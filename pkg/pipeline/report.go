// pkg/pipeline/report.go
package pipeline

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dropstream-io/order-ingress/pkg/model"
	"github.com/dropstream-io/order-ingress/pkg/store"
)

// buildProblemReport renders the rejected files and unparsed rows of a
// run, grouped by partner, for the operator notification.
func buildProblemReport(invalidFiles model.FileErrorBucket, unparsed model.RowErrorBucket) string {
	var b strings.Builder

	if len(invalidFiles) > 0 {
		b.WriteString("Rejected files:\n")
		for _, partner := range sortedKeysFile(invalidFiles) {
			for _, failure := range invalidFiles[partner] {
				fmt.Fprintf(&b, "  %s: %s (%s)\n", partner, filepath.Base(failure.Path), failure.Reason)
			}
		}
	}

	if len(unparsed) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Rows that could not be parsed:\n")
		for _, partner := range sortedKeysRow(unparsed) {
			for _, failure := range unparsed[partner] {
				fmt.Fprintf(&b, "  %s: row %d", partner, failure.SourceRow)
				if failure.SKU != "" {
					fmt.Fprintf(&b, " (sku %s)", failure.SKU)
				}
				fmt.Fprintf(&b, ": %s", failure.Reason)
				if len(failure.MissingFields) > 0 {
					fmt.Fprintf(&b, " [%s]", strings.Join(failure.MissingFields, ", "))
				}
				b.WriteString("\n")
			}
		}
	}

	return b.String()
}

// buildUnableToShipReport lists the orders held back by the excluded-state
// filter.
func buildUnableToShipReport(orders map[string]*model.PurchaseOrder) string {
	numbers := make([]string, 0, len(orders))
	for number := range orders {
		numbers = append(numbers, number)
	}
	sort.Strings(numbers)

	var b strings.Builder
	fmt.Fprintf(&b, "%d order(s) are destined for an excluded state and cannot be shipped:\n", len(orders))
	for _, number := range numbers {
		order := orders[number]
		fmt.Fprintf(&b, "  %s: %s, %s %s (dropshipper %d)\n",
			number, order.City, order.State, order.Zip, order.DropshipperID)
	}
	return b.String()
}

// buildPersistFailureReport lists the orders that could not be stored.
func buildPersistFailureReport(report *store.PersistReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d order(s) could not be stored:\n", len(report.Failed))
	for _, failure := range report.Failed {
		fmt.Fprintf(&b, "  %s: %v\n", failure.PurchaseOrderNumber, failure.Err)
	}
	b.WriteString("\nThe source files for these orders were left in place and will be retried.\n")
	return b.String()
}

func sortedKeysFile(bucket model.FileErrorBucket) []string {
	keys := make([]string, 0, len(bucket))
	for key := range bucket {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeysRow(bucket model.RowErrorBucket) []string {
	keys := make([]string, 0, len(bucket))
	for key := range bucket {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
