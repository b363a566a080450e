// pkg/alias/alias.go

// Package alias rewrites a table's column names from partner-specific
// variants to the canonical schema. Not all dropshippers use the same
// headers, so an alias table supplied by the relational store maps each
// canonical name to the variants partners are known to use.
package alias

import (
	"sort"

	"github.com/dropstream-io/order-ingress/pkg/model"
)

// Standardize renames the first matching variant of every canonical name
// to that canonical name, in place, and returns the table. Canonical names
// are visited in sorted order so resolution is deterministic. A canonical
// name with no matching variant is simply absent from the output; callers
// must tolerate missing optional columns. Re-applying to an already
// canonical table is a no-op.
func Standardize(table *model.Table, aliases model.HeaderAliasMap) *model.Table {
	canonical := make([]string, 0, len(aliases))
	for name := range aliases {
		canonical = append(canonical, name)
	}
	sort.Strings(canonical)

	for _, name := range canonical {
		if table.HasColumn(name) {
			continue
		}
		for _, variant := range aliases[name] {
			if table.Rename(variant, name) {
				break
			}
		}
	}

	return table
}
