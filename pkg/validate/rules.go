// pkg/validate/rules.go
package validate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dropstream-io/order-ingress/pkg/alias"
	"github.com/dropstream-io/order-ingress/pkg/model"
	"github.com/dropstream-io/order-ingress/pkg/reader"
)

// RequiredColumns are the canonical columns that must carry at least one
// non-empty value for a file to be ingestible. The same list is applied
// per-row by the aggregator.
var RequiredColumns = []string{
	"purchase_order_number",
	"customer_first_name",
	"address_1",
	"city",
	"country",
	"state",
	"zip",
	"sku",
	"quantity",
}

// Rule is a single file-level validation predicate.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, path string) model.ValidationOutcome
}

// DuplicateChecker is the slice of the relational store the chain needs.
type DuplicateChecker interface {
	IsFileAlreadyIngested(ctx context.Context, fileName string) (bool, error)
}

// notEmpty rejects zero-byte files.
type notEmpty struct{}

func (notEmpty) Name() string { return "non-empty" }

func (notEmpty) Evaluate(_ context.Context, path string) model.ValidationOutcome {
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return model.Fail("file is empty")
	}
	return model.Pass()
}

// hasExtension rejects files without the accepted delimited-text extension.
type hasExtension struct {
	ext string
}

func (r hasExtension) Name() string { return "extension" }

func (r hasExtension) Evaluate(_ context.Context, path string) model.ValidationOutcome {
	if !strings.HasSuffix(path, r.ext) {
		return model.Fail("file is not a " + strings.TrimPrefix(r.ext, "."))
	}
	return model.Pass()
}

// followsTemplate checks that, after header whitespace stripping and alias
// resolution, the column sequence equals the partner's expected template
// exactly. The whitespace stripping is written back to the file so later
// row-level parsing sees the normalized header.
type followsTemplate struct {
	template []string
	aliases  model.HeaderAliasMap
}

func (r followsTemplate) Name() string { return "template" }

func (r followsTemplate) Evaluate(_ context.Context, path string) model.ValidationOutcome {
	if err := reader.NormalizeHeaderInPlace(path); err != nil {
		return model.Fail("there was an error checking the template")
	}

	table, err := reader.ReadFile(path)
	if err != nil {
		return model.Fail("there was an error checking the template")
	}
	alias.Standardize(table, r.aliases)

	if len(table.Columns) != len(r.template) {
		return model.Fail("file does not follow template")
	}
	for i, col := range table.Columns {
		if col != r.template[i] {
			return model.Fail("file does not follow template")
		}
	}
	return model.Pass()
}

// notDuplicate rejects files whose base name was already ingested.
type notDuplicate struct {
	store DuplicateChecker
}

func (r notDuplicate) Name() string { return "not-duplicate" }

func (r notDuplicate) Evaluate(ctx context.Context, path string) model.ValidationOutcome {
	ingested, err := r.store.IsFileAlreadyIngested(ctx, filepath.Base(path))
	if err != nil {
		return model.Fail("there was an error checking for duplicates")
	}
	if ingested {
		return model.Fail("file is a duplicate")
	}
	return model.Pass()
}

// hasRequiredContent checks that each required canonical column carries at
// least one non-empty value across all rows.
type hasRequiredContent struct {
	aliases model.HeaderAliasMap
}

func (r hasRequiredContent) Name() string { return "required-content" }

func (r hasRequiredContent) Evaluate(_ context.Context, path string) model.ValidationOutcome {
	table, err := reader.ReadFile(path)
	if err != nil {
		return model.Fail("there was an error checking required content")
	}
	alias.Standardize(table, r.aliases)

	for _, column := range RequiredColumns {
		if !columnHasValue(table, column) {
			return model.Fail(fmt.Sprintf("column %s is empty", column))
		}
	}
	return model.Pass()
}

func columnHasValue(table *model.Table, column string) bool {
	idx, ok := table.ColumnIndex(column)
	if !ok {
		return false
	}
	for _, row := range table.Rows {
		if idx < len(row) && strings.TrimSpace(row[idx]) != "" {
			return true
		}
	}
	return false
}
