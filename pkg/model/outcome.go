// pkg/model/outcome.go
package model

// ValidationOutcome is the result of a single validation rule or per-row
// check: pass/fail plus a human-readable reason on failure.
type ValidationOutcome struct {
	Valid  bool
	Reason string
}

// Pass returns a passing outcome.
func Pass() ValidationOutcome {
	return ValidationOutcome{Valid: true}
}

// Fail returns a failing outcome with a reason.
func Fail(reason string) ValidationOutcome {
	return ValidationOutcome{Valid: false, Reason: reason}
}

// FileFailure records one file rejected by the validation chain.
type FileFailure struct {
	Path   string
	Reason string
}

// RowFailure records one row that could not be aggregated.
type RowFailure struct {
	SourceRow     int
	DropshipperID int
	SKU           string
	Reason        string
	MissingFields []string
}

// FileErrorBucket accumulates invalid files per partner name.
type FileErrorBucket map[string][]FileFailure

// RowErrorBucket accumulates unparsed rows per partner name. When a row's
// dropshipper id cannot be mapped to a partner, the key is the literal id
// rendered as "dropshipper:<id>" so bad ids never borrow another partner's
// bucket.
type RowErrorBucket map[string][]RowFailure

// Add appends a failure to a partner's bucket.
func (b RowErrorBucket) Add(key string, failure RowFailure) {
	b[key] = append(b[key], failure)
}

// Merge folds another bucket into this one, preserving row order within
// each key.
func (b RowErrorBucket) Merge(other RowErrorBucket) {
	for key, failures := range other {
		b[key] = append(b[key], failures...)
	}
}

// Merge folds another bucket into this one.
func (b FileErrorBucket) Merge(other FileErrorBucket) {
	for key, failures := range other {
		b[key] = append(b[key], failures...)
	}
}
