// pkg/model/table.go
package model

// Table is a delimited file loaded into tabular form. All values are text;
// the reader performs no numeric inference. Column order is preserved so
// template conformance can be checked positionally.
type Table struct {
	Columns []string
	Rows    [][]string
}

// ColumnIndex returns the position of a column by name.
func (t *Table) ColumnIndex(name string) (int, bool) {
	for i, col := range t.Columns {
		if col == name {
			return i, true
		}
	}
	return -1, false
}

// HasColumn reports whether a column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.ColumnIndex(name)
	return ok
}

// Value returns the value at (row, column), or "" when the column is
// absent or the row is short. Callers must tolerate missing optional
// columns, so absence is not an error.
func (t *Table) Value(row int, column string) string {
	idx, ok := t.ColumnIndex(column)
	if !ok {
		return ""
	}
	if row < 0 || row >= len(t.Rows) || idx >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][idx]
}

// Rename renames a column in place. It reports whether the column existed.
func (t *Table) Rename(from, to string) bool {
	idx, ok := t.ColumnIndex(from)
	if !ok {
		return false
	}
	t.Columns[idx] = to
	return true
}
