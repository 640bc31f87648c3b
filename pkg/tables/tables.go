// Package tables provides row-major integer tables with missing-value
// support. The samplers use them for verbose per-generation output, and
// the analytics use them for histogram results.
package tables

import (
	"encoding/json"
	"errors"
	"math"
)

// NA marks a missing cell. It is distinguishable from every valid
// individual ID, generation index, and 1-based slot index.
const NA = math.MinInt32

// ErrShape is returned when rows or columns of mismatched length are
// combined into one table.
var ErrShape = errors.New("mismatched table shape")

// Table is a dense row-major matrix of integers with optional column names.
// The zero value is an empty table; use New or FromColumns to build one.
type Table struct {
	colNames []string
	rows     int
	cols     int
	data     []int
}

// New creates a rows×cols table with every cell set to NA.
func New(rows, cols int) *Table {
	data := make([]int, rows*cols)
	for i := range data {
		data[i] = NA
	}
	return &Table{rows: rows, cols: cols, data: data}
}

// FromColumns assembles a table from column vectors.
// All columns must have the same length. Returns ErrShape otherwise.
func FromColumns(cols [][]int) (*Table, error) {
	if len(cols) == 0 {
		return New(0, 0), nil
	}
	rows := len(cols[0])
	for _, c := range cols {
		if len(c) != rows {
			return nil, ErrShape
		}
	}
	t := New(rows, len(cols))
	for j, c := range cols {
		for i, v := range c {
			t.Set(i, j, v)
		}
	}
	return t, nil
}

// SetColNames attaches column names for presentation. The names are not
// validated against the column count.
func (t *Table) SetColNames(names ...string) { t.colNames = names }

// ColNames returns the attached column names, or nil.
func (t *Table) ColNames() []string { return t.colNames }

// Rows returns the number of rows.
func (t *Table) Rows() int { return t.rows }

// Cols returns the number of columns.
func (t *Table) Cols() int { return t.cols }

// At returns the cell at (row, col).
func (t *Table) At(row, col int) int { return t.data[row*t.cols+col] }

// Set assigns the cell at (row, col).
func (t *Table) Set(row, col, v int) { t.data[row*t.cols+col] = v }

// IsNA reports whether v is the missing-value sentinel.
func IsNA(v int) bool { return v == NA }

// AppendRow grows the table by one row. Returns ErrShape if the row
// length does not match the column count (unless the table is empty).
func (t *Table) AppendRow(row []int) error {
	if t.rows == 0 && t.cols == 0 {
		t.cols = len(row)
	}
	if len(row) != t.cols {
		return ErrShape
	}
	t.data = append(t.data, row...)
	t.rows++
	return nil
}

// jsonTable is the wire form: nulls stand in for NA cells.
type jsonTable struct {
	ColNames []string `json:"col_names,omitempty"`
	Rows     [][]*int `json:"rows"`
}

// MarshalJSON encodes the table with NA cells as JSON null.
func (t *Table) MarshalJSON() ([]byte, error) {
	out := jsonTable{ColNames: t.colNames, Rows: make([][]*int, t.rows)}
	for i := 0; i < t.rows; i++ {
		row := make([]*int, t.cols)
		for j := 0; j < t.cols; j++ {
			if v := t.At(i, j); !IsNA(v) {
				val := v
				row[j] = &val
			}
		}
		out.Rows[i] = row
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a table produced by MarshalJSON.
func (t *Table) UnmarshalJSON(data []byte) error {
	var in jsonTable
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*t = Table{colNames: in.ColNames}
	for _, row := range in.Rows {
		cells := make([]int, len(row))
		for j, v := range row {
			if v == nil {
				cells[j] = NA
			} else {
				cells[j] = *v
			}
		}
		if err := t.AppendRow(cells); err != nil {
			return err
		}
	}
	return nil
}
