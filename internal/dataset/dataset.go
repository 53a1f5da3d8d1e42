package dataset

import (
	"strconv"
	"strings"
	"time"
)

// Domain is the inferred domain tag of a column.
type Domain string

const (
	DomainNumeric     Domain = "numeric"
	DomainCategorical Domain = "categorical"
	DomainIdentifier  Domain = "identifier"
	DomainText        Domain = "text"
	DomainDatetime    Domain = "datetime"
	DomainMixed       Domain = "mixed"
)

// Column is a single named column. Cells are stored as raw strings; a cell is
// null only when the source held no value at all. Placeholder tokens such as
// "?" or "NA" survive as regular values so the hidden-missing check can see
// them.
type Column struct {
	Name   string
	cells  []string
	nulls  []bool
	domain Domain
}

// Domain returns the inferred domain tag.
func (c *Column) Domain() Domain { return c.domain }

// Len returns the number of cells including nulls.
func (c *Column) Len() int { return len(c.cells) }

// IsNull reports whether cell i holds no value.
func (c *Column) IsNull(i int) bool { return c.nulls[i] }

// Value returns the raw cell value; empty string for nulls.
func (c *Column) Value(i int) string { return c.cells[i] }

// NonNull returns the raw values of all non-null cells in row order.
func (c *Column) NonNull() []string {
	out := make([]string, 0, len(c.cells))
	for i, v := range c.cells {
		if !c.nulls[i] {
			out = append(out, v)
		}
	}
	return out
}

// MissingRatio returns the fraction of null cells.
func (c *Column) MissingRatio() float64 {
	if len(c.cells) == 0 {
		return 0
	}
	n := 0
	for _, isNull := range c.nulls {
		if isNull {
			n++
		}
	}
	return float64(n) / float64(len(c.cells))
}

// Floats returns every non-null cell that coerces to a number.
func (c *Column) Floats() []float64 {
	out := make([]float64, 0, len(c.cells))
	for i, v := range c.cells {
		if c.nulls[i] {
			continue
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			out = append(out, f)
		}
	}
	return out
}

// NumericRatio returns the fraction of non-null cells that coerce to a number.
func (c *Column) NumericRatio() float64 {
	total, numeric := 0, 0
	for i, v := range c.cells {
		if c.nulls[i] {
			continue
		}
		total++
		if _, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			numeric++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(numeric) / float64(total)
}

// UniqueCount returns the number of distinct non-null values.
func (c *Column) UniqueCount() int {
	seen := make(map[string]struct{})
	for i, v := range c.cells {
		if !c.nulls[i] {
			seen[v] = struct{}{}
		}
	}
	return len(seen)
}

// ValueCounts returns the frequency of each distinct non-null value.
func (c *Column) ValueCounts() map[string]int {
	counts := make(map[string]int)
	for i, v := range c.cells {
		if !c.nulls[i] {
			counts[v]++
		}
	}
	return counts
}

// Dataset is an immutable rows-by-columns tabular value. Exclusively owned by
// the active session for the session's lifetime.
type Dataset struct {
	cols []*Column
	rows int
}

// New builds a Dataset from named columns and classifies each column's
// domain. All columns must have equal length.
func New(cols []*Column) *Dataset {
	rows := 0
	if len(cols) > 0 {
		rows = cols[0].Len()
	}
	d := &Dataset{cols: cols, rows: rows}
	for _, c := range cols {
		c.domain = classify(c, rows)
	}
	return d
}

// NewColumn builds a column from parallel cell and null slices.
func NewColumn(name string, cells []string, nulls []bool) *Column {
	return &Column{Name: name, cells: cells, nulls: nulls}
}

// Rows returns the row count.
func (d *Dataset) Rows() int { return d.rows }

// Cols returns the column count.
func (d *Dataset) Cols() int { return len(d.cols) }

// Columns returns the columns in order.
func (d *Dataset) Columns() []*Column { return d.cols }

// ColumnNames returns all column names in order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.cols))
	for i, c := range d.cols {
		names[i] = c.Name
	}
	return names
}

// Column returns the named column, or nil if absent.
func (d *Dataset) Column(name string) *Column {
	for _, c := range d.cols {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// HasColumn is a case-sensitive membership test.
func (d *Dataset) HasColumn(name string) bool { return d.Column(name) != nil }

// Without returns a shallow view of the dataset excluding the named column.
func (d *Dataset) Without(name string) *Dataset {
	out := make([]*Column, 0, len(d.cols))
	for _, c := range d.cols {
		if c.Name != name {
			out = append(out, c)
		}
	}
	return &Dataset{cols: out, rows: d.rows}
}

// NumericColumns returns the columns tagged numeric.
func (d *Dataset) NumericColumns() []*Column {
	var out []*Column
	for _, c := range d.cols {
		if c.domain == DomainNumeric {
			out = append(out, c)
		}
	}
	return out
}

// CategoricalColumns returns the columns tagged categorical.
func (d *Dataset) CategoricalColumns() []*Column {
	var out []*Column
	for _, c := range d.cols {
		if c.domain == DomainCategorical {
			out = append(out, c)
		}
	}
	return out
}

// DuplicateRowRatio returns the fraction of rows that repeat an earlier row.
func (d *Dataset) DuplicateRowRatio() float64 {
	if d.rows == 0 {
		return 0
	}
	seen := make(map[string]struct{}, d.rows)
	dupes := 0
	var sb strings.Builder
	for i := 0; i < d.rows; i++ {
		sb.Reset()
		for _, c := range d.cols {
			if c.nulls[i] {
				sb.WriteByte(0x00)
			} else {
				sb.WriteString(c.cells[i])
			}
			sb.WriteByte(0x1f)
		}
		key := sb.String()
		if _, ok := seen[key]; ok {
			dupes++
		} else {
			seen[key] = struct{}{}
		}
	}
	return float64(dupes) / float64(d.rows)
}

// MemoryBytes estimates the in-memory footprint of the dataset.
func (d *Dataset) MemoryBytes() int {
	total := 0
	for _, c := range d.cols {
		for _, v := range c.cells {
			total += len(v) + 17 // string bytes + header + null flag
		}
	}
	return total
}

var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"02-Jan-2006",
}

// classify assigns a domain tag to a column. The categorical boundary
// constants (0.8 unique ratio, 50/0.1n caps, 30/100 length caps, 0.3 space
// fraction) are defaults carried from the reference behavior; they are not
// empirically tuned.
func classify(c *Column, rows int) Domain {
	nonNull := c.NonNull()
	if len(nonNull) == 0 {
		return DomainCategorical
	}

	numericRatio := c.NumericRatio()
	if numericRatio == 1 {
		return DomainNumeric
	}

	if isDatetime(nonNull) {
		return DomainDatetime
	}

	uniqueCount := c.UniqueCount()
	uniqueRatio := 0.0
	if rows > 0 {
		uniqueRatio = float64(uniqueCount) / float64(rows)
	}

	var totalLen, maxLen, withSpace int
	for _, v := range nonNull {
		totalLen += len(v)
		if len(v) > maxLen {
			maxLen = len(v)
		}
		if strings.Contains(v, " ") {
			withSpace++
		}
	}
	avgLen := float64(totalLen) / float64(len(nonNull))
	spaceFraction := float64(withSpace) / float64(len(nonNull))

	idCap := 50.0
	if cap := 0.1 * float64(rows); cap > idCap {
		idCap = cap
	}

	switch {
	case uniqueRatio > 0.8 && float64(uniqueCount) > idCap:
		return DomainIdentifier
	case avgLen > 30 || maxLen > 100 || spaceFraction > 0.3:
		return DomainText
	case numericRatio > 0:
		return DomainMixed
	default:
		return DomainCategorical
	}
}

// isDatetime reports whether at least 95% of the values parse under a common
// date layout.
func isDatetime(values []string) bool {
	if len(values) == 0 {
		return false
	}
	parsed := 0
	for _, v := range values {
		for _, layout := range datetimeLayouts {
			if _, err := time.Parse(layout, strings.TrimSpace(v)); err == nil {
				parsed++
				break
			}
		}
	}
	return float64(parsed)/float64(len(values)) >= 0.95
}
