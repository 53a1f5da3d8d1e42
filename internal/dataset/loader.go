package dataset

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ErrUnsupportedFormat reports a file extension the loader cannot materialize
// a Dataset from.
var ErrUnsupportedFormat = errors.New("unsupported format")

// ParseError reports a recognized format whose content could not be read.
type ParseError struct {
	Format string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %s", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

type reader func(data []byte) (*Dataset, error)

// formats maps every recognized extension to its reader. Extensions mapping
// to nil are accepted by upstream tooling but have no native reader here;
// loading them fails with ErrUnsupportedFormat naming the format.
var formats = map[string]reader{
	".csv":  readDelimited(','),
	".txt":  readDelimited(','),
	".data": readDelimited(','),
	".tsv":  readDelimited('\t'),
	".dat":  readWhitespace,
	".json": readJSON,

	".xlsx": nil, ".xls": nil, ".xlsm": nil, ".xlsb": nil,
	".odf": nil, ".ods": nil, ".odt": nil,
	".html": nil, ".htm": nil, ".xml": nil,
	".parquet": nil, ".feather": nil, ".fea": nil,
	".pkl": nil, ".pickle": nil,
	".h5": nil, ".hdf5": nil,
	".sas7bdat": nil, ".xport": nil, ".sav": nil, ".dta": nil,
	".orc": nil,
}

// SupportedExtensions returns the extensions with a native reader, sorted.
func SupportedExtensions() []string {
	var out []string
	for ext, r := range formats {
		if r != nil {
			out = append(out, ext)
		}
	}
	sort.Strings(out)
	return out
}

// KnownExtensions returns every recognized extension, sorted. Extensions not
// in SupportedExtensions are accepted at upload validation but rejected at
// load with a format-specific error.
func KnownExtensions() []string {
	out := make([]string, 0, len(formats))
	for ext := range formats {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Load reads a dataset file from disk, dispatching on its extension.
func Load(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return LoadBytes(data, filepath.Base(path))
}

// LoadBytes materializes a Dataset from raw bytes, dispatching on the
// filename's extension.
func LoadBytes(data []byte, filename string) (*Dataset, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	r, ok := formats[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if r == nil {
		return nil, fmt.Errorf("%w: no native reader for %q", ErrUnsupportedFormat, ext)
	}
	ds, err := r(data)
	if err != nil {
		return nil, &ParseError{Format: ext, Err: err}
	}
	return ds, nil
}

func readDelimited(sep rune) reader {
	return func(data []byte) (*Dataset, error) {
		cr := csv.NewReader(bytes.NewReader(data))
		cr.Comma = sep
		cr.TrimLeadingSpace = false
		records, err := cr.ReadAll()
		if err != nil {
			return nil, err
		}
		return fromRecords(records)
	}
}

// readWhitespace splits each line on runs of whitespace.
func readWhitespace(data []byte) (*Dataset, error) {
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	var records [][]string
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		records = append(records, strings.Fields(line))
	}
	return fromRecords(records)
}

// readJSON accepts an array of flat objects. Scalar values are stringified;
// nulls become missing cells.
func readJSON(data []byte) (*Dataset, error) {
	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("expected an array of objects: %w", err)
	}
	if len(rows) == 0 {
		return nil, errors.New("no rows")
	}

	// Column order: first appearance across rows.
	var names []string
	seen := make(map[string]bool)
	for _, row := range rows {
		keys := make([]string, 0, len(row))
		for k := range row {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				names = append(names, k)
			}
		}
	}

	cols := make([]*Column, len(names))
	for ci, name := range names {
		cells := make([]string, len(rows))
		nulls := make([]bool, len(rows))
		for ri, row := range rows {
			v, ok := row[name]
			if !ok || v == nil {
				nulls[ri] = true
				continue
			}
			cells[ri] = stringifyJSON(v)
		}
		cols[ci] = NewColumn(name, cells, nulls)
	}
	return New(cols), nil
}

func stringifyJSON(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

// fromRecords converts header-plus-rows records into a Dataset. Short rows
// are an error; an empty cell is a null.
func fromRecords(records [][]string) (*Dataset, error) {
	if len(records) == 0 {
		return nil, errors.New("no header row")
	}
	header := records[0]
	if len(header) == 0 {
		return nil, errors.New("empty header row")
	}
	body := records[1:]

	cols := make([]*Column, len(header))
	for ci, name := range header {
		cells := make([]string, len(body))
		nulls := make([]bool, len(body))
		for ri, rec := range body {
			if ci >= len(rec) {
				return nil, fmt.Errorf("row %d has %d fields, want %d", ri+2, len(rec), len(header))
			}
			v := rec[ci]
			if v == "" {
				nulls[ri] = true
				continue
			}
			cells[ri] = v
		}
		cols[ci] = NewColumn(strings.TrimSpace(name), cells, nulls)
	}
	return New(cols), nil
}
